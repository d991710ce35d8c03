package reminders

// User-facing message set. All texts are Arabic and sent verbatim; the
// format strings take page numbers or totals.

const (
	textQuranHeaderFmt = "🔵 إليك ورد اليوم من القرآن الكريم ( من %d إلى %d ) :"
	textPageCaptionFmt = "صفحة %d"
	textPageMissingFmt = "عذراً، لم يتم العثور على رابط لصفحة %d."

	textBacklogWarning = "🔴 لديك صفحات لم تقرأها بعد. يرجى قراءتها أولاً."
	textConfirmPrompt  = "هل قرأت الوِرد؟"
	textNag            = "🔴 متنساش تقرأ الوِرد"

	textResendIntro = "إليك الورد الذي لم تقرأه بعد:"
	textNoBacklog   = "لا يوجد ورد حالي مسجل لك للعودة إليه."

	textTotalReadFmt = "أنت خلصت %d صفحات من القرآن الكريم"
	textMorePrompt   = "هل تريد المزيد؟"
	textSendingMore  = "جاري إرسال المزيد من الصفحات..."
	TextNoMoreAck    = "حسناً، سنرسل لك المزيد غداً إن شاء الله."

	textProphetPrayer = "🟢 اللهم صلِ وسلم و زِد و بارك علي سيدنا محمد وعلي آله و صحبه اچمعين"

	textDailyDhikrHeader = "🟡 ادعيه و ذكر اللّه :"
	textTwelveHourDhikr  = " 🟡 بسم الله الذي لايضر مع اسمه شئ في الارض ولا في السماء وهو السميع العليم '' ثلاث مرات '' "

	textDua  = "إلهي أذهب البأس ربّ النّاس ، اشف وأنت الشّافي ، لا شفاء إلا شفاؤك ، شفاءً لا يغادر سقماً ، أذهب البأس ربّ النّاس ، بيدك الشّفاء ، لا كاشف له إلّا أنت يارب العالمين"
	textAyah = "﴿ ۞ وَأَيُّوبَ إِذۡ نَادَىٰ رَبَّهُۥٓ أَنِّي مَسَّنِيَ ٱلضُّرُّ وَأَنتَ أَرۡحَمُ ٱلرَّٰحِمِينَ ﴾  [ الأنبياء : ٨٣ ]"

	btnResendWird = " اعاده ارسال الوِرد "
	btnReadYes    = "نعم ✅"
	btnMoreYes    = "نعم"
	btnMoreNo     = "لا"
)

// Callback tokens routed back to the reading flow.
const (
	CallbackConfirmRead = "confirm_read"
	CallbackReturnWird  = "return_to_wird"
	CallbackMoreQuran   = "more_quran"
	CallbackNoMore      = "no_more_quran"
)

var dailyDhikrMessages = []string{
	"لا حول ولا قوة إلا باللًٰه العليّ العظيم",
	"سبحان الله عدد خلقه و رضا نفسه و زنه عرشه و مداد كلماته",
	"استغفر الله العظيم الذي لا اله إلا هو الحي القيوم واتوب إليه",
	"لا اله الا الله وحده لا شريك له ، له الملك وله الحمد وهو علي كل شئ قدير",
	"اللهم اغفر للمؤمنين و المؤمنات , المسلمين و المسلمات الاحياء منهم والاموات",
	"اللهم أنت ربي لا إله إلا أنت ، خلقتني وأنا عبدك وأنا على عهدك و وعدك ما استطعت ، أعوذ بك من شر ما صنعت ، أبوء لك بنعمتك عليّْ ، وأبوء بذنبي فاغفر لي فإنه لا يغفر الذنوب إلا أنت",
	"آيه الكرسي : \n« ٱللَّهُ لَاۤ إِلَـٰهَ إِلَّا هُوَ ٱلۡحَیُّ ٱلۡقَيُّومُۚ لَا تَأۡخُذُهُۥ سِنَةࣱ وَلَا نَوۡمࣱۚ لَّهُۥ مَا فِی ٱلسَّمَـٰوَ ٰتِ وَمَا فِی ٱلۡأَرۡضِۗ مَن ذَا ٱلَّذِی يَشۡفَعُ عِندَهُۥۤ إِلَّا بِإِذۡنِهِۦۚ يَعۡلَمُ مَا بَيۡنَ أَيۡدِيهِمۡ وَمَا خَلۡفَهُمۡۖ وَلَا يُحِيطُونَ بِشَیۡءࣲ مِّنۡ عِلۡمِهِۦۤ إِلَّا بِمَا شَاۤءَۚ وَسِعَ كُرۡسِيُّهُ ٱلسَّمَـٰوَ ٰتِ وَٱلۡأَرۡضَۖ وَلَا يَـُٔودُهُۥ حِفۡظُهُمَاۚ وَهُوَ ٱلۡعَلِیُّ ٱلۡعَظِيمُ »",
	"اللهم إني أسألك من الخير كله : عاجله وآجله ، ما علمت منه وما لم أعلم ، وأعوذ بك من الشر كله عاجله وآجله ، ما علمت منه وما لم أعلم. اللهم إني أسألك من خير ما سألك عبدك ونبيك ، وأعوذ بك من شر ما استعاذ بك عبدك ونبيك. اللهم إني أسألك الجنة ، وما قرب إليها من قول أو عمل ، وأعوذ بك من النار ، وما قرب إليها من قول أو عمل ، وأسألك أن تجعل كل قضاء قضيته لي خيرا.",
}

var nightPrayerMessages = []string{
	" 🟤 تذكير قيام الليل : ",
	"وإن لم تستطع فا قرائه اخر آيتان من سوره البقره كفتاه :",
	"بسم الله الرحمن الرحيم ﴿ آمَنَ الرَّسُولُ بِمَا أُنْزِلَ إِلَيْهِ مِنْ رَبِّهِ وَالْمُؤْمِنُونَ ۚ كُلٌّ آمَنَ بِاللَّهِ وَمَلَائِكَتِهِ وَكُتُبِهِ وَرُسُلِهِ لَا نُفَرِّقُ بَيْنَ أَحَدٍ مِنْ رُسُلِهِ ۚ وَقَالُوا سَمِعْنَا وَأَطَعْنَا ۖ غُفْرَانَكَ رَبَّنَا وَإِلَيْكَ الْمَصِيرُ ( ٢٨٥ ) لَا يُكَلِّفُ اللَّهُ نَفْسًا إِلَّا وُسْعَهَا لَهَا مَا كَسَبَتْ وَعَلَيْهَا مَا اكْتَسَبَتْ رَبَّنَا لَا تُؤَاخِذْنَا إِنْ نَسِينَا أَوْ أَخْطَأْنَا رَبَّنَا وَلَا تَحْمِلْ عَلَيْنَا إِصْرًا كَمَا حَمَلْتَهُ عَلَى الَّذِينَ مِنْ قَبْلِنَا رَبَّنَا وَلَا تُحَمِّلْنَا مَا لَا طَاقَةَ لَنَا بِهِ وَاعْفُ عَنَّا وَاغْفِرْ لَنَا وَارْحَمْنَا أَنْتَ مَوْلَانَا فَانْصُرْنَا عَلَى الْقَوْمِ الْكَافِرِينَ ( ٢٨٦ ) ﴾",
}

var thursdayMessages = []string{
	"مِن مغرب الخَميس إلى مغرب الجُمعة كُلّ ثانية فيها خزائن من الحسناتِ والرّحمات وتفريج الكُربات\nفليُكثر المرء من الصَّلاة على النَّبي ﷺ",
	"﴿ إِنَّ اللَّهَ وَمَلائِكَتَهُ يُصَلّونَ عَلَى النَّبِيِّ يا أَيُّهَا الَّذينَ آمَنوا صَلّوا عَلَيهِ وَسَلِّموا تَسليمًا ﴾ [ الأحزاب : ٥٦ ]",
}

var saturdayMessages = []string{
	"🟣 بدايه اسبوع جديد وحاول تبعد عن الذنوب وخصوصا الكبائر عشان بتسبب مشاكل و تعب نفسي و نقص الرزق و عدم استجابه الدعاء و عدم التوفيق و غيره الكثير",
	"بعض من الكبائر : ترك الصلاة , العقوق , الكذب , الغيبة , النميمة , الربا ( من ضمنها القروض ) , شرب الخمر والمخدرات , شتم الاهل ( اهل اي حد ) , الزنا , أكل المال الحرام , الرياء ( التظاهر بالصلاح ) , شهادة الزور , قطع صله الرحم",
}
