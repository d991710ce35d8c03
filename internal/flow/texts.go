package flow

import "wirdbot/internal/domain"

const (
	textWelcome = "مرحباً بك في بوت \"اذكر الله\"!\n\nيرجى اختيار الخدمات التي ترغب في الاشتراك بها:"

	textNoServiceSelected = "لم تقم باختيار أي خدمة. يرجى اختيار خدمة واحدة على الأقل."
	textSelectionAck      = "تم تأكيد اختياراتك بنجاح!"
	textScheduling        = "جاري جدولة التذكيرات..."
	textConfirmErrorFmt   = "حدث خطأ أثناء تأكيد اختياراتك. يرجى المحاولة مرة أخرى أو التواصل مع مسؤول البوت.\n\nتفاصيل الخطأ: %s"

	textScheduleHeader = "مواعيد التذكيرات:\n\n"
	textScheduleFooter = "شكراً لاختيارك بوت \"اذكر الله\". ستبدأ في تلقي التذكيرات حسب المواعيد المذكورة أعلاه."

	textAdminsOnly       = "هذا الأمر متاح فقط للمسؤول"
	textUsersCountFmt    = "عدد مستخدمي البوت الحاليين : %d"
	textUsersInfoHeader  = "معلومات المستخدمين:\n\n"
	textUserInfoEntryFmt = "- اسم المستخدم: %s (%d)\n- تاريخ الانضمام: %s\n- الخدمات: %s\n"
	textNoUsers          = "لا يوجد مستخدمين مسجلين حالياً"
	textNoServices       = "لا يوجد"

	btnConfirmSelection = "🔵 تأكيد الاختيارات 🔵"
)

var serviceButtonLabels = map[domain.Service]string{
	domain.ServiceQuran:         "القرآن الكريم",
	domain.ServiceProphetPrayer: "الصلاة على النبي",
	domain.ServiceDhikr:         "الأدعية وذكر الله",
	domain.ServiceNightPrayer:   "قيام الليل",
}

// Per-service schedule descriptions; the summary lists only the services the
// user confirmed.
var serviceScheduleLines = map[domain.Service]string{
	domain.ServiceQuran:         "خدمة القرآن الكريم: يومياً الساعة 12:00 ظهراً",
	domain.ServiceProphetPrayer: "خدمة الصلاة على النبي: كل ساعة بداية من الساعة 12:15 ظهراً",
	domain.ServiceDhikr:         "خدمة الأدعية وذكر الله: في مواعيد متفرقه",
	domain.ServiceNightPrayer:   "خدمة قيام الليل: يومياً الساعة 12:00 منتصف الليل",
}

// Short labels used in the admin user listing.
var serviceInfoLabels = map[domain.Service]string{
	domain.ServiceQuran:         "القرآن",
	domain.ServiceProphetPrayer: "الصلاة على النبي",
	domain.ServiceDhikr:         "الأذكار",
	domain.ServiceNightPrayer:   "قيام الليل",
}

// Callback data tokens for the subscription keyboard.
const (
	callbackTogglePrefix   = "svc:"
	callbackConfirmChoices = "confirm_services"
)
