package reminders

import (
	"context"
	"fmt"
	"time"

	"wirdbot/internal/domain"
	"wirdbot/internal/progress"
	"wirdbot/internal/quran"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/timeutil"
	kit "wirdbot/internal/transport"
	logx "wirdbot/pkg/logx"
	"wirdbot/pkg/tgui"
)

// Handlers holds the bodies of the scheduled jobs and the reading-flow
// callbacks. Transport errors are logged and swallowed: a failed send to one
// user must never fail the job or leak into another user's reminders.
type Handlers struct {
	adapter kit.Adapter
	tracker *progress.Tracker
	links   quran.Links
	sched   *scheduler.Service
	loc     *time.Location
	log     logx.Logger
	now     func() time.Time
}

func NewHandlers(adapter kit.Adapter, tracker *progress.Tracker, links quran.Links, sched *scheduler.Service, loc *time.Location, log logx.Logger) *Handlers {
	if loc == nil {
		loc = timeutil.Location()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{
		adapter: adapter,
		tracker: tracker,
		links:   links,
		sched:   sched,
		loc:     loc,
		log:     log,
		now:     time.Now,
	}
}

// Run dispatches a job kind to its body. Used by the installer so planning
// stays data-only.
func (h *Handlers) Run(ctx context.Context, kind Kind, userID int64) error {
	switch kind {
	case KindQuranDaily:
		return h.QuranDaily(ctx, userID)
	case KindProphetPrayer:
		return h.sendTexts(ctx, userID, textProphetPrayer)
	case KindDailyDhikr:
		return h.DailyDhikr(ctx, userID)
	case KindDhikrNoon, KindDhikrMidnight:
		return h.sendTexts(ctx, userID, textTwelveHourDhikr)
	case KindDhikrDua:
		return h.sendTexts(ctx, userID, textDua)
	case KindDhikrAyah:
		return h.sendTexts(ctx, userID, textAyah)
	case KindNightPrayer:
		return h.sendTexts(ctx, userID, nightPrayerMessages...)
	case KindReadingNag:
		return h.Nag(ctx, userID)
	}
	return fmt.Errorf("unknown job kind %q", kind)
}

// QuranDaily is the scheduled noon dispatch. With an unconfirmed backlog the
// user gets a warning and a resend button instead of new pages.
func (h *Handlers) QuranDaily(ctx context.Context, userID int64) error {
	to := kit.ChatTarget{ChatID: userID}

	batch, ok, err := h.tracker.DispatchNextBatch(ctx, userID, domain.BatchSize)
	if err != nil {
		return err
	}
	if !ok {
		_, err := h.adapter.SendText(ctx, to, textBacklogWarning, resendMarkup())
		if err != nil {
			h.log.Warn("backlog warning send failed", logx.Int64("user", userID), logx.Err(err))
		}
		return nil
	}

	if _, err := h.adapter.SendText(ctx, to, fmt.Sprintf(textQuranHeaderFmt, batch.Start, batch.End), nil); err != nil {
		h.log.Warn("wird header send failed", logx.Int64("user", userID), logx.Err(err))
	}
	h.sendPages(ctx, to, batch.Pages())
	h.promptConfirm(ctx, userID)

	h.scheduleNag(userID)
	return nil
}

// Nag is the 23:50 one-shot. Silent when the batch was confirmed in time.
func (h *Handlers) Nag(ctx context.Context, userID int64) error {
	p, err := h.tracker.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.LastReadConfirmed {
		return nil
	}
	ref, err := h.adapter.SendText(ctx, kit.ChatTarget{ChatID: userID}, textNag, resendMarkup())
	if err != nil {
		h.log.Warn("nag send failed", logx.Int64("user", userID), logx.Err(err))
		return nil
	}
	return h.tracker.SetWirdReminderMessage(ctx, userID, ref.MessageID)
}

// Resend re-emits the unread backlog. trigger is the message carrying the
// pressed button; it is deleted first so the chat doesn't fill with stale
// buttons.
func (h *Handlers) Resend(ctx context.Context, userID int64, trigger kit.MessageRef) error {
	to := kit.ChatTarget{ChatID: userID}

	if trigger.MessageID != 0 {
		if err := h.adapter.DeleteMessage(ctx, trigger); err != nil {
			h.log.Debug("trigger message delete failed", logx.Int64("user", userID), logx.Err(err))
		}
	}

	p, err := h.tracker.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !p.HasBacklog() {
		_, err := h.adapter.SendText(ctx, to, textNoBacklog, nil)
		return err
	}

	if _, err := h.adapter.SendText(ctx, to, textResendIntro, nil); err != nil {
		h.log.Warn("resend intro failed", logx.Int64("user", userID), logx.Err(err))
	}
	h.sendPages(ctx, to, p.UnreadPages)
	h.promptConfirm(ctx, userID)
	return nil
}

// ConfirmRead marks the backlog as read, retracts the outstanding prompt and
// nag messages, reports the cumulative total and offers more pages.
func (h *Handlers) ConfirmRead(ctx context.Context, userID int64, prompt kit.MessageRef) error {
	to := kit.ChatTarget{ChatID: userID}

	rec, err := h.tracker.ConfirmRead(ctx, userID)
	if err != nil {
		return err
	}

	if rec.WirdReminderMessageID != 0 {
		ref := kit.MessageRef{ChatID: userID, MessageID: rec.WirdReminderMessageID}
		if err := h.adapter.DeleteMessage(ctx, ref); err != nil {
			h.log.Debug("nag message delete failed", logx.Int64("user", userID), logx.Err(err))
		}
	}
	if prompt.MessageID != 0 {
		if err := h.adapter.DeleteMessage(ctx, prompt); err != nil {
			h.log.Debug("prompt delete failed", logx.Int64("user", userID), logx.Err(err))
		}
	}

	if _, err := h.adapter.SendText(ctx, to, fmt.Sprintf(textTotalReadFmt, rec.TotalPagesRead), nil); err != nil {
		h.log.Warn("total report failed", logx.Int64("user", userID), logx.Err(err))
	}

	markup := &kit.SendOptions{ReplyMarkupAdapter: tgui.NewInline().
		Row(tgui.Btn(btnMoreYes, CallbackMoreQuran), tgui.Btn(btnMoreNo, CallbackNoMore)).
		Markup()}
	_, err = h.adapter.SendText(ctx, to, textMorePrompt, markup)
	return err
}

// MoreQuran hands out the next batch on request. prompt is the "more?"
// message, edited into a progress note the way the original flow does.
func (h *Handlers) MoreQuran(ctx context.Context, userID int64, prompt kit.MessageRef) error {
	to := kit.ChatTarget{ChatID: userID}

	if prompt.MessageID != 0 {
		if err := h.adapter.EditText(ctx, prompt, textSendingMore, nil); err != nil {
			h.log.Debug("more prompt edit failed", logx.Int64("user", userID), logx.Err(err))
		}
	}

	batch, err := h.tracker.AppendMore(ctx, userID, domain.BatchSize)
	if err != nil {
		return err
	}
	h.sendPages(ctx, to, batch.Pages())
	h.promptConfirm(ctx, userID)
	return nil
}

// DailyDhikr sends the 16:30 sequence.
func (h *Handlers) DailyDhikr(ctx context.Context, userID int64) error {
	msgs := append([]string{textDailyDhikrHeader}, dailyDhikrMessages...)
	return h.sendTexts(ctx, userID, msgs...)
}

func (h *Handlers) sendTexts(ctx context.Context, userID int64, texts ...string) error {
	to := kit.ChatTarget{ChatID: userID}
	for _, msg := range texts {
		if _, err := h.adapter.SendText(ctx, to, msg, nil); err != nil {
			h.log.Warn("reminder send failed", logx.Int64("user", userID), logx.Err(err))
			return nil
		}
	}
	return nil
}

func (h *Handlers) sendPages(ctx context.Context, to kit.ChatTarget, pages []int) {
	for _, page := range pages {
		url, ok := h.links.Link(page)
		if !ok {
			_, _ = h.adapter.SendText(ctx, to, fmt.Sprintf(textPageMissingFmt, page), nil)
			continue
		}
		if _, err := h.adapter.SendPhoto(ctx, to, url, fmt.Sprintf(textPageCaptionFmt, page)); err != nil {
			h.log.Warn("page send failed", logx.Int64("chat", to.ChatID), logx.Int("page", page), logx.Err(err))
			_, _ = h.adapter.SendText(ctx, to, fmt.Sprintf(textPageMissingFmt, page), nil)
		}
	}
}

func (h *Handlers) promptConfirm(ctx context.Context, userID int64) {
	markup := &kit.SendOptions{ReplyMarkupAdapter: tgui.Single(btnReadYes, CallbackConfirmRead)}
	ref, err := h.adapter.SendText(ctx, kit.ChatTarget{ChatID: userID}, textConfirmPrompt, markup)
	if err != nil {
		h.log.Warn("confirm prompt failed", logx.Int64("user", userID), logx.Err(err))
		return
	}
	if err := h.tracker.SetReminderMessage(ctx, userID, ref.MessageID); err != nil {
		h.log.Warn("reminder handle save failed", logx.Int64("user", userID), logx.Err(err))
	}
}

// scheduleNag installs the same-day 23:50 local one-shot. Already past
// 23:50 means no nag today, not an error.
func (h *Handlers) scheduleNag(userID int64) {
	if h.sched == nil {
		return
	}
	now := h.now().In(h.loc)
	at := time.Date(now.Year(), now.Month(), now.Day(), nagAt.Hour, nagAt.Minute, 0, 0, h.loc)
	if !at.After(now) {
		return
	}
	name := fmt.Sprintf("%s%s:%s", OwnerPrefix(userID), KindReadingNag, now.Format("2006-01-02"))
	err := h.sched.AddOnce(name, at, 0, func(ctx context.Context) error {
		return h.Nag(ctx, userID)
	})
	if err != nil {
		h.log.Warn("nag schedule failed", logx.Int64("user", userID), logx.Err(err))
	}
}

func resendMarkup() *kit.SendOptions {
	return &kit.SendOptions{ReplyMarkupAdapter: tgui.Single(btnResendWird, CallbackReturnWird)}
}
