// Package progress owns the Quran reading state machine: which pages go out
// next, which are still unconfirmed, and the message handles that need
// retracting once the user confirms.
package progress

import (
	"context"
	"fmt"

	"wirdbot/internal/domain"
	"wirdbot/internal/storage"
	logx "wirdbot/pkg/logx"
)

// Tracker keeps all page math in one place. Methods load, mutate and persist
// the per-user record; callers never touch the fields directly.
type Tracker struct {
	store storage.Store
	log   logx.Logger
}

func NewTracker(store storage.Store, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, log: log}
}

// Get returns the user's record, creating and persisting the zero record on
// first access.
func (t *Tracker) Get(ctx context.Context, userID int64) (domain.ReadingProgress, error) {
	p, ok, err := t.store.GetProgress(ctx, userID)
	if err != nil {
		return domain.ReadingProgress{}, fmt.Errorf("load progress %d: %w", userID, err)
	}
	if ok {
		return p, nil
	}
	p = domain.NewReadingProgress(userID)
	if err := t.store.SaveProgress(ctx, p); err != nil {
		return domain.ReadingProgress{}, fmt.Errorf("init progress %d: %w", userID, err)
	}
	return p, nil
}

// DispatchNextBatch hands out the next n pages for the scheduled daily
// reminder. While earlier pages are still unconfirmed it hands out nothing:
// the caller should point the user back at the backlog instead.
func (t *Tracker) DispatchNextBatch(ctx context.Context, userID int64, n int) (domain.PageRange, bool, error) {
	p, err := t.Get(ctx, userID)
	if err != nil {
		return domain.PageRange{}, false, err
	}
	if p.HasBacklog() {
		return domain.PageRange{}, false, nil
	}

	batch := domain.NextBatch(p.LastPage, n)
	p.LastPage = batch.End
	p.UnreadPages = batch.Pages()
	p.LastReadConfirmed = false
	p.TotalPagesRead += batch.Len()
	if err := t.store.SaveProgress(ctx, p); err != nil {
		return domain.PageRange{}, false, fmt.Errorf("save progress %d: %w", userID, err)
	}
	return batch, true, nil
}

// AppendMore hands out the next n pages on explicit user request. Unlike the
// scheduled dispatch it is never suppressed; the new pages join whatever is
// already unconfirmed.
func (t *Tracker) AppendMore(ctx context.Context, userID int64, n int) (domain.PageRange, error) {
	p, err := t.Get(ctx, userID)
	if err != nil {
		return domain.PageRange{}, err
	}

	batch := domain.NextBatch(p.LastPage, n)
	p.LastPage = batch.End
	p.UnreadPages = append(p.UnreadPages, batch.Pages()...)
	p.LastReadConfirmed = false
	p.TotalPagesRead += batch.Len()
	if err := t.store.SaveProgress(ctx, p); err != nil {
		return domain.PageRange{}, fmt.Errorf("save progress %d: %w", userID, err)
	}
	return batch, nil
}

// ConfirmRead marks the current backlog as read and clears the outstanding
// nag message handle. Idempotent. The returned record carries the message
// ids as they were before clearing so the caller can delete those messages,
// plus the cumulative total to report back.
func (t *Tracker) ConfirmRead(ctx context.Context, userID int64) (domain.ReadingProgress, error) {
	p, err := t.Get(ctx, userID)
	if err != nil {
		return domain.ReadingProgress{}, err
	}
	before := p

	p.LastReadConfirmed = true
	p.UnreadPages = nil
	p.ReminderMessageID = 0
	p.WirdReminderMessageID = 0
	if err := t.store.SaveProgress(ctx, p); err != nil {
		return domain.ReadingProgress{}, fmt.Errorf("save progress %d: %w", userID, err)
	}

	out := p
	out.ReminderMessageID = before.ReminderMessageID
	out.WirdReminderMessageID = before.WirdReminderMessageID
	return out, nil
}

// SetReminderMessage records the id of the "did you read it?" prompt.
func (t *Tracker) SetReminderMessage(ctx context.Context, userID int64, msgID int) error {
	return t.setMessage(ctx, userID, msgID, false)
}

// SetWirdReminderMessage records the id of the evening nag message.
func (t *Tracker) SetWirdReminderMessage(ctx context.Context, userID int64, msgID int) error {
	return t.setMessage(ctx, userID, msgID, true)
}

func (t *Tracker) setMessage(ctx context.Context, userID int64, msgID int, wird bool) error {
	p, err := t.Get(ctx, userID)
	if err != nil {
		return err
	}
	if wird {
		p.WirdReminderMessageID = msgID
	} else {
		p.ReminderMessageID = msgID
	}
	if err := t.store.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save progress %d: %w", userID, err)
	}
	return nil
}
