package progress

import (
	"context"
	"path/filepath"
	"testing"

	"wirdbot/internal/domain"
	"wirdbot/internal/storage"
	logx "wirdbot/pkg/logx"
)

func newTestTracker(t *testing.T) (*Tracker, storage.Store) {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "wird"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewTracker(st, logx.Nop()), st
}

func TestGetCreatesZeroRecord(t *testing.T) {
	t.Parallel()

	tr, st := newTestTracker(t)
	ctx := context.Background()

	p, err := tr.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.UserID != 5 || !p.LastReadConfirmed || p.LastPage != 0 {
		t.Fatalf("zero record = %+v", p)
	}

	// The record is persisted, not just returned.
	if _, ok, _ := st.GetProgress(ctx, 5); !ok {
		t.Fatal("record not persisted on first Get")
	}
}

func TestDispatchAdvancesAndGuards(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	ctx := context.Background()

	batch, ok, err := tr.DispatchNextBatch(ctx, 1, 5)
	if err != nil || !ok {
		t.Fatalf("first dispatch: ok=%v err=%v", ok, err)
	}
	if batch.Start != 1 || batch.End != 5 {
		t.Fatalf("batch = %v", batch)
	}

	// Unconfirmed backlog suppresses the next scheduled dispatch.
	if _, ok, err := tr.DispatchNextBatch(ctx, 1, 5); err != nil || ok {
		t.Fatalf("guarded dispatch: ok=%v err=%v", ok, err)
	}

	p, _ := tr.Get(ctx, 1)
	if p.LastPage != 5 || p.TotalPagesRead != 5 || p.LastReadConfirmed || len(p.UnreadPages) != 5 {
		t.Fatalf("after dispatch = %+v", p)
	}

	// Confirm, then the next dispatch continues where the last left off.
	if _, err := tr.ConfirmRead(ctx, 1); err != nil {
		t.Fatalf("ConfirmRead: %v", err)
	}
	batch, ok, err = tr.DispatchNextBatch(ctx, 1, 5)
	if err != nil || !ok || batch.Start != 6 || batch.End != 10 {
		t.Fatalf("second dispatch = %v ok=%v err=%v", batch, ok, err)
	}
}

func TestAppendMoreIsNeverGuarded(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	ctx := context.Background()

	if _, ok, err := tr.DispatchNextBatch(ctx, 2, 5); err != nil || !ok {
		t.Fatalf("dispatch: ok=%v err=%v", ok, err)
	}

	batch, err := tr.AppendMore(ctx, 2, 5)
	if err != nil {
		t.Fatalf("AppendMore: %v", err)
	}
	if batch.Start != 6 || batch.End != 10 {
		t.Fatalf("batch = %v", batch)
	}

	p, _ := tr.Get(ctx, 2)
	if len(p.UnreadPages) != 10 || p.TotalPagesRead != 10 || p.LastPage != 10 {
		t.Fatalf("after append = %+v", p)
	}
	if p.UnreadPages[0] != 1 || p.UnreadPages[9] != 10 {
		t.Fatalf("backlog order = %v", p.UnreadPages)
	}
}

func TestConfirmReportsHandlesAndClearsState(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	ctx := context.Background()

	if _, _, err := tr.DispatchNextBatch(ctx, 3, 5); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := tr.SetReminderMessage(ctx, 3, 111); err != nil {
		t.Fatalf("SetReminderMessage: %v", err)
	}
	if err := tr.SetWirdReminderMessage(ctx, 3, 222); err != nil {
		t.Fatalf("SetWirdReminderMessage: %v", err)
	}

	got, err := tr.ConfirmRead(ctx, 3)
	if err != nil {
		t.Fatalf("ConfirmRead: %v", err)
	}
	// The caller still sees the handles it has to retract.
	if got.ReminderMessageID != 111 || got.WirdReminderMessageID != 222 {
		t.Fatalf("returned handles = %+v", got)
	}
	if !got.LastReadConfirmed || got.HasBacklog() || got.TotalPagesRead != 5 {
		t.Fatalf("confirmed record = %+v", got)
	}

	// The persisted record has them cleared.
	p, _ := tr.Get(ctx, 3)
	if p.ReminderMessageID != 0 || p.WirdReminderMessageID != 0 || p.HasBacklog() {
		t.Fatalf("persisted record = %+v", p)
	}

	// Idempotent.
	if _, err := tr.ConfirmRead(ctx, 3); err != nil {
		t.Fatalf("second ConfirmRead: %v", err)
	}
}

func TestWrapAtEndOfBook(t *testing.T) {
	t.Parallel()

	tr, st := newTestTracker(t)
	ctx := context.Background()

	seed := domain.NewReadingProgress(4)
	seed.LastPage = 602
	seed.TotalPagesRead = 602
	if err := st.SaveProgress(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch, ok, err := tr.DispatchNextBatch(ctx, 4, 5)
	if err != nil || !ok {
		t.Fatalf("dispatch: ok=%v err=%v", ok, err)
	}
	if batch.Start != 603 || batch.End != 604 || batch.Len() != 2 {
		t.Fatalf("short end batch = %v", batch)
	}

	if _, err := tr.ConfirmRead(ctx, 4); err != nil {
		t.Fatalf("ConfirmRead: %v", err)
	}
	batch, ok, err = tr.DispatchNextBatch(ctx, 4, 5)
	if err != nil || !ok || batch.Start != 1 || batch.End != 5 {
		t.Fatalf("wrapped batch = %v ok=%v err=%v", batch, ok, err)
	}

	p, _ := tr.Get(ctx, 4)
	if p.TotalPagesRead != 609 {
		t.Fatalf("TotalPagesRead = %d, want 609", p.TotalPagesRead)
	}
}
