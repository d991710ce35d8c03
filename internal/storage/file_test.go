package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

func openTestFileStore(t *testing.T, dir string) Store {
	t.Helper()
	st, err := openFile(Config{Driver: "file", Path: filepath.Join(dir, "wird")}, logx.Nop())
	if err != nil {
		t.Fatalf("openFile: %v", err)
	}
	return st
}

func TestFileStoreUserRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	st := openTestFileStore(t, dir)

	u := domain.User{
		ID:       42,
		Username: "reader",
		JoinedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Subs:     domain.Subscriptions{Quran: true, Dhikr: true},
	}
	if err := st.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, ok, err := st.GetUser(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("GetUser: ok=%v err=%v", ok, err)
	}
	if got.Username != "reader" || !got.Subs.Quran || got.Subs.NightPrayer {
		t.Fatalf("got %+v", got)
	}

	// Upsert overwrites.
	u.Subs.Quran = false
	if err := st.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser update: %v", err)
	}
	got, _, _ = st.GetUser(ctx, 42)
	if got.Subs.Quran {
		t.Fatal("update did not stick")
	}

	if _, ok, _ := st.GetUser(ctx, 99); ok {
		t.Fatal("unknown user should not be found")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	st := openTestFileStore(t, dir)
	for _, id := range []int64{3, 1, 2} {
		if err := st.UpsertUser(ctx, domain.User{ID: id, JoinedAt: time.Now()}); err != nil {
			t.Fatalf("UpsertUser(%d): %v", id, err)
		}
	}
	if err := st.SaveProgress(ctx, domain.ReadingProgress{
		UserID:            1,
		LastPage:          100,
		TotalPagesRead:    100,
		UnreadPages:       []int{96, 97, 98, 99, 100},
		ReminderMessageID: 7,
	}); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	_ = st.Close()

	st = openTestFileStore(t, dir)
	defer st.Close()

	users, err := st.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	if len(users) != 3 || users[0].ID != 1 || users[2].ID != 3 {
		t.Fatalf("AllUsers = %+v", users)
	}

	p, ok, err := st.GetProgress(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("GetProgress: ok=%v err=%v", ok, err)
	}
	if p.LastPage != 100 || p.TotalPagesRead != 100 || len(p.UnreadPages) != 5 || p.ReminderMessageID != 7 {
		t.Fatalf("progress = %+v", p)
	}
	if p.LastReadConfirmed {
		t.Fatalf("LastReadConfirmed should persist as false")
	}
}

func TestFileStoreClosedErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openTestFileStore(t, t.TempDir())
	_ = st.Close()

	if err := st.UpsertUser(ctx, domain.User{ID: 1}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := st.AllUsers(ctx); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
