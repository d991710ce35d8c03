package storage

import (
	"context"
	"testing"
	"time"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

func TestAsyncReadYourWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := openTestFileStore(t, t.TempDir())
	a := NewAsync(inner, 16, logx.Nop())
	// Worker intentionally not started: the overlay alone must serve reads.

	u := domain.User{ID: 7, Username: "x", Subs: domain.Subscriptions{Quran: true}}
	if err := a.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, ok, err := a.GetUser(ctx, 7)
	if err != nil || !ok || !got.Subs.Quran {
		t.Fatalf("overlay read: ok=%v err=%v got=%+v", ok, err, got)
	}

	users, err := a.AllUsers(ctx)
	if err != nil || len(users) != 1 || users[0].ID != 7 {
		t.Fatalf("AllUsers overlay: %v %+v", err, users)
	}
}

func TestAsyncFlushesToBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	inner := openTestFileStore(t, dir)
	a := NewAsync(inner, 16, logx.Nop())
	a.Start(ctx)

	if err := a.UpsertUser(ctx, domain.User{ID: 9, Username: "y"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := a.SaveProgress(ctx, domain.ReadingProgress{UserID: 9, LastPage: 5, TotalPagesRead: 5}); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Stop(sctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Backend must have the flushed rows.
	if _, ok, _ := inner.GetUser(ctx, 9); !ok {
		t.Fatal("user not flushed to backend")
	}
	p, ok, _ := inner.GetProgress(ctx, 9)
	if !ok || p.LastPage != 5 {
		t.Fatalf("progress not flushed: ok=%v p=%+v", ok, p)
	}
}

func TestAsyncAllUsersMergesOverlay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := openTestFileStore(t, t.TempDir())
	// Seed backend directly.
	if err := inner.UpsertUser(ctx, domain.User{ID: 1, Username: "old"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := NewAsync(inner, 16, logx.Nop())
	if err := a.UpsertUser(ctx, domain.User{ID: 1, Username: "new"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := a.UpsertUser(ctx, domain.User{ID: 2, Username: "added"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	users, err := a.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %+v", users)
	}
	if users[0].Username != "new" || users[1].Username != "added" {
		t.Fatalf("overlay merge wrong: %+v", users)
	}
}

var _ Store = (*Async)(nil)

func TestSheetsRangeRowParsing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"user_data!A12:G12", 12},
		{"quran_tracking!A2:E2", 2},
		{"A5", 5},
		{"user_data!A:G", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := parseRowFromRange(tc.in); got != tc.want {
			t.Fatalf("parseRowFromRange(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSheetsCellHelpers(t *testing.T) {
	t.Parallel()

	row := []any{"42", " reader ", "TRUE", "false"}
	if n, err := cellInt64(row, 0); err != nil || n != 42 {
		t.Fatalf("cellInt64: %d %v", n, err)
	}
	if s := cellStr(row, 1); s != "reader" {
		t.Fatalf("cellStr: %q", s)
	}
	if !cellBool(row, 2) || cellBool(row, 3) {
		t.Fatal("cellBool mismatch")
	}
	if cellStr(row, 10) != "" || cellBool(row, 10) {
		t.Fatal("out-of-range cells should be zero values")
	}
}
