package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "wirdbot/pkg/logx"
)

func newTestService() *Service {
	return New(Config{Workers: 2, QueueSize: 16}, logx.Nop())
}

func TestAddCronValidatesSpec(t *testing.T) {
	t.Parallel()

	s := newTestService()
	if err := s.AddCron("a", "not a cron", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if err := s.AddCron("a", "30 4 * * *", 0, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestAddCronUpsertsByName(t *testing.T) {
	t.Parallel()

	s := newTestService()
	job := func(ctx context.Context) error { return nil }
	if err := s.AddCron("user:1:quran", "0 2 * * *", 0, job); err != nil {
		t.Fatalf("AddCron: %v", err)
	}
	if err := s.AddCron("user:1:quran", "0 3 * * *", 0, job); err != nil {
		t.Fatalf("AddCron replace: %v", err)
	}

	scheds := s.Schedules()
	if len(scheds) != 1 {
		t.Fatalf("expected 1 schedule after upsert, got %d", len(scheds))
	}
	if scheds[0].Spec != "0 3 * * *" {
		t.Fatalf("spec = %q, want replacement", scheds[0].Spec)
	}
}

func TestAddWeeklyAtSpec(t *testing.T) {
	t.Parallel()

	s := newTestService()
	err := s.AddWeeklyAt("w", 19, 30, []time.Weekday{time.Saturday, time.Sunday, time.Tuesday}, 0, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("AddWeeklyAt: %v", err)
	}
	scheds := s.Schedules()
	if len(scheds) != 1 || scheds[0].Spec != "30 19 * * 0,2,6" {
		t.Fatalf("spec = %+v", scheds)
	}

	if err := s.AddWeeklyAt("w2", 19, 30, nil, 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for empty weekday set")
	}
	if err := s.AddWeeklyAt("w3", 25, 0, []time.Weekday{time.Monday}, 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid hour")
	}
}

func TestRemovePrefix(t *testing.T) {
	t.Parallel()

	s := newTestService()
	job := func(ctx context.Context) error { return nil }
	_ = s.AddCron("user:7:quran", "0 2 * * *", 0, job)
	_ = s.AddCron("user:7:dhikr", "0 3 * * *", 0, job)
	_ = s.AddCron("user:77:quran", "0 4 * * *", 0, job)
	_ = s.AddOnce("user:7:nag:2024-01-01", time.Now().Add(time.Hour), 0, job)

	names := s.Names("user:7:")
	if len(names) != 3 {
		t.Fatalf("Names(user:7:) = %v", names)
	}

	if n := s.RemovePrefix("user:7:"); n != 3 {
		t.Fatalf("RemovePrefix removed %d, want 3", n)
	}
	if names := s.Names("user:7:"); len(names) != 0 {
		t.Fatalf("leftover schedules: %v", names)
	}
	// The other user is untouched.
	if names := s.Names("user:77:"); len(names) != 1 {
		t.Fatalf("user:77 lost schedules: %v", names)
	}
}

func TestOnceFiresImmediatelyWhenPast(t *testing.T) {
	t.Parallel()

	s := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	fired := make(chan struct{})
	err := s.AddOnce("past", time.Now().Add(-time.Minute), 0, func(ctx context.Context) error {
		close(fired)
		return nil
	})
	if err != nil {
		t.Fatalf("AddOnce: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past once job did not fire")
	}

	// Definition is consumed after firing.
	waitFor(t, func() bool { return len(s.Names("past")) == 0 })
}

func TestOnceReplacedTimerDoesNotFireTwice(t *testing.T) {
	t.Parallel()

	s := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	var count atomic.Int32
	job := func(ctx context.Context) error {
		count.Add(1)
		return nil
	}
	if err := s.AddOnce("nag", time.Now().Add(20*time.Millisecond), 0, job); err != nil {
		t.Fatalf("AddOnce: %v", err)
	}
	// Replace before the first can fire.
	if err := s.AddOnce("nag", time.Now().Add(60*time.Millisecond), 0, job); err != nil {
		t.Fatalf("AddOnce replace: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Fatalf("once job fired %d times, want 1", got)
	}
}

func TestRetryOnFailure(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 1, QueueSize: 4, RetryMax: 2}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	var attempts atomic.Int32
	done := make(chan struct{})
	err := s.AddOnce("flaky", time.Now(), 0, func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("AddOnce: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("job did not succeed after retries (attempts=%d)", attempts.Load())
	}
}

func TestStopPreventsExecution(t *testing.T) {
	t.Parallel()

	s := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop(context.Background())

	fired := make(chan struct{}, 1)
	_ = s.AddOnce("late", time.Now(), 0, func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	})

	select {
	case <-fired:
		t.Fatal("job ran while scheduler stopped")
	case <-time.After(300 * time.Millisecond):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
