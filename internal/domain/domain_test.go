package domain

import "testing"

func TestNextBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lastPage, n          int
		wantStart, wantEnd   int
	}{
		{0, 5, 1, 5},
		{5, 5, 6, 10},
		{599, 5, 600, 604},
		{601, 5, 602, 604}, // short batch at the end of the book
		{604, 5, 1, 5},     // wrap to the beginning
		{700, 5, 1, 5},     // corrupted last page also wraps
		{-3, 5, 1, 5},
		{10, 0, 11, 15}, // n<1 falls back to the default batch size
	}
	for _, tc := range tests {
		got := NextBatch(tc.lastPage, tc.n)
		if got.Start != tc.wantStart || got.End != tc.wantEnd {
			t.Fatalf("NextBatch(%d, %d) = %v, want %d-%d", tc.lastPage, tc.n, got, tc.wantStart, tc.wantEnd)
		}
	}
}

func TestPageRange(t *testing.T) {
	t.Parallel()

	r := PageRange{Start: 6, End: 10}
	if r.Len() != 5 {
		t.Fatalf("Len = %d", r.Len())
	}
	if got := r.Pages(); len(got) != 5 || got[0] != 6 || got[4] != 10 {
		t.Fatalf("Pages = %v", got)
	}
	if (PageRange{Start: 3, End: 3}).String() != "3" {
		t.Fatal("single-page String")
	}
	if r.String() != "6-10" {
		t.Fatalf("String = %q", r.String())
	}
}

func TestSubscriptionsToggle(t *testing.T) {
	t.Parallel()

	var s Subscriptions
	if s.Any() {
		t.Fatal("zero value should have nothing enabled")
	}

	on, err := s.Toggle(ServiceQuran)
	if err != nil || !on || !s.Quran {
		t.Fatalf("Toggle on: %v %v", on, err)
	}
	on, err = s.Toggle(ServiceQuran)
	if err != nil || on || s.Quran {
		t.Fatalf("Toggle off: %v %v", on, err)
	}
	if _, err := s.Toggle(Service("bogus")); err == nil {
		t.Fatal("unknown service must error")
	}

	s = Subscriptions{Dhikr: true, NightPrayer: true}
	if !s.Any() || !s.Enabled(ServiceDhikr) || !s.Enabled(ServiceNightPrayer) || s.Enabled(ServiceQuran) {
		t.Fatalf("Enabled mismatch: %+v", s)
	}
}

func TestNewReadingProgress(t *testing.T) {
	t.Parallel()

	p := NewReadingProgress(12)
	if p.UserID != 12 || !p.LastReadConfirmed || p.HasBacklog() || p.LastPage != 0 {
		t.Fatalf("zero record = %+v", p)
	}
}
