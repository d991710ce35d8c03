package reminders

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"wirdbot/internal/domain"
	"wirdbot/internal/progress"
	"wirdbot/internal/quran"
	"wirdbot/internal/services/broadcast"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/storage"
	logx "wirdbot/pkg/logx"
)

func newTestInstaller(t *testing.T) (*Installer, *scheduler.Service, storage.Store) {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "wird"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sched := scheduler.New(scheduler.Config{}, logx.Nop())
	ad := &fakeAdapter{}
	h := NewHandlers(ad, progress.NewTracker(st, logx.Nop()), quran.NewLinks(""), sched, time.UTC, logx.Nop())
	bc := broadcast.New(broadcast.Config{}, ad, logx.Nop())
	return NewInstaller(sched, h, st, bc, time.UTC, logx.Nop()), sched, st
}

func subscribedUser(id int64, services ...domain.Service) domain.User {
	u := domain.User{ID: id, JoinedAt: time.Now()}
	for _, svc := range services {
		u.Subs.Toggle(svc)
	}
	return u
}

func TestInstallRegistersPlannedTriggers(t *testing.T) {
	t.Parallel()

	in, sched, _ := newTestInstaller(t)
	u := subscribedUser(10, domain.ServiceQuran, domain.ServiceDhikr)

	if err := in.Install(context.Background(), u); err != nil {
		t.Fatalf("Install: %v", err)
	}

	names := sched.Names(OwnerPrefix(10))
	if len(names) != 6 {
		t.Fatalf("names = %v", names)
	}
	sort.Strings(names)
	if names[len(names)-1] != JobName(10, KindQuranDaily, -1) {
		t.Fatalf("quran job missing: %v", names)
	}
}

func TestInstallReplacesExistingTriggers(t *testing.T) {
	t.Parallel()

	in, sched, _ := newTestInstaller(t)
	ctx := context.Background()

	all := subscribedUser(11, domain.ServiceQuran, domain.ServiceProphetPrayer,
		domain.ServiceDhikr, domain.ServiceNightPrayer)
	if err := in.Install(ctx, all); err != nil {
		t.Fatalf("install all: %v", err)
	}
	if got := len(sched.Names(OwnerPrefix(11))); got != 31 {
		t.Fatalf("full set = %d jobs", got)
	}

	// Narrowing the subscription drops the old triggers.
	if err := in.Install(ctx, subscribedUser(11, domain.ServiceNightPrayer)); err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	names := sched.Names(OwnerPrefix(11))
	if len(names) != 1 || names[0] != JobName(11, KindNightPrayer, -1) {
		t.Fatalf("names after reinstall = %v", names)
	}

	if n := in.Uninstall(11); n != 1 {
		t.Fatalf("Uninstall removed %d", n)
	}
	if left := sched.Names(OwnerPrefix(11)); len(left) != 0 {
		t.Fatalf("left = %v", left)
	}
}

func TestInstallDoesNotTouchOtherOwners(t *testing.T) {
	t.Parallel()

	in, sched, _ := newTestInstaller(t)
	ctx := context.Background()

	if err := in.Install(ctx, subscribedUser(20, domain.ServiceQuran)); err != nil {
		t.Fatalf("install 20: %v", err)
	}
	if err := in.Install(ctx, subscribedUser(21, domain.ServiceQuran)); err != nil {
		t.Fatalf("install 21: %v", err)
	}
	if err := in.Install(ctx, subscribedUser(20, domain.ServiceNightPrayer)); err != nil {
		t.Fatalf("reinstall 20: %v", err)
	}

	if names := sched.Names(OwnerPrefix(21)); len(names) != 1 {
		t.Fatalf("owner 21 jobs = %v", names)
	}
}

func TestReconcileAllSkipsUnsubscribed(t *testing.T) {
	t.Parallel()

	in, sched, st := newTestInstaller(t)
	ctx := context.Background()

	active := subscribedUser(30, domain.ServiceQuran)
	idle := domain.User{ID: 31, JoinedAt: time.Now()}
	if err := st.UpsertUser(ctx, active); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.UpsertUser(ctx, idle); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := in.ReconcileAll(ctx); err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if names := sched.Names(OwnerPrefix(30)); len(names) != 1 {
		t.Fatalf("active user jobs = %v", names)
	}
	if names := sched.Names(OwnerPrefix(31)); len(names) != 0 {
		t.Fatalf("idle user jobs = %v", names)
	}
}

func TestInstallGlobalRegistersWeeklyBroadcasts(t *testing.T) {
	t.Parallel()

	in, sched, _ := newTestInstaller(t)
	if err := in.InstallGlobal(); err != nil {
		t.Fatalf("InstallGlobal: %v", err)
	}

	names := sched.Names("global:")
	sort.Strings(names)
	want := []string{globalSaturdayJob, globalThursdayJob}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("global jobs = %v", names)
	}
	for _, s := range sched.Schedules() {
		if strings.HasPrefix(s.Name, "global:") && s.Spec == "" {
			t.Fatalf("empty spec for %s", s.Name)
		}
	}
}
