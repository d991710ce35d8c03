package reminders

import (
	"context"
	"fmt"
	"time"

	"wirdbot/internal/domain"
	"wirdbot/internal/services/broadcast"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/storage"
	"wirdbot/internal/timeutil"
	logx "wirdbot/pkg/logx"
)

// Global broadcast times (Cairo wall clock).
var (
	thursdayAt = timeutil.At(16, 0)
	saturdayAt = timeutil.At(9, 0)
)

const (
	globalThursdayJob = "global:thursday"
	globalSaturdayJob = "global:saturday"
)

// Installer turns planned jobs into live triggers. Install is an idempotent
// replace: the user's whole prefix is cleared first, so re-confirming a
// subscription never duplicates reminders.
type Installer struct {
	sched    *scheduler.Service
	handlers *Handlers
	store    storage.Store
	bcast    *broadcast.Service
	loc      *time.Location
	log      logx.Logger
	now      func() time.Time
}

func NewInstaller(sched *scheduler.Service, handlers *Handlers, store storage.Store, bcast *broadcast.Service, loc *time.Location, log logx.Logger) *Installer {
	if loc == nil {
		loc = timeutil.Location()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Installer{
		sched:    sched,
		handlers: handlers,
		store:    store,
		bcast:    bcast,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// Install replaces the user's trigger set with the one planned from their
// current subscriptions.
func (in *Installer) Install(ctx context.Context, u domain.User) error {
	removed := in.sched.RemovePrefix(OwnerPrefix(u.ID))
	jobs := PlanJobs(u)

	ref := in.now()
	for _, j := range jobs {
		j := j
		run := func(ctx context.Context) error {
			return in.handlers.Run(ctx, j.Kind, u.ID)
		}

		utc, dayOffset := timeutil.ToUTC(in.loc, ref, j.At)
		var err error
		if len(j.Days) > 0 {
			days := timeutil.ShiftWeekdays(j.Days, dayOffset)
			err = in.sched.AddWeeklyAtSec(j.Name, utc.Hour, utc.Minute, utc.Second, days, 0, run)
		} else {
			err = in.sched.AddDailySec(j.Name, utc.Hour, utc.Minute, utc.Second, 0, run)
		}
		if err != nil {
			return fmt.Errorf("install %s: %w", j.Name, err)
		}
	}

	in.log.Info("reminder jobs installed",
		logx.Int64("user", u.ID), logx.Int("jobs", len(jobs)), logx.Int("replaced", removed))
	return nil
}

// Uninstall clears every trigger registered for the user.
func (in *Installer) Uninstall(userID int64) int {
	return in.sched.RemovePrefix(OwnerPrefix(userID))
}

// ReconcileAll rebuilds the live trigger set from persisted subscriptions.
// Runs at every process start, before the bot accepts interactions: the
// trigger set is never persisted, it is always derivable from the users.
func (in *Installer) ReconcileAll(ctx context.Context) error {
	users, err := in.store.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	installed := 0
	for _, u := range users {
		if !u.Subs.Any() {
			continue
		}
		if err := in.Install(ctx, u); err != nil {
			// One bad user must not block the rest of the rebuild.
			in.log.Error("reconcile install failed", logx.Int64("user", u.ID), logx.Err(err))
			continue
		}
		installed++
	}
	in.log.Info("schedule reconciled", logx.Int("users", len(users)), logx.Int("installed", installed))
	return nil
}

// InstallGlobal registers the all-user Thursday and Saturday broadcasts.
func (in *Installer) InstallGlobal() error {
	ref := in.now()

	type global struct {
		name  string
		at    timeutil.TimeOfDay
		day   time.Weekday
		texts []string
	}
	for _, g := range []global{
		{globalThursdayJob, thursdayAt, time.Thursday, thursdayMessages},
		{globalSaturdayJob, saturdayAt, time.Saturday, saturdayMessages},
	} {
		g := g
		utc, dayOffset := timeutil.ToUTC(in.loc, ref, g.at)
		days := timeutil.ShiftWeekdays([]time.Weekday{g.day}, dayOffset)
		err := in.sched.AddWeeklyAt(g.name, utc.Hour, utc.Minute, days, 0, func(ctx context.Context) error {
			return in.broadcastToAll(ctx, g.texts)
		})
		if err != nil {
			return fmt.Errorf("install %s: %w", g.name, err)
		}
	}
	return nil
}

// broadcastToAll fans the text sequence out to every known user through the
// rate-limited pipeline.
func (in *Installer) broadcastToAll(ctx context.Context, texts []string) error {
	users, err := in.store.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("broadcast user list: %w", err)
	}
	if len(users) == 0 {
		in.log.Info("no users for global broadcast")
		return nil
	}
	queued := 0
	for _, u := range users {
		for _, text := range texts {
			if err := in.bcast.Enqueue(ctx, broadcast.Item{ChatID: u.ID, Text: text}); err != nil {
				in.log.Warn("broadcast enqueue failed", logx.Int64("user", u.ID), logx.Err(err))
				break
			}
		}
		queued++
	}
	in.log.Info("global broadcast queued", logx.Int("users", queued), logx.Int("messages", len(texts)))
	return nil
}
