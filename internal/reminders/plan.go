// Package reminders plans, installs and executes the per-user reminder jobs.
// All schedule times are Cairo wall-clock; the installer converts them to the
// UTC clock the trigger service runs on.
package reminders

import (
	"fmt"
	"time"

	"wirdbot/internal/domain"
	"wirdbot/internal/timeutil"
)

// Kind identifies one reminder job type.
type Kind string

const (
	KindQuranDaily    Kind = "quran_daily"
	KindProphetPrayer Kind = "prophet_prayer"
	KindDailyDhikr    Kind = "daily_dhikr"
	KindDhikrNoon     Kind = "dhikr_noon"
	KindDhikrMidnight Kind = "dhikr_midnight"
	KindDhikrDua      Kind = "dhikr_dua"
	KindDhikrAyah     Kind = "dhikr_ayah"
	KindNightPrayer   Kind = "night_prayer"
	KindReadingNag    Kind = "nag"
)

// Fixed local schedule times.
var (
	quranAt         = timeutil.At(12, 0)
	prophetAnchor   = timeutil.At(12, 15) // first of the 24 hourly slots
	dailyDhikrAt    = timeutil.At(16, 30)
	dhikrNoonAt     = timeutil.At(11, 45)
	dhikrMidnightAt = timeutil.At(23, 45)
	dhikrDuaAt      = timeutil.TimeOfDay{Hour: 16, Minute: 30, Second: 10}
	dhikrAyahAt     = timeutil.TimeOfDay{Hour: 16, Minute: 30, Second: 15}
	nightPrayerAt   = timeutil.At(0, 0)
	nagAt           = timeutil.At(23, 50)

	duaAyahDays = []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}
)

// Job is one planned trigger: a local time-of-day, an optional weekday
// restriction and the kind that selects the handler body.
type Job struct {
	Name string
	Kind Kind
	At   timeutil.TimeOfDay
	Days []time.Weekday // empty = every day
}

// OwnerPrefix is the name prefix under which all of a user's jobs are
// registered; removing it clears the whole set in one sweep.
func OwnerPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

// JobName builds "user:<id>:<kind>" with an optional sequence suffix for
// kinds that install more than one trigger.
func JobName(userID int64, kind Kind, seq int) string {
	if seq > 0 {
		return fmt.Sprintf("user:%d:%s:%d", userID, kind, seq)
	}
	return fmt.Sprintf("user:%d:%s", userID, kind)
}

// PlanJobs returns the complete trigger set for a user's current
// subscriptions. Pure function: same flags in, same jobs out.
func PlanJobs(u domain.User) []Job {
	var jobs []Job

	if u.Subs.Quran {
		jobs = append(jobs, Job{Name: JobName(u.ID, KindQuranDaily, 0), Kind: KindQuranDaily, At: quranAt})
	}
	if u.Subs.ProphetPrayer {
		// One trigger per hour of the day, anchored at 12:15 local.
		for h := 0; h < 24; h++ {
			jobs = append(jobs, Job{
				Name: JobName(u.ID, KindProphetPrayer, h),
				Kind: KindProphetPrayer,
				At:   prophetAnchor.AddHours(h),
			})
		}
	}
	if u.Subs.Dhikr {
		jobs = append(jobs,
			Job{Name: JobName(u.ID, KindDailyDhikr, 0), Kind: KindDailyDhikr, At: dailyDhikrAt},
			Job{Name: JobName(u.ID, KindDhikrNoon, 0), Kind: KindDhikrNoon, At: dhikrNoonAt},
			Job{Name: JobName(u.ID, KindDhikrMidnight, 0), Kind: KindDhikrMidnight, At: dhikrMidnightAt},
			Job{Name: JobName(u.ID, KindDhikrDua, 0), Kind: KindDhikrDua, At: dhikrDuaAt, Days: duaAyahDays},
			Job{Name: JobName(u.ID, KindDhikrAyah, 0), Kind: KindDhikrAyah, At: dhikrAyahAt, Days: duaAyahDays},
		)
	}
	if u.Subs.NightPrayer {
		jobs = append(jobs, Job{Name: JobName(u.ID, KindNightPrayer, 0), Kind: KindNightPrayer, At: nightPrayerAt})
	}
	return jobs
}
