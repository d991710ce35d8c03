// Package timeutil converts Cairo wall-clock times to the UTC clock used by
// the trigger service.
package timeutil

import "time"

// ZoneName is the reference timezone for all user-facing schedule times.
const ZoneName = "Africa/Cairo"

var fallback = time.FixedZone("EET", 2*60*60)

// Location returns the Africa/Cairo location, falling back to a fixed UTC+2
// zone when the tz database is unavailable (e.g. minimal containers).
func Location() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		return fallback
	}
	return loc
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour, Minute, Second int
}

func At(hour, minute int) TimeOfDay { return TimeOfDay{Hour: hour, Minute: minute} }

func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, t.Second, 0, time.UTC).Format("15:04:05")
}

// AddHours shifts the clock by n hours, wrapping around midnight.
func (t TimeOfDay) AddHours(n int) TimeOfDay {
	h := ((t.Hour+n)%24 + 24) % 24
	return TimeOfDay{Hour: h, Minute: t.Minute, Second: t.Second}
}

// ToUTC converts a local time-of-day in loc to the equivalent UTC clock.
// ref supplies the date used to resolve the zone offset (DST-sensitive zones
// change offset through the year). dayOffset reports whether the UTC moment
// falls on the previous (-1), same (0) or next (+1) day as the local one.
func ToUTC(loc *time.Location, ref time.Time, t TimeOfDay) (utc TimeOfDay, dayOffset int) {
	if loc == nil {
		loc = Location()
	}
	local := time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, t.Second, 0, loc)
	u := local.UTC()

	utc = TimeOfDay{Hour: u.Hour(), Minute: u.Minute(), Second: u.Second()}

	// Compare calendar dates to detect a midnight crossing.
	ld := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	ud := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	dayOffset = int(ud.Sub(ld) / (24 * time.Hour))
	return utc, dayOffset
}

// ToUTCClock is ToUTC for whole-minute times.
func ToUTCClock(loc *time.Location, ref time.Time, hour, minute int) (h, m, dayOffset int) {
	utc, off := ToUTC(loc, ref, At(hour, minute))
	return utc.Hour, utc.Minute, off
}

// NextLocal returns the next occurrence of the given local time-of-day at or
// after ref.
func NextLocal(loc *time.Location, ref time.Time, hour, minute int) time.Time {
	if loc == nil {
		loc = Location()
	}
	ref = ref.In(loc)
	at := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, loc)
	if at.Before(ref) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// ShiftWeekdays shifts every weekday in the set by dayOffset, wrapping around
// the week. Used when a local→UTC conversion crosses midnight.
func ShiftWeekdays(days []time.Weekday, dayOffset int) []time.Weekday {
	if dayOffset == 0 || len(days) == 0 {
		return days
	}
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(((int(d) + dayOffset) % 7 + 7) % 7)
	}
	return out
}
