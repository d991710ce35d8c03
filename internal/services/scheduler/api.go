package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	logx "wirdbot/pkg/logx"
)

// AddCron registers (or replaces) a named cron schedule. The spec is
// evaluated in UTC.
func (s *Service) AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) error {
	return s.AddCronOpt(name, spec, timeout, TaskOptions{}, job)
}

func (s *Service) AddCronOpt(name, spec string, timeout time.Duration, opt TaskOptions, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("spec %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert by name: drop any previous schedule with the same name so
	// repeated installs never duplicate triggers.
	s.removeScheduleLocked(name)
	d := scheduleDef{
		name:    name,
		spec:    spec,
		timeout: s.resolveTimeout(timeout),
		job:     job,
		opt:     opt.withDefaults(s.cfg),
		state:   &runState{},
	}
	s.defs = append(s.defs, d)
	if s.c != nil {
		if err := s.addCronLocked(&s.defs[len(s.defs)-1]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
			return err
		}
		s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec))
	}
	// Not started yet: the definition is registered when Start() runs.
	return nil
}

// AddDaily registers a daily trigger at the given UTC clock time.
func (s *Service) AddDaily(name string, hour, minute int, timeout time.Duration, job func(ctx context.Context) error) error {
	if err := validClock(hour, minute); err != nil {
		return err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * *", minute, hour), timeout, job)
}

// AddDailySec is AddDaily with second precision.
func (s *Service) AddDailySec(name string, hour, minute, second int, timeout time.Duration, job func(ctx context.Context) error) error {
	if err := validClock(hour, minute); err != nil {
		return err
	}
	if second < 0 || second > 59 {
		return fmt.Errorf("invalid second %d", second)
	}
	return s.AddCron(name, fmt.Sprintf("%d %d %d * * *", second, minute, hour), timeout, job)
}

// AddWeeklyAt registers a trigger at the given UTC clock time on a set of
// weekdays.
func (s *Service) AddWeeklyAt(name string, hour, minute int, days []time.Weekday, timeout time.Duration, job func(ctx context.Context) error) error {
	return s.AddWeeklyAtSec(name, hour, minute, 0, days, timeout, job)
}

// AddWeeklyAtSec is AddWeeklyAt with second precision.
func (s *Service) AddWeeklyAtSec(name string, hour, minute, second int, days []time.Weekday, timeout time.Duration, job func(ctx context.Context) error) error {
	if err := validClock(hour, minute); err != nil {
		return err
	}
	if second < 0 || second > 59 {
		return fmt.Errorf("invalid second %d", second)
	}
	if len(days) == 0 {
		return errors.New("at least one weekday required")
	}
	sorted := append([]time.Weekday(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, 0, len(sorted))
	seen := [7]bool{}
	for _, d := range sorted {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		parts = append(parts, fmt.Sprintf("%d", int(d)))
	}
	spec := fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ","))
	if second > 0 {
		spec = fmt.Sprintf("%d %s", second, spec)
	}
	return s.AddCron(name, spec, timeout, job)
}

// AddOnce registers (or replaces) a named one-shot job. A job whose time is
// already past fires immediately.
func (s *Service) AddOnce(name string, at time.Time, timeout time.Duration, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if at.IsZero() {
		return errors.New("at required")
	}

	s.mu.Lock()
	resolved := s.resolveTimeout(timeout)
	started := s.stopCh != nil
	s.mu.Unlock()

	s.tmu.Lock()
	defer s.tmu.Unlock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
	}
	// Bump the version so callbacks from a replaced timer are ignored.
	ver := s.onceVer[name] + 1
	s.onceVer[name] = ver
	s.onceAt[name] = at
	s.onceJob[name] = onceDef{timeout: resolved, job: job}

	if started {
		s.timers[name] = s.newOnceTimerLocked(name, at, ver)
	}
	return nil
}

// newOnceTimerLocked creates the runtime timer for a persisted once
// definition. Call with s.tmu held.
func (s *Service) newOnceTimerLocked(name string, at time.Time, ver uint64) *time.Timer {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	return time.AfterFunc(delay, func() {
		s.tmu.Lock()
		if s.onceVer[name] != ver {
			s.tmu.Unlock()
			return
		}
		def, ok := s.onceJob[name]
		if !ok || def.job == nil {
			s.tmu.Unlock()
			return
		}
		// Remove the persisted definition first so a restart cannot re-fire it.
		delete(s.timers, name)
		delete(s.onceAt, name)
		delete(s.onceJob, name)
		delete(s.onceVer, name)
		s.tmu.Unlock()

		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()
		s.enqueue(task{
			name:    name,
			timeout: def.timeout,
			run:     def.job,
			opt:     TaskOptions{}.withDefaults(cfg),
			state:   &runState{},
		})
	})
}

// rebuildOnceTimersLocked recreates runtime timers from persisted once
// definitions. Call with s.mu held.
func (s *Service) rebuildOnceTimersLocked() {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	for _, t := range s.timers {
		_ = t.Stop()
	}
	s.timers = map[string]*time.Timer{}

	for name, at := range s.onceAt {
		def, ok := s.onceJob[name]
		if !ok || def.job == nil {
			delete(s.onceAt, name)
			delete(s.onceJob, name)
			delete(s.onceVer, name)
			continue
		}
		ver := s.onceVer[name]
		if ver == 0 {
			ver = 1
			s.onceVer[name] = ver
		}
		s.timers[name] = s.newOnceTimerLocked(name, at, ver)
	}
}

// Remove unschedules everything registered under name. Returns true if
// something was removed.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()

	s.tmu.Lock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
		removed = true
	}
	if _, ok := s.onceAt[name]; ok {
		delete(s.onceAt, name)
		delete(s.onceJob, name)
		delete(s.onceVer, name)
		removed = true
	}
	s.tmu.Unlock()

	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// RemovePrefix unschedules every schedule and once job whose name starts with
// prefix, returning the number removed. This is how a user's whole reminder
// set is cleared before reinstalling it.
func (s *Service) RemovePrefix(prefix string) int {
	if prefix == "" {
		return 0
	}
	names := s.Names(prefix)
	for _, name := range names {
		s.Remove(name)
	}
	return len(names)
}

// Names returns the sorted names of all registered schedules and once jobs
// matching the prefix (empty prefix matches all).
func (s *Service) Names(prefix string) []string {
	return s.namesWithPrefix(prefix)
}

func (s *Service) namesWithPrefix(prefix string) []string {
	set := map[string]struct{}{}

	s.mu.Lock()
	for _, d := range s.defs {
		if strings.HasPrefix(d.name, prefix) {
			set[d.name] = struct{}{}
		}
	}
	s.mu.Unlock()

	s.tmu.Lock()
	for name := range s.onceAt {
		if strings.HasPrefix(name, prefix) {
			set[name] = struct{}{}
		}
	}
	s.tmu.Unlock()

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schedules returns info for all recurring schedules, including the next
// fire time when running.
func (s *Service) Schedules() []ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduleInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			info.Next = s.c.Entry(d.entryID).Next
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// removeScheduleLocked removes all defs matching name and unregisters them
// from cron if running. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	removed := false
	if s.c != nil {
		for i := range s.defs {
			if s.defs[i].name == name && s.defs[i].entryID != 0 {
				s.c.Remove(s.defs[i].entryID)
				s.defs[i].entryID = 0
				removed = true
			}
		}
	}
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	eid, err := s.c.AddFunc(d.spec, func() {
		if d.opt.Overlap == OverlapSkipIfRunning {
			d.state.mu.Lock()
			running := d.state.running
			d.state.mu.Unlock()
			if running {
				s.log.Debug("schedule skipped (previous run still running)", logx.String("task", d.name))
				return
			}
		}
		s.enqueue(task{name: d.name, timeout: d.timeout, run: d.job, opt: d.opt, state: d.state})
	})
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) resolveTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return s.cfg.DefaultTimeout
}

func validClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute %d", minute)
	}
	return nil
}
