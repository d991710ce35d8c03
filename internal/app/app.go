// Package app wires the services together and owns their lifecycle: it loads
// the configuration, brings the components up in dependency order, rebuilds
// the reminder schedule from storage and tears everything down again with
// per-step deadlines on shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"wirdbot/internal/config"
	"wirdbot/internal/flow"
	"wirdbot/internal/health"
	"wirdbot/internal/progress"
	"wirdbot/internal/quran"
	"wirdbot/internal/reminders"
	"wirdbot/internal/runtime/supervisor"
	"wirdbot/internal/services/broadcast"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/storage"
	"wirdbot/internal/timeutil"
	kit "wirdbot/internal/transport"
	"wirdbot/internal/transport/telegram"
	logx "wirdbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	store   *storage.Async

	sched     *scheduler.Service
	bcast     *broadcast.Service
	installer *reminders.Installer
	router    *flow.Router
	health    *health.Server

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap with telegram mirroring off, point the sink at the admin chat,
	// then apply the final config; Apply() would warn about a missing target
	// otherwise.
	baseLogCfg := mapLogConfig(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, adapter)
	log = log.With(logx.String("comp", "app"))
	if cfg.Telegram.AdminChatID != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.AdminChatID)
	}
	logSvc.Apply(mapLogConfig(cfg))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	inner, err := storage.Open(context.Background(), sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	store := storage.NewAsync(inner, 256, log.With(logx.String("comp", "storage")))
	log.Info("storage opened", logx.String("driver", sc.Driver))

	sched := scheduler.New(mapSchedulerConfig(cfg), log.With(logx.String("comp", "scheduler")))

	bc, err := mapBroadcastConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcast := broadcast.New(bc, adapter, log.With(logx.String("comp", "broadcast")))

	loc := timeutil.Location()
	links := quran.Load(cfg.Quran.LinksFile, cfg.Quran.PageURLTemplate, log.With(logx.String("comp", "quran")))
	tracker := progress.NewTracker(store, log.With(logx.String("comp", "progress")))
	handlers := reminders.NewHandlers(adapter, tracker, links, sched, loc, log.With(logx.String("comp", "reminders")))
	installer := reminders.NewInstaller(sched, handlers, store, bcast, loc, log.With(logx.String("comp", "reminders")))

	router := flow.New(flow.Config{AdminIDs: cfg.Telegram.AdminUserIDs},
		adapter, store, tracker, handlers, installer, log.With(logx.String("comp", "flow")))

	var hs *health.Server
	if cfg.Health.Enabled {
		hs = health.New(cfg.Health.Addr, log.With(logx.String("comp", "health")))
	}

	return &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		adapter:   adapter,
		store:     store,
		sched:     sched,
		bcast:     bcast,
		installer: installer,
		router:    router,
		health:    hs,
		updates:   make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app run context ends (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	run := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, err := mapBroadcastConfig(cfg); err != nil {
			return err
		}
		_, err := mapStorageConfig(cfg)
		return err
	})

	a.store.Start(run)
	a.sched.Start(run)
	a.bcast.Start(run)

	// Rebuild the trigger set before any update is consumed: the schedule is
	// derived state, storage is the source of truth.
	if err := a.installer.ReconcileAll(run); err != nil {
		return err
	}
	if err := a.installer.InstallGlobal(); err != nil {
		return err
	}

	if err := a.adapter.Start(run, a.updates); err != nil {
		return err
	}
	a.sup.Go0("flow.dispatch", func(c context.Context) {
		a.router.Run(c, a.updates)
	})

	if a.health != nil {
		if err := a.health.Start(); err != nil {
			return fmt.Errorf("health server: %w", err)
		}
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// reloadLoop applies hot-reloadable config changes. Storage and health wiring
// stay fixed until restart.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the newest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			if newCfg.Telegram.AdminChatID != 0 {
				a.logs.SetTelegramTarget(newCfg.Telegram.AdminChatID)
			} else {
				a.logs.SetTelegramTarget(0)
			}
			a.logs.Apply(mapLogConfig(newCfg))

			a.sched.Apply(mapSchedulerConfig(newCfg))
			if bc, err := mapBroadcastConfig(newCfg); err != nil {
				a.log.Warn("invalid broadcast config; keeping previous", logx.Err(err))
			} else {
				a.bcast.Apply(bc)
			}

			a.log.Info("config reloaded")
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Each shutdown step gets an upper bound so one component can't stall the
	// whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	// Intake first, then the pipelines that drain, then storage.
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("broadcast", 3*time.Second, func(c context.Context) error { a.bcast.Stop(c); return nil })
	if a.health != nil {
		step("health", time.Second, func(c context.Context) error { return a.health.Stop(c) })
	}
	step("storage", 2*time.Second, func(c context.Context) error {
		if err := a.store.Stop(c); err != nil {
			return err
		}
		return a.store.Close()
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
