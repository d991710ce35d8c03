package app

import (
	"time"

	"wirdbot/internal/config"
	"wirdbot/internal/services/broadcast"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/storage"
	logx "wirdbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:          cfg.Storage.Driver,
		Path:            cfg.Storage.Path,
		SpreadsheetID:   cfg.Storage.SpreadsheetID,
		CredentialsFile: cfg.Storage.CredentialsFile,
		BusyTimeout:     busy,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	}
}

func mapBroadcastConfig(cfg *config.Config) (broadcast.Config, error) {
	base, err := config.ParseDurationField("broadcast.retry_base", cfg.Broadcast.RetryBase)
	if err != nil {
		return broadcast.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("broadcast.retry_max_delay", cfg.Broadcast.RetryMaxDelay)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		Workers:       cfg.Broadcast.Workers,
		QueueSize:     cfg.Broadcast.QueueSize,
		RatePerSec:    cfg.Broadcast.RatePerSec,
		RetryMax:      cfg.Broadcast.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}
