package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Health    HealthConfig    `json:"health,omitempty"`
	Quran     QuranConfig     `json:"quran,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AdminUserIDs may use admin-only commands.
	AdminUserIDs []int64 `json:"admin_user_ids"`
	// AdminChatID receives mirrored log events when logging.telegram is enabled.
	AdminChatID int64 `json:"admin_chat_id,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the persistence driver.
//
// Drivers:
//   - "sheets": Google Sheets spreadsheet (spreadsheet_id + credentials_file)
//   - "sqlite": local sqlite database at path
//   - "file":   JSON files under path (mainly for development)
type StorageConfig struct {
	Driver          string `json:"driver"`
	Path            string `json:"path,omitempty"`
	SpreadsheetID   string `json:"spreadsheet_id,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`
	BusyTimeout     string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type SchedulerConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

// BroadcastConfig controls the fan-out pipeline used for the
// all-subscriber reminders.
type BroadcastConfig struct {
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`      // Go duration string
	RetryMaxDelay string `json:"retry_max_delay,omitempty"` // Go duration string
}

type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default ":8080"
}

// QuranConfig controls the page image links sent with reading reminders.
type QuranConfig struct {
	// LinksFile is an optional JSON array of {name, url} entries keyed by the
	// numeric prefix of name ("23.jpg" covers page 23).
	LinksFile string `json:"links_file,omitempty"`
	// PageURLTemplate must contain one %d verb for the page number. Used for
	// pages the links file doesn't cover.
	PageURLTemplate string `json:"page_url_template,omitempty"`
}

// Validate checks fields that would make the bot unable to start.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}

	switch strings.TrimSpace(c.Storage.Driver) {
	case "sheets":
		if strings.TrimSpace(c.Storage.SpreadsheetID) == "" {
			return errors.New("storage.spreadsheet_id is required for the sheets driver")
		}
	case "sqlite", "file":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case "":
		return errors.New("storage.driver is required")
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}

	if c.Scheduler.Workers < 0 {
		return errors.New("scheduler.workers must be >= 0")
	}
	if c.Broadcast.Workers < 0 {
		return errors.New("broadcast.workers must be >= 0")
	}
	if _, err := ParseDurationField("broadcast.retry_base", c.Broadcast.RetryBase); err != nil {
		return err
	}
	if _, err := ParseDurationField("broadcast.retry_max_delay", c.Broadcast.RetryMaxDelay); err != nil {
		return err
	}

	if tpl := strings.TrimSpace(c.Quran.PageURLTemplate); tpl != "" && !strings.Contains(tpl, "%d") {
		return errors.New("quran.page_url_template must contain a %d page placeholder")
	}
	return nil
}
