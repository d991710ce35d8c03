package storage

import (
	"context"
	"errors"
	"time"

	"wirdbot/internal/domain"
)

var (
	ErrClosed   = errors.New("storage closed")
	ErrNotFound = errors.New("not found")
)

// Config configures the persistence backend.
//
// Driver values:
//   - "sheets": Google Sheets spreadsheet
//   - "sqlite": SQLite database file
//   - "file":   JSON files under Path (mainly for development and tests)
type Config struct {
	Driver          string
	Path            string
	SpreadsheetID   string
	CredentialsFile string
	BusyTimeout     time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the services.
//
// Implementations are safe for concurrent use. Write methods are expected to
// be keyed upserts so retries and reconciliation stay idempotent.
type Store interface {
	UpsertUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, bool, error)
	AllUsers(ctx context.Context) ([]domain.User, error)

	SaveProgress(ctx context.Context, p domain.ReadingProgress) error
	GetProgress(ctx context.Context, id int64) (domain.ReadingProgress, bool, error)

	Close() error
}
