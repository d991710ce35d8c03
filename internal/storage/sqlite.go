package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) UpsertUser(ctx context.Context, u domain.User) error {
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, joined_at, quran, prophet_prayer, dhikr, night_prayer)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   username=excluded.username,
		   quran=excluded.quran,
		   prophet_prayer=excluded.prophet_prayer,
		   dhikr=excluded.dhikr,
		   night_prayer=excluded.night_prayer`,
		u.ID, nullStr(u.Username), u.JoinedAt.UTC().Format(time.RFC3339),
		boolInt(u.Subs.Quran), boolInt(u.Subs.ProphetPrayer), boolInt(u.Subs.Dhikr), boolInt(u.Subs.NightPrayer),
	)
	return err
}

func (s *sqliteStore) GetUser(ctx context.Context, id int64) (domain.User, bool, error) {
	var (
		u        domain.User
		username sql.NullString
		joined   string
		q, p, d, n int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, joined_at, quran, prophet_prayer, dhikr, night_prayer FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &username, &joined, &q, &p, &d, &n)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	u.Username = username.String
	u.JoinedAt, _ = time.Parse(time.RFC3339, joined)
	u.Subs = domain.Subscriptions{Quran: q != 0, ProphetPrayer: p != 0, Dhikr: d != 0, NightPrayer: n != 0}
	return u, true, nil
}

func (s *sqliteStore) AllUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, joined_at, quran, prophet_prayer, dhikr, night_prayer FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var (
			u        domain.User
			username sql.NullString
			joined   string
			q, p, d, n int
		)
		if err := rows.Scan(&u.ID, &username, &joined, &q, &p, &d, &n); err != nil {
			return nil, err
		}
		u.Username = username.String
		u.JoinedAt, _ = time.Parse(time.RFC3339, joined)
		u.Subs = domain.Subscriptions{Quran: q != 0, ProphetPrayer: p != 0, Dhikr: d != 0, NightPrayer: n != 0}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveProgress(ctx context.Context, p domain.ReadingProgress) error {
	unread, err := json.Marshal(p.UnreadPages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress(user_id, last_page, total_read, unread, confirmed, reminder_msg, wird_msg)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   last_page=excluded.last_page,
		   total_read=excluded.total_read,
		   unread=excluded.unread,
		   confirmed=excluded.confirmed,
		   reminder_msg=excluded.reminder_msg,
		   wird_msg=excluded.wird_msg`,
		p.UserID, p.LastPage, p.TotalPagesRead, string(unread),
		boolInt(p.LastReadConfirmed), p.ReminderMessageID, p.WirdReminderMessageID,
	)
	return err
}

func (s *sqliteStore) GetProgress(ctx context.Context, id int64) (domain.ReadingProgress, bool, error) {
	var (
		p         domain.ReadingProgress
		unread    sql.NullString
		confirmed int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, last_page, total_read, unread, confirmed, reminder_msg, wird_msg
		 FROM progress WHERE user_id = ?`, id,
	).Scan(&p.UserID, &p.LastPage, &p.TotalPagesRead, &unread, &confirmed, &p.ReminderMessageID, &p.WirdReminderMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReadingProgress{}, false, nil
	}
	if err != nil {
		return domain.ReadingProgress{}, false, err
	}
	if unread.Valid && unread.String != "" {
		_ = json.Unmarshal([]byte(unread.String), &p.UnreadPages)
	}
	p.LastReadConfirmed = confirmed != 0
	return p, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
