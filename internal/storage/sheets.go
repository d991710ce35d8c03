package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

const (
	userSheet     = "user_data"
	trackingSheet = "quran_tracking"
)

var userHeader = []any{
	"user_id", "username", "join_date",
	"quran_service", "prayer_service", "dhikr_service", "qiyam_service",
}

var trackingHeader = []any{
	"user_id", "last_page", "total_pages_read", "unread_pages",
	"last_read_confirmed", "reminder_msg_id", "wird_msg_id", "last_update",
}

// sheetsStore persists to a Google Sheets spreadsheet with one row per user.
//
// All rows are loaded once at open; afterwards the in-memory cache is the
// source of truth for reads and each write updates exactly one row. The bot
// is the only writer of the spreadsheet, so the cache cannot go stale.
type sheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	log           logx.Logger

	mu          sync.Mutex
	users       map[int64]domain.User
	userRow     map[int64]int // 1-based sheet row
	progress    map[int64]domain.ReadingProgress
	progressRow map[int64]int
	closed      bool
}

func openSheets(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("storage.spreadsheet_id is required for sheets driver")
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cred := strings.TrimSpace(cfg.CredentialsFile); cred != "" {
		opts = append(opts, option.WithCredentialsFile(cred))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	s := &sheetsStore{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		log:           log,
		users:         map[int64]domain.User{},
		userRow:       map[int64]int{},
		progress:      map[int64]domain.ReadingProgress{},
		progressRow:   map[int64]int{},
	}
	if err := s.ensureSheets(ctx); err != nil {
		return nil, err
	}
	if err := s.loadUsers(ctx); err != nil {
		return nil, err
	}
	if err := s.loadProgress(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sheetsStore) ensureSheets(ctx context.Context) error {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("spreadsheet get: %w", err)
	}
	existing := map[string]bool{}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	for _, want := range []struct {
		title  string
		header []any
	}{
		{userSheet, userHeader},
		{trackingSheet, trackingHeader},
	} {
		if existing[want.title] {
			continue
		}
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: want.title}},
		}}}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", want.title, err)
		}
		vr := &sheets.ValueRange{Values: [][]any{want.header}}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, want.title+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header %s: %w", want.title, err)
		}
	}
	return nil
}

func (s *sheetsStore) loadUsers(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, userSheet+"!A:G").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("load %s: %w", userSheet, err)
	}
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		id, err := cellInt64(row, 0)
		if err != nil || id == 0 {
			continue
		}
		u := domain.User{
			ID:       id,
			Username: cellStr(row, 1),
			Subs: domain.Subscriptions{
				Quran:         cellBool(row, 3),
				ProphetPrayer: cellBool(row, 4),
				Dhikr:         cellBool(row, 5),
				NightPrayer:   cellBool(row, 6),
			},
		}
		if t, err := time.Parse(time.RFC3339, cellStr(row, 2)); err == nil {
			u.JoinedAt = t
		}
		s.users[id] = u
		s.userRow[id] = i + 1
	}
	return nil
}

func (s *sheetsStore) loadProgress(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, trackingSheet+"!A:H").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("load %s: %w", trackingSheet, err)
	}
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		id, err := cellInt64(row, 0)
		if err != nil || id == 0 {
			continue
		}
		p := domain.ReadingProgress{
			UserID:                id,
			LastPage:              int(cellInt64OrZero(row, 1)),
			TotalPagesRead:        int(cellInt64OrZero(row, 2)),
			LastReadConfirmed:     cellBool(row, 4),
			ReminderMessageID:     int(cellInt64OrZero(row, 5)),
			WirdReminderMessageID: int(cellInt64OrZero(row, 6)),
		}
		if raw := cellStr(row, 3); raw != "" {
			_ = json.Unmarshal([]byte(raw), &p.UnreadPages)
		}
		s.progress[id] = p
		s.progressRow[id] = i + 1
	}
	return nil
}

func (s *sheetsStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *sheetsStore) UpsertUser(ctx context.Context, u domain.User) error {
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now()
	}
	row := []any{
		strconv.FormatInt(u.ID, 10), u.Username, u.JoinedAt.UTC().Format(time.RFC3339),
		sheetBool(u.Subs.Quran), sheetBool(u.Subs.ProphetPrayer),
		sheetBool(u.Subs.Dhikr), sheetBool(u.Subs.NightPrayer),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if rowIdx, ok := s.userRow[u.ID]; ok {
		if err := s.updateRow(ctx, userSheet, rowIdx, row); err != nil {
			return err
		}
	} else {
		rowIdx, err := s.appendRow(ctx, userSheet, "A:G", row)
		if err != nil {
			return err
		}
		s.userRow[u.ID] = rowIdx
	}
	s.users[u.ID] = u
	return nil
}

func (s *sheetsStore) GetUser(ctx context.Context, id int64) (domain.User, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.User{}, false, ErrClosed
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *sheetsStore) AllUsers(ctx context.Context) ([]domain.User, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *sheetsStore) SaveProgress(ctx context.Context, p domain.ReadingProgress) error {
	unread, err := json.Marshal(p.UnreadPages)
	if err != nil {
		return err
	}
	row := []any{
		strconv.FormatInt(p.UserID, 10),
		strconv.Itoa(p.LastPage), strconv.Itoa(p.TotalPagesRead), string(unread),
		sheetBool(p.LastReadConfirmed),
		strconv.Itoa(p.ReminderMessageID), strconv.Itoa(p.WirdReminderMessageID),
		time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if rowIdx, ok := s.progressRow[p.UserID]; ok {
		if err := s.updateRow(ctx, trackingSheet, rowIdx, row); err != nil {
			return err
		}
	} else {
		rowIdx, err := s.appendRow(ctx, trackingSheet, "A:H", row)
		if err != nil {
			return err
		}
		s.progressRow[p.UserID] = rowIdx
	}
	s.progress[p.UserID] = p
	return nil
}

func (s *sheetsStore) GetProgress(ctx context.Context, id int64) (domain.ReadingProgress, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ReadingProgress{}, false, ErrClosed
	}
	p, ok := s.progress[id]
	return p, ok, nil
}

func (s *sheetsStore) updateRow(ctx context.Context, sheet string, rowIdx int, row []any) error {
	vr := &sheets.ValueRange{Values: [][]any{row}}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!A%d", sheet, rowIdx), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", sheet, rowIdx, err)
	}
	return nil
}

// appendRow appends and returns the 1-based row the values landed on.
func (s *sheetsStore) appendRow(ctx context.Context, sheet, cols string, row []any) (int, error) {
	vr := &sheets.ValueRange{Values: [][]any{row}}
	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, sheet+"!"+cols, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if n := parseRowFromRange(resp.Updates.UpdatedRange); n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("append %s: no updated range in response", sheet)
}

// parseRowFromRange extracts the starting row from an A1 range like
// "user_data!A12:G12".
func parseRowFromRange(a1 string) int {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.IndexByte(a1, ':'); i >= 0 {
		a1 = a1[:i]
	}
	j := 0
	for j < len(a1) && (a1[j] < '0' || a1[j] > '9') {
		j++
	}
	n, err := strconv.Atoi(a1[j:])
	if err != nil {
		return 0
	}
	return n
}

func cellStr(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}

func cellInt64(row []any, i int) (int64, error) {
	return strconv.ParseInt(cellStr(row, i), 10, 64)
}

func cellInt64OrZero(row []any, i int) int64 {
	n, _ := cellInt64(row, i)
	return n
}

func cellBool(row []any, i int) bool {
	switch strings.ToLower(cellStr(row, i)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func sheetBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
