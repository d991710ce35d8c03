package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.users.json    (snapshot of all users)
//   - <prefix>.progress.json (snapshot of all reading progress)
//
// Snapshots are written atomically (tmp + rename) on every mutation. The
// subscriber counts this bot sees make that cheap enough.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	usersPath    string
	progressPath string

	users    map[int64]domain.User
	progress map[int64]domain.ReadingProgress

	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		usersPath:    prefix + ".users.json",
		progressPath: prefix + ".progress.json",
		users:        map[int64]domain.User{},
		progress:     map[int64]domain.ReadingProgress{},
	}
	if err := loadSnapshot(s.usersPath, &s.users); err != nil {
		return nil, err
	}
	if err := loadSnapshot(s.progressPath, &s.progress); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) UpsertUser(ctx context.Context, u domain.User) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.users[u.ID] = u
	return writeSnapshot(s.usersPath, s.users)
}

func (s *fileStore) GetUser(ctx context.Context, id int64) (domain.User, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.User{}, false, ErrClosed
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *fileStore) AllUsers(ctx context.Context) ([]domain.User, error) {
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

func (s *fileStore) SaveProgress(ctx context.Context, p domain.ReadingProgress) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.progress[p.UserID] = p
	return writeSnapshot(s.progressPath, s.progress)
}

func (s *fileStore) GetProgress(ctx context.Context, id int64) (domain.ReadingProgress, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ReadingProgress{}, false, ErrClosed
	}
	p, ok := s.progress[id]
	return p, ok, nil
}

func loadSnapshot[T any](path string, out *map[int64]T) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	var m map[int64]T
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	if m != nil {
		*out = m
	}
	return nil
}

func writeSnapshot[T any](path string, m map[int64]T) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
