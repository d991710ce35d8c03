package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

// Async wraps a Store so writes never block a message handler on network
// round-trips. Writes are queued and applied in order by one worker; reads
// are served through a write-through overlay so a handler always sees its
// own writes even before they land in the backend.
//
// Because writes are keyed upserts, a dropped write is repaired by the next
// write for the same key. The queue overflowing is logged, not fatal.
type Async struct {
	inner Store
	log   logx.Logger

	queue chan func(ctx context.Context)

	mu              sync.Mutex
	pendingUsers    map[int64]domain.User
	pendingProgress map[int64]domain.ReadingProgress

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewAsync(inner Store, queueSize int, log logx.Logger) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Async{
		inner:           inner,
		log:             log,
		queue:           make(chan func(ctx context.Context), queueSize),
		pendingUsers:    map[int64]domain.User{},
		pendingProgress: map[int64]domain.ReadingProgress{},
		done:            make(chan struct{}),
	}
}

func (a *Async) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.cancel = cancel
		go a.worker(wctx)
	})
}

func (a *Async) worker(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case op := <-a.queue:
					op(context.Background())
				default:
					return
				}
			}
		case op := <-a.queue:
			op(ctx)
		}
	}
}

// Stop drains pending writes, bounded by ctx.
func (a *Async) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) enqueue(name string, op func(ctx context.Context) error) {
	wrapped := func(ctx context.Context) {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := op(wctx); err != nil {
			a.log.Warn("async store write failed", logx.String("op", name), logx.Err(err))
		}
	}
	select {
	case a.queue <- wrapped:
	default:
		a.log.Warn("async store queue full; write dropped", logx.String("op", name), logx.Int("cap", cap(a.queue)))
	}
}

func (a *Async) UpsertUser(ctx context.Context, u domain.User) error {
	_ = ctx
	a.mu.Lock()
	a.pendingUsers[u.ID] = u
	a.mu.Unlock()

	a.enqueue("upsert_user", func(ctx context.Context) error {
		return a.inner.UpsertUser(ctx, u)
	})
	return nil
}

func (a *Async) SaveProgress(ctx context.Context, p domain.ReadingProgress) error {
	_ = ctx
	a.mu.Lock()
	a.pendingProgress[p.UserID] = p
	a.mu.Unlock()

	a.enqueue("save_progress", func(ctx context.Context) error {
		return a.inner.SaveProgress(ctx, p)
	})
	return nil
}

func (a *Async) GetUser(ctx context.Context, id int64) (domain.User, bool, error) {
	a.mu.Lock()
	u, ok := a.pendingUsers[id]
	a.mu.Unlock()
	if ok {
		return u, true, nil
	}
	return a.inner.GetUser(ctx, id)
}

func (a *Async) AllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := a.inner.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	overlay := make(map[int64]domain.User, len(a.pendingUsers))
	for id, u := range a.pendingUsers {
		overlay[id] = u
	}
	a.mu.Unlock()

	for i, u := range users {
		if ov, ok := overlay[u.ID]; ok {
			users[i] = ov
			delete(overlay, u.ID)
		}
	}
	for _, u := range overlay {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (a *Async) GetProgress(ctx context.Context, id int64) (domain.ReadingProgress, bool, error) {
	a.mu.Lock()
	p, ok := a.pendingProgress[id]
	a.mu.Unlock()
	if ok {
		return p, true, nil
	}
	return a.inner.GetProgress(ctx, id)
}

func (a *Async) Close() error {
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Stop(sctx)
	return a.inner.Close()
}
