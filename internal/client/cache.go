package client

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
)

// Slot caches one fetched value. A slot is fresh until invalidated;
// invalidation marks it stale and kicks off a coalesced background refetch,
// so a burst of invalidations produces at most one in-flight request.
type Slot[T any] struct {
	name  string
	fetch func(context.Context) (T, error)
	sf    singleflight.Group

	mu    sync.Mutex
	val   T
	fresh bool
	has   bool
}

func newSlot[T any](name string, fetch func(context.Context) (T, error)) *Slot[T] {
	return &Slot[T]{name: name, fetch: fetch}
}

// Get returns the cached value, fetching when the slot is empty or stale.
// Concurrent callers of a stale slot share one request.
func (s *Slot[T]) Get(ctx context.Context) (T, error) {
	s.mu.Lock()
	if s.has && s.fresh {
		v := s.val
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	// The coalesced fetch is shared by every waiter; detach it from the
	// first caller's context so one canceled caller cannot fail the rest.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(s.name, func() (any, error) {
		val, err := s.fetch(fetchCtx)
		if err != nil {
			return val, err
		}
		s.store(val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate marks the slot stale and refetches in the background. Stale
// data keeps serving snapshots until the refetch lands.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	s.fresh = false
	s.mu.Unlock()

	go func() {
		_, err, _ := s.sf.Do(s.name, func() (any, error) {
			val, err := s.fetch(context.Background())
			if err != nil {
				return val, err
			}
			s.store(val)
			return val, nil
		})
		if err != nil {
			slog.Debug("background refetch failed", "slot", s.name, "error", err)
		}
	}()
}

// Set installs a value directly, keeping the slot fresh. Used for
// speculative (optimistic) state and rollback.
func (s *Slot[T]) Set(v T) {
	s.store(v)
}

// Snapshot returns the current value without fetching; ok is false when the
// slot has never been populated.
func (s *Slot[T]) Snapshot() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val, s.has
}

func (s *Slot[T]) store(v T) {
	s.mu.Lock()
	s.val = v
	s.fresh = true
	s.has = true
	s.mu.Unlock()
}

// Cache holds the client's data slots. Task slots are invalidated together
// by WebSocket change notifications; issue slots by local mutations.
type Cache struct {
	client *Client

	Tasks   *Slot[[]task.Task]
	Current *Slot[*task.Task]
	Issues  *Slot[[]issue.Issue]

	mu       sync.Mutex
	perIssue map[string]*Slot[*issue.Issue]
}

// NewCache creates the slot set over an API client.
func NewCache(c *Client) *Cache {
	cache := &Cache{client: c, perIssue: make(map[string]*Slot[*issue.Issue])}
	cache.Tasks = newSlot("tasks", c.Tasks)
	cache.Current = newSlot("tasks/current", c.CurrentTask)
	cache.Issues = newSlot("issues", func(ctx context.Context) ([]issue.Issue, error) {
		return c.Issues(ctx, "")
	})
	return cache
}

// Issue returns the slot for one issue id, creating it on first use.
func (c *Cache) Issue(id string) *Slot[*issue.Issue] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.perIssue[id]
	if !ok {
		s = newSlot("issues/"+id, func(ctx context.Context) (*issue.Issue, error) {
			return c.client.Issue(ctx, id)
		})
		c.perIssue[id] = s
	}
	return s
}

// InvalidateTasks marks both task slots stale.
func (c *Cache) InvalidateTasks() {
	c.Tasks.Invalidate()
	c.Current.Invalidate()
}

// InvalidateIssues marks the issue list and every per-issue slot stale.
func (c *Cache) InvalidateIssues() {
	c.Issues.Invalidate()
	c.mu.Lock()
	slots := make([]*Slot[*issue.Issue], 0, len(c.perIssue))
	for _, s := range c.perIssue {
		slots = append(slots, s)
	}
	c.mu.Unlock()
	for _, s := range slots {
		s.Invalidate()
	}
}

// InvalidateAll marks every slot stale. Called on every (re)connect since
// changes broadcast while disconnected are not replayed.
func (c *Cache) InvalidateAll() {
	c.InvalidateTasks()
	c.InvalidateIssues()
}
