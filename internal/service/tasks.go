// Package service implements business logic on top of the file adapters.
package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	otelx "github.com/anombyte93/TaskMasterWebViewer/internal/adapter/otel"
	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/taskfile"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
)

// ErrDocumentRemoved reports that the watched task document disappeared.
// The last good snapshot keeps serving until a new document shows up.
var ErrDocumentRemoved = errors.New("task document removed")

// DefaultDebounce is the quiet period applied to raw file-change
// notifications before the task document is reloaded.
const DefaultDebounce = 300 * time.Millisecond

// ChangeEvent carries the new snapshot after a successful reload.
type ChangeEvent struct {
	Tasks []task.Task
	Count int
	At    time.Time
}

// ErrorEvent reports a failed reload. The previously served snapshot is
// still intact when subscribers receive it.
type ErrorEvent struct {
	Err error
	At  time.Time
}

// Handler receives change notifications. Either callback may be nil.
type Handler struct {
	OnChange func(ChangeEvent)
	OnError  func(ErrorEvent)
}

// TaskService watches the task document, debounces filesystem bursts into
// single reloads, and notifies subscribers after each reload attempt.
// Handlers run synchronously on the reload path.
type TaskService struct {
	store    *taskfile.Store
	debounce time.Duration
	metrics  *otelx.Metrics

	mu      sync.Mutex
	subs    map[int]Handler
	nextSub int
	timer   *time.Timer
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	started bool
}

// TaskOption configures a TaskService.
type TaskOption func(*TaskService)

// WithDebounce overrides the debounce quiet period.
func WithDebounce(d time.Duration) TaskOption {
	return func(s *TaskService) { s.debounce = d }
}

// WithMetrics installs telemetry instruments.
func WithMetrics(m *otelx.Metrics) TaskOption {
	return func(s *TaskService) { s.metrics = m }
}

// NewTaskService creates a TaskService over the given store.
func NewTaskService(store *taskfile.Store, opts ...TaskOption) *TaskService {
	s := &TaskService{
		store:    store,
		debounce: DefaultDebounce,
		subs:     make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the initial load and begins watching the document's parent
// directory (watching the directory survives atomic rename-into-place
// writes). Calling Start on a started service warns and no-ops.
func (s *TaskService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		slog.Warn("task watcher already started", "path", s.store.Path())
		return nil
	}
	s.mu.Unlock()

	count, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	slog.Info("loaded task document", "path", s.store.Path(), "tasks", count)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.store.Path())); err != nil {
		_ = w.Close()
		return &domain.StorageError{Op: "watch", Path: s.store.Path(), Err: err}
	}

	watchCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.watcher = w
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	go s.watch(watchCtx, w)
	slog.Info("watching task document", "path", s.store.Path(), "debounce", s.debounce)
	return nil
}

// Stop releases the filesystem watch and any pending debounce timer.
func (s *TaskService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.started = false
	slog.Info("task watcher stopped", "path", s.store.Path())
}

// Subscribe registers a handler and returns its unsubscribe function.
func (s *TaskService) Subscribe(h Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Notify feeds one raw change notification into the debounce window.
// The fsnotify loop calls it for real events; tests call it directly to
// simulate bursts.
func (s *TaskService) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.reload)
}

// watch translates filesystem events for the document into raw
// notifications. Events for sibling files in the directory are ignored.
func (s *TaskService) watch(ctx context.Context, w *fsnotify.Watcher) {
	target := filepath.Base(s.store.Path())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				s.emitError(&domain.StorageError{Op: "watch", Path: s.store.Path(), Err: ErrDocumentRemoved})
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				slog.Debug("task document changed, debouncing reload", "op", event.Op.String())
				s.Notify()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.emitError(err)
		}
	}
}

// reload runs once per settled debounce window. A failed reload emits an
// error event and leaves the last good snapshot serving; it never panics
// out of the timer goroutine.
func (s *TaskService) reload() {
	start := time.Now()
	count, err := s.store.Load(context.Background())
	if err != nil {
		slog.Error("task reload failed", "path", s.store.Path(), "error", err)
		if s.metrics != nil {
			s.metrics.ReloadFailed(context.Background())
		}
		s.emitError(err)
		return
	}

	slog.Info("task document reloaded", "tasks", count, "duration_ms", time.Since(start).Milliseconds())
	if s.metrics != nil {
		s.metrics.ReloadSucceeded(context.Background(), time.Since(start))
	}

	ev := ChangeEvent{Tasks: s.store.Tasks(), Count: count, At: time.Now()}
	for _, h := range s.handlers() {
		if h.OnChange != nil {
			h.OnChange(ev)
		}
	}
}

func (s *TaskService) emitError(err error) {
	ev := ErrorEvent{Err: err, At: time.Now()}
	for _, h := range s.handlers() {
		if h.OnError != nil {
			h.OnError(ev)
		}
	}
}

// handlers snapshots the subscriber set so emission tolerates
// unsubscription from within a handler.
func (s *TaskService) handlers() []Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Handler, 0, len(s.subs))
	for _, h := range s.subs {
		out = append(out, h)
	}
	return out
}

// Tasks returns a copy of the current task snapshot.
func (s *TaskService) Tasks() []task.Task {
	return s.store.Tasks()
}

// Task returns the task with the given id, searching nested subtasks.
func (s *TaskService) Task(id string) (*task.Task, error) {
	return s.store.Find(id)
}

// Current returns the task to work on next.
func (s *TaskService) Current() (*task.Task, error) {
	return s.store.Current()
}

// Count returns the number of top-level tasks.
func (s *TaskService) Count() int {
	return s.store.Count()
}
