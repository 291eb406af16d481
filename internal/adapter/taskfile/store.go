// Package taskfile reads the TaskMaster task document and serves validated
// in-memory snapshots of the task tree. The document is owned by external
// tooling; this store is strictly read-only with respect to tasks.
package taskfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
)

// document mirrors the on-disk shape. TaskMaster writes tasks under a
// "master" tag by default; older documents keep a top-level tasks array.
type document struct {
	Master *struct {
		Tasks []task.Task `json:"tasks"`
	} `json:"master"`
	Tasks []task.Task `json:"tasks"`
}

// Store holds the last successfully loaded task snapshot.
type Store struct {
	path string

	mu    sync.RWMutex
	tasks []task.Task
}

// New creates a Store for the given document path. Call Load to populate it.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the watched document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads, parses and validates the whole document, then swaps the
// snapshot. Any task failing validation aborts the pass and leaves the
// previous snapshot in place. A missing file is not an error: the snapshot
// becomes the empty task list.
func (s *Store) Load(_ context.Context) (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("task document not found, serving empty task list", "path", s.path)
			s.swap(nil)
			return 0, nil
		}
		return 0, &domain.StorageError{Op: "read", Path: s.path, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// An unparseable document is corrupt data, not an I/O failure.
		return 0, fmt.Errorf("parse %s: %w: %v", s.path, domain.ErrValidation, err)
	}

	tasks := doc.Tasks
	if doc.Master != nil {
		tasks = doc.Master.Tasks
	}

	if err := task.ValidateAll(tasks); err != nil {
		return 0, err
	}

	s.swap(tasks)
	return len(tasks), nil
}

func (s *Store) swap(tasks []task.Task) {
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
}

// Tasks returns a deep copy of the current snapshot; mutating the result
// never affects the store.
func (s *Store) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tasks == nil {
		return []task.Task{}
	}
	return task.CloneAll(s.tasks)
}

// Count returns the number of top-level tasks in the snapshot.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Find returns a copy of the task with the given id, searching depth-first
// through all subtask levels. Numeric and string ids compare as strings.
func (s *Store) Find(id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := task.FindByID(s.tasks, id); t != nil {
		c := t.Clone()
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

// Current returns a copy of the task to work on next (first in-progress
// depth-first, else first pending).
func (s *Store) Current() (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := task.Current(s.tasks); t != nil {
		c := t.Clone()
		return &c, nil
	}
	return nil, domain.ErrNotFound
}
