// Package issuefile implements issue CRUD over one JSON file per issue in a
// flat directory, fronted by an in-process read cache.
package issuefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
)

// maxParallelReads bounds the List fan-out over issue files.
const maxParallelReads = 8

// Store persists issues as <id>.json files under a single directory.
type Store struct {
	dir   string
	cache *Cache
	now   func() time.Time

	// Serializes writers. Readers go through files or the cache.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithCache installs a read cache in front of issue file reads.
func WithCache(c *Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at dir. The directory is created on first use.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the issue directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &domain.StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

// validID rejects ids that could escape the issue directory.
func validID(id string) error {
	if id == "" {
		return domain.NewValidationError("id")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") || id[0] == '.' {
		return domain.NewValidationError("id")
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// read loads and validates one issue file, consulting the cache first.
func (s *Store) read(id string) (*issue.Issue, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	var data []byte
	if s.cache != nil {
		if cached, ok := s.cache.get(id); ok {
			data = cached
		}
	}
	if data == nil {
		raw, err := os.ReadFile(s.path(id))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, domain.ErrNotFound
			}
			return nil, &domain.StorageError{Op: "read", Path: s.path(id), Err: err}
		}
		data = raw
		if s.cache != nil {
			s.cache.set(id, data)
		}
	}

	var i issue.Issue
	if err := json.Unmarshal(data, &i); err != nil {
		// An unparseable file is corrupt data, not an I/O failure.
		return nil, fmt.Errorf("parse %s: %w: %v", s.path(id), domain.ErrValidation, err)
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return &i, nil
}

// write persists a validated issue and refreshes the cache.
func (s *Store) write(i *issue.Issue) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal issue %s: %w", i.ID, err)
	}
	if err := os.WriteFile(s.path(i.ID), data, 0o644); err != nil {
		return &domain.StorageError{Op: "write", Path: s.path(i.ID), Err: err}
	}
	if s.cache != nil {
		s.cache.set(i.ID, data)
	}
	return nil
}

// List reads every issue file in the directory. A single record failing
// validation is fatal for the whole pass, so a partially corrupt directory
// is never served as if it were complete.
func (s *Store) List(ctx context.Context) ([]issue.Issue, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &domain.StorageError{Op: "readdir", Path: s.dir, Err: err}
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}

	issues := make([]issue.Issue, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for idx, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			i, err := s.read(id)
			if err != nil {
				// A file removed mid-listing is not corruption.
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			issues[idx] = *i
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := issues[:0]
	for _, i := range issues {
		if i.ID != "" {
			out = append(out, i)
		}
	}
	// ReadDir order is lexical; issue ids embed a millisecond timestamp so
	// this keeps creation order stable across loads.
	sort.SliceStable(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// Get returns the issue with the given id, or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*issue.Issue, error) {
	return s.read(id)
}

// Create assembles, validates and persists a new issue. The fully-assembled
// entity is validated, not just the input, so defaults that would violate
// the schema are caught before anything touches disk.
func (s *Store) Create(_ context.Context, req issue.CreateRequest) (*issue.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := issue.New(req, s.now().UTC())
	if err := i.Validate(); err != nil {
		return nil, err
	}
	if err := s.write(&i); err != nil {
		return nil, err
	}
	slog.Info("issue created", "id", i.ID)
	return &i, nil
}

// Update merges a partial update over the stored issue, preserving id and
// createdAt, refreshing updatedAt, and re-validating the merged result
// before persisting.
func (s *Store) Update(_ context.Context, id string, req issue.UpdateRequest) (*issue.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(id)
	if err != nil {
		return nil, err
	}

	updated := existing.Apply(req, s.now().UTC())
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.write(&updated); err != nil {
		return nil, err
	}
	slog.Info("issue updated", "id", id)
	return &updated, nil
}

// Delete removes the issue file. It returns false (and no error) when the
// issue does not exist.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &domain.StorageError{Op: "remove", Path: s.path(id), Err: err}
	}
	if s.cache != nil {
		s.cache.del(id)
	}
	slog.Info("issue deleted", "id", id)
	return true, nil
}

// ListByTask returns the issues whose relatedTaskId matches taskID.
func (s *Store) ListByTask(ctx context.Context, taskID string) ([]issue.Issue, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	related := make([]issue.Issue, 0, len(all))
	for _, i := range all {
		if i.RelatedTaskID == taskID {
			related = append(related, i)
		}
	}
	return related, nil
}
