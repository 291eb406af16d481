package issuefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "issues"))
}

func createRequest(title string) issue.CreateRequest {
	return issue.CreateRequest{
		Title:       title,
		Description: "something broke",
		Severity:    issue.SeverityMedium,
		Status:      issue.StatusOpen,
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Create(ctx, createRequest("Broken build"))
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("created issue must have an id")
	}
	if created.Tags == nil || created.Attachments == nil {
		t.Error("tags and attachments must be non-nil")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Broken build" {
		t.Errorf("got title %q", got.Title)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), issue.CreateRequest{Description: "no title"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Error("rejected create must not persist anything")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "issue-1-zzzzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s := New(filepath.Join(t.TempDir(), "issues"), WithClock(func() time.Time { return clock }))

	created, err := s.Create(ctx, createRequest("Flaky test"))
	if err != nil {
		t.Fatal(err)
	}

	clock = base.Add(time.Hour)
	status := issue.StatusResolved
	updated, err := s.Update(ctx, created.ID, issue.UpdateRequest{Status: &status})
	if err != nil {
		t.Fatal(err)
	}

	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("update must preserve id and createdAt")
	}
	if !updated.UpdatedAt.Equal(clock) {
		t.Errorf("updatedAt = %v, want %v", updated.UpdatedAt, clock)
	}
	if updated.Status != issue.StatusResolved {
		t.Errorf("status = %s", updated.Status)
	}

	if _, err := s.Update(ctx, "issue-1-zzzzz", issue.UpdateRequest{Status: &status}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("updating a missing issue must return ErrNotFound, got %v", err)
	}
}

func TestUpdateRejectsInvalidResult(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created, err := s.Create(ctx, createRequest("Valid issue"))
	if err != nil {
		t.Fatal(err)
	}

	empty := ""
	_, err = s.Update(ctx, created.ID, issue.UpdateRequest{Title: &empty})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Valid issue" {
		t.Error("failed update must leave the stored issue untouched")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created, err := s.Create(ctx, createRequest("Doomed"))
	if err != nil {
		t.Fatal(err)
	}

	found, err := s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("delete of an existing issue must report found")
	}

	found, err = s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("second delete must report not found")
	}
}

func TestListByTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req := createRequest("Related")
	req.RelatedTaskID = "3.2"
	if _, err := s.Create(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, createRequest("Unrelated")); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListByTask(ctx, "3.2")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "Related" {
		t.Errorf("ListByTask = %+v", list)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("List = %d issues, want 2", len(all))
	}
}

func TestListFailsOnCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "issues")
	s := New(dir)
	if _, err := s.Create(ctx, createRequest("Fine")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "issue-1-aaaaa.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.List(ctx); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("a corrupt issue file must fail the whole listing as a validation error, got %v", err)
	}
}

func TestListWithCache(t *testing.T) {
	ctx := context.Background()
	cache, err := NewCache(1<<20, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	s := New(filepath.Join(t.TempDir(), "issues"), WithCache(cache))
	created, err := s.Create(ctx, createRequest("Cached"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := s.Get(ctx, created.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Cached" {
			t.Errorf("got %q", got.Title)
		}
	}
}
