package service

import (
	"context"

	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/issuefile"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
)

// IssueService handles issue business logic over the file store.
type IssueService struct {
	store *issuefile.Store
}

// NewIssueService creates a new IssueService.
func NewIssueService(store *issuefile.Store) *IssueService {
	return &IssueService{store: store}
}

// List returns all issues, optionally narrowed to one related task.
func (s *IssueService) List(ctx context.Context, taskID string) ([]issue.Issue, error) {
	if taskID != "" {
		return s.store.ListByTask(ctx, taskID)
	}
	return s.store.List(ctx)
}

// Get returns an issue by id.
func (s *IssueService) Get(ctx context.Context, id string) (*issue.Issue, error) {
	return s.store.Get(ctx, id)
}

// Create validates and persists a new issue.
func (s *IssueService) Create(ctx context.Context, req issue.CreateRequest) (*issue.Issue, error) {
	return s.store.Create(ctx, req)
}

// Update applies a partial update to an existing issue.
func (s *IssueService) Update(ctx context.Context, id string, req issue.UpdateRequest) (*issue.Issue, error) {
	return s.store.Update(ctx, id, req)
}

// Delete removes an issue; the bool reports whether it existed.
func (s *IssueService) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}
