// Package issue defines the Issue domain entity and its validation rules.
package issue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
)

// Severity is the impact classification of an issue.
type Severity string

// Issue severities.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Status is the lifecycle state of an issue.
type Status string

// Issue statuses.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Valid reports whether s is a known issue status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Issue is a tracked problem, persisted one JSON file per issue.
type Issue struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Severity      Severity  `json:"severity"`
	Status        Status    `json:"status"`
	RelatedTaskID string    `json:"relatedTaskId,omitempty"`
	Tags          []string  `json:"tags"`
	Attachments   []string  `json:"attachments"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the issue.
func (i Issue) Clone() Issue {
	c := i
	c.Tags = append([]string(nil), i.Tags...)
	c.Attachments = append([]string(nil), i.Attachments...)
	return c
}

// Validate checks the fully-assembled issue. The timestamp ordering
// invariant createdAt <= updatedAt is part of the schema.
func (i Issue) Validate() error {
	var fields []string
	if i.ID == "" {
		fields = append(fields, "id")
	}
	if i.Title == "" {
		fields = append(fields, "title")
	}
	if i.Description == "" {
		fields = append(fields, "description")
	}
	if !i.Severity.Valid() {
		fields = append(fields, "severity")
	}
	if !i.Status.Valid() {
		fields = append(fields, "status")
	}
	if i.CreatedAt.IsZero() {
		fields = append(fields, "createdAt")
	}
	if i.UpdatedAt.IsZero() || i.UpdatedAt.Before(i.CreatedAt) {
		fields = append(fields, "updatedAt")
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// CreateRequest holds the caller-supplied fields of a new issue. Server
// assigns id and timestamps.
type CreateRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	Status        Status   `json:"status"`
	RelatedTaskID string   `json:"relatedTaskId,omitempty"`
	Tags          []string `json:"tags"`
	Attachments   []string `json:"attachments"`
}

// UpdateRequest holds a partial update; nil fields are left unchanged.
// Id and createdAt are not updatable by design.
type UpdateRequest struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Severity      *Severity `json:"severity,omitempty"`
	Status        *Status   `json:"status,omitempty"`
	RelatedTaskID *string   `json:"relatedTaskId,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Attachments   *[]string `json:"attachments,omitempty"`
}

// New assembles a full issue from a create request, generating identity and
// stamping both timestamps to the same instant.
func New(req CreateRequest, now time.Time) Issue {
	i := Issue{
		ID:            NewIssueID(now),
		Title:         req.Title,
		Description:   req.Description,
		Severity:      req.Severity,
		Status:        req.Status,
		RelatedTaskID: req.RelatedTaskID,
		Tags:          req.Tags,
		Attachments:   req.Attachments,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
	if i.Attachments == nil {
		i.Attachments = []string{}
	}
	return i
}

// Apply merges an update request over an existing issue, forcibly
// preserving id and createdAt and refreshing updatedAt.
func (i Issue) Apply(req UpdateRequest, now time.Time) Issue {
	out := i.Clone()
	if req.Title != nil {
		out.Title = *req.Title
	}
	if req.Description != nil {
		out.Description = *req.Description
	}
	if req.Severity != nil {
		out.Severity = *req.Severity
	}
	if req.Status != nil {
		out.Status = *req.Status
	}
	if req.RelatedTaskID != nil {
		out.RelatedTaskID = *req.RelatedTaskID
	}
	if req.Tags != nil {
		out.Tags = append([]string(nil), (*req.Tags)...)
	}
	if req.Attachments != nil {
		out.Attachments = append([]string(nil), (*req.Attachments)...)
	}
	out.ID = i.ID
	out.CreatedAt = i.CreatedAt
	out.UpdatedAt = now
	return out
}

// NewIssueID generates a globally unique id of the form
// issue-<unix-ms>-<5 random chars>.
func NewIssueID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:5]
	return fmt.Sprintf("issue-%d-%s", now.UnixMilli(), random)
}

// SearchFields returns the strings the fuzzy search index covers for an
// issue. Each tag is its own candidate.
func (i Issue) SearchFields() []string {
	fields := []string{i.ID, i.Title, i.Description}
	return append(fields, i.Tags...)
}

// FilterValue maps a filter category name to the issue's value for it.
func (i Issue) FilterValue(category string) string {
	switch strings.ToLower(category) {
	case "status":
		return string(i.Status)
	case "severity":
		return string(i.Severity)
	}
	return ""
}
