// Package task defines the TaskMaster task tree and its validation rules.
package task

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
)

// Status is the lifecycle state of a task.
type Status string

// Task statuses as written by TaskMaster.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known task status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusBlocked, StatusDeferred, StatusCancelled:
		return true
	}
	return false
}

// Priority is the optional task priority.
type Priority string

// Task priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority. Empty is allowed (unset).
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ID is a task identifier. TaskMaster documents use numeric ids for
// top-level tasks and dotted string ids (e.g. "1.2.3") for subtasks. An ID
// preserves the original JSON form on round-trip and compares by its string
// rendering.
type ID struct {
	s       string
	numeric bool
}

// NewID creates a string-form ID.
func NewID(s string) ID {
	return ID{s: s}
}

// NewNumericID creates a number-form ID.
func NewNumericID(n int64) ID {
	return ID{s: strconv.FormatInt(n, 10), numeric: true}
}

// String returns the canonical rendering used for comparisons.
func (id ID) String() string {
	return id.s
}

// Equal compares an id to a string rendering, unifying "1" and 1.
func (id ID) Equal(other string) bool {
	return id.s == other
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id.s == ""
}

// MarshalJSON emits the id in its original JSON form.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.s), nil
	}
	return json.Marshal(id.s)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID{s: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id must be a number or string: %w", err)
	}
	*id = ID{s: n.String(), numeric: true}
	return nil
}

// Task is one node of the TaskMaster task tree. Subtasks recurse with the
// same shape to unbounded depth; ids are unique only within their containing
// array.
type Task struct {
	ID           ID       `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`
	Dependencies []ID     `json:"dependencies,omitempty"`
	Subtasks     []Task   `json:"subtasks,omitempty"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = append([]ID(nil), t.Dependencies...)
	}
	c.Subtasks = CloneAll(t.Subtasks)
	return c
}

// CloneAll deep-copies a task slice.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// Validate checks one task and all of its subtasks against the schema.
// The returned error names the offending fields with their tree path,
// e.g. "subtasks[1].status".
func (t Task) Validate() error {
	fields := validate(t, "")
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// ValidateAll validates every task in a tree slice. Leaves are checked
// before their result is attributed to the parent path.
func ValidateAll(tasks []Task) error {
	var fields []string
	for i, t := range tasks {
		fields = append(fields, validate(t, fmt.Sprintf("tasks[%d].", i))...)
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

func validate(t Task, prefix string) []string {
	var fields []string
	if t.ID.IsZero() {
		fields = append(fields, prefix+"id")
	}
	if t.Title == "" {
		fields = append(fields, prefix+"title")
	}
	if !t.Status.Valid() {
		fields = append(fields, prefix+"status")
	}
	if !t.Priority.Valid() {
		fields = append(fields, prefix+"priority")
	}
	for i, sub := range t.Subtasks {
		fields = append(fields, validate(sub, fmt.Sprintf("%ssubtasks[%d].", prefix, i))...)
	}
	return fields
}

// FindByID searches the tree depth-first for a task whose id renders to the
// given string, including all nested subtask levels.
func FindByID(tasks []Task, id string) *Task {
	for i := range tasks {
		if tasks[i].ID.Equal(id) {
			return &tasks[i]
		}
		if found := FindByID(tasks[i].Subtasks, id); found != nil {
			return found
		}
	}
	return nil
}

// FindByStatus returns the first task with the given status in depth-first
// order, or nil.
func FindByStatus(tasks []Task, status Status) *Task {
	for i := range tasks {
		if tasks[i].Status == status {
			return &tasks[i]
		}
		if found := FindByStatus(tasks[i].Subtasks, status); found != nil {
			return found
		}
	}
	return nil
}

// Current returns the task to work on next: the first in-progress task in
// depth-first order, else the first pending one. A subtask of an earlier
// root wins over a later root.
func Current(tasks []Task) *Task {
	if t := FindByStatus(tasks, StatusInProgress); t != nil {
		return t
	}
	return FindByStatus(tasks, StatusPending)
}

// SearchFields returns the strings the fuzzy search index covers for a task.
func (t Task) SearchFields() []string {
	return []string{t.ID.String(), t.Title, t.Description}
}

// FilterValue maps a filter category name to the task's value for it.
// Unknown categories yield the empty string and therefore never match.
func (t Task) FilterValue(category string) string {
	switch strings.ToLower(category) {
	case "status":
		return string(t.Status)
	case "priority":
		return string(t.Priority)
	}
	return ""
}
