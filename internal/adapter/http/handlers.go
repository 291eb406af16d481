package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/ws"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
	"github.com/anombyte93/TaskMasterWebViewer/internal/query"
	"github.com/anombyte93/TaskMasterWebViewer/internal/service"
)

// Handlers bundles the request handlers and their dependencies.
type Handlers struct {
	tasks     *service.TaskService
	issues    *service.IssueService
	hub       *ws.Hub
	search    query.Options
	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(tasks *service.TaskService, issues *service.IssueService, hub *ws.Hub, search query.Options) *Handlers {
	return &Handlers{
		tasks:     tasks,
		issues:    issues,
		hub:       hub,
		search:    search,
		startedAt: time.Now(),
	}
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type tasksResponse struct {
	Success bool        `json:"success"`
	Tasks   []task.Task `json:"tasks"`
	Count   int         `json:"count"`
}

type taskResponse struct {
	Success bool      `json:"success"`
	Task    task.Task `json:"task"`
}

// handleListTasks serves the current task snapshot. Optional q, status and
// priority query parameters run the search/filter pipeline server-side.
func (h *Handlers) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.tasks.Tasks()

	if q := r.URL.Query().Get("q"); q != "" {
		tasks = query.SearchSlice(tasks, q, task.Task.SearchFields, h.search)
	}

	spec := query.FilterSpec{}
	if v := r.URL.Query().Get("status"); v != "" {
		spec["status"] = strings.Split(v, ",")
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		spec["priority"] = strings.Split(v, ",")
	}
	tasks = query.FilterSlice(tasks, spec, task.Task.FilterValue)

	writeJSON(w, http.StatusOK, tasksResponse{Success: true, Tasks: tasks, Count: len(tasks)})
}

func (h *Handlers) handleCurrentTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Current()
	if err != nil {
		writeDomainError(w, err, "No current task found", "Invalid request")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: *t})
}

func (h *Handlers) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.tasks.Task(id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("Task %s not found", id), "Invalid request")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: *t})
}

// ---------------------------------------------------------------------------
// Issues
// ---------------------------------------------------------------------------

type issuesResponse struct {
	Success bool          `json:"success"`
	Issues  []issue.Issue `json:"issues"`
}

type issueResponse struct {
	Success bool        `json:"success"`
	Issue   issue.Issue `json:"issue"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handlers) handleListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.issues.List(r.Context(), r.URL.Query().Get("taskId"))
	if err != nil {
		writeDomainError(w, err, "Issues not found", "Invalid issue data")
		return
	}
	writeJSON(w, http.StatusOK, issuesResponse{Success: true, Issues: issues})
}

func (h *Handlers) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	iss, err := h.issues.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("Issue %s not found", id), "Invalid issue data")
		return
	}
	writeJSON(w, http.StatusOK, issueResponse{Success: true, Issue: *iss})
}

func (h *Handlers) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[issue.CreateRequest](w, r)
	if !ok {
		return
	}
	iss, err := h.issues.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Issue not found", "Invalid issue data")
		return
	}
	writeJSON(w, http.StatusCreated, issueResponse{Success: true, Issue: *iss})
}

func (h *Handlers) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[issue.UpdateRequest](w, r)
	if !ok {
		return
	}
	iss, err := h.issues.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("Issue %s not found", id), "Invalid issue data")
		return
	}
	writeJSON(w, http.StatusOK, issueResponse{Success: true, Issue: *iss})
}

func (h *Handlers) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	found, err := h.issues.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("Issue %s not found", id), "Invalid issue data")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Issue %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Issue deleted successfully"})
}

// ---------------------------------------------------------------------------
// System
// ---------------------------------------------------------------------------

type systemStats struct {
	TotalTasks      int `json:"totalTasks"`
	PendingTasks    int `json:"pendingTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	CompletedTasks  int `json:"completedTasks"`
	TotalIssues     int `json:"totalIssues"`
	OpenIssues      int `json:"openIssues"`
	CriticalIssues  int `json:"criticalIssues"`
}

type statsResponse struct {
	Success   bool        `json:"success"`
	Stats     systemStats `json:"stats"`
	Timestamp string      `json:"timestamp"`
}

// handleSystemStats summarizes the task snapshot and the issue directory.
// Task counts cover top-level tasks only, matching the list endpoint's count.
func (h *Handlers) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	tasks := h.tasks.Tasks()
	issues, err := h.issues.List(r.Context(), "")
	if err != nil {
		writeDomainError(w, err, "Issues not found", "Invalid issue data")
		return
	}

	st := systemStats{TotalTasks: len(tasks), TotalIssues: len(issues)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending:
			st.PendingTasks++
		case task.StatusInProgress:
			st.InProgressTasks++
		case task.StatusDone:
			st.CompletedTasks++
		}
	}
	for _, i := range issues {
		if i.Status == issue.StatusOpen {
			st.OpenIssues++
		}
		if i.Severity == issue.SeverityCritical {
			st.CriticalIssues++
		}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Success:   true,
		Stats:     st,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status        string `json:"status"`
	TasksCount    int    `json:"tasksCount"`
	WSConnections int    `json:"wsConnections"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		TasksCount:    h.tasks.Count(),
		WSConnections: h.hub.ConnectionCount(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}
