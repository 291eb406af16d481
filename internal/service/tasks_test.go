package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/taskfile"
)

const testDoc = `{"master": {"tasks": [
  {"id": 1, "title": "First", "status": "in-progress"},
  {"id": 2, "title": "Second", "status": "pending"}
]}}`

// recorder collects change and error events thread-safely.
type recorder struct {
	mu      sync.Mutex
	changes []ChangeEvent
	errs    []ErrorEvent
}

func (r *recorder) handler() Handler {
	return Handler{
		OnChange: func(ev ChangeEvent) {
			r.mu.Lock()
			r.changes = append(r.changes, ev)
			r.mu.Unlock()
		},
		OnError: func(ev ErrorEvent) {
			r.mu.Lock()
			r.errs = append(r.errs, ev)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes), len(r.errs)
}

func newTestService(t *testing.T, doc string, debounce time.Duration) (*TaskService, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	if doc != "" {
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewTaskService(taskfile.New(path), WithDebounce(debounce))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc, path
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDebounceCollapsesBursts(t *testing.T) {
	svc, _ := newTestService(t, testDoc, 50*time.Millisecond)

	rec := &recorder{}
	unsubscribe := svc.Subscribe(rec.handler())
	defer unsubscribe()

	// A burst of raw notifications well inside one quiet period.
	for i := 0; i < 10; i++ {
		svc.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	if !waitFor(t, time.Second, func() bool { c, _ := rec.counts(); return c >= 1 }) {
		t.Fatal("expected a reload after the burst settled")
	}
	// Allow a full extra debounce window to pass, then confirm no
	// additional reloads sneak in.
	time.Sleep(120 * time.Millisecond)
	if c, _ := rec.counts(); c != 1 {
		t.Errorf("burst produced %d reloads, want exactly 1", c)
	}
}

func TestSeparatedNotificationsReloadTwice(t *testing.T) {
	svc, _ := newTestService(t, testDoc, 30*time.Millisecond)

	rec := &recorder{}
	defer svc.Subscribe(rec.handler())()

	svc.Notify()
	if !waitFor(t, time.Second, func() bool { c, _ := rec.counts(); return c == 1 }) {
		t.Fatal("first notification did not reload")
	}
	svc.Notify()
	if !waitFor(t, time.Second, func() bool { c, _ := rec.counts(); return c == 2 }) {
		t.Error("second notification after quiet period did not reload")
	}
}

func TestReloadFailureKeepsServing(t *testing.T) {
	svc, path := newTestService(t, testDoc, 20*time.Millisecond)

	rec := &recorder{}
	defer svc.Subscribe(rec.handler())()

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc.Notify()

	if !waitFor(t, time.Second, func() bool { _, e := rec.counts(); return e >= 1 }) {
		t.Fatal("expected an error event for the corrupt document")
	}
	if c, _ := rec.counts(); c != 0 {
		t.Errorf("corrupt reload must not emit a change event, got %d", c)
	}
	if svc.Count() != 2 {
		t.Errorf("corrupt reload must keep the last good snapshot, count = %d", svc.Count())
	}

	// Recovery: the next good write reloads normally.
	if err := os.WriteFile(path, []byte(testDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	svc.Notify()
	if !waitFor(t, time.Second, func() bool { c, _ := rec.counts(); return c >= 1 }) {
		t.Error("service did not recover after the document was fixed")
	}
}

func TestFileWriteTriggersReload(t *testing.T) {
	svc, path := newTestService(t, testDoc, 20*time.Millisecond)

	rec := &recorder{}
	defer svc.Subscribe(rec.handler())()

	doc := `{"master": {"tasks": [{"id": 1, "title": "Only", "status": "pending"}]}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 2*time.Second, func() bool { c, _ := rec.counts(); return c >= 1 }) {
		t.Fatal("file write did not trigger a reload")
	}
	if svc.Count() != 1 {
		t.Errorf("count = %d after reload, want 1", svc.Count())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, testDoc, 20*time.Millisecond)
	if err := svc.Start(context.Background()); err != nil {
		t.Errorf("second Start must no-op, got %v", err)
	}
}

func TestCurrentAndLookupPassthrough(t *testing.T) {
	svc, _ := newTestService(t, testDoc, 20*time.Millisecond)

	cur, err := svc.Current()
	if err != nil {
		t.Fatal(err)
	}
	if cur.ID.String() != "1" {
		t.Errorf("current = %s, want 1", cur.ID)
	}

	got, err := svc.Task("2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Second" {
		t.Errorf("lookup returned %q", got.Title)
	}
}
