package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
)

func validCreateRequest() issue.CreateRequest {
	return issue.CreateRequest{
		Title:       "Stale cache after reconnect",
		Description: "Slots are not refetched",
		Severity:    issue.SeverityMedium,
		Status:      issue.StatusOpen,
	}
}

func seedIssues() []issue.Issue {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := issue.New(validCreateRequest(), now)
	a.ID = "issue-1-aaaaa"
	b := issue.New(issue.CreateRequest{
		Title:       "Second issue",
		Description: "Another problem",
		Severity:    issue.SeverityLow,
		Status:      issue.StatusOpen,
	}, now.Add(time.Minute))
	b.ID = "issue-2-bbbbb"
	return []issue.Issue{a, b}
}

func TestSlotFetchesOnceWhileFresh(t *testing.T) {
	var fetches atomic.Int64
	s := newSlot("test", func(ctx context.Context) (int, error) {
		return int(fetches.Add(1)), nil
	})

	for i := 0; i < 5; i++ {
		v, err := s.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if v != 1 {
			t.Fatalf("get #%d = %d, want cached 1", i, v)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestSlotInvalidateRefetchesInBackground(t *testing.T) {
	var fetches atomic.Int64
	s := newSlot("test", func(ctx context.Context) (int, error) {
		return int(fetches.Add(1)), nil
	})

	if _, err := s.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Invalidate()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, _ := s.Snapshot(); v == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	v, _ := s.Snapshot()
	t.Errorf("slot value = %d after invalidation, want refetched 2", v)
}

func TestSlotFetchSurvivesCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	s := newSlot("test", func(ctx context.Context) (int, error) {
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	type result struct {
		v   int
		err error
	}
	results := make(chan result, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		v, err := s.Get(ctx)
		results <- result{v, err}
	}()
	go func() {
		v, err := s.Get(context.Background())
		results <- result{v, err}
	}()

	// Cancel one caller while the shared fetch is in flight.
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("caller %d: %v", i, r.err)
		}
		if r.v != 42 {
			t.Errorf("caller %d got %d, want 42", i, r.v)
		}
	}
}

func TestSlotSnapshotBeforePopulation(t *testing.T) {
	s := newSlot("test", func(ctx context.Context) (int, error) { return 1, nil })
	if _, ok := s.Snapshot(); ok {
		t.Error("snapshot of an unpopulated slot must report ok=false")
	}
}

// issueServer serves a fixed issue list, counts list fetches, and lets
// tests force mutation failures.
func issueServer(t *testing.T, failMutations *atomic.Bool) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	issues := seedIssues()
	var listFetches atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodGet {
			if failMutations.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Internal server error"})
				return
			}
			created := issue.New(validCreateRequest(), time.Now())
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "issue": created})
			return
		}
		listFetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "issues": issues})
	}))
	return srv, &listFetches
}

func TestOptimisticCreateRollsBackOnFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv, listFetches := issueServer(t, &fail)
	defer srv.Close()

	c := New(srv.URL, nil)
	cache := NewCache(c)

	before, err := cache.Issues.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fetched := listFetches.Load()

	_, err = cache.CreateIssue(context.Background(), validCreateRequest())
	if err == nil {
		t.Fatal("expected the create to fail")
	}

	after, ok := cache.Issues.Snapshot()
	if !ok {
		t.Fatal("issues slot lost its value")
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback must restore the exact snapshot:\nbefore %+v\nafter  %+v", before, after)
	}

	// A failed settle still reconciles against the server.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if listFetches.Load() > fetched {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("no refetch after the failed mutation settled: fetches = %d", listFetches.Load())
}

func TestOptimisticCreateAppliesSpeculatively(t *testing.T) {
	var fail atomic.Bool
	srv, _ := issueServer(t, &fail)
	defer srv.Close()

	c := New(srv.URL, nil)
	cache := NewCache(c)

	if _, err := cache.Issues.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	created, err := cache.CreateIssue(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Error("settled create must return the server entity")
	}
}

func TestOptimisticDeleteRollsBackOnFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv, listFetches := issueServer(t, &fail)
	defer srv.Close()

	c := New(srv.URL, nil)
	cache := NewCache(c)

	before, err := cache.Issues.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fetched := listFetches.Load()

	if err := cache.DeleteIssue(context.Background(), before[0].ID); err == nil {
		t.Fatal("expected the delete to fail")
	}
	after, _ := cache.Issues.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("failed delete must restore the snapshot")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if listFetches.Load() > fetched {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("no refetch after the failed delete settled: fetches = %d", listFetches.Load())
}
