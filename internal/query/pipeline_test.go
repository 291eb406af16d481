package query

import (
	"fmt"
	"testing"
	"time"
)

func TestPipelineSearchThenFilter(t *testing.T) {
	p := NewPipeline(docFields, docValue, DefaultOptions())
	items := docs()

	got := p.Run(items, "test", FilterSpec{"status": {"in-progress"}})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("got %+v, want only doc 2", got)
	}

	// Filter applies to the searched subset, not the full collection.
	got = p.Run(items, "websocket", FilterSpec{"status": {"in-progress"}})
	if len(got) != 0 {
		t.Errorf("doc 1 is pending; filtering searched results must yield nothing, got %+v", got)
	}
}

func TestPipelineNoOpReturnsSameSlice(t *testing.T) {
	p := NewPipeline(docFields, docValue, DefaultOptions())
	items := docs()

	got := p.Run(items, "", FilterSpec{})
	if !sameSlice(got, items) {
		t.Error("empty query and empty spec must return the input slice itself")
	}
}

func TestPipelineMemoizesPerStage(t *testing.T) {
	p := NewPipeline(docFields, docValue, DefaultOptions())
	items := docs()
	spec := FilterSpec{"status": {"pending"}}

	first := p.Run(items, "e", spec)
	second := p.Run(items, "e", spec)
	if !sameSlice(first, second) {
		t.Error("identical inputs must return the memoized result slice")
	}

	// Same collection and query, different spec: only the filter reruns,
	// over the same searched slice.
	third := p.Run(items, "e", FilterSpec{"priority": {"high"}})
	if sameSlice(second, third) {
		t.Error("a changed spec must produce a new filtered result")
	}

	// A new collection snapshot invalidates the search stage.
	fresh := docs()
	fourth := p.Run(fresh, "e", FilterSpec{"priority": {"high"}})
	if len(fourth) != len(third) {
		t.Errorf("identical data in a new snapshot must filter identically: %d vs %d", len(fourth), len(third))
	}
}

func TestPipelineLargeCollection(t *testing.T) {
	items := make([]doc, 1000)
	for i := range items {
		status := "pending"
		if i%3 == 0 {
			status = "done"
		}
		priority := "low"
		if i%10 == 0 {
			priority = "high"
		}
		items[i] = doc{
			ID:       fmt.Sprintf("%d", i),
			Title:    fmt.Sprintf("Task number %d about storage", i),
			Status:   status,
			Priority: priority,
		}
	}

	p := NewPipeline(docFields, docValue, DefaultOptions())
	spec := FilterSpec{"status": {"done"}, "priority": {"high"}}

	start := time.Now()
	got := p.Run(items, "task", spec)
	cold := time.Since(start)

	for _, d := range got {
		if d.Status != "done" || d.Priority != "high" {
			t.Fatalf("item %s violates the filter", d.ID)
		}
	}
	if len(got) == 0 {
		t.Fatal("expected matches in the large collection")
	}
	if cold > 300*time.Millisecond {
		t.Errorf("cold pipeline run took %v", cold)
	}

	start = time.Now()
	memoized := p.Run(items, "task", spec)
	warm := time.Since(start)
	if !sameSlice(got, memoized) {
		t.Error("warm run must return the memoized slice")
	}
	if warm > 10*time.Millisecond {
		t.Errorf("memoized run took %v", warm)
	}
}
