// Package query implements fuzzy search, category filtering and their
// memoized composition over in-memory collections.
package query

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Options tunes the search engine.
type Options struct {
	// Threshold is match looseness in [0,1]: 0 keeps exact-scoring matches
	// only, 1 keeps anything the matcher finds.
	Threshold float64
	// Distance caps how far into a field the match may extend.
	Distance int
	// MinMatchLength is the minimum query length that triggers a search;
	// shorter queries leave the collection untouched.
	MinMatchLength int
}

// DefaultOptions mirrors the dashboard's tuned values.
func DefaultOptions() Options {
	return Options{Threshold: 0.3, Distance: 100, MinMatchLength: 2}
}

// sameSlice reports whether two slices are the identical backing array
// section. Length plus first-element address is enough for the append-free
// snapshots this package consumes.
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

// index is a prepared flat candidate list over one collection snapshot.
type index[T any] struct {
	items      []T
	candidates []string
	owner      []int // candidate index -> item index
}

func buildIndex[T any](items []T, fields func(T) []string) *index[T] {
	ix := &index[T]{items: items}
	for i, item := range items {
		for _, f := range fields(item) {
			if f == "" {
				continue
			}
			ix.candidates = append(ix.candidates, f)
			ix.owner = append(ix.owner, i)
		}
	}
	return ix
}

// selfScore is the matcher's score for a query matched against itself, the
// reference point for normalizing candidate scores.
func selfScore(q string) int {
	m := fuzzy.Find(q, []string{q})
	if len(m) == 0 {
		return 0
	}
	return m[0].Score
}

// search runs the query against the prepared index and returns matching
// items ordered by descending score, original order on ties.
func (ix *index[T]) search(q string, opts Options) []T {
	matches := fuzzy.Find(q, ix.candidates)

	ref := selfScore(q)
	floor := 1.0 - opts.Threshold

	type hit struct {
		item  int
		score float64
	}
	best := make(map[int]float64)
	for _, m := range matches {
		if opts.Distance > 0 && len(m.MatchedIndexes) > 0 &&
			m.MatchedIndexes[len(m.MatchedIndexes)-1] > opts.Distance {
			continue
		}
		score := 1.0
		if ref > 0 {
			score = float64(m.Score) / float64(ref)
			if score > 1 {
				score = 1
			}
			if score < 0 {
				score = 0
			}
		}
		if score < floor {
			continue
		}
		item := ix.owner[m.Index]
		if cur, ok := best[item]; !ok || score > cur {
			best[item] = score
		}
	}

	hits := make([]hit, 0, len(best))
	for i := range ix.items {
		if s, ok := best[i]; ok {
			hits = append(hits, hit{item: i, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = ix.items[h.item]
	}
	return out
}

// SearchSlice fuzzy-searches items against q. An empty or whitespace-only
// query, or one shorter than MinMatchLength, returns the input slice itself.
func SearchSlice[T any](items []T, q string, fields func(T) []string, opts Options) []T {
	q = strings.TrimSpace(q)
	if q == "" || len(q) < opts.MinMatchLength {
		return items
	}
	return buildIndex(items, fields).search(q, opts)
}
