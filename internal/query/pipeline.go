package query

import (
	"strings"
	"sync"
)

// Pipeline composes search-then-filter over a collection, memoizing each
// stage independently. The search stage recomputes only when the collection
// snapshot or the query changes; the filter stage only when the searched
// slice or the spec changes. Safe for concurrent use.
type Pipeline[T any] struct {
	fields func(T) []string
	value  func(T, string) string
	opts   Options

	mu sync.Mutex

	// search stage memo
	srcItems   []T
	srcQuery   string
	searched   []T
	haveSearch bool
	index      *index[T]

	// filter stage memo
	filterIn  []T
	filterKey string
	filtered  []T
	haveMemo  bool
}

// NewPipeline creates a pipeline with the given accessors.
func NewPipeline[T any](fields func(T) []string, value func(T, string) string, opts Options) *Pipeline[T] {
	return &Pipeline[T]{fields: fields, value: value, opts: opts}
}

// Run searches items with q, then filters the result with spec.
func (p *Pipeline[T]) Run(items []T, q string, spec FilterSpec) []T {
	p.mu.Lock()
	defer p.mu.Unlock()

	searched := p.runSearch(items, q)

	key := spec.Fingerprint()
	if p.haveMemo && sameSlice(searched, p.filterIn) && key == p.filterKey {
		return p.filtered
	}
	p.filterIn = searched
	p.filterKey = key
	p.filtered = FilterSlice(searched, spec, p.value)
	p.haveMemo = true
	return p.filtered
}

func (p *Pipeline[T]) runSearch(items []T, q string) []T {
	q = strings.TrimSpace(q)
	if p.haveSearch && sameSlice(items, p.srcItems) && q == p.srcQuery {
		return p.searched
	}

	if !sameSlice(items, p.srcItems) || p.index == nil {
		p.index = buildIndex(items, p.fields)
	}
	p.srcItems = items
	p.srcQuery = q

	if q == "" || len(q) < p.opts.MinMatchLength {
		p.searched = items
	} else {
		p.searched = p.index.search(q, p.opts)
	}
	p.haveSearch = true
	return p.searched
}
