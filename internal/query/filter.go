package query

import (
	"sort"
	"strings"
)

// FilterSpec maps a category name to its accepted values. Items must match
// every category that has values (AND) and any one value within a category
// (OR). Categories with no values do not constrain.
type FilterSpec map[string][]string

// Empty reports whether the spec constrains nothing.
func (s FilterSpec) Empty() bool {
	for _, vals := range s {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Fingerprint returns a canonical string form of the spec, independent of
// map iteration and value order.
func (s FilterSpec) Fingerprint() string {
	cats := make([]string, 0, len(s))
	for c, vals := range s {
		if len(vals) > 0 {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)

	var b strings.Builder
	for _, c := range cats {
		vals := append([]string(nil), s[c]...)
		sort.Strings(vals)
		b.WriteString(c)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
		b.WriteByte(';')
	}
	return b.String()
}

// FilterSlice keeps the items accepted by spec. An unconstraining spec
// returns the input slice itself.
func FilterSlice[T any](items []T, spec FilterSpec, value func(T, string) string) []T {
	if spec.Empty() {
		return items
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(item, spec, value) {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](item T, spec FilterSpec, value func(T, string) string) bool {
	for cat, vals := range spec {
		if len(vals) == 0 {
			continue
		}
		got := value(item, cat)
		ok := false
		for _, v := range vals {
			if got == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
