// Package filters derives the visible subset of a list from the search box
// and the filter selects of an admin page.
package filters

import (
	"strconv"
	"strings"
)

// All is the select value that disables a filter.
const All = "all"

type Predicate[T any] func(T) bool

// Apply keeps the items whose search fields contain search verbatim
// (case-insensitive, any field) and that satisfy every predicate. Order is preserved. Nil
// predicates are skipped.
func Apply[T any](items []T, search string, fields func(T) []string, preds ...Predicate[T]) []T {
	needle := strings.ToLower(search)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && fields != nil && !contains(fields(item), needle) {
			continue
		}
		if !all(item, preds) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Matches reports whether any field contains search, ignoring case. Spaces
// in search are part of the needle.
func Matches(search string, fields ...string) bool {
	needle := strings.ToLower(search)
	return needle == "" || contains(fields, needle)
}

// Equal keeps items whose key equals selected. Returns nil (no filter) for
// All or an empty selection.
func Equal[T any, K ~string](selected string, key func(T) K) Predicate[T] {
	if disabled(selected) {
		return nil
	}
	return func(item T) bool { return string(key(item)) == selected }
}

// EqualID is Equal for numeric references such as a tournament id.
func EqualID[T any](selected string, key func(T) int) Predicate[T] {
	if disabled(selected) {
		return nil
	}
	return func(item T) bool { return strconv.Itoa(key(item)) == selected }
}

func disabled(selected string) bool {
	s := strings.TrimSpace(selected)
	return s == "" || s == All
}

func contains(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func all[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if p != nil && !p(item) {
			return false
		}
	}
	return true
}
