package client

import (
	"sort"
	"strings"
)

// FieldErrors maps a form field to the message the server attached to it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return "validation failed: " + e.Report()
}

// Unwrap lets callers test validation failures with errors.Is(err, ErrRequestFailed).
func (e FieldErrors) Unwrap() error { return ErrRequestFailed }

// Keys returns the field names in sorted order.
func (e FieldErrors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report joins all messages into a single notice, ordered by field name.
func (e FieldErrors) Report() string {
	parts := make([]string, 0, len(e))
	for _, k := range e.Keys() {
		parts = append(parts, e[k])
	}
	return strings.Join(parts, "\n")
}
