// Package forms holds the state of modal dialogs on the admin pages: an
// editable form bound to a values struct and a confirmation gate for
// destructive actions.
package forms

import (
	"context"
	"errors"
	"maps"
	"sync"
)

var ErrNotOpen = errors.New("modal is not open")

// Assign writes one or more fields of V. Used to prefill a form on Open.
type Assign[V any] func(*V)

// Field describes one member of V, so writes are checked at compile time
// and errors can be keyed by the field's wire name.
type Field[V, F any] struct {
	Name string
	ref  func(*V) *F
}

func NewField[V, F any](name string, ref func(*V) *F) Field[V, F] {
	return Field[V, F]{Name: name, ref: ref}
}

// Get reads the field from v.
func (f Field[V, F]) Get(v V) F {
	return *f.ref(&v)
}

// Set returns an Assign that writes x into the field.
func Set[V, F any](f Field[V, F], x F) Assign[V] {
	return func(v *V) { *f.ref(v) = x }
}

type SubmitFunc[V any] func(ctx context.Context, values V) error

// Modal is the state of a form dialog: open/closed, current values and
// per-field error messages.
type Modal[V any] struct {
	mu      sync.Mutex
	initial V
	values  V
	errors  map[string]string
	open    bool
	submit  SubmitFunc[V]
}

func NewModal[V any](initial V, submit SubmitFunc[V]) *Modal[V] {
	return &Modal[V]{
		initial: initial,
		values:  initial,
		errors:  map[string]string{},
		submit:  submit,
	}
}

// Open shows the dialog. Prefill is applied over the initial values, so
// only the fields it writes differ from them.
func (m *Modal[V]) Open(prefill ...Assign[V]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := m.initial
	for _, assign := range prefill {
		if assign != nil {
			assign(&values)
		}
	}
	m.values = values
	m.open = true
}

// Close hides the dialog and drops values and errors.
func (m *Modal[V]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = false
	m.values = m.initial
	clear(m.errors)
}

func (m *Modal[V]) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Values returns a copy of the current values.
func (m *Modal[V]) Values() V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values
}

// Errors returns a copy of the current field errors.
func (m *Modal[V]) Errors() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.errors)
}

func (m *Modal[V]) Error(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[key]
}

func (m *Modal[V]) SetError(key, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsMap()[key] = message
}

// SetErrors attaches every message of errs on top of the current ones.
func (m *Modal[V]) SetErrors(errs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.errorsMap(), errs)
}

// ReplaceErrors swaps the whole error set for errs, e.g. the field errors
// of the latest server response.
func (m *Modal[V]) ReplaceErrors(errs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.errorsMap()
	clear(current)
	maps.Copy(current, errs)
}

// errorsMap must be called with mu held.
func (m *Modal[V]) errorsMap() map[string]string {
	if m.errors == nil {
		m.errors = map[string]string{}
	}
	return m.errors
}

// SetValue writes one field and clears that field's error only.
func SetValue[V, F any](m *Modal[V], f Field[V, F], x F) {
	m.mu.Lock()
	defer m.mu.Unlock()

	*f.ref(&m.values) = x
	delete(m.errors, f.Name)
}

// HandleSubmit passes the current values to the submit handler. The modal
// stays open; the handler closes it on success.
func (m *Modal[V]) HandleSubmit(ctx context.Context) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return ErrNotOpen
	}
	values := m.values
	submit := m.submit
	m.mu.Unlock()

	if submit == nil {
		return nil
	}
	return submit(ctx, values)
}
