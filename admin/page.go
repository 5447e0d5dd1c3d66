// Package admin contains the controllers behind the admin pages. Each page
// owns the records it was rendered with, the filter state, a form modal for
// create/edit and a confirm modal for destructive actions.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vulca/torneos/client"
	"github.com/vulca/torneos/models"
)

var (
	ErrNotAdmin             = errors.New("admin pages require an administrator")
	ErrTransitionNotAllowed = errors.New("payment status transition not allowed")
	ErrMissingClient        = errors.New("page requires a client")
)

type Flash struct {
	Success string
	Error   string
}

// PageContext is what the server hands every page: who is signed in and
// the flash messages of the previous request.
type PageContext struct {
	User  *models.User
	Flash Flash
}

func (pc PageContext) check(c *client.Client) error {
	if !pc.User.IsAdmin() {
		return ErrNotAdmin
	}
	if c == nil {
		return ErrMissingClient
	}
	return nil
}

// records is the page's copy of a server list, kept in server order.
type records[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) int
}

func newRecords[T any](items []T, id func(T) int) *records[T] {
	return &records[T]{items: slices.Clone(items), id: id}
}

func (r *records[T]) all() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *records[T]) find(id int) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if r.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// upsert replaces the record with the same id in place, or puts a new one
// first. merge, when set, receives the old and new record.
func (r *records[T]) upsert(item T, merge func(old, updated T) T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.items {
		if r.id(old) == r.id(item) {
			if merge != nil {
				item = merge(old, item)
			}
			r.items[i] = item
			return
		}
	}
	r.items = append([]T{item}, r.items...)
}

func (r *records[T]) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = slices.DeleteFunc(r.items, func(item T) bool { return r.id(item) == id })
}

// editor tracks which record the form modal is editing; 0 means create.
type editor struct {
	mu sync.Mutex
	id int
}

func (e *editor) set(id int) {
	e.mu.Lock()
	e.id = id
	e.mu.Unlock()
}

func (e *editor) get() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// save creates or updates through c. On success the decoded record is
// passed to saved and the form is closed. Field errors of a failed submit
// replace whatever the form showed before.
func save[T any](ctx context.Context, c *client.Client, id int, payload client.Payload, key string,
	replaceErrors func(map[string]string), saved func(T), closeForm func()) error {
	var decodeErr error
	onSuccess := func(resp *client.Response) {
		var rec T
		if err := resp.Decode(key, &rec); err != nil {
			decodeErr = err
		} else {
			saved(rec)
		}
		closeForm()
	}

	var err error
	if id == 0 {
		err = c.Create(ctx, payload, onSuccess)
	} else {
		err = c.Update(ctx, id, payload, onSuccess)
	}

	var fieldErrs client.FieldErrors
	if errors.As(err, &fieldErrs) {
		replaceErrors(fieldErrs)
	}
	if err != nil {
		return err
	}
	if decodeErr != nil {
		return fmt.Errorf("saved, but the response could not be read: %w", decodeErr)
	}
	return nil
}

// decodeInto is used by quick actions that return the updated record.
func decodeInto[T any](key string, dst *T, errp *error) client.SuccessFunc {
	return func(resp *client.Response) {
		*errp = resp.Decode(key, dst)
	}
}
