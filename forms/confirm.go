package forms

import (
	"context"
	"sync"
)

type ConfirmFunc[T any] func(ctx context.Context, item T) error

// Confirm gates an action on a single pending item.
type Confirm[T any] struct {
	mu        sync.Mutex
	item      T
	open      bool
	onConfirm ConfirmFunc[T]
}

func NewConfirm[T any](onConfirm ConfirmFunc[T]) *Confirm[T] {
	return &Confirm[T]{onConfirm: onConfirm}
}

// Open records item as the pending target, replacing any previous one.
func (c *Confirm[T]) Open(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.item = item
	c.open = true
}

func (c *Confirm[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.item = zero
	c.open = false
}

func (c *Confirm[T]) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Item returns the pending target; ok is false while closed.
func (c *Confirm[T]) Item() (item T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.item, c.open
}

// Confirm hands the pending item to the handler. Closing is left to the
// handler, so a failed action keeps the dialog open.
func (c *Confirm[T]) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	item := c.item
	onConfirm := c.onConfirm
	c.mu.Unlock()

	if onConfirm == nil {
		return nil
	}
	return onConfirm(ctx, item)
}
