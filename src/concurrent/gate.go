// Package concurrent provides the submission gate. The chat pipeline runs it
// with capacity 1 so overlapping submissions are serialized instead of
// interleaving their appends.
package concurrent

import "context"

// Gate bounds how many callers may hold a slot at once.
type Gate struct {
	sem chan struct{}
}

func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &Gate{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done. Every successful
// Acquire must be paired with Release.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case g.sem <- struct{}{}:
		return nil
	}
}

func (g *Gate) Release() {
	<-g.sem
}

// Do runs fn while holding a slot.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}
