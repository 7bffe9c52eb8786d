// Package dedup wraps an asynchronous operation so that concurrent callers
// share a single in-flight result and repeated calls inside a minimum
// interval are suppressed rather than queued.
package dedup

import (
	"context"
	"sync"
	"time"
)

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Outcome reports how Do satisfied a caller.
type Outcome int

const (
	// Executed means this caller ran fn itself. Exactly one caller per
	// underlying call observes Executed, so state derived from the result
	// (counters, caches) must be applied only on this outcome.
	Executed Outcome = iota
	// Joined means the result was taken from a call already in flight.
	Joined
	// Skipped means the minimum interval suppressed the call entirely;
	// val and err carry no information.
	Skipped
)

// Deduper rate-limits and coalesces calls to one logical operation.
//
// Rules:
//   - while a call is in flight, every caller receives that call's result;
//   - a call starting within minInterval of the last completion is skipped
//     entirely (the caller reuses its last known state);
//   - force bypasses the interval check but still joins an in-flight call.
type Deduper[T any] struct {
	minInterval time.Duration

	mu       sync.Mutex
	inflight *call[T]
	lastDone time.Time
}

func New[T any](minInterval time.Duration) *Deduper[T] {
	return &Deduper[T]{minInterval: minInterval}
}

// Do runs fn under the dedup contract. The outcome tells the caller whether
// it executed fn, joined a call another caller was already running, or was
// suppressed by the interval.
func (d *Deduper[T]) Do(ctx context.Context, force bool, fn func(context.Context) (T, error)) (val T, outcome Outcome, err error) {
	d.mu.Lock()

	if c := d.inflight; c != nil {
		d.mu.Unlock()
		select {
		case <-c.done:
			return c.val, Joined, c.err
		case <-ctx.Done():
			var zero T
			return zero, Joined, ctx.Err()
		}
	}

	if !force && d.minInterval > 0 && !d.lastDone.IsZero() && time.Since(d.lastDone) < d.minInterval {
		d.mu.Unlock()
		var zero T
		return zero, Skipped, nil
	}

	c := &call[T]{done: make(chan struct{})}
	d.inflight = c
	d.mu.Unlock()

	c.val, c.err = fn(ctx)

	d.mu.Lock()
	d.inflight = nil
	d.lastDone = time.Now()
	d.mu.Unlock()
	close(c.done)

	return c.val, Executed, c.err
}

// Reset clears the completion timestamp so the next call is not suppressed.
func (d *Deduper[T]) Reset() {
	d.mu.Lock()
	d.lastDone = time.Time{}
	d.mu.Unlock()
}
