// Package budget caps the number of outbound network operations in flight
// across a process.
//
// A nil *Budget is unlimited: every method succeeds without blocking.
package budget

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the number of concurrent operations allowed when none is configured
const DefaultSize int64 = 64

// Budget is a counting semaphore shared by region probes and downloads
type Budget struct {
	sem  *semaphore.Weighted
	size int64
}

// New creates a budget of size units
func New(size int64) (*Budget, error) {
	if size <= 0 {
		return nil, fmt.Errorf("budget: size must be positive, got %d", size)
	}
	return &Budget{sem: semaphore.NewWeighted(size), size: size}, nil
}

// Size returns the total number of units
func (b *Budget) Size() int64 {
	if b == nil {
		return 0
	}
	return b.size
}

// Acquire blocks until cost units are available or ctx is done
func (b *Budget) Acquire(ctx context.Context, cost int64) error {
	if b == nil {
		return ctx.Err()
	}
	if cost > b.size {
		return fmt.Errorf("budget: cost %d exceeds size %d", cost, b.size)
	}
	return b.sem.Acquire(ctx, cost)
}

// Release returns cost units
func (b *Budget) Release(cost int64) {
	if b == nil {
		return
	}
	b.sem.Release(cost)
}

// ReleaseOnClose returns rc wrapped so that cost units acquired by the caller
// are released on the first Close. Streaming downloads use it to hold their
// share until the body is consumed.
func (b *Budget) ReleaseOnClose(rc io.ReadCloser, cost int64) io.ReadCloser {
	if b == nil {
		return rc
	}
	return &heldReadCloser{ReadCloser: rc, release: func() { b.Release(cost) }}
}

type heldReadCloser struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (h *heldReadCloser) Close() error {
	err := h.ReadCloser.Close()
	h.once.Do(h.release)
	return err
}

// Do runs fn while holding cost units. fn is not called when ctx is done
// before the units become available.
func (b *Budget) Do(ctx context.Context, cost int64, fn func(context.Context) error) error {
	if err := b.Acquire(ctx, cost); err != nil {
		return err
	}
	defer b.Release(cost)
	return fn(ctx)
}
