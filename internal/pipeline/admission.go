package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// guard bounds simultaneous runtime invocations. Acquisition waits until a
// slot frees or ctx ends; there is no queue limit and no rejection.
type guard struct {
	sem *semaphore.Weighted
}

func newGuard(n int) *guard {
	if n <= 0 {
		n = 1
	}
	return &guard{sem: semaphore.NewWeighted(int64(n))}
}

// acquire reserves one slot. Returns a release func to be deferred.
func (g *guard) acquire(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	return func() { g.sem.Release(1) }, nil
}
