// Package fanout runs one probe per target concurrently and joins on all of them.
//
// A probe never aborts its siblings: errors are values inside the result
// type, and a panicking probe is turned into a failure-shaped result for its
// own target only. Results are index-aligned with the input slice.
package fanout

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Probe produces the result for one target. It must honour ctx.
type Probe[T, R any] func(ctx context.Context, target T) R

// OnPanic builds the failure result for a target whose probe panicked.
type OnPanic[T, R any] func(target T, err error) R

// Options tunes a fan-out.
type Options[T, R any] struct {
	// Limit caps concurrent probes; 0 or less means unbounded.
	Limit int
	// OnPanic converts a panic into a result. Without it the zero R is used.
	OnPanic OnPanic[T, R]
}

// Run dispatches probe for every target and waits for all of them to settle.
// len(result) == len(targets) and result[i] belongs to targets[i].
func Run[T, R any](ctx context.Context, targets []T, probe Probe[T, R], opts Options[T, R]) []R {
	results := make([]R, len(targets))
	if len(targets) == 0 {
		return results
	}

	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = call(ctx, target, probe, opts.OnPanic)
			return nil
		})
	}

	// Every goroutine returns nil, so Wait is purely a join.
	_ = g.Wait()
	return results
}

func call[T, R any](ctx context.Context, target T, probe Probe[T, R], onPanic OnPanic[T, R]) (result R) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &PanicError{Value: rec, Stack: debug.Stack()}
			if onPanic != nil {
				result = onPanic(target, err)
			}
		}
	}()
	return probe(ctx, target)
}

// PanicError carries a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("probe panicked: %v", e.Value)
}
