package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const groupKey = "renew"

// Group runs at most one renewal at a time. Callers that arrive while a renewal is in
// flight wait for it and receive the same result.
//
// The renewal function runs on a context detached from any single caller and bounded
// by Timeout, so one caller giving up never aborts the renewal for the others.
type Group[T any] struct {
	Timeout time.Duration

	sf         singleflight.Group
	executions atomic.Uint64
}

// Do runs fn unless a renewal is already in flight, in which case it waits for that one.
// shared reports whether the result was delivered to more than one caller. A failed
// renewal still returns fn's value alongside the error.
//
// If ctx ends first, Do returns ctx.Err() while the renewal keeps running.
func (g *Group[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (v T, shared bool, err error) {
	ch := g.sf.DoChan(groupKey, func() (any, error) {
		g.executions.Add(1)

		runCtx := context.WithoutCancel(ctx)
		if g.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, g.Timeout)
			defer cancel()
		}
		return fn(runCtx)
	})

	select {
	case res := <-ch:
		v, _ = res.Val.(T)
		return v, res.Shared, res.Err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Executions returns how many times a renewal function actually ran.
func (g *Group[T]) Executions() uint64 {
	return g.executions.Load()
}
