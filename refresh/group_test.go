package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroupCollapsesConcurrentCalls(t *testing.T) {
	var g Group[string]
	var calls atomic.Int32
	release := make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]string, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, _, err := g.Do(context.Background(), func(context.Context) (string, error) {
				calls.Add(1)
				<-release
				return "T2", nil
			})
			if err != nil {
				t.Errorf("do: %v", err)
			}
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("renewal ran %d times, want 1", calls.Load())
	}
	if g.Executions() != 1 {
		t.Fatalf("executions = %d", g.Executions())
	}
	for i, v := range results {
		if v != "T2" {
			t.Fatalf("caller %d got %q", i, v)
		}
	}
}

func TestGroupRunsAgainAfterCompletion(t *testing.T) {
	var g Group[int]
	for i := 1; i <= 3; i++ {
		v, shared, err := g.Do(context.Background(), func(context.Context) (int, error) { return i, nil })
		if err != nil || shared || v != i {
			t.Fatalf("iteration %d: v=%d shared=%v err=%v", i, v, shared, err)
		}
	}
	if g.Executions() != 3 {
		t.Fatalf("executions = %d", g.Executions())
	}
}

func TestGroupTimeoutBoundsRenewal(t *testing.T) {
	g := Group[string]{Timeout: 20 * time.Millisecond}
	_, _, err := g.Do(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGroupCallerCancelDoesNotAbortRenewal(t *testing.T) {
	var g Group[string]
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.Do(ctx, func(runCtx context.Context) (string, error) {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		return "ok", runCtx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected caller cancellation, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renewal did not finish")
	}
}

func TestGroupNilPointerResult(t *testing.T) {
	var g Group[*int]
	v, _, err := g.Do(context.Background(), func(context.Context) (*int, error) { return nil, nil })
	if err != nil || v != nil {
		t.Fatalf("v=%v err=%v", v, err)
	}
}
