package goTutor

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goTutor/internal/flows"
	"github.com/MrEthical07/goTutor/refresh"
)

// scheduler runs the periodic freshness check while the session is authenticated.
// The loop exits when the session ends and is restarted by the next login or renewal.
type scheduler struct {
	mu      sync.Mutex
	started bool
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}
}

// Start enables the background scheduler. While authenticated, the session is checked
// every Refresh.CheckInterval and right after each login or renewal. The loop stops
// when ctx ends, on [Manager.Stop], or when the session ends.
func (m *Manager) Start(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	m.sched.mu.Lock()
	m.sched.started = true
	m.sched.parent = ctx
	m.sched.mu.Unlock()

	if m.IsAuthenticated() {
		m.ensureLoop()
	}
	return nil
}

// Stop disables the scheduler and waits for the running loop's current check to return.
// A loop already cancelled by a logout is not waited for: it finishes its current check
// under a cancelled context and exits without another. This lets an auth change listener
// or the auth failure handler, which run on the loop goroutine, call Stop or Close.
func (m *Manager) Stop() {
	m.sched.mu.Lock()
	m.sched.started = false
	cancel, done := m.sched.cancel, m.sched.done
	m.sched.cancel, m.sched.done, m.sched.kick = nil, nil, nil
	m.sched.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// ensureLoop starts the loop if the scheduler is enabled and requests an immediate check.
func (m *Manager) ensureLoop() {
	m.sched.mu.Lock()
	defer m.sched.mu.Unlock()
	if !m.sched.started {
		return
	}
	if m.sched.cancel == nil {
		parent := m.sched.parent
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		m.sched.cancel = cancel
		m.sched.done = make(chan struct{})
		m.sched.kick = make(chan struct{}, 1)
		go m.loop(ctx, m.sched.kick, m.sched.done)
	}
	select {
	case m.sched.kick <- struct{}{}:
	default:
	}
}

// stopLoop cancels the loop without waiting: it may run on the loop goroutine itself.
func (m *Manager) stopLoop() {
	m.sched.mu.Lock()
	cancel := m.sched.cancel
	m.sched.cancel, m.sched.done, m.sched.kick = nil, nil, nil
	m.sched.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (m *Manager) loop(ctx context.Context, kick <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.Refresh.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx, refresh.TriggerTimer)
		case <-kick:
			m.Check(ctx, refresh.TriggerAuthChange)
		}
	}
}

// Check evaluates the session once and acts on the result: nothing when fresh, a
// background renewal when expiring soon (failures are logged and the session kept),
// and a blocking renewal when expired (failure ends the session).
func (m *Manager) Check(ctx context.Context, trigger refresh.Trigger) CheckResult {
	if m.closed.Load() {
		return CheckResult{Trigger: trigger, Err: ErrManagerClosed}
	}
	m.metrics.Inc(MetricCheckEvaluations)
	r := m.flows.Check(ctx, trigger)
	return checkResult(r)
}

// NotifyFocus tells the manager the host regained focus. The check runs asynchronously.
func (m *Manager) NotifyFocus() {
	m.dispatchCheck(refresh.TriggerFocus)
}

// NotifyVisibility tells the manager the host became visible or hidden. Only becoming
// visible triggers a check.
func (m *Manager) NotifyVisibility(visible bool) {
	if visible {
		m.dispatchCheck(refresh.TriggerVisibility)
	}
}

func (m *Manager) dispatchCheck(trigger refresh.Trigger) {
	if m.closed.Load() || !m.IsAuthenticated() {
		return
	}
	m.async.Add(1)
	go func() {
		defer m.async.Done()
		m.Check(context.Background(), trigger)
	}()
}

// WaitIdle blocks until focus and visibility checks dispatched so far have returned.
func (m *Manager) WaitIdle() {
	m.async.Wait()
}

func checkResult(r flows.CheckResult) CheckResult {
	return CheckResult{
		Trigger: r.Trigger,
		State:   r.State,
		Age:     r.Age,
		Renewed: r.Renewed,
		Err:     r.Err,
	}
}
