package goTutor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goTutor/internal/events"
	"github.com/MrEthical07/goTutor/internal/flows"
	"github.com/MrEthical07/goTutor/refresh"
	"github.com/MrEthical07/goTutor/session"
)

// Manager owns the process-wide session: the token store, the renewal scheduler and the
// authenticated request pipeline. Create one with [New] and share it by reference.
//
// A Manager is safe for concurrent use. Renewals are serialized: at most one refresh
// call is in flight, and every trigger that needs a renewal meanwhile (timer, focus,
// visibility, a 401) waits for that call instead of issuing its own.
type Manager struct {
	config  Config
	store   *session.Store
	policy  refresh.Policy
	renewal *refresh.Group[flows.RenewResult]
	flows   flows.Service
	client  *http.Client
	metrics *Metrics
	events  *events.Dispatcher
	logger  *log.Logger
	now     func() time.Time

	onAuthFailure func(error)

	listenersMu  sync.Mutex
	listeners    map[uint64]func(AuthChange)
	nextListener uint64

	sched  scheduler
	async  sync.WaitGroup
	closed atomic.Bool
}

// Close stops the scheduler, waits for focus and visibility checks still running, and
// flushes the event dispatcher. Further calls return [ErrManagerClosed]. Close is
// idempotent.
func (m *Manager) Close() {
	if m == nil || m.closed.Swap(true) {
		return
	}
	m.Stop()
	m.async.Wait()
	m.events.Close()
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() Config {
	return m.config
}

// MetricsSnapshot returns a point-in-time copy of all counters and histograms.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// RenewalCalls returns how many refresh calls were actually sent.
func (m *Manager) RenewalCalls() uint64 {
	return m.renewal.Executions()
}

/*
====================================
SESSION ACCESS
====================================
*/

// Session returns a copy of the current session.
func (m *Manager) Session() session.Session {
	return m.store.Current()
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.store.Current().IsAuthenticated()
}

// User returns a copy of the cached profile, or nil.
func (m *Manager) User() *session.UserProfile {
	return m.store.Current().User
}

// Age returns the time since the token was obtained, or [session.Infinite].
func (m *Manager) Age() time.Duration {
	return m.store.Age()
}

// State evaluates the current session against the renewal policy. An unauthenticated
// manager reports [refresh.Expired].
func (m *Manager) State() refresh.State {
	return m.evaluate(m.store.Current(), m.now())
}

// StorageDegraded reports whether the durable backend failed and the session now lives
// in memory only.
func (m *Manager) StorageDegraded() bool {
	return m.store.Degraded()
}

// Save stores token and user as a new session, as if a login had just succeeded. An
// empty token clears the session instead.
func (m *Manager) Save(ctx context.Context, token string, user *session.UserProfile) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if token == "" {
		return m.Clear(ctx)
	}
	sess := m.store.Save(ctx, token, user)
	m.authChanged(AuthChange{Authenticated: true, Reason: ReasonLogin, User: sess.User})
	return nil
}

// Clear ends the session locally: token, user and timestamp are erased from memory and
// the backend, the scheduler stops, and listeners see a logout. Clearing an empty
// session is a no-op apart from the logout notification.
func (m *Manager) Clear(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	prev := m.store.Current()
	m.store.Clear(ctx)

	m.metrics.Inc(MetricLogout)
	m.emit(ctx, EventLogout, prev.User, "", nil, nil)
	m.authChanged(AuthChange{Authenticated: false, Reason: ReasonLogout})
	return nil
}

// OnAuthChange registers fn to run on every authenticated/unauthenticated transition.
// Listeners run synchronously on the goroutine that caused the change, outside any
// Manager lock, and may read or clear the session. A refresh notification is delivered
// from the renewing goroutine, so a listener must not wait on a renewal (Renew or an
// authenticated request) itself. The returned func unregisters fn.
func (m *Manager) OnAuthChange(fn func(AuthChange)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

func (m *Manager) authChanged(change AuthChange) {
	if change.Authenticated {
		m.ensureLoop()
	} else {
		m.stopLoop()
	}

	m.listenersMu.Lock()
	fns := make([]func(AuthChange), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenersMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

/*
====================================
RENEWAL
====================================
*/

// Renew performs a blocking renewal now, sharing any renewal already in flight. A
// failure leaves the session in place; only an expired session or a rejected request
// ends it.
func (m *Manager) Renew(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	_, err := m.renew(ctx, refresh.TriggerManual)
	return err
}

func (m *Manager) renew(ctx context.Context, trigger refresh.Trigger) (flows.RenewResult, error) {
	res, shared, err := m.renewal.Do(ctx, func(runCtx context.Context) (flows.RenewResult, error) {
		r := m.flows.Renew(runCtx)
		return r, m.finishRenew(runCtx, trigger, r)
	})
	if shared {
		m.metrics.Inc(MetricRefreshShared)
	}
	return res, err
}

// finishRenew runs exactly once per refresh call, on the renewing goroutine.
func (m *Manager) finishRenew(ctx context.Context, trigger refresh.Trigger, r flows.RenewResult) error {
	if r.Latency > 0 {
		m.metrics.Observe(MetricRenewLatency, r.Latency)
	}

	err := m.renewError(r)
	if r.Failure == flows.RenewFailureStale && m.store.Current().IsAuthenticated() {
		// A newer login or renewal already replaced the session.
		err = nil
	}

	if err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		m.emit(ctx, EventRefresh, nil, trigger.String(), err, nil)
		return err
	}
	if r.Failure == flows.RenewFailureStale {
		return nil
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.emit(ctx, EventRefresh, r.Session.User, trigger.String(), nil, nil)
	m.authChanged(AuthChange{Authenticated: true, Reason: ReasonRefresh, User: r.Session.User})
	return nil
}

func (m *Manager) renewError(r flows.RenewResult) error {
	url := m.endpoint(m.config.Endpoints.Refresh)
	switch r.Failure {
	case flows.RenewFailureNone:
		return nil
	case flows.RenewFailureNoToken:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, ErrNoToken)
	case flows.RenewFailureBuild:
		return fmt.Errorf("%w: build request: %w", ErrRenewalFailed, r.Err)
	case flows.RenewFailureTransport:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, &NetworkError{Op: "refresh", URL: url, Err: r.Err})
	case flows.RenewFailureStatus:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, newHTTPError(r.Status, r.Body))
	case flows.RenewFailureDecode:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, &NetworkError{Op: "decode", URL: url, Err: r.Err})
	case flows.RenewFailureMissingToken:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, ErrInvalidAuthResponse)
	case flows.RenewFailureStale:
		return fmt.Errorf("%w: %w", ErrRenewalFailed, r.Err)
	default:
		return ErrRenewalFailed
	}
}

// renewBlocking is the renewal used by the request pipeline and expired checks.
func (m *Manager) renewBlocking(trigger refresh.Trigger) func(context.Context) (uint64, error) {
	return func(ctx context.Context) (uint64, error) {
		r, err := m.renew(ctx, trigger)
		return r.Gen, err
	}
}

// preflight renews an expired session before an authenticated request is sent.
func (m *Manager) preflight(ctx context.Context) (uint64, error) {
	cur, gen := m.store.Snapshot()
	if !cur.IsAuthenticated() || m.evaluate(cur, m.now()) != refresh.Expired {
		return gen, nil
	}
	r, err := m.renew(ctx, refresh.TriggerRequest)
	return r.Gen, err
}

// forceLogout tears down the session a failed blocking renewal started from. It is a
// no-op when the store has already moved past gen, so concurrent waiters on the same
// failed renewal end the session once.
func (m *Manager) forceLogout(ctx context.Context, gen uint64, cause error) {
	if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
		// The caller gave up waiting; the renewal itself is still running.
		return
	}
	prev := m.store.Current()
	if !m.store.ClearIf(ctx, gen) {
		return
	}

	m.metrics.Inc(MetricForcedLogout)
	m.emit(ctx, EventForcedLogout, prev.User, "", cause, nil)
	m.logger.Printf("goTutor: session ended after failed renewal: %v", cause)
	m.authChanged(AuthChange{Authenticated: false, Reason: ReasonForced, Err: cause})

	if m.onAuthFailure != nil {
		m.onAuthFailure(cause)
	}
}

func (m *Manager) backgroundFailure(ctx context.Context, trigger refresh.Trigger, err error) {
	m.metrics.Inc(MetricRefreshBackgroundFailure)
	m.emit(ctx, EventRefreshBackgroundFailed, m.store.Current().User, trigger.String(), err, nil)
	m.logger.Printf("goTutor: background refresh failed (%s): %v", trigger, err)
}

func (m *Manager) storageFallback(err error) {
	m.metrics.Inc(MetricStorageFallback)
	m.emit(context.Background(), EventStorageFallback, nil, "", err, nil)
}

func (m *Manager) evaluate(s session.Session, now time.Time) refresh.State {
	if !s.IsAuthenticated() {
		return refresh.Expired
	}
	return m.policy.Evaluate(s.IssuedAt, s.ExpiresAt, now)
}

func (m *Manager) endpoint(path string) string {
	return m.config.BaseURL + path
}

func (m *Manager) warnf(format string, args ...any) {
	m.logger.Printf("goTutor: "+format, args...)
}
