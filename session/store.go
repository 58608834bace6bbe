package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Options configures a [Store]. Every field is optional.
type Options struct {
	// Now overrides the wall clock used for IssuedAt and Age.
	Now func() time.Time
	// ExpiryOf extracts the token's own expiry, when it has one.
	ExpiryOf func(token string) (time.Time, bool)
	// Warn receives non-fatal problems (malformed data, backend failures).
	Warn func(string, ...any)
	// OnFallback is called once, outside the store lock, when the store stops
	// writing to the backend and continues in memory.
	OnFallback func(error)
}

// Store owns the single process-wide [Session]. All mutation goes through Save, SaveIf,
// UpdateUser and Clear; readers get copies, so a token is never observed without its
// timestamp.
//
// Every Save and Clear advances a generation counter. Callers that start an
// asynchronous operation can capture [Store.Generation] and commit the result with
// [Store.SaveIf], which refuses to write if the session changed in the meantime.
type Store struct {
	mu       sync.RWMutex
	backend  Backend
	degraded bool
	current  Session
	gen      uint64

	now        func() time.Time
	expiryOf   func(string) (time.Time, bool)
	warn       func(string, ...any)
	onFallback func(error)
}

// NewStore creates a Store over backend. A nil backend keeps the session in memory only.
// The store starts empty; call [Store.Load] to restore persisted state.
func NewStore(backend Backend, opts Options) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		backend:    backend,
		now:        opts.Now,
		expiryOf:   opts.ExpiryOf,
		warn:       opts.Warn,
		onFallback: opts.OnFallback,
	}
}

// Load replaces the in-memory session with the persisted one and returns it. Missing or
// malformed data yields an empty (or partially empty) Session; Load never fails.
//
//	Performance: 1 backend read.
func (s *Store) Load(ctx context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.current.clone()
	}

	values, err := s.backend.Load(ctx, Keys)
	if err != nil {
		s.warnf("session: load failed, treating as signed out: %v", err)
		values = nil
	}

	sess, decodeErr := Decode(values)
	if decodeErr != nil {
		s.warnf("session: dropped malformed persisted values: %v", decodeErr)
	}
	if sess.IsAuthenticated() && s.expiryOf != nil {
		if exp, ok := s.expiryOf(sess.AccessToken); ok {
			sess.ExpiresAt = exp
		}
	}

	s.current = sess
	s.gen++
	return s.current.clone()
}

// Current returns a copy of the in-memory session without touching the backend.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Snapshot returns a copy of the session together with its generation, read atomically.
func (s *Store) Snapshot() (Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone(), s.gen
}

// Generation returns the mutation counter for the current session.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Age returns the time since the token was issued, or [Infinite] when unknown.
func (s *Store) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Age(s.now())
}

// Degraded reports whether the store has fallen back to memory-only operation.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Save records token and user with IssuedAt = now. An empty token clears the session.
// Save has no failure mode: a backend error switches the store to memory-only.
//
//	Performance: 1 backend write.
func (s *Store) Save(ctx context.Context, token string, user *UserProfile) Session {
	s.mu.Lock()
	sess, fallbackErr := s.saveLocked(ctx, token, user)
	s.mu.Unlock()

	s.notifyFallback(fallbackErr)
	return sess
}

// SaveIf behaves like Save but only when the generation still equals gen. It reports
// whether the write happened.
func (s *Store) SaveIf(ctx context.Context, gen uint64, token string, user *UserProfile) (Session, bool) {
	s.mu.Lock()
	if s.gen != gen {
		cur := s.current.clone()
		s.mu.Unlock()
		return cur, false
	}
	sess, fallbackErr := s.saveLocked(ctx, token, user)
	s.mu.Unlock()

	s.notifyFallback(fallbackErr)
	return sess, true
}

// UpdateUser applies fn to a copy of the cached profile and persists the result. It
// leaves the token and timestamp untouched and returns false when signed out.
func (s *Store) UpdateUser(ctx context.Context, fn func(*UserProfile)) (Session, bool) {
	s.mu.Lock()
	if !s.current.IsAuthenticated() {
		s.mu.Unlock()
		return Session{}, false
	}

	user := s.current.User.Clone()
	if user == nil {
		user = &UserProfile{}
	}
	fn(user)
	s.current.User = user

	var fallbackErr error
	if raw, err := json.Marshal(user); err != nil {
		s.warnf("session: encode user failed: %v", err)
	} else {
		fallbackErr = s.persistLocked(ctx, map[string]string{KeyUser: string(raw)})
	}
	out := s.current.clone()
	s.mu.Unlock()

	s.notifyFallback(fallbackErr)
	return out, true
}

// Clear erases token, user and timestamp from memory and the backend. It is idempotent.
//
//	Performance: 1 backend delete.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	fallbackErr := s.clearLocked(ctx)
	s.mu.Unlock()

	s.notifyFallback(fallbackErr)
}

// ClearIf clears the session only when the generation still equals gen and a token is
// held. It reports whether the clear happened.
func (s *Store) ClearIf(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	if s.gen != gen || !s.current.IsAuthenticated() {
		s.mu.Unlock()
		return false
	}
	fallbackErr := s.clearLocked(ctx)
	s.mu.Unlock()

	s.notifyFallback(fallbackErr)
	return true
}

func (s *Store) saveLocked(ctx context.Context, token string, user *UserProfile) (Session, error) {
	if token == "" {
		err := s.clearLocked(ctx)
		return s.current.clone(), err
	}

	sess := Session{
		AccessToken: token,
		IssuedAt:    s.now(),
		User:        user.Clone(),
	}
	if s.expiryOf != nil {
		if exp, ok := s.expiryOf(token); ok {
			sess.ExpiresAt = exp
		}
	}

	var fallbackErr error
	values, err := Encode(sess)
	if err != nil {
		s.warnf("session: encode failed, keeping session in memory: %v", err)
	} else {
		fallbackErr = s.persistLocked(ctx, values)
	}

	s.current = sess
	s.gen++
	return s.current.clone(), fallbackErr
}

func (s *Store) clearLocked(ctx context.Context) error {
	var fallbackErr error
	if !s.degraded {
		if err := s.backend.Delete(context.WithoutCancel(ctx), Keys); err != nil {
			fallbackErr = s.degradeLocked(err)
		}
	}
	s.current = Session{}
	s.gen++
	return fallbackErr
}

// persistLocked writes values unless the store is degraded. The caller's cancellation
// is detached so an abandoned request cannot knock the store into memory-only mode.
func (s *Store) persistLocked(ctx context.Context, values map[string]string) error {
	if s.degraded {
		return nil
	}
	if err := s.backend.Store(context.WithoutCancel(ctx), values); err != nil {
		return s.degradeLocked(err)
	}
	return nil
}

func (s *Store) degradeLocked(err error) error {
	s.degraded = true
	s.warnf("session: backend write failed, continuing in memory: %v", err)
	return err
}

func (s *Store) notifyFallback(err error) {
	if err != nil && s.onFallback != nil {
		s.onFallback(err)
	}
}

func (s *Store) warnf(format string, args ...any) {
	if s.warn != nil {
		s.warn(format, args...)
	}
}
