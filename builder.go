package goTutor

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/goTutor/internal/events"
	"github.com/MrEthical07/goTutor/internal/flows"
	"github.com/MrEthical07/goTutor/jwt"
	"github.com/MrEthical07/goTutor/middleware"
	"github.com/MrEthical07/goTutor/refresh"
	"github.com/MrEthical07/goTutor/session"
)

// Builder configures a [Manager]. A Builder is single-use: configure it during
// initialization, call Build once, then discard it.
type Builder struct {
	config  Config
	backend session.Backend
	client  *http.Client
	sink    EventSink
	logger  *log.Logger
	now     func() time.Time

	onAuthFailure func(error)

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL overrides Config.BaseURL.
func (b *Builder) WithBaseURL(base string) *Builder {
	b.config.BaseURL = base
	return b
}

// WithBackend sets where the session is persisted. Without one the session lives in
// memory only.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client used for every backend call. The Manager wraps a
// shallow copy of its transport with request-id and user-agent middleware; the
// caller's client is not modified.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.client = client
	return b
}

// WithEventSink enables the event dispatcher and delivers events to sink.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.config.Events.Enabled = sink != nil
	return b
}

// WithLogger sets the logger for warnings and background failures. Defaults to
// log.Default().
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock used for issue timestamps and policy evaluation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAuthFailureHandler registers fn to run after a failed blocking renewal has ended
// the session. This is the hook for global logout handling (redirects, UI resets).
func (b *Builder) WithAuthFailureHandler(fn func(error)) *Builder {
	b.onAuthFailure = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, restores the persisted session and returns the
// Manager. The scheduler is not running until [Manager.Start].
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:        cfg,
		logger:        logger,
		now:           now,
		onAuthFailure: b.onAuthFailure,
		listeners:     make(map[uint64]func(AuthChange)),
		metrics:       NewMetrics(cfg.Metrics),
		policy: refresh.Policy{
			TokenTTL:         cfg.Refresh.TokenTTL,
			RenewMargin:      cfg.Refresh.RenewMargin,
			HonorTokenExpiry: cfg.Refresh.HonorTokenExpiry,
		},
		renewal: &refresh.Group[flows.RenewResult]{Timeout: cfg.Refresh.Timeout},
	}

	// -------- EVENTS --------
	m.events = events.NewDispatcher(events.Config{
		Enabled:        cfg.Events.Enabled,
		BufferSize:     cfg.Events.BufferSize,
		DropIfFull:     cfg.Events.DropIfFull,
		CoalesceWindow: cfg.Events.CoalesceWindow,
	}, b.sink)

	// -------- SESSION STORE --------
	m.store = session.NewStore(b.backend, session.Options{
		Now:        now,
		ExpiryOf:   jwt.ExpiryOf,
		Warn:       m.warnf,
		OnFallback: m.storageFallback,
	})

	// -------- HTTP CLIENT --------
	m.client = wrapClient(b.client, cfg.HTTP)

	// -------- FLOWS --------
	client := m.client
	m.flows = flows.New(flows.Deps{
		Request: flows.RequestDeps{
			Client:        client,
			Now:           now,
			Token:         func() string { return m.store.Current().AccessToken },
			Preflight:     m.preflight,
			Renew:         m.renewBlocking(refresh.TriggerUnauthorized),
			OnAuthFailure: m.forceLogout,
		},
		Renew: flows.RenewDeps{
			URL:    m.endpoint(cfg.Endpoints.Refresh),
			Client: client,
			Store:  m.store,
			Now:    now,
			Warn:   m.warnf,
		},
		Check: flows.CheckDeps{
			Snapshot: m.store.Snapshot,
			Evaluate: m.evaluate,
			Now:      now,
			Renew: func(ctx context.Context, trigger refresh.Trigger) (uint64, error) {
				r, err := m.renew(ctx, trigger)
				return r.Gen, err
			},
			OnBackgroundFailure: m.backgroundFailure,
			OnAuthFailure:       m.forceLogout,
		},
		Authenticate: flows.AuthenticateDeps{
			Client: client,
			Store:  m.store,
		},
	})

	m.store.Load(context.Background())
	b.built = true
	return m, nil
}

func wrapClient(base *http.Client, cfg HTTPConfig) *http.Client {
	var out http.Client
	if base != nil {
		out = *base
	} else {
		out.Timeout = cfg.Timeout
	}
	out.Transport = middleware.Chain(out.Transport,
		middleware.RequestID(cfg.RequestIDHeader, RequestIDFromContext),
		middleware.UserAgent(cfg.UserAgent),
	)
	return &out
}
