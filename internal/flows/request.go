package flows

import (
	"context"
	"net/http"
	"time"
)

// RequestFailureKind classifies request pipeline failures for root-level mapping.
type RequestFailureKind int

const (
	RequestFailureNone RequestFailureKind = iota
	RequestFailureBuild
	RequestFailureTransport
	// RequestFailureStatus is a non-2xx response that did not end the session.
	RequestFailureStatus
	// RequestFailureAuthExpired means a renewal was needed and did not succeed.
	RequestFailureAuthExpired
)

// RequestSpec describes one logical API call.
type RequestSpec struct {
	Method string
	URL    string
	Body   []byte
	// Auth attaches the bearer token and enables the renew-and-retry path.
	Auth bool
	// Decorate runs on every attempt after the builder.
	Decorate func(*http.Request)
}

// RequestResult is the outcome of one logical call, possibly spanning two attempts.
type RequestResult struct {
	Failure  RequestFailureKind
	Err      error
	Status   int
	Header   http.Header
	Body     []byte
	Attempts int
	Retried  bool
	// OriginalStatus and OriginalBody hold the 401 that triggered a renewal.
	OriginalStatus int
	OriginalBody   []byte
	// RenewErr is the renewal error behind RequestFailureAuthExpired. It is nil when
	// the session vanished during renewal without an error.
	RenewErr error
	Latency  time.Duration
}

// RequestDeps captures request pipeline dependencies.
type RequestDeps struct {
	Client Doer
	Build  RequestBuilder
	Now    func() time.Time
	// Token returns the current access token, or "".
	Token func() string
	// Preflight renews an already expired session before the first attempt. It
	// returns a non-nil error only when a renewal was needed and failed; gen is the
	// store generation the renewal started from.
	Preflight func(ctx context.Context) (gen uint64, err error)
	// Renew performs a blocking, shared renewal.
	Renew func(ctx context.Context) (gen uint64, err error)
	// OnAuthFailure tears the session down. It must be a no-op when the store has
	// already moved past gen.
	OnAuthFailure func(ctx context.Context, gen uint64, err error)
	MaxBodyBytes  int64
}

// RunRequest executes the pipeline: preflight renewal for an expired session, one
// attempt, then on a 401 with a token present exactly one renewal and one retry with
// the token read after the renewal.
//
//	Performance: 1 round trip, 3 when a renewal is triggered.
func RunRequest(ctx context.Context, spec RequestSpec, deps RequestDeps) RequestResult {
	start := deps.Now()
	res := RequestResult{}

	if spec.Auth && deps.Preflight != nil && deps.Token() != "" {
		if gen, err := deps.Preflight(ctx); err != nil {
			if deps.OnAuthFailure != nil {
				deps.OnAuthFailure(ctx, gen, err)
			}
			res.Failure = RequestFailureAuthExpired
			res.RenewErr = err
			res.Latency = deps.Now().Sub(start)
			return res
		}
	}

	token := ""
	if spec.Auth {
		token = deps.Token()
	}
	ex, failure, err := attempt(ctx, spec, deps, token)
	res.Attempts++
	if failure != RequestFailureNone {
		res.Failure, res.Err = failure, err
		res.Latency = deps.Now().Sub(start)
		return res
	}

	if ex.status == http.StatusUnauthorized && spec.Auth && token != "" && deps.Renew != nil {
		res.OriginalStatus = ex.status
		res.OriginalBody = ex.body

		gen, err := deps.Renew(ctx)
		if err != nil {
			if deps.OnAuthFailure != nil {
				deps.OnAuthFailure(ctx, gen, err)
			}
			res.Failure = RequestFailureAuthExpired
			res.RenewErr = err
			res.Status = ex.status
			res.Body = ex.body
			res.Latency = deps.Now().Sub(start)
			return res
		}

		fresh := deps.Token()
		if fresh == "" {
			res.Failure = RequestFailureAuthExpired
			res.Status = ex.status
			res.Body = ex.body
			res.Latency = deps.Now().Sub(start)
			return res
		}

		res.Retried = true
		ex, failure, err = attempt(ctx, spec, deps, fresh)
		res.Attempts++
		if failure != RequestFailureNone {
			res.Failure, res.Err = failure, err
			res.Latency = deps.Now().Sub(start)
			return res
		}
	}

	res.Status = ex.status
	res.Header = ex.header
	res.Body = ex.body
	res.Latency = deps.Now().Sub(start)
	if !isSuccess(ex.status) {
		res.Failure = RequestFailureStatus
	}
	return res
}

func attempt(ctx context.Context, spec RequestSpec, deps RequestDeps, token string) (exchange, RequestFailureKind, error) {
	build := deps.Build
	if build == nil {
		build = BuildJSONRequest
	}
	req, err := build(ctx, spec.Method, spec.URL, spec.Body, token)
	if err != nil {
		return exchange{}, RequestFailureBuild, err
	}
	if spec.Decorate != nil {
		spec.Decorate(req)
	}
	ex, err := send(deps.Client, req, deps.MaxBodyBytes)
	if err != nil {
		return exchange{}, RequestFailureTransport, err
	}
	return ex, RequestFailureNone, nil
}
