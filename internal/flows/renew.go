package flows

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goTutor/session"
)

// RenewFailureKind classifies renewal failures for root-level mapping.
type RenewFailureKind int

const (
	RenewFailureNone RenewFailureKind = iota
	RenewFailureNoToken
	RenewFailureBuild
	RenewFailureTransport
	RenewFailureStatus
	RenewFailureDecode
	RenewFailureMissingToken
	// RenewFailureStale means the session changed while the renewal was in flight.
	// The fresh token was discarded.
	RenewFailureStale
)

// ErrStaleRenewal is the Err of a RenewFailureStale result.
var ErrStaleRenewal = errors.New("session changed during renewal")

// RenewResult carries either the committed session or failure metadata.
type RenewResult struct {
	Failure RenewFailureKind
	Err     error
	// Gen is the store generation observed when the renewal started.
	Gen     uint64
	Status  int
	Body    []byte
	Session session.Session
	Latency time.Duration
}

type RenewStore interface {
	Snapshot() (session.Session, uint64)
	SaveIf(ctx context.Context, gen uint64, token string, user *session.UserProfile) (session.Session, bool)
}

// RenewDeps captures renewal flow dependencies.
type RenewDeps struct {
	URL          string
	Client       Doer
	Build        RequestBuilder
	Store        RenewStore
	Now          func() time.Time
	MaxBodyBytes int64
	// Warn is optional.
	Warn         func(format string, args ...any)
}

// RunRenew calls the refresh endpoint with the current token and commits the returned
// token only if the session has not changed since the call started.
func RunRenew(ctx context.Context, deps RenewDeps) RenewResult {
	start := deps.Now()
	cur, gen := deps.Store.Snapshot()
	if !cur.IsAuthenticated() {
		return RenewResult{Failure: RenewFailureNoToken, Gen: gen}
	}

	build := deps.Build
	if build == nil {
		build = BuildJSONRequest
	}
	req, err := build(ctx, http.MethodPost, deps.URL, nil, cur.AccessToken)
	if err != nil {
		return RenewResult{Failure: RenewFailureBuild, Err: err, Gen: gen}
	}

	ex, err := send(deps.Client, req, deps.MaxBodyBytes)
	latency := deps.Now().Sub(start)
	if err != nil {
		return RenewResult{Failure: RenewFailureTransport, Err: err, Gen: gen, Latency: latency}
	}
	if !isSuccess(ex.status) {
		return RenewResult{
			Failure: RenewFailureStatus,
			Gen:     gen,
			Status:  ex.status,
			Body:    ex.body,
			Latency: latency,
		}
	}

	var payload struct {
		Token string               `json:"token"`
		User  *session.UserProfile `json:"user"`
	}
	if err := json.Unmarshal(ex.body, &payload); err != nil {
		return RenewResult{Failure: RenewFailureDecode, Err: err, Gen: gen, Status: ex.status, Body: ex.body, Latency: latency}
	}
	if payload.Token == "" {
		return RenewResult{Failure: RenewFailureMissingToken, Gen: gen, Status: ex.status, Body: ex.body, Latency: latency}
	}

	user := payload.User
	if user == nil {
		user = cur.User
		if deps.Warn != nil {
			deps.Warn("refresh response carried no user, keeping cached profile")
		}
	}
	sess, ok := deps.Store.SaveIf(ctx, gen, payload.Token, user)
	if !ok {
		return RenewResult{Failure: RenewFailureStale, Err: ErrStaleRenewal, Gen: gen, Status: ex.status, Session: sess, Latency: latency}
	}

	return RenewResult{
		Failure: RenewFailureNone,
		Gen:     gen,
		Status:  ex.status,
		Session: sess,
		Latency: latency,
	}
}
