package flows

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goTutor/session"
)

// AuthenticateFailureKind classifies login and OTP failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureBuild
	AuthenticateFailureTransport
	AuthenticateFailureStatus
	AuthenticateFailureDecode
)

// AuthenticateResult is the outcome of a credential exchange.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error
	Status  int
	Body    []byte

	Token   string
	User    *session.UserProfile
	Message string
	// Saved is true when the response carried a token and it was stored. A success
	// without a token means a second factor is still required.
	Saved   bool
	Session session.Session
}

type AuthenticateStore interface {
	Save(ctx context.Context, token string, user *session.UserProfile) session.Session
}

// AuthenticateDeps captures login and OTP verification dependencies.
type AuthenticateDeps struct {
	Client       Doer
	Build        RequestBuilder
	Store        AuthenticateStore
	MaxBodyBytes int64
}

// RunAuthenticate posts body to url without a bearer token and stores the returned
// token, if any.
func RunAuthenticate(ctx context.Context, url string, body []byte, deps AuthenticateDeps) AuthenticateResult {
	build := deps.Build
	if build == nil {
		build = BuildJSONRequest
	}
	req, err := build(ctx, http.MethodPost, url, body, "")
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureBuild, Err: err}
	}
	ex, err := send(deps.Client, req, deps.MaxBodyBytes)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureTransport, Err: err}
	}
	if !isSuccess(ex.status) {
		return AuthenticateResult{Failure: AuthenticateFailureStatus, Status: ex.status, Body: ex.body}
	}

	var payload struct {
		Token   string               `json:"token"`
		User    *session.UserProfile `json:"user"`
		Message string               `json:"message"`
	}
	if err := json.Unmarshal(ex.body, &payload); err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureDecode, Err: err, Status: ex.status, Body: ex.body}
	}

	res := AuthenticateResult{
		Status:  ex.status,
		Body:    ex.body,
		Token:   payload.Token,
		User:    payload.User,
		Message: payload.Message,
	}
	if payload.Token != "" {
		res.Session = deps.Store.Save(ctx, payload.Token, payload.User)
		res.Saved = true
	}
	return res
}
