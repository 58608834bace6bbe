package goTutor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goTutor/internal/flows"
	"github.com/MrEthical07/goTutor/session"
)

// Login exchanges credentials for a session. When the backend answers without a token a
// one-time code is required: the returned response reports RequiresOTP and the session
// is left unchanged until [Manager.VerifyOTP] succeeds.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	resp, err := m.authenticate(ctx, m.config.Endpoints.Login, creds, ReasonLogin)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, EventLogin, nil, "", err, nil)
		return nil, err
	}
	m.metrics.Inc(MetricLoginSuccess)
	if resp.RequiresOTP() {
		m.emit(ctx, EventLogin, nil, "", nil, map[string]string{"otp_required": "true"})
	} else {
		m.emit(ctx, EventLogin, resp.User, "", nil, nil)
	}
	return resp, nil
}

// VerifyOTP completes a login that required a one-time code.
func (m *Manager) VerifyOTP(ctx context.Context, req OTPRequest) (*AuthResponse, error) {
	resp, err := m.authenticate(ctx, m.config.Endpoints.VerifyOTP, req, ReasonOTP)
	if err == nil && resp.RequiresOTP() {
		err = ErrInvalidAuthResponse
	}
	if err != nil {
		m.metrics.Inc(MetricOTPVerifyFailure)
		m.emit(ctx, EventOTPVerify, nil, "", err, nil)
		return nil, err
	}
	m.metrics.Inc(MetricOTPVerifySuccess)
	m.emit(ctx, EventOTPVerify, resp.User, "", nil, nil)
	return resp, nil
}

// Logout ends the session locally. The backend keeps no client session to revoke.
func (m *Manager) Logout(ctx context.Context) error {
	return m.Clear(ctx)
}

// UpdateProfile merges the non-empty fields of patch into the cached user and persists
// it. The token and its timestamp are untouched.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfilePatch) (*session.UserProfile, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	sess, ok := m.store.UpdateUser(ctx, func(u *session.UserProfile) {
		if patch.Name != "" {
			u.Name = patch.Name
		}
		if patch.Email != "" {
			u.Email = patch.Email
		}
		if patch.Role != "" {
			u.Role = patch.Role
		}
		if patch.Grade != "" {
			u.Grade = patch.Grade
		}
	})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return sess.User, nil
}

func (m *Manager) authenticate(ctx context.Context, path string, body any, reason AuthChangeReason) (*AuthResponse, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("goTutor: encode request body: %w", err)
	}
	target := m.endpoint(path)

	res := m.flows.Authenticate(ctx, target, payload)
	switch res.Failure {
	case flows.AuthenticateFailureNone:
	case flows.AuthenticateFailureBuild:
		return nil, fmt.Errorf("goTutor: build request: %w", res.Err)
	case flows.AuthenticateFailureTransport:
		return nil, &NetworkError{Op: string(reason), URL: target, Err: res.Err}
	case flows.AuthenticateFailureStatus:
		return nil, newHTTPError(res.Status, res.Body)
	case flows.AuthenticateFailureDecode:
		return nil, &NetworkError{Op: "decode", URL: target, Err: res.Err}
	}

	resp := &AuthResponse{
		Token:   res.Token,
		User:    res.User,
		Message: res.Message,
		Raw:     json.RawMessage(res.Body),
	}
	if res.Saved {
		m.authChanged(AuthChange{Authenticated: true, Reason: reason, User: res.Session.User})
	}
	return resp, nil
}
