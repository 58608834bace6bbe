package goTutor

import (
	"encoding/json"
	"time"

	"github.com/MrEthical07/goTutor/refresh"
	"github.com/MrEthical07/goTutor/session"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequest is the verify-otp request body.
type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// AuthResponse is the body returned by login, verify-otp and refresh-token. Login may
// answer without a token when a one-time code is still required.
type AuthResponse struct {
	Token   string               `json:"token"`
	User    *session.UserProfile `json:"user"`
	Message string               `json:"message,omitempty"`
	// Raw is the full response body.
	Raw json.RawMessage `json:"-"`
}

// RequiresOTP reports whether the login step needs a verify-otp call to finish.
func (r *AuthResponse) RequiresOTP() bool {
	return r != nil && r.Token == ""
}

// ProfilePatch holds profile fields to merge into the cached user. Empty fields are
// left unchanged.
type ProfilePatch struct {
	Name  string
	Email string
	Role  session.Role
	Grade string
}

// AuthChangeReason names why the authenticated state changed.
type AuthChangeReason string

const (
	ReasonLogin    AuthChangeReason = "login"
	ReasonOTP      AuthChangeReason = "otp"
	ReasonRefresh  AuthChangeReason = "refresh"
	ReasonRestored AuthChangeReason = "restored"
	ReasonLogout   AuthChangeReason = "logout"
	ReasonForced   AuthChangeReason = "forced"
)

// AuthChange is delivered to OnAuthChange listeners.
type AuthChange struct {
	Authenticated bool
	Reason        AuthChangeReason
	User          *session.UserProfile
	// Err is the renewal failure behind a forced logout.
	Err error
}

// CheckResult describes one scheduler evaluation.
type CheckResult struct {
	Trigger refresh.Trigger
	State   refresh.State
	Age     time.Duration
	// Renewed is true when a renewal ran and succeeded as part of this check.
	Renewed bool
	Err     error
}
