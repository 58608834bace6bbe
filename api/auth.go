package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	goTutor "github.com/MrEthical07/goTutor"
)

// ErrPasswordMismatch is returned by ResetPassword before any call is made.
var ErrPasswordMismatch = errors.New("api: new password and confirmation differ")

// Auth covers the account flows beyond login, verify-otp and refresh, which the
// Manager handles itself.
type Auth struct {
	r Requester
}

// SignupRequest is the registration body. Grade is required for students.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Grade    string `json:"grade,omitempty"`
}

// SignupResponse carries the temporary token used while the account awaits OTP
// verification.
type SignupResponse struct {
	Message   string          `json:"message"`
	TempToken string          `json:"tempToken"`
	Raw       json.RawMessage `json:"-"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// PerformResetRequest completes an OTP-based reset.
type PerformResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (a *Auth) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	raw, err := call(ctx, a.r, http.MethodPost, "/api/users/", req, goTutor.WithoutAuth())
	if err != nil {
		return nil, err
	}
	out := &SignupResponse{Raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *Auth) ResendOTP(ctx context.Context, email string) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodPost, "/api/users/resend-otp", map[string]string{"email": email}, goTutor.WithoutAuth())
}

// ChangePassword is the only account flow sent with the session's token.
func (a *Auth) ChangePassword(ctx context.Context, req ChangePasswordRequest) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodPost, "/api/users/change-password", req)
}

func (a *Auth) RequestPasswordReset(ctx context.Context, email string) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodPost, "/api/users/reset-password/request", map[string]string{"email": email}, goTutor.WithoutAuth())
}

func (a *Auth) PerformPasswordReset(ctx context.Context, req PerformResetRequest) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodPost, "/api/users/reset-password/perform", req, goTutor.WithoutAuth())
}

// ForgotPassword starts the emailed-link reset flow.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, goTutor.WithoutAuth())
}

// ResetPassword completes the emailed-link flow with the token from the link.
func (a *Auth) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) (json.RawMessage, error) {
	if newPassword != confirmPassword {
		return nil, ErrPasswordMismatch
	}
	body := map[string]string{
		"token":           token,
		"newPassword":     newPassword,
		"confirmPassword": confirmPassword,
	}
	return call(ctx, a.r, http.MethodPost, "/auth/reset-password", body, goTutor.WithoutAuth())
}
