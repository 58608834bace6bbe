package goTutor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session when there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRenewalFailed wraps every failed token renewal.
	ErrRenewalFailed = errors.New("token renewal failed")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrNoToken is returned by Renew when there is no token to renew.
	ErrNoToken = errors.New("no access token")
	// ErrInvalidAuthResponse is returned when a refresh response carries no token.
	ErrInvalidAuthResponse = errors.New("auth response missing token")
	// ErrForeignURL is returned by Request for an absolute URL outside BaseURL.
	ErrForeignURL = errors.New("request URL is outside BaseURL")
)

// genericNetworkMessage is what callers see when a failure body could not be parsed.
const genericNetworkMessage = "Network error"

// NetworkError means the backend could not be reached, or a success body was not JSON.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s", e.Op, e.URL)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx backend response.
//
// Message comes from the JSON body's "message" field, falling back to "HTTP <status>".
// When the body is not JSON at all, Message is "Network error" and Data is nil.
type HTTPError struct {
	Status  int
	Message string
	Body    []byte
	Data    json.RawMessage
}

func (e *HTTPError) Error() string { return e.Message }

// AuthExpiredError means the session could not be renewed and has been torn down.
// Original is the 401 that started the renewal; it is nil when the renewal was started
// by an expired token before any request was sent.
type AuthExpiredError struct {
	Original *HTTPError
	Renewal  error
}

func (e *AuthExpiredError) Error() string {
	if e.Original != nil {
		return "authentication expired: " + e.Original.Message
	}
	return "authentication expired"
}

func (e *AuthExpiredError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Original != nil {
		out = append(out, e.Original)
	}
	if e.Renewal != nil {
		out = append(out, e.Renewal)
	}
	return out
}

// Is makes errors.Is(err, ErrNotAuthenticated) true: the session is gone.
func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrNotAuthenticated
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status, Body: body}

	var payload struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || !json.Valid(body) {
		e.Message = genericNetworkMessage
		return e
	}
	e.Data = json.RawMessage(body)
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		e.Message = payload.Message
		return e
	}
	e.Message = fmt.Sprintf("HTTP %d", status)
	return e
}
