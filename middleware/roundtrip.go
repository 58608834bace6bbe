package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Middleware decorates a round tripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to [http.RoundTripper].
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base with mws so that mws[0] runs first. A nil base means
// [http.DefaultTransport].
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			rt = mws[i](rt)
		}
	}
	return rt
}

// RequestID sets header on every outgoing request that does not already carry it.
// The value comes from fromContext when it returns a non-empty id, otherwise a fresh
// random UUID. An empty header disables the middleware.
func RequestID(header string, fromContext func(context.Context) string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if header == "" {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(header) != "" {
				return next.RoundTrip(r)
			}
			id := ""
			if fromContext != nil {
				id = fromContext(r.Context())
			}
			if id == "" {
				id = uuid.NewString()
			}
			r = r.Clone(r.Context())
			r.Header.Set(header, id)
			return next.RoundTrip(r)
		})
	}
}

// UserAgent sets the User-Agent header when the request has none.
func UserAgent(agent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if agent == "" {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", agent)
			return next.RoundTrip(r)
		})
	}
}
