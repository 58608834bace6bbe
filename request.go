package goTutor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goTutor/internal/flows"
)

// RequestOption adjusts one call through the request pipeline.
type RequestOption func(*requestOptions)

type requestOptions struct {
	noAuth bool
	header http.Header
	query  url.Values
}

// WithoutAuth sends the request without a bearer token, even when logged in. A 401 on
// such a request is returned as-is and never triggers a renewal.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) { o.noAuth = true }
}

// WithHeader adds a header to every attempt of the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
	}
}

// WithQuery appends query parameters to the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// Request sends method path through the authenticated pipeline and decodes a 2xx JSON
// body into out (which may be nil). body is JSON-encoded unless it is nil, []byte or
// json.RawMessage.
//
// When the session is already expired the token is renewed before sending. A 401 on an
// authenticated attempt triggers one shared renewal and one retry with the renewed
// token; if that renewal fails the session is cleared and the result is an
// [*AuthExpiredError] wrapping the original 401. Other non-2xx responses are returned as
// [*HTTPError].
//
//	Performance: 1 round trip, up to 3 when a renewal is needed.
func (m *Manager) Request(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	var o requestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	payload, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("goTutor: encode request body: %w", err)
	}
	target, err := m.requestURL(path, o.query)
	if err != nil {
		return err
	}

	spec := flows.RequestSpec{
		Method: method,
		URL:    target,
		Body:   payload,
		Auth:   !o.noAuth,
	}
	if len(o.header) > 0 {
		spec.Decorate = func(r *http.Request) {
			for k, vs := range o.header {
				for _, v := range vs {
					r.Header.Add(k, v)
				}
			}
		}
	}

	res := m.flows.Request(ctx, spec)
	m.recordRequest(res)

	switch res.Failure {
	case flows.RequestFailureNone:
		if out == nil || len(bytes.TrimSpace(res.Body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.Body, out); err != nil {
			return &NetworkError{Op: "decode", URL: target, Err: err}
		}
		return nil
	case flows.RequestFailureBuild:
		return fmt.Errorf("goTutor: build request: %w", res.Err)
	case flows.RequestFailureTransport:
		return &NetworkError{Op: method, URL: target, Err: res.Err}
	case flows.RequestFailureStatus:
		return newHTTPError(res.Status, res.Body)
	case flows.RequestFailureAuthExpired:
		if err := ctx.Err(); err != nil {
			return err
		}
		ae := &AuthExpiredError{Renewal: res.RenewErr}
		if res.OriginalStatus != 0 {
			ae.Original = newHTTPError(res.OriginalStatus, res.OriginalBody)
		}
		return ae
	default:
		return fmt.Errorf("goTutor: unexpected request failure %d", res.Failure)
	}
}

func (m *Manager) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return m.Request(ctx, http.MethodGet, path, nil, out, opts...)
}

func (m *Manager) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return m.Request(ctx, http.MethodPost, path, body, out, opts...)
}

func (m *Manager) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return m.Request(ctx, http.MethodPut, path, body, out, opts...)
}

func (m *Manager) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return m.Request(ctx, http.MethodPatch, path, body, out, opts...)
}

func (m *Manager) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return m.Request(ctx, http.MethodDelete, path, nil, out, opts...)
}

func (m *Manager) recordRequest(res flows.RequestResult) {
	m.metrics.Inc(MetricRequest)
	m.metrics.Observe(MetricRequestLatency, res.Latency)
	if res.Retried {
		m.metrics.Inc(MetricRequestRetry)
	}
	if res.OriginalStatus == http.StatusUnauthorized || res.Status == http.StatusUnauthorized {
		m.metrics.Inc(MetricUnauthorized)
	}
	if res.Failure != flows.RequestFailureNone {
		m.metrics.Inc(MetricRequestFailure)
	}
}

// requestURL resolves path against BaseURL. An absolute URL is accepted only when its
// scheme and host are BaseURL's, so the bearer token never leaves the backend.
func (m *Manager) requestURL(path string, query url.Values) (string, error) {
	target := path
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if !m.sameOrigin(path) {
			return "", fmt.Errorf("%w: %s", ErrForeignURL, path)
		}
	} else {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = m.endpoint(path)
	}
	if len(query) == 0 {
		return target, nil
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode(), nil
}

func (m *Manager) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	base, err := url.Parse(m.config.BaseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
