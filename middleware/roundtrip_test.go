package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type ctxKey struct{}

func TestRequestIDFromContext(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer srv.Close()

	fromCtx := func(ctx context.Context) string {
		v, _ := ctx.Value(ctxKey{}).(string)
		return v
	}
	client := &http.Client{Transport: Chain(nil, RequestID("X-Request-ID", fromCtx))}

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if got != "req-42" {
		t.Fatalf("request id = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", got, err)
	}
}

func TestRequestIDKeepsExplicitHeader(t *testing.T) {
	var got string
	rt := Chain(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("X-Request-ID")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}), RequestID("X-Request-ID", nil))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	req.Header.Set("X-Request-ID", "mine")
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	if got != "mine" {
		t.Fatalf("request id = %q", got)
	}
}

func TestUserAgentDoesNotMutateCallerRequest(t *testing.T) {
	var got string
	rt := Chain(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("User-Agent")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}), UserAgent("goTutor/1"), RequestID("", nil))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	if got != "goTutor/1" {
		t.Fatalf("user agent = %q", got)
	}
	if req.Header.Get("User-Agent") != "" {
		t.Fatal("caller request was mutated")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}
	rt := Chain(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}), mark("a"), nil, mark("b"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
}
