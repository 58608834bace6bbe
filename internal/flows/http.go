package flows

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes int64 = 8 << 20

var errBodyTooLarge = errors.New("response body exceeds limit")

// RequestBuilder creates a fresh request for one attempt. token is empty for an
// unauthenticated attempt.
type RequestBuilder func(ctx context.Context, method, url string, body []byte, token string) (*http.Request, error)

// BuildJSONRequest is the default RequestBuilder: JSON content type plus a bearer token
// when one is given.
func BuildJSONRequest(ctx context.Context, method, url string, body []byte, token string) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

type exchange struct {
	status int
	header http.Header
	body   []byte
}

func send(client Doer, req *http.Request, limit int64) (exchange, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	resp, err := client.Do(req)
	if err != nil {
		return exchange{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return exchange{}, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return exchange{}, errBodyTooLarge
	}
	return exchange{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
