// Package middleware provides client-side [http.RoundTripper] adapters applied to every
// request the session manager sends.
//
// # Round trippers
//
//   - [RequestID]: stamps a request id header, from context or a fresh UUID.
//   - [UserAgent]: sets a User-Agent unless the caller already set one.
//
// [Chain] composes them over a base transport.
//
// # What this package must NOT do
//
//   - Read or attach access tokens (the request pipeline owns the Authorization header).
//   - Retry or buffer requests.
package middleware
