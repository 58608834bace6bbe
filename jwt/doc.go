// Package jwt reads and, for local backends, issues access tokens.
//
// [Inspect] extracts the standard time claims from a bearer token without verifying its
// signature. The client never holds the server's key, so inspection is advisory: it
// can shorten the renewal schedule but is never used to trust a token.
//
// [Manager] signs and verifies tokens with HS256 or Ed25519. It backs the in-process
// test server and the load-test command.
package jwt
