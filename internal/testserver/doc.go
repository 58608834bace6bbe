// Package testserver is an in-process fake of the tutoring backend: login, verify-otp,
// refresh-token and generic resource endpoints, with switches for injecting failures.
// Tokens are real HS256 JWTs issued by jwt.Manager.
package testserver
