// Package api wraps every backend endpoint family in typed methods over a
// [goTutor.Manager]. Payloads are opaque [json.RawMessage] values: the pipeline owns
// authentication and error mapping, this package owns only paths and verbs.
//
// Public grade endpoints and the unauthenticated account flows (signup, OTP resend,
// password reset) are sent without a bearer token even when a session exists.
package api
