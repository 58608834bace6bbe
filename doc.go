// Package goTutor is the client-side session manager for the tutoring platform API.
//
// A [Manager] owns one authenticated session: the access token, when it was issued and
// the cached user profile. It keeps the token fresh in the background and wraps every
// API call so that a single 401 is recovered by one renewal and one retry.
//
// A Manager is safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// goTutor is the public surface. It exposes [Manager], [Builder], [Config] and value
// types (AuthResponse, CheckResult, MetricsSnapshot). Persistence lives in session,
// renewal policy in refresh, and flow orchestration and event dispatch under internal/.
// Endpoint wrappers live in api, grade access rules in permission, and the quiz and task
// attempt state machine in attempt; all three build on a Manager.
//
// # What this package must NOT do
//
//   - Log or emit access tokens.
//   - Retry a request more than once, or renew more than once per request.
//   - Import any sub-package that re-imports goTutor (no import cycles).
//
// # Performance contract
//
// Request adds no round trips on the fresh path. An expired session or a 401 adds one
// refresh call, shared by every concurrent caller that needs it.
package goTutor
