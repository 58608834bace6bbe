// Package flows contains pure-function orchestrators for every Manager operation.
//
// Each flow function (RunRequest, RunRenew, RunCheck, RunAuthenticate) accepts a typed
// dependency struct and returns a result value carrying a failure kind. The root package
// maps failure kinds to its public error types, so flows never construct user-facing
// errors themselves.
//
// # Architecture boundaries
//
// Flow functions coordinate the HTTP client, the token store and the renewal policy.
// They do NOT own any of these resources; ownership stays with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goTutor (to avoid import cycles).
//   - Clear the session or emit events directly: that goes through dependency callbacks.
package flows
