// Package refresh decides when an access token must be renewed and makes sure only one
// renewal is in flight at a time.
//
// # Policy
//
// A [Policy] maps the age of the current token to a [State]:
//
//   - [Fresh]: age < TTL - margin. Nothing to do.
//   - [ExpiringSoon]: TTL - margin <= age < TTL. Renew in the background; the current
//     token stays usable.
//   - [Expired]: age >= TTL, or no issue time is known. Renew before any further
//     authenticated call; a failed renewal ends the session.
//
// # Single flight
//
// [Group] collapses overlapping renewal attempts (timer, focus, visibility, a 401 in the
// request pipeline) onto one backend call. Late callers wait for and share the first
// caller's result.
//
// # What this package must NOT do
//
//   - Perform I/O or import goTutor, session, or internal/flows.
//   - Decide what happens to the session after a failed renewal.
package refresh
