// Package internal holds helpers private to goTutor.
//
// # Sub-packages
//
//   - events: async event dispatch (Dispatcher and Sink implementations)
//   - flows: dependency-struct orchestrators for every Manager operation
//   - config: environment and .env loading for the commands
//   - testserver: in-process fake backend for tests and load runs
//
// # What this package must NOT do
//
//   - Export types that appear in the public goTutor API.
//   - Be imported by any package outside the goTutor module.
package internal
