// Package session provides the client-side token store: the current access token, the
// time it was issued, and the cached user profile, persisted to a durable key-value
// [Backend].
//
// # Persisted layout
//
// Three keys are written together: "authToken" (raw bearer token), "user" (JSON profile)
// and "tokenTimestamp" (issue time as decimal epoch milliseconds). Malformed values are
// treated as absent on read and never surface as errors to callers.
//
// # Backends
//
//   - [MemoryBackend]: process-local map, used in tests and as the implicit fallback.
//   - [FileBackend]: single JSON document on disk, written atomically.
//   - [RedisBackend]: prefixed keys on a go-redis client; writes use a MULTI/EXEC pipeline.
//
// When a backend write fails the [Store] keeps serving from memory for the rest of the
// process lifetime.
//
// # What this package must NOT do
//
//   - Import goTutor, refresh, or internal/flows (no upward imports).
//   - Perform network calls other than the configured backend.
//   - Log token values.
package session
