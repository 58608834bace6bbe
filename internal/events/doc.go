// Package events delivers session lifecycle events to a sink off the caller's goroutine.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op, func).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full delivery, per-type
//     drop counts and folding of bursty types.
//   - [Event]: structured record with timestamp, type, user, role, trigger and metadata.
//
// # Bursts
//
// While the backend is down every scheduler tick produces a background renewal failure,
// and while storage is down every write produces a fallback. With a CoalesceWindow the
// dispatcher delivers the first of such a run and folds repeats of the same type and
// trigger; the next event delivered after the window carries the folded count.
//
// # What this package must NOT do
//
//   - Decide which events to emit; that belongs to the Manager.
//   - Import goTutor or any sibling internal package.
//   - Carry access tokens in events.
package events
