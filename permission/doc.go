// Package permission decides which grades a user may open and maps grade names to the
// URL slugs each backend route family expects.
//
// # Rules
//
// Admins and instructors can access every grade. A student can access only the grade
// they are registered in; a user with no role counts as a student. A nil user has no
// access at all.
//
// # Grade masks
//
// A [Catalog] assigns each known grade a bit in a [Mask]. [Catalog.MaskFor] folds a
// user into a mask once, after which access checks are single bit tests. The highest
// bit is reserved for "every grade".
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Localize messages (callers render [AccessStatus] themselves).
package permission
