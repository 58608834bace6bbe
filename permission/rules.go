package permission

import "github.com/MrEthical07/goTutor/session"

func IsAdmin(u *session.UserProfile) bool {
	return u != nil && u.Role == session.RoleAdmin
}

func IsInstructor(u *session.UserProfile) bool {
	return u != nil && u.Role == session.RoleInstructor
}

// IsStudent is true for the student role and for a user without a role.
func IsStudent(u *session.UserProfile) bool {
	return u != nil && (u.Role == session.RoleStudent || u.Role == "")
}

// HasAdminPrivileges is true for admins and instructors.
func HasAdminPrivileges(u *session.UserProfile) bool {
	return IsAdmin(u) || IsInstructor(u)
}

// CanAccessGrade reports whether u may open grade.
func CanAccessGrade(u *session.UserProfile, grade string) bool {
	if u == nil {
		return false
	}
	if HasAdminPrivileges(u) {
		return true
	}
	return u.Grade == grade
}

// AccessibleGrades returns the subset of all that u may open, in the order given.
func AccessibleGrades(u *session.UserProfile, all []string) []string {
	if u == nil || len(all) == 0 {
		return nil
	}
	if HasAdminPrivileges(u) {
		return append([]string(nil), all...)
	}
	if u.Grade == "" {
		return nil
	}
	var out []string
	for _, g := range all {
		if g == u.Grade {
			out = append(out, g)
		}
	}
	return out
}

// FilterByGrade keeps the items u may see. gradeOf extracts an item's grade.
func FilterByGrade[T any](items []T, u *session.UserProfile, gradeOf func(T) string) []T {
	if len(items) == 0 || u == nil {
		return nil
	}
	if HasAdminPrivileges(u) {
		return append([]T(nil), items...)
	}
	if u.Grade == "" {
		return nil
	}
	var out []T
	for _, it := range items {
		if gradeOf(it) == u.Grade {
			out = append(out, it)
		}
	}
	return out
}

// AccessStatus is the outcome of a grade access check.
type AccessStatus string

const (
	AccessLoginRequired AccessStatus = "login-required"
	AccessDenied        AccessStatus = "access-denied"
	AccessGranted       AccessStatus = "access-granted"
)

// Access describes whether a grade page can be opened and what the user must do
// otherwise.
type Access struct {
	Status       AccessStatus
	NeedsLogin   bool
	NeedsUpgrade bool
	HasAccess    bool
	// UserGrade is the grade the user is registered in, for denial messages.
	UserGrade   string
	TargetGrade string
}

// CheckGradeAccess combines the session state with [CanAccessGrade].
func CheckGradeAccess(authenticated bool, u *session.UserProfile, grade string) Access {
	a := Access{TargetGrade: grade}
	if u != nil {
		a.UserGrade = u.Grade
	}
	switch {
	case !authenticated:
		a.Status = AccessLoginRequired
		a.NeedsLogin = true
	case !CanAccessGrade(u, grade):
		a.Status = AccessDenied
		a.NeedsUpgrade = true
	default:
		a.Status = AccessGranted
		a.HasAccess = true
	}
	return a
}
