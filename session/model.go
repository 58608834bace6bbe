package session

import (
	"encoding/json"
	"math"
	"time"
)

// Infinite is the age reported for a session that has no issue timestamp.
const Infinite time.Duration = math.MaxInt64

// Role is the account role reported by the backend.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// UserProfile is the denormalized profile cached next to the access token.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
	Grade string `json:"grade,omitempty"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id" spelling.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	type plain UserProfile
	var aux struct {
		plain
		ObjectID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = UserProfile(aux.plain)
	if u.ID == "" {
		u.ID = aux.ObjectID
	}
	return nil
}

// Clone returns a copy that does not alias u.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// Session is a point-in-time snapshot of the authenticated state.
//
// A session saved by this process has IssuedAt set whenever AccessToken is set. One
// restored from storage with a missing or malformed timestamp keeps its AccessToken with
// a zero IssuedAt; its age is [Infinite] and the renewal policy treats it as expired, so
// the next authenticated request renews it first. IssuedAt is always zero without an
// AccessToken. ExpiresAt carries the token's own exp claim when it could be read, and is
// zero when unknown.
type Session struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	User        *UserProfile
}

// IsAuthenticated reports whether an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// Age returns now - IssuedAt, or [Infinite] when no timestamp is recorded.
func (s Session) Age(now time.Time) time.Duration {
	if s.IssuedAt.IsZero() {
		return Infinite
	}
	return now.Sub(s.IssuedAt)
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}
