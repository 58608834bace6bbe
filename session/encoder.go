package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	KeyToken     = "authToken"
	KeyUser      = "user"
	KeyTimestamp = "tokenTimestamp"
)

// Keys lists every key owned by the store, in write order.
var Keys = []string{KeyToken, KeyUser, KeyTimestamp}

// ErrMalformed marks a persisted value that could not be decoded and was dropped.
var ErrMalformed = errors.New("malformed persisted session value")

// Encode converts s into the persisted key layout. A nil user is written as JSON null.
func Encode(s Session) (map[string]string, error) {
	if s.AccessToken == "" {
		return nil, errors.New("cannot encode session without access token")
	}
	if s.IssuedAt.IsZero() {
		return nil, errors.New("cannot encode session without issue time")
	}

	user, err := json.Marshal(s.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	return map[string]string{
		KeyToken:     s.AccessToken,
		KeyUser:      string(user),
		KeyTimestamp: strconv.FormatInt(s.IssuedAt.UnixMilli(), 10),
	}, nil
}

// Decode rebuilds a Session from persisted values. It never fails: the returned error
// only describes fields that were malformed and therefore treated as absent.
//
// Without a token the result is the empty Session regardless of the other keys.
func Decode(values map[string]string) (Session, error) {
	token := strings.TrimSpace(values[KeyToken])
	if token == "" {
		return Session{}, nil
	}

	var problems []error
	s := Session{AccessToken: token}

	if raw, ok := values[KeyTimestamp]; ok {
		ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || ms <= 0 {
			problems = append(problems, fmt.Errorf("%w: %s", ErrMalformed, KeyTimestamp))
		} else {
			s.IssuedAt = time.UnixMilli(ms)
		}
	}

	if raw, ok := values[KeyUser]; ok && raw != "" && raw != "null" {
		var user UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			problems = append(problems, fmt.Errorf("%w: %s", ErrMalformed, KeyUser))
		} else {
			s.User = &user
		}
	}

	return s, errors.Join(problems...)
}
