package refresh

import "time"

// State is the outcome of one policy evaluation.
type State int

const (
	Fresh State = iota
	ExpiringSoon
	Expired
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case ExpiringSoon:
		return "expiring_soon"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	DefaultTokenTTL    = time.Hour
	DefaultRenewMargin = 5 * time.Minute
)

// Policy holds the renewal thresholds.
//
// When HonorTokenExpiry is set and the token carries an expiry earlier than
// IssuedAt + TokenTTL, that expiry becomes the effective TTL.
type Policy struct {
	TokenTTL         time.Duration
	RenewMargin      time.Duration
	HonorTokenExpiry bool
}

// DefaultPolicy returns the one hour / five minute policy.
func DefaultPolicy() Policy {
	return Policy{TokenTTL: DefaultTokenTTL, RenewMargin: DefaultRenewMargin}
}

// Evaluate classifies a token issued at issuedAt, as observed at now. A zero issuedAt
// means the age is unknown and always evaluates to [Expired]. expiresAt may be zero.
//
//	Performance: O(1), no allocations.
func (p Policy) Evaluate(issuedAt, expiresAt, now time.Time) State {
	if issuedAt.IsZero() {
		return Expired
	}
	return p.classify(now.Sub(issuedAt), p.effectiveTTL(issuedAt, expiresAt))
}

// EvaluateAge classifies a bare token age against TokenTTL.
func (p Policy) EvaluateAge(age time.Duration) State {
	return p.classify(age, p.TokenTTL)
}

// NextCheck returns how long until the state could next change from Fresh, for callers
// that want to sleep precisely instead of polling. It is zero when renewal is due.
func (p Policy) NextCheck(issuedAt, expiresAt, now time.Time) time.Duration {
	if issuedAt.IsZero() {
		return 0
	}
	due := p.effectiveTTL(issuedAt, expiresAt) - p.RenewMargin - now.Sub(issuedAt)
	if due < 0 {
		return 0
	}
	return due
}

func (p Policy) effectiveTTL(issuedAt, expiresAt time.Time) time.Duration {
	ttl := p.TokenTTL
	if p.HonorTokenExpiry && !expiresAt.IsZero() {
		if byClaim := expiresAt.Sub(issuedAt); byClaim < ttl {
			ttl = byClaim
		}
	}
	return ttl
}

func (p Policy) classify(age, ttl time.Duration) State {
	switch {
	case age >= ttl:
		return Expired
	case age >= ttl-p.RenewMargin:
		return ExpiringSoon
	default:
		return Fresh
	}
}
