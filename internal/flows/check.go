package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goTutor/refresh"
	"github.com/MrEthical07/goTutor/session"
)

// CheckResult reports what one freshness check did.
type CheckResult struct {
	Trigger refresh.Trigger
	State   refresh.State
	Age     time.Duration
	// Skipped is true when there was no session to check.
	Skipped bool
	Renewed bool
	Err     error
}

// CheckDeps captures freshness check dependencies.
type CheckDeps struct {
	Snapshot func() (session.Session, uint64)
	Evaluate func(s session.Session, now time.Time) refresh.State
	Now      func() time.Time
	Renew    func(ctx context.Context, trigger refresh.Trigger) (gen uint64, err error)
	// OnBackgroundFailure observes a failed renewal of a session that is still
	// usable. The session is kept.
	OnBackgroundFailure func(ctx context.Context, trigger refresh.Trigger, err error)
	OnAuthFailure       func(ctx context.Context, gen uint64, err error)
}

// RunCheck evaluates the current session and renews it when it is expiring soon or
// already expired. Only a failed renewal of an expired session ends the session.
func RunCheck(ctx context.Context, trigger refresh.Trigger, deps CheckDeps) CheckResult {
	cur, _ := deps.Snapshot()
	res := CheckResult{Trigger: trigger}
	if !cur.IsAuthenticated() {
		res.Skipped = true
		return res
	}

	now := deps.Now()
	res.Age = cur.Age(now)
	res.State = deps.Evaluate(cur, now)
	if res.State == refresh.Fresh {
		return res
	}

	gen, err := deps.Renew(ctx, trigger)
	if err == nil {
		res.Renewed = true
		return res
	}
	res.Err = err

	if res.State == refresh.Expired {
		if deps.OnAuthFailure != nil {
			deps.OnAuthFailure(ctx, gen, err)
		}
		return res
	}
	if deps.OnBackgroundFailure != nil {
		deps.OnBackgroundFailure(ctx, trigger, err)
	}
	return res
}
