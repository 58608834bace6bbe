package refresh

// Trigger names what caused a policy evaluation or renewal.
type Trigger int

const (
	TriggerManual Trigger = iota
	TriggerTimer
	TriggerFocus
	TriggerVisibility
	TriggerAuthChange
	TriggerUnauthorized
	// TriggerRequest is an expired session found before an authenticated request.
	TriggerRequest
)

func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerTimer:
		return "timer"
	case TriggerFocus:
		return "focus"
	case TriggerVisibility:
		return "visibility"
	case TriggerAuthChange:
		return "auth_change"
	case TriggerUnauthorized:
		return "unauthorized"
	case TriggerRequest:
		return "request"
	default:
		return "unknown"
	}
}
