package goTutor

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding. Unlike Validate errors, warnings never block Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that are valid but likely unintended.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if c.Refresh.CheckInterval > c.Refresh.RenewMargin {
		ws = append(ws, LintWarning{
			Code:     "check_interval_exceeds_margin",
			Severity: LintWarn,
			Message:  "the timer may skip the renewal window and only catch an expired token",
		})
	}

	if u, err := url.Parse(c.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		ws = append(ws, LintWarning{
			Code:     "plaintext_base_url",
			Severity: LintHigh,
			Message:  "bearer tokens would be sent over plain http to a non-loopback host",
		})
	}

	if c.Refresh.Timeout > c.Refresh.RenewMargin && c.Refresh.RenewMargin > 0 {
		ws = append(ws, LintWarning{
			Code:     "refresh_timeout_exceeds_margin",
			Severity: LintInfo,
			Message:  "a hung background renewal can outlast the renewal margin",
		})
	}

	if c.Events.Enabled && !c.Events.DropIfFull {
		ws = append(ws, LintWarning{
			Code:     "events_blocking",
			Severity: LintInfo,
			Message:  "a slow event sink will delay session transitions",
		})
	}

	return ws
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
