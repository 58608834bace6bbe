package internaldefs

import (
	goTutor "github.com/MrEthical07/goTutor"
)

type CounterDef struct {
	ID   goTutor.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goTutor.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goTutor.MetricLoginSuccess, Name: "tutor_login_success_total", Help: "Successful logins."},
	{ID: goTutor.MetricLoginFailure, Name: "tutor_login_failure_total", Help: "Failed logins."},
	{ID: goTutor.MetricOTPVerifySuccess, Name: "tutor_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: goTutor.MetricOTPVerifyFailure, Name: "tutor_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: goTutor.MetricRefreshSuccess, Name: "tutor_refresh_success_total", Help: "Successful token renewals."},
	{ID: goTutor.MetricRefreshFailure, Name: "tutor_refresh_failure_total", Help: "Failed token renewals."},
	{ID: goTutor.MetricRefreshShared, Name: "tutor_refresh_shared_total", Help: "Callers that joined a renewal already in flight."},
	{ID: goTutor.MetricRefreshBackgroundFailure, Name: "tutor_refresh_background_failure_total", Help: "Background renewals that failed and kept the session."},
	{ID: goTutor.MetricCheckEvaluations, Name: "tutor_check_evaluations_total", Help: "Renewal policy evaluations."},
	{ID: goTutor.MetricForcedLogout, Name: "tutor_forced_logout_total", Help: "Sessions ended after a failed blocking renewal."},
	{ID: goTutor.MetricLogout, Name: "tutor_logout_total", Help: "Explicit logouts."},
	{ID: goTutor.MetricRequest, Name: "tutor_request_total", Help: "Requests sent through the pipeline."},
	{ID: goTutor.MetricRequestRetry, Name: "tutor_request_retry_total", Help: "Requests retried after a renewal."},
	{ID: goTutor.MetricRequestFailure, Name: "tutor_request_failure_total", Help: "Requests that returned an error."},
	{ID: goTutor.MetricUnauthorized, Name: "tutor_unauthorized_total", Help: "401 responses observed."},
	{ID: goTutor.MetricStorageFallback, Name: "tutor_storage_fallback_total", Help: "Durable storage failures that fell back to memory."},
}

var HistogramDefs = []HistogramDef{
	{ID: goTutor.MetricRequestLatency, Name: "tutor_request_latency_seconds", Help: "Request round-trip latency."},
	{ID: goTutor.MetricRenewLatency, Name: "tutor_renew_latency_seconds", Help: "Token renewal latency."},
}

// Event dispatcher families. Drops are labelled by event type.
const (
	EventsDroppedName   = "tutor_events_dropped_total"
	EventsDroppedHelp   = "Events dropped because the dispatcher buffer was full or the emitter gave up."
	EventsCoalescedName = "tutor_events_coalesced_total"
	EventsCoalescedHelp = "Repeated background failures and storage fallbacks folded into a later event."
)

// HistogramBounds are the upper bounds of the core latency buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix names the bounds in instrument-safe form.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
