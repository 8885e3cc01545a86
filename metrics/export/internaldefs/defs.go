// Package internaldefs holds the metric name and help-text tables shared by
// the exporters, so Prometheus and OTel output stays consistent.
package internaldefs

import (
	authedge "github.com/caldercay/authedge"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authedge.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   authedge.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authedge.MetricLoginSuccess, Name: "authedge_login_success_total", Help: "Successful login attempts."},
	{ID: authedge.MetricLoginFailure, Name: "authedge_login_failure_total", Help: "Failed login attempts."},
	{ID: authedge.MetricSessionIssued, Name: "authedge_session_issued_total", Help: "Issued session credentials."},
	{ID: authedge.MetricSessionRotated, Name: "authedge_session_rotated_total", Help: "Rotated session credentials."},
	{ID: authedge.MetricVerifySuccess, Name: "authedge_verify_success_total", Help: "Successful session verifications."},
	{ID: authedge.MetricVerifyFailure, Name: "authedge_verify_failure_total", Help: "Rejected session verifications."},
	{ID: authedge.MetricCSRFRejected, Name: "authedge_csrf_rejected_total", Help: "Rejected CSRF checks."},
	{ID: authedge.MetricLogout, Name: "authedge_logout_total", Help: "Logout operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: authedge.MetricVerifyLatency, Name: "authedge_verify_latency_seconds", Help: "Session verification latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's fixed buckets, in
// seconds, as Prometheus le label values.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with identifier-safe names
// for backends that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
