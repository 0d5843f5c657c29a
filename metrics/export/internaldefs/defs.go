package internaldefs

import (
	"github.com/tidegate/authcore"
)

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginLocked, Name: "authcore_login_locked_total", Help: "Logins rejected while an account lock was in effect."},
	{ID: authcore.MetricLoginTenantRejected, Name: "authcore_login_tenant_rejected_total", Help: "Logins rejected by privileged-tenant gating."},
	{ID: authcore.MetricLockoutTriggered, Name: "authcore_lockout_triggered_total", Help: "Account locks triggered by the failure threshold."},
	{ID: authcore.MetricVerifySuccess, Name: "authcore_verify_success_total", Help: "Successful access-token verifications."},
	{ID: authcore.MetricVerifyFailure, Name: "authcore_verify_failure_total", Help: "Failed access-token verifications."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authcore.MetricTokensRevoked, Name: "authcore_tokens_revoked_total", Help: "Refresh tokens revoked."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricVerifyLatency, Name: "authcore_verify_latency_seconds", Help: "Access-token verification latency histogram."},
}

// HistogramBounds are the bucket upper bounds as exposition labels. They
// must stay in lockstep with the core histogram bounds.
var HistogramBounds = []string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix are the bounds as instrument-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket array the exporters render.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
