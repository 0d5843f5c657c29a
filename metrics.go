package authcore

import "github.com/tidegate/authcore/internal/metrics"

// MetricID identifies one engine counter or histogram.
type MetricID = metrics.MetricID

// Engine metric identifiers, re-exported for exporters and hosts.
const (
	MetricLoginSuccess         = metrics.MetricLoginSuccess
	MetricLoginFailure         = metrics.MetricLoginFailure
	MetricLoginLocked          = metrics.MetricLoginLocked
	MetricLoginTenantRejected  = metrics.MetricLoginTenantRejected
	MetricLockoutTriggered     = metrics.MetricLockoutTriggered
	MetricVerifySuccess        = metrics.MetricVerifySuccess
	MetricVerifyFailure        = metrics.MetricVerifyFailure
	MetricRefreshSuccess       = metrics.MetricRefreshSuccess
	MetricRefreshFailure       = metrics.MetricRefreshFailure
	MetricRefreshReuseDetected = metrics.MetricRefreshReuseDetected
	MetricTokensRevoked        = metrics.MetricTokensRevoked
	MetricVerifyLatency        = metrics.MetricVerifyLatency
)

// MetricsSnapshot is a point-in-time copy of the engine instruments.
type MetricsSnapshot = metrics.Snapshot
