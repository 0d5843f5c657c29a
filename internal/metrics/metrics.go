package metrics

import "sync/atomic"

// MetricID identifies one counter or histogram.
type MetricID int

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginTenantRejected
	MetricLockoutTriggered
	MetricVerifySuccess
	MetricVerifyFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricTokensRevoked
	MetricVerifyLatency

	MetricIDCount
)

// BucketCount is the number of histogram buckets, the last being +Inf.
const BucketCount = 8

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = [BucketCount]float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0}

// Config controls which instrument families are live.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Snapshot is a point-in-time deep copy of all metrics. Histogram buckets
// are non-cumulative.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Metrics holds atomic counters and optional latency histograms. A nil
// or disabled instance makes every operation a no-op.
type Metrics struct {
	enabled bool
	latency bool

	counters [MetricIDCount]atomic.Uint64
	buckets  [MetricIDCount][BucketCount]atomic.Uint64
}

// New creates a Metrics instance configured by cfg.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled, latency: cfg.Enabled && cfg.EnableLatency}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Add adds n to the counter. Non-positive n is ignored.
func (m *Metrics) Add(id MetricID, n int) {
	if m == nil || !m.enabled || n <= 0 || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(uint64(n))
}

// Observe records one latency sample in seconds.
func (m *Metrics) Observe(id MetricID, seconds float64) {
	if m == nil || !m.latency || id < 0 || id >= MetricIDCount {
		return
	}
	bucket := BucketCount - 1
	for i, bound := range HistogramBounds[:BucketCount-1] {
		if seconds <= bound {
			bucket = i
			break
		}
	}
	m.buckets[id][bucket].Add(1)
}

// Snapshot deep-copies all live instruments. Disabled metrics snapshot to
// empty maps so exporters need no special case.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := m.counters[id].Load(); v > 0 {
			snap.Counters[id] = v
		}
	}
	if m.latency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			var total uint64
			buckets := make([]uint64, BucketCount)
			for i := range buckets {
				buckets[i] = m.buckets[id][i].Load()
				total += buckets[i]
			}
			if total > 0 {
				snap.Histograms[id] = buckets
			}
		}
	}
	return snap
}
