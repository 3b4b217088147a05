package adminauth

import (
	"sync/atomic"
	"time"
)

// MetricID indexes the engine's counters.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginInactive
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricLogoutAll
	MetricTokenBlacklisted
	MetricAuthorizeFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricAccountCreated
	MetricAccountsUnlocked
	MetricStoreTokensPurged
	MetricBlacklistEvicted
	MetricInternalError
	// MetricLoginLatency is the only histogram and must stay last.
	MetricLoginLatency
)

// loginLatencyBounds are the inclusive upper bounds of the latency buckets.
// Anything slower lands in the overflow bucket after them.
var loginLatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(loginLatencyBounds) + 1

// counter sits on its own cache line so hot counters do not contend.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the login latency
// histogram. A nil or disabled Metrics ignores all writes.
type Metrics struct {
	enabled bool
	latency bool
	counts  [MetricLoginLatency]counter
	login   [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are
// non-cumulative with upper bounds 5, 10, 25, 50, 100, 250 and 500 ms plus
// an overflow bucket.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled, latency: cfg.EnableLatencyHistograms}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

// Add increases a counter by n. Maintenance uses it for bulk counts.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || id >= MetricLoginLatency || n == 0 {
		return
	}
	m.counts[id].Add(n)
}

// Observe records d for MetricLoginLatency; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.Enabled() || !m.latency || id != MetricLoginLatency {
		return
	}
	m.login[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricLoginLatency {
		return 0
	}
	return m.counts[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := range m.counts {
		s.Counters[MetricID(id)] = m.counts[id].Load()
	}
	if m.latency {
		buckets := make([]uint64, histBucketCount)
		for i := range m.login {
			buckets[i] = m.login[i].Load()
		}
		s.Histograms[MetricLoginLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range loginLatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(loginLatencyBounds)
}
