package automation

import (
	"sync"
	"time"
)

const scalingLogLimit = 50

// Snapshot is a copy of the simulated platform metrics
type Snapshot struct {
	PricingMultiplier float64   `json:"pricingMultiplier"`
	UptimePercent     float64   `json:"uptimePercent"`
	AvgResponseMs     float64   `json:"avgResponseMs"`
	ActiveUsers       int       `json:"activeUsers"`
	Instances         int       `json:"instances"`
	HealthStatus      string    `json:"healthStatus"`
	ScalingLog        []string  `json:"scalingLog"`
	LastHealthCheck   time.Time `json:"lastHealthCheck"`
	LastOptimization  time.Time `json:"lastOptimization"`
	ObservedRequests  int64     `json:"observedRequests"`
}

type Metrics struct {
	mu   sync.RWMutex
	snap Snapshot

	// request latencies observed since the last performance pass
	reqCount int64
	reqTotal time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{snap: Snapshot{
		PricingMultiplier: 1.0,
		UptimePercent:     99.9,
		AvgResponseMs:     120,
		ActiveUsers:       150,
		Instances:         2,
		HealthStatus:      "healthy",
		ScalingLog:        []string{},
	}}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snap
	s.ScalingLog = append([]string(nil), m.snap.ScalingLog...)
	return s
}

// ObserveRequest feeds a served request's latency into the next performance pass
func (m *Metrics) ObserveRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqCount++
	m.reqTotal += latency
	m.snap.ObservedRequests++
}

func (m *Metrics) update(fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
}

// drainLatency returns the mean observed latency in ms and resets the window
func (m *Metrics) drainLatency() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reqCount == 0 {
		return 0, false
	}
	avg := float64(m.reqTotal.Microseconds()) / float64(m.reqCount) / 1000
	m.reqCount, m.reqTotal = 0, 0
	return avg, true
}

func (s *Snapshot) logScaling(line string) {
	s.ScalingLog = append(s.ScalingLog, line)
	if n := len(s.ScalingLog); n > scalingLogLimit {
		s.ScalingLog = append([]string(nil), s.ScalingLog[n-scalingLogLimit:]...)
	}
}
