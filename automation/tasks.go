package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"shophand/logging"
)

const (
	PerformanceInterval  = 10 * time.Second
	ScalingInterval      = 30 * time.Second
	HealthInterval       = 45 * time.Second
	PricingInterval      = 60 * time.Second
	OptimizationInterval = 120 * time.Second

	maxInstances = 10
	minInstances = 1
)

// Pinger is the dependency the health task checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// Engine owns the simulated metrics and the tasks that move them
type Engine struct {
	metrics *Metrics
	health  Pinger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(metrics *Metrics, health Pinger, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{metrics: metrics, health: health, rng: rng}
}

func (e *Engine) Metrics() *Metrics { return e.metrics }

// Register adds the simulation tasks to s
func (e *Engine) Register(s *Scheduler) {
	s.Add(Task{Name: "performance", Interval: PerformanceInterval, Run: e.performance})
	s.Add(Task{Name: "scaling", Interval: ScalingInterval, Run: e.scaling})
	s.Add(Task{Name: "health", Interval: HealthInterval, Run: e.healthCheck})
	s.Add(Task{Name: "pricing", Interval: PricingInterval, Run: e.pricing})
	s.Add(Task{Name: "optimization", Interval: OptimizationInterval, Run: e.optimization})
}

// PricingMultiplier is the surge factor for the hour of now: 1.25 in the
// 7-9 and 16-19 rush hours, 0.90 overnight from 22 to 5, 1.00 otherwise.
func PricingMultiplier(now time.Time) float64 {
	switch h := now.Hour(); {
	case h >= 7 && h <= 9, h >= 16 && h <= 19:
		return 1.25
	case h >= 22 || h <= 5:
		return 0.90
	default:
		return 1.00
	}
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) float() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) performance(_ context.Context, _ time.Time) {
	avg, observed := e.metrics.drainLatency()
	if !observed {
		avg = 80 + e.float()*120
	}
	users := 50 + e.intn(451)
	e.metrics.update(func(s *Snapshot) {
		s.AvgResponseMs = math.Round(avg*10) / 10
		s.ActiveUsers = users
	})
}

func (e *Engine) scaling(_ context.Context, now time.Time) {
	var line string
	e.metrics.update(func(s *Snapshot) {
		perInstance := s.ActiveUsers / max(s.Instances, 1)
		switch {
		case perInstance > 150 && s.Instances < maxInstances:
			s.Instances++
			line = fmt.Sprintf("%s scaled up to %d instances (%d active users)", now.Format(time.RFC3339), s.Instances, s.ActiveUsers)
		case perInstance < 40 && s.Instances > minInstances:
			s.Instances--
			line = fmt.Sprintf("%s scaled down to %d instances (%d active users)", now.Format(time.RFC3339), s.Instances, s.ActiveUsers)
		default:
			return
		}
		s.logScaling(line)
	})
	if line != "" {
		logging.Info(nil, "automation.scaling", map[string]any{"decision": line})
	}
}

func (e *Engine) healthCheck(ctx context.Context, now time.Time) {
	status := "healthy"
	if e.health != nil {
		if err := e.health.Ping(ctx); err != nil {
			status = "degraded"
			logging.Warn(nil, "automation.health", map[string]any{"err": err.Error()})
		}
	}
	drift := (e.float() - 0.5) * 0.02
	e.metrics.update(func(s *Snapshot) {
		s.HealthStatus = status
		s.LastHealthCheck = now
		if status == "degraded" {
			drift = -0.05
		}
		s.UptimePercent = math.Round(math.Min(100, math.Max(95, s.UptimePercent+drift))*1000) / 1000
	})
}

func (e *Engine) pricing(_ context.Context, now time.Time) {
	m := PricingMultiplier(now)
	var changed bool
	e.metrics.update(func(s *Snapshot) {
		changed = s.PricingMultiplier != m
		s.PricingMultiplier = m
	})
	if changed {
		logging.Info(nil, "automation.pricing", map[string]any{"multiplier": m, "hour": now.Hour()})
	}
}

func (e *Engine) optimization(_ context.Context, now time.Time) {
	e.metrics.update(func(s *Snapshot) { s.LastOptimization = now })
}
