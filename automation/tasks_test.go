package automation

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestPricingMultiplier(t *testing.T) {
	cases := map[int]float64{
		0: 0.90, 5: 0.90, 6: 1.00, 7: 1.25, 9: 1.25, 10: 1.00,
		15: 1.00, 16: 1.25, 19: 1.25, 20: 1.00, 21: 1.00, 22: 0.90, 23: 0.90,
	}
	for hour, want := range cases {
		at := time.Date(2024, 5, 14, hour, 30, 0, 0, time.UTC)
		if got := PricingMultiplier(at); got != want {
			t.Errorf("hour %d: multiplier = %.2f, want %.2f", hour, got, want)
		}
	}
}

func newTestEngine(p Pinger) *Engine {
	return NewEngine(NewMetrics(), p, rand.New(rand.NewSource(1)))
}

func TestScalingFollowsLoad(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	e.metrics.update(func(s *Snapshot) { s.ActiveUsers, s.Instances = 400, 2 })
	e.scaling(ctx, t0)
	if got := e.metrics.Snapshot(); got.Instances != 3 || len(got.ScalingLog) != 1 || !strings.Contains(got.ScalingLog[0], "scaled up") {
		t.Fatalf("after load spike: %+v", got)
	}

	e.metrics.update(func(s *Snapshot) { s.ActiveUsers = 60 })
	e.scaling(ctx, t0)
	if got := e.metrics.Snapshot(); got.Instances != 2 {
		t.Fatalf("instances = %d, want 2 after load drop", got.Instances)
	}

	e.metrics.update(func(s *Snapshot) { s.ActiveUsers, s.Instances = 10, 1 })
	e.scaling(ctx, t0)
	if got := e.metrics.Snapshot(); got.Instances != 1 {
		t.Fatalf("scaled below the minimum: %d", got.Instances)
	}

	e.metrics.update(func(s *Snapshot) { s.ActiveUsers, s.Instances = 5000, 10 })
	e.scaling(ctx, t0)
	if got := e.metrics.Snapshot(); got.Instances != 10 {
		t.Fatalf("scaled above the maximum: %d", got.Instances)
	}
}

func TestScalingLogIsCapped(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < scalingLogLimit+20; i++ {
		m.update(func(s *Snapshot) { s.logScaling(time.Duration(i).String()) })
	}
	log := m.Snapshot().ScalingLog
	if len(log) != scalingLogLimit {
		t.Fatalf("log length = %d", len(log))
	}
	if log[len(log)-1] != time.Duration(scalingLogLimit+19).String() {
		t.Fatalf("newest entry = %q", log[len(log)-1])
	}
}

func TestPerformanceUsesObservedLatency(t *testing.T) {
	e := newTestEngine(nil)
	e.metrics.ObserveRequest(10 * time.Millisecond)
	e.metrics.ObserveRequest(30 * time.Millisecond)

	e.performance(context.Background(), t0)
	got := e.metrics.Snapshot()
	if got.AvgResponseMs != 20 {
		t.Fatalf("avg response = %v, want 20", got.AvgResponseMs)
	}
	if got.ObservedRequests != 2 {
		t.Fatalf("observed = %d", got.ObservedRequests)
	}
	if got.ActiveUsers < 50 || got.ActiveUsers > 500 {
		t.Fatalf("active users = %d", got.ActiveUsers)
	}

	// window drained: the next pass falls back to simulation
	e.performance(context.Background(), t0)
	if avg := e.metrics.Snapshot().AvgResponseMs; avg < 80 || avg > 200 {
		t.Fatalf("simulated avg = %v", avg)
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	var fail error
	e := newTestEngine(pingerFunc(func(context.Context) error { return fail }))

	e.healthCheck(context.Background(), t0)
	got := e.metrics.Snapshot()
	if got.HealthStatus != "healthy" || !got.LastHealthCheck.Equal(t0) {
		t.Fatalf("healthy pass: %+v", got)
	}

	fail = errors.New("db down")
	before := got.UptimePercent
	e.healthCheck(context.Background(), t0.Add(HealthInterval))
	got = e.metrics.Snapshot()
	if got.HealthStatus != "degraded" || got.UptimePercent >= before {
		t.Fatalf("degraded pass: %+v (uptime before %v)", got, before)
	}
}

func TestEngineTasksThroughScheduler(t *testing.T) {
	e := newTestEngine(nil)
	rush := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
	s := NewScheduler(rush)
	e.Register(s)
	ran := s.Tick(context.Background(), rush.Add(OptimizationInterval))
	if len(ran) != 5 {
		t.Fatalf("ran %v, want every task", ran)
	}
	got := e.Metrics().Snapshot()
	if got.PricingMultiplier != 1.25 {
		t.Fatalf("multiplier = %v at rush hour", got.PricingMultiplier)
	}
	if !got.LastOptimization.Equal(rush.Add(OptimizationInterval)) {
		t.Fatalf("last optimization = %v", got.LastOptimization)
	}
}
