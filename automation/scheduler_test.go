package automation

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"shophand/logging"
)

var t0 = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	m.Run()
}

func noop(context.Context, time.Time) {}

func TestSchedulerRunsTasksWhenDue(t *testing.T) {
	s := NewScheduler(t0)
	s.Add(Task{Name: "fast", Interval: 10 * time.Second, Run: noop})
	s.Add(Task{Name: "slow", Interval: 30 * time.Second, Run: noop})
	ctx := context.Background()

	steps := []struct {
		at   time.Duration
		want []string
	}{
		{5 * time.Second, []string{}},
		{10 * time.Second, []string{"fast"}},
		{15 * time.Second, []string{}},
		{30 * time.Second, []string{"fast", "slow"}},
		{35 * time.Second, []string{}},
		{40 * time.Second, []string{"fast"}},
	}
	for _, st := range steps {
		got := s.Tick(ctx, t0.Add(st.at))
		if !slices.Equal(got, st.want) {
			t.Fatalf("tick at +%s ran %v, want %v", st.at, got, st.want)
		}
	}
}

func TestSchedulerCatchesUpOnce(t *testing.T) {
	s := NewScheduler(t0)
	runs := 0
	s.Add(Task{Name: "count", Interval: time.Second, Run: func(context.Context, time.Time) { runs++ }})

	s.Tick(context.Background(), t0.Add(time.Minute))
	if runs != 1 {
		t.Fatalf("runs = %d after a long gap, want 1", runs)
	}
	if got := s.Tick(context.Background(), t0.Add(time.Minute+500*time.Millisecond)); len(got) != 0 {
		t.Fatalf("ran %v before the next interval", got)
	}
}

func TestSchedulerSurvivesPanics(t *testing.T) {
	s := NewScheduler(t0)
	after := false
	s.Add(Task{Name: "boom", Interval: time.Second, Run: func(context.Context, time.Time) { panic("boom") }})
	s.Add(Task{Name: "after", Interval: time.Second, Run: func(context.Context, time.Time) { after = true }})

	got := s.Tick(context.Background(), t0.Add(time.Second))
	if !slices.Equal(got, []string{"boom", "after"}) || !after {
		t.Fatalf("ran %v, after=%v", got, after)
	}
}

func TestSchedulerIgnoresInvalidTasks(t *testing.T) {
	s := NewScheduler(t0)
	s.Add(Task{Name: "zero", Run: noop})
	s.Add(Task{Name: "nil", Interval: time.Second})
	if got := s.Tick(context.Background(), t0.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("ran %v", got)
	}
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	s := NewScheduler(time.Now())
	ran := make(chan struct{}, 1)
	s.Add(Task{Name: "tick", Interval: time.Millisecond, Run: func(context.Context, time.Time) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
