// Package automation runs the periodic simulation tasks behind the business
// dashboard. Time is explicit: Tick takes the current time, so tests advance
// a virtual clock instead of sleeping.
package automation

import (
	"context"
	"sync"
	"time"

	"shophand/logging"
)

type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time)
}

type scheduled struct {
	Task
	next time.Time
}

type Scheduler struct {
	mu    sync.Mutex
	tasks []*scheduled
	last  time.Time
}

// NewScheduler starts the clock at start; a task added now first runs at
// start + Interval.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{last: start}
}

func (s *Scheduler) Add(t Task) {
	if t.Interval <= 0 || t.Run == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &scheduled{Task: t, next: s.last.Add(t.Interval)})
}

// Tick runs every task due at now, in registration order, and returns their
// names. A task that fell several intervals behind runs once.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	due := []*scheduled{}
	for _, t := range s.tasks {
		if !t.next.After(now) {
			due = append(due, t)
			t.next = now.Add(t.Interval)
		}
	}
	if now.After(s.last) {
		s.last = now
	}
	s.mu.Unlock()

	ran := make([]string, 0, len(due))
	for _, t := range due {
		s.runTask(ctx, t.Task, now)
		ran = append(ran, t.Name)
	}
	return ran
}

func (s *Scheduler) runTask(ctx context.Context, t Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(nil, "automation.task_panic", nil, map[string]any{"task": t.Name, "panic": r})
		}
	}()
	t.Run(ctx, now)
}

// Run ticks with wall-clock time every resolution until ctx is done
func (s *Scheduler) Run(ctx context.Context, resolution time.Duration) {
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}
