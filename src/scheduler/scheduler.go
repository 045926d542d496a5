package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInboxFull is returned when a closure cannot be queued without blocking.
var ErrInboxFull = errors.New("scheduler inbox full")

type task struct {
	name     string
	interval time.Duration
	next     time.Time
	fn       func(now time.Time)
	runs     uint64
	skipped  uint64
}

// TaskStats describes one periodic task.
type TaskStats struct {
	Name     string
	Interval time.Duration
	Runs     uint64
	Skipped  uint64
}

// Scheduler owns a set of periodic tasks and an inbox of closures. Everything
// it runs executes on the goroutine calling Run (or RunDue/Drain in tests),
// so the state those closures touch needs no locking.
type Scheduler struct {
	clock Clock
	start time.Time
	inbox chan func()

	mu    sync.Mutex
	tasks []*task
}

// New creates a scheduler whose time origin is clock.Now().
func New(clock Clock, inboxSize int) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if inboxSize <= 0 {
		inboxSize = 64
	}
	return &Scheduler{
		clock: clock,
		start: clock.Now(),
		inbox: make(chan func(), inboxSize),
	}
}

// Elapsed is the time since the scheduler was created.
func (s *Scheduler) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}

// Every registers fn to run each interval, first at the next RunDue.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(now time.Time)) {
	if interval <= 0 {
		panic("scheduler: non-positive interval for " + name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &task{
		name:     name,
		interval: interval,
		next:     s.clock.Now(),
		fn:       fn,
	})
}

// Post queues fn without blocking.
func (s *Scheduler) Post(fn func()) error {
	select {
	case s.inbox <- fn:
		return nil
	default:
		return ErrInboxFull
	}
}

// Call queues fn and waits for it to finish on the scheduler goroutine.
func (s *Scheduler) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.inbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunDue runs every task whose deadline has passed and returns how many ran.
// A task that fell several intervals behind runs once; the missed
// deadlines are skipped.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !t.next.After(now) {
			behind := now.Sub(t.next) / t.interval
			t.skipped += uint64(behind)
			t.next = t.next.Add((behind + 1) * t.interval)
			t.runs++
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn(now)
	}
	return len(due)
}

// Drain runs queued closures until the inbox is empty.
func (s *Scheduler) Drain() int {
	n := 0
	for {
		select {
		case fn := <-s.inbox:
			fn()
			n++
		default:
			return n
		}
	}
}

// Stats reports per-task counters.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make([]TaskStats, 0, len(s.tasks))
	for _, t := range s.tasks {
		stats = append(stats, TaskStats{Name: t.name, Interval: t.interval, Runs: t.runs, Skipped: t.skipped})
	}
	return stats
}

func (s *Scheduler) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	for i, t := range s.tasks {
		if i == 0 || t.next.Before(next) {
			next = t.next
		}
	}
	return next, len(s.tasks) > 0
}

// Run drives tasks and closures until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		s.RunDue()

		wait := time.Hour
		if next, ok := s.nextDeadline(); ok {
			wait = max(0, next.Sub(s.clock.Now()))
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.inbox:
			fn()
		case <-timer.C:
		}
	}
}
