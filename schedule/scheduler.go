// Package schedule implements the periodic-firing scheduler (C7) that drives
// auto-events and discovery by submitting actions onto the worker pool at a
// fixed interval, with drift correction toward the interval rather than
// wall-clock catch-up bursts.
package schedule

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fieldlink/adapter-sdk/workerpool"
)

// Task describes one scheduled action: submit Action to the pool every
// Interval, starting at StartAt, for Repeats firings (0 means forever).
type Task struct {
	Name     string
	Interval time.Duration
	StartAt  time.Time
	Repeats  int
	Action   func()

	fired int
	next  time.Time
}

// Scheduler runs a single goroutine that wakes for the next due task,
// submits it to the pool, and recomputes its next-due time.
type Scheduler struct {
	pool *workerpool.Pool

	mu      sync.Mutex
	tasks   []*Task
	stop    chan struct{}
	stopped bool
	started bool
}

// New creates a Scheduler that submits fired tasks to pool.
func New(pool *workerpool.Pool) *Scheduler {
	return &Scheduler{
		pool: pool,
		stop: make(chan struct{}),
	}
}

// Add registers a new scheduled task. It may be called before or after
// Start; a task added while the scheduler is sleeping is first considered
// when the scheduler next wakes.
func (s *Scheduler) Add(t *Task) {
	if t.StartAt.IsZero() {
		t.StartAt = time.Now()
	}
	t.next = t.StartAt

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// Start begins the scheduler loop. Start is idempotent: calling it more than
// once has no additional effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
}

// Stop cancels the scheduler's sleeper and prevents further submissions.
// Tasks already submitted to the pool are allowed to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
}

// run is the scheduler's single thread: it sleeps until the next due time
// across all tasks, fires whatever is due, and recomputes.
func (s *Scheduler) run() {
	log.Info("[scheduler] starting")
	for {
		wait := s.untilNextDue()

		select {
		case <-s.stop:
			log.Info("[scheduler] stopped")
			return
		case <-time.After(wait):
			s.fireDue()
		}
	}
}

// untilNextDue computes the duration to sleep until the earliest due task.
// With no live tasks it returns a modest poll interval so Add() calls made
// after Start() are eventually picked up.
func (s *Scheduler) untilNextDue() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var earliest time.Time
	for _, t := range s.tasks {
		if t.Repeats != 0 && t.fired >= t.Repeats {
			continue
		}
		if earliest.IsZero() || t.next.Before(earliest) {
			earliest = t.next
		}
	}
	if earliest.IsZero() {
		return time.Second
	}
	if earliest.Before(now) {
		return 0
	}
	return earliest.Sub(now)
}

// fireDue submits every task whose next-due time has passed, then recomputes
// next-due as max(now, previous+interval) — drift correction toward the
// interval rather than bursty wall-clock catch-up.
func (s *Scheduler) fireDue() {
	now := time.Now()

	s.mu.Lock()
	var due []*Task
	for _, t := range s.tasks {
		if t.Repeats != 0 && t.fired >= t.Repeats {
			continue
		}
		if !t.next.After(now) {
			due = append(due, t)
			t.fired++

			next := t.next.Add(t.Interval)
			if next.Before(now) {
				next = now
			}
			t.next = next
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		action := t.Action
		name := t.Name
		s.pool.Submit(func() {
			log.WithField("task", name).Debug("[scheduler] firing scheduled task")
			action()
		})
	}
}
