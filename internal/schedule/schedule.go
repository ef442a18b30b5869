// Package schedule runs one-shot delayed tasks keyed by the object they affect,
// so a later event can cancel, pause or resume a pending task deterministically.
package schedule

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

type task struct {
	fn        func()
	remaining time.Duration
	startedAt time.Time
	timer     Timer
	paused    bool
	gen       uint64
}

type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	gen   uint64
	now   func() time.Time
	after AfterFunc
}

func New() *Scheduler {
	return NewWithClock(time.Now, func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) })
}

// NewWithClock is New with an injectable clock and timer source.
func NewWithClock(now func() time.Time, after AfterFunc) *Scheduler {
	return &Scheduler{tasks: map[string]*task{}, now: now, after: after}
}

// Schedule runs fn once after d. A task already pending under key is replaced.
func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tasks[key]; ok && old.timer != nil {
		old.timer.Stop()
	}
	t := &task{fn: fn, remaining: d}
	s.tasks[key] = t
	s.start(key, t)
}

// start must be called with mu held.
func (s *Scheduler) start(key string, t *task) {
	s.gen++
	gen := s.gen
	t.gen = gen
	t.startedAt = s.now()
	t.timer = s.after(t.remaining, func() { s.fire(key, gen) })
}

func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if !ok || t.gen != gen || t.paused {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.mu.Unlock()
	t.fn()
}

// Cancel drops the pending task under key. It reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	delete(s.tasks, key)
	return true
}

// Pause stops the clock on a pending task, keeping what is left of its delay.
func (s *Scheduler) Pause(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok || t.paused {
		return false
	}
	t.timer.Stop()
	t.remaining -= s.now().Sub(t.startedAt)
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.paused = true
	return true
}

// Resume restarts a paused task with its remaining delay.
func (s *Scheduler) Resume(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok || !t.paused {
		return false
	}
	t.paused = false
	s.start(key, t)
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Remaining reports how long until the task under key fires.
func (s *Scheduler) Remaining(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return 0, false
	}
	if t.paused {
		return t.remaining, true
	}
	left := t.remaining - s.now().Sub(t.startedAt)
	if left < 0 {
		left = 0
	}
	return left, true
}
