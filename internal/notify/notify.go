// Package notify keeps the transient toast notifications shown to each browser
// session. Toasts hide themselves after their duration unless paused.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"shopfront/internal/schedule"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

var icons = map[Kind]string{
	KindSuccess: "check-circle",
	KindError:   "exclamation-circle",
	KindWarning: "exclamation-triangle",
	KindInfo:    "info-circle",
}

type Toast struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Kind     Kind          `json:"kind"`
	Icon     string        `json:"icon"`
	Duration time.Duration `json:"-"`
	// RemainingMs is filled in by List.
	RemainingMs int64 `json:"remainingMs"`
	Paused      bool  `json:"paused"`
}

func Success(title, msg string) Toast { return Toast{Title: title, Message: msg, Kind: KindSuccess} }
func Error(title, msg string) Toast   { return Toast{Title: title, Message: msg, Kind: KindError} }
func Warning(title, msg string) Toast { return Toast{Title: title, Message: msg, Kind: KindWarning} }
func Info(title, msg string) Toast    { return Toast{Title: title, Message: msg, Kind: KindInfo} }

// DefaultMaxHold caps how long a paused toast stays, in case the resume never
// comes (the tab was closed mid-hover).
const DefaultMaxHold = 30 * time.Second

type Center struct {
	// MaxHold is how long a toast may stay paused before it is dropped.
	MaxHold time.Duration

	mu       sync.Mutex
	sched    *schedule.Scheduler
	duration time.Duration
	toasts   map[string][]*Toast
}

func NewCenter(sched *schedule.Scheduler, defaultDuration time.Duration) *Center {
	if defaultDuration <= 0 {
		defaultDuration = 3 * time.Second
	}
	return &Center{MaxHold: DefaultMaxHold, sched: sched, duration: defaultDuration, toasts: map[string][]*Toast{}}
}

func taskKey(sessionID, id string) string { return "toast:" + sessionID + ":" + id }
func holdKey(sessionID, id string) string { return "toast-hold:" + sessionID + ":" + id }

// Push queues t for the session and arms its auto-hide timer.
func (c *Center) Push(sessionID string, t Toast) Toast {
	t.ID = uuid.NewString()
	if t.Kind == "" {
		t.Kind = KindInfo
	}
	if icon, ok := icons[t.Kind]; ok {
		t.Icon = icon
	} else {
		t.Icon = icons[KindInfo]
	}
	if t.Duration <= 0 {
		t.Duration = c.duration
	}
	stored := t

	c.mu.Lock()
	c.toasts[sessionID] = append(c.toasts[sessionID], &stored)
	c.mu.Unlock()

	id := t.ID
	c.sched.Schedule(taskKey(sessionID, id), t.Duration, func() { c.remove(sessionID, id) })
	return t
}

func (c *Center) remove(sessionID, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.toasts[sessionID]
	for i, t := range list {
		if t.ID == id {
			c.toasts[sessionID] = append(list[:i], list[i+1:]...)
			if len(c.toasts[sessionID]) == 0 {
				delete(c.toasts, sessionID)
			}
			return true
		}
	}
	return false
}

// List returns the session's visible toasts, oldest first.
func (c *Center) List(sessionID string) []Toast {
	c.mu.Lock()
	list := make([]Toast, 0, len(c.toasts[sessionID]))
	for _, t := range c.toasts[sessionID] {
		list = append(list, *t)
	}
	c.mu.Unlock()

	for i := range list {
		if left, ok := c.sched.Remaining(taskKey(sessionID, list[i].ID)); ok {
			list[i].RemainingMs = left.Milliseconds()
		}
	}
	return list
}

// Pause holds the toast on screen while the pointer is over it, for at most
// MaxHold.
func (c *Center) Pause(sessionID, id string) bool {
	if !c.sched.Pause(taskKey(sessionID, id)) {
		return false
	}
	c.setPaused(sessionID, id, true)
	c.sched.Schedule(holdKey(sessionID, id), c.MaxHold, func() { c.Dismiss(sessionID, id) })
	return true
}

// Resume restarts the auto-hide countdown with whatever time was left.
func (c *Center) Resume(sessionID, id string) bool {
	if !c.sched.Resume(taskKey(sessionID, id)) {
		return false
	}
	c.sched.Cancel(holdKey(sessionID, id))
	c.setPaused(sessionID, id, false)
	return true
}

func (c *Center) Dismiss(sessionID, id string) bool {
	c.sched.Cancel(taskKey(sessionID, id))
	c.sched.Cancel(holdKey(sessionID, id))
	return c.remove(sessionID, id)
}

func (c *Center) setPaused(sessionID, id string, paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.toasts[sessionID] {
		if t.ID == id {
			t.Paused = paused
		}
	}
}
