// internal/realtime/toast/queue.go

// Package toast holds the ephemeral alert queue: transient notifications
// with an optional auto-expiry timer. Nothing here outlives the session.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-client/internal/common/logger"
	"collab-client/internal/common/metrics"
	"collab-client/internal/realtime/clock"
)

// Severity classifies a toast for presentation purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Toast is one transient alert. A zero Duration means the toast stays until
// dismissed manually.
type Toast struct {
	ID       string
	Severity Severity
	Title    string
	Message  string
	Duration time.Duration
}

// Queue manages the visible toast list. Each toast is removed exactly once:
// by its expiry timer or by manual dismissal, whichever happens first. The
// loser of that race finds the id already gone and does nothing.
type Queue struct {
	mu      sync.Mutex
	clock   clock.Clock
	logger  logger.Logger
	toasts  []Toast
	timers  map[string]clock.Timer
	removed func(Toast)
}

func NewQueue(clk clock.Clock, log logger.Logger) *Queue {
	return &Queue{
		clock:  clk,
		logger: log.WithFields(map[string]interface{}{"component": "toast"}),
		timers: make(map[string]clock.Timer),
	}
}

// OnRemoved registers the single removal callback. It fires exactly once per
// toast, for both expiry and manual dismissal.
func (q *Queue) OnRemoved(fn func(Toast)) {
	q.mu.Lock()
	q.removed = fn
	q.mu.Unlock()
}

// Add assigns a fresh id, inserts the toast, and arms its expiry timer when
// a duration is set. Returns the assigned id.
//
// Insertion is at the head: the newest toast is shown first. This is a
// deliberate display policy, not an accident of append order.
func (q *Queue) Add(t Toast) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	t.ID = uuid.NewString()
	q.toasts = append([]Toast{t}, q.toasts...)
	metrics.ToastsActive.Set(float64(len(q.toasts)))

	if t.Duration > 0 {
		id := t.ID
		q.timers[id] = q.clock.AfterFunc(t.Duration, func() {
			q.Remove(id)
		})
	}

	q.logger.Debug("toast added", map[string]interface{}{
		"id":       t.ID,
		"severity": string(t.Severity),
		"duration": t.Duration.String(),
	})
	return t.ID
}

// Remove takes a toast off the visible list and cancels its pending timer.
// Idempotent: removing an id twice (expiry firing right after a manual
// dismissal) is a no-op the second time and never double-fires the removed
// callback.
func (q *Queue) Remove(id string) {
	q.mu.Lock()

	idx := -1
	for i, t := range q.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}

	removed := q.toasts[idx]
	q.toasts = append(q.toasts[:idx], q.toasts[idx+1:]...)
	metrics.ToastsActive.Set(float64(len(q.toasts)))

	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	callback := q.removed
	q.mu.Unlock()

	if callback != nil {
		callback(removed)
	}
}

// Clear removes every toast and cancels all pending timers. Used on
// teardown; the removed callback does not fire.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.toasts = nil
	metrics.ToastsActive.Set(0)
}

// Active returns a copy of the visible list, newest first.
func (q *Queue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast{}, q.toasts...)
}
