// internal/realtime/unread/counter.go

// Package unread reconciles the displayed unread notification count. A REST
// snapshot is authoritative and overwrites unconditionally; live events
// bump the count optimistically between snapshots. The count is advisory: a
// push racing an in-flight snapshot can be double-counted or absorbed, and
// no merge-by-timestamp correction is attempted.
package unread

import (
	"context"
	"sync"

	"collab-client/internal/common/errors"
	"collab-client/internal/common/logger"
	"collab-client/internal/common/metrics"
	"collab-client/internal/platform/rest"
)

// SnapshotAPI is the REST slice the counter consumes.
type SnapshotAPI interface {
	NotificationsSnapshot(ctx context.Context) (*rest.Snapshot, error)
	MarkRead(ctx context.Context, ids []string) error
}

// Counter tracks the displayed unread count.
type Counter struct {
	mu        sync.Mutex
	count     int
	unreadIDs []string
	api       SnapshotAPI
	logger    logger.Logger
	errs      *errors.ErrorHandler
	onChange  func(int)
}

func NewCounter(api SnapshotAPI, log logger.Logger) *Counter {
	scoped := log.WithFields(map[string]interface{}{"component": "unread"})
	return &Counter{
		api:    api,
		logger: scoped,
		errs:   errors.NewErrorHandler(scoped),
	}
}

// OnChange registers the single change callback, invoked with the new count
// after every mutation.
func (c *Counter) OnChange(fn func(int)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Count returns the currently displayed count.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// FetchSnapshot pulls the authoritative count and overwrites the displayed
// value, discarding any optimistic increments accumulated since the last
// snapshot. A fetch failure leaves the displayed count untouched and is
// absorbed, never propagated.
func (c *Counter) FetchSnapshot(ctx context.Context) {
	snap, err := c.api.NotificationsSnapshot(ctx)
	if err != nil {
		c.errs.Absorb(errors.NewSnapshotFetchError(err), "snapshot fetch")
		return
	}

	ids := make([]string, 0, len(snap.Items))
	for _, item := range snap.Items {
		if !item.Read {
			ids = append(ids, item.ID)
		}
	}

	c.mu.Lock()
	c.count = snap.UnreadCount
	c.unreadIDs = ids
	c.publishLocked()
	c.mu.Unlock()
}

// IncrementOptimistic bumps the displayed count by one. Called once per live
// notification event between snapshots.
func (c *Counter) IncrementOptimistic() {
	c.mu.Lock()
	c.count++
	c.publishLocked()
	c.mu.Unlock()
}

// Reset sets the count to zero. An explicit operation, never an implicit
// side effect of anything else.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.count = 0
	c.unreadIDs = nil
	c.publishLocked()
	c.mu.Unlock()
}

// MarkAllRead tells the server to mark the snapshot's unread items read,
// then resets the count. A REST failure is surfaced: mark-all-read is a
// user-initiated action.
func (c *Counter) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	ids := append([]string{}, c.unreadIDs...)
	c.mu.Unlock()

	if err := c.api.MarkRead(ctx, ids); err != nil {
		return c.errs.Surface(errors.NewMarkReadError(err), "mark-all-read")
	}

	c.Reset()
	return nil
}

// publishLocked pushes the new count to the gauge and the change callback.
// Caller holds c.mu.
func (c *Counter) publishLocked() {
	metrics.UnreadCount.Set(float64(c.count))
	if c.onChange != nil {
		c.onChange(c.count)
	}
}
