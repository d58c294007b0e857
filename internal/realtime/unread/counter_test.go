// internal/realtime/unread/counter_test.go
package unread

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-client/internal/common/errors"
	"collab-client/internal/common/logger"
	"collab-client/internal/platform/rest"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSnapshotAPI struct {
	snapshot    *rest.Snapshot
	snapshotErr error
	markReadErr error
	markedIDs   []string
}

func (f *fakeSnapshotAPI) NotificationsSnapshot(ctx context.Context) (*rest.Snapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeSnapshotAPI) MarkRead(ctx context.Context, ids []string) error {
	f.markedIDs = ids
	return f.markReadErr
}

// ==========================
// Snapshot Tests
// ==========================

func TestCounter_SnapshotOverwritesOptimisticIncrements(t *testing.T) {
	api := &fakeSnapshotAPI{snapshot: &rest.Snapshot{UnreadCount: 3}}
	c := NewCounter(api, logger.NewTestLogger(t))

	c.IncrementOptimistic()
	c.IncrementOptimistic()
	c.IncrementOptimistic()
	c.IncrementOptimistic()
	c.IncrementOptimistic()
	require.Equal(t, 5, c.Count())

	// The snapshot is authoritative regardless of which value is larger.
	c.FetchSnapshot(context.Background())
	assert.Equal(t, 3, c.Count())
}

func TestCounter_SnapshotFailureKeepsDisplayedCount(t *testing.T) {
	api := &fakeSnapshotAPI{snapshotErr: stderrors.New("service unavailable")}
	c := NewCounter(api, logger.NewTestLogger(t))

	c.IncrementOptimistic()
	c.IncrementOptimistic()

	c.FetchSnapshot(context.Background())
	assert.Equal(t, 2, c.Count())
}

func TestCounter_OnChangeFiresPerMutation(t *testing.T) {
	api := &fakeSnapshotAPI{snapshot: &rest.Snapshot{UnreadCount: 7}}
	c := NewCounter(api, logger.NewTestLogger(t))

	var seen []int
	c.OnChange(func(count int) {
		seen = append(seen, count)
	})

	c.IncrementOptimistic()
	c.FetchSnapshot(context.Background())
	c.Reset()

	assert.Equal(t, []int{1, 7, 0}, seen)
}

// ==========================
// Mark-All-Read Tests
// ==========================

func TestCounter_MarkAllRead(t *testing.T) {
	api := &fakeSnapshotAPI{
		snapshot: &rest.Snapshot{
			UnreadCount: 2,
			Items: []rest.NotificationItem{
				{ID: "n1", Read: false},
				{ID: "n2", Read: true},
				{ID: "n3", Read: false},
			},
		},
	}
	c := NewCounter(api, logger.NewTestLogger(t))
	c.FetchSnapshot(context.Background())

	err := c.MarkAllRead(context.Background())
	require.NoError(t, err)

	// Only the unread items from the snapshot go to the server.
	assert.Equal(t, []string{"n1", "n3"}, api.markedIDs)
	assert.Equal(t, 0, c.Count())
}

func TestCounter_MarkAllReadFailureSurfacedAndCountKept(t *testing.T) {
	api := &fakeSnapshotAPI{
		snapshot:    &rest.Snapshot{UnreadCount: 4},
		markReadErr: stderrors.New("boom"),
	}
	c := NewCounter(api, logger.NewTestLogger(t))
	c.FetchSnapshot(context.Background())

	err := c.MarkAllRead(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMarkReadFailed))
	assert.Equal(t, 4, c.Count())
}
