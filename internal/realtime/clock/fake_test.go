// internal/realtime/clock/fake_test.go
package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	clk := NewFake()

	var fired []string
	clk.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clk.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	clk.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	clk.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, clk.PendingTimers())

	clk.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestFake_StopCancelsTimer(t *testing.T) {
	clk := NewFake()

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	clk.Advance(time.Minute)
	assert.False(t, fired)

	// Stopping twice reports the timer already gone.
	assert.False(t, timer.Stop())
}

func TestFake_CallbackMaySchedule(t *testing.T) {
	clk := NewFake()

	fired := 0
	var reschedule func()
	reschedule = func() {
		fired++
		if fired < 3 {
			clk.AfterFunc(time.Second, reschedule)
		}
	}
	clk.AfterFunc(time.Second, reschedule)

	// One Advance fires the chain: each callback lands within the window.
	clk.Advance(3 * time.Second)
	assert.Equal(t, 3, fired)
}

func TestFake_NowTracksAdvance(t *testing.T) {
	clk := NewFake()
	start := clk.Now()

	clk.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), clk.Now())
}
