package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPendingFIFO(t *testing.T) {
	loop := NewLoop("content")

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, loop.Post(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, loop.Pending())

	n := loop.RunPending()
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Zero(t, loop.Pending())
	assert.EqualValues(t, 3, loop.Executed())
}

func TestRunPendingSeesTasksPostedWhileDraining(t *testing.T) {
	loop := NewLoop("content")

	var ran []string
	loop.Post(func() {
		ran = append(ran, "first")
		loop.Post(func() { ran = append(ran, "second") })
	})

	assert.Equal(t, 2, loop.RunPending())
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestSendBlocksUntilRun(t *testing.T) {
	loop := NewLoop("compositing")
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	var (
		mu    sync.Mutex
		value int
	)
	payload := []int{1, 2, 3}

	err := loop.Send(context.Background(), func() {
		mu.Lock()
		defer mu.Unlock()
		for _, v := range payload {
			value += v
		}
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 6, value, "task must have completed when Send returns")
}

func TestSendContextCancelled(t *testing.T) {
	loop := NewLoop("compositing")
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	release := make(chan struct{})
	loop.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := loop.Send(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAfterStop(t *testing.T) {
	loop := NewLoop("compositing")
	require.NoError(t, loop.Start(context.Background()))
	loop.Stop()
	loop.Stop()

	err := loop.Send(context.Background(), func() {})
	assert.True(t, errors.Is(err, ErrLoopStopped))
	assert.False(t, loop.Post(func() {}))
}

func TestStopDropsQueuedTasks(t *testing.T) {
	loop := NewLoop("content")
	loop.Post(func() { t.Fatal("must not run") })
	loop.Stop()
	assert.Zero(t, loop.RunPending())
}

func TestStartTwice(t *testing.T) {
	loop := NewLoop("compositing")
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()
	assert.Error(t, loop.Start(context.Background()))
	assert.Equal(t, "compositing", loop.Name())
}

func TestParentContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop("compositing")
	require.NoError(t, loop.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !loop.Post(func() {}) }, time.Second, 5*time.Millisecond)
	loop.Stop()
}
