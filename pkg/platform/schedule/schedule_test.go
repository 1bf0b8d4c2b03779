package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_RunsOnInterval(t *testing.T) {
	var ticks atomic.Int32
	task := NewTask(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	task.Start(context.Background())
	defer task.Stop()

	require.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond)
	assert.True(t, task.IsRunning())
}

func TestTask_StopHaltsTicks(t *testing.T) {
	var ticks atomic.Int32
	task := NewTask(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	task.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)

	task.Stop()
	assert.False(t, task.IsRunning())

	seen := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	// At most one in-flight tick may land after Stop.
	assert.LessOrEqual(t, ticks.Load(), seen+1)
}

func TestTask_StopFromWithinTick(t *testing.T) {
	var task *Task
	var ticks atomic.Int32
	task = NewTask(5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
		task.Stop()
	})

	task.Start(context.Background())
	require.Eventually(t, func() bool { return !task.IsRunning() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load())
}

func TestTask_StartIsIdempotent(t *testing.T) {
	var ticks atomic.Int32
	task := NewTask(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	task.Start(context.Background())
	task.Start(context.Background())
	defer task.Stop()

	time.Sleep(35 * time.Millisecond)
	// A doubled loop would roughly double the tick count.
	assert.LessOrEqual(t, ticks.Load(), int32(4))
}

func TestTask_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask(5*time.Millisecond, func(context.Context) {})

	task.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !task.IsRunning() }, time.Second, 5*time.Millisecond)
}
