package workqueue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptime-industries/gboxfan-agent/pkg/util"
	"github.com/uptime-industries/gboxfan-agent/pkg/workqueue"
)

func runQueue(t *testing.T, q *workqueue.Queue) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := q.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return cancel
}

func TestQueue_ScheduleImmediate(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{Workers: 2})
	runQueue(t, q)

	done := make(chan struct{})
	_, err := q.Schedule(0, func() { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("immediate work did not run")
	}
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueue_ScheduleBeforeRun(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{})

	var ran atomic.Bool
	_, err := q.Schedule(0, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.Equal(t, 1, q.Pending())

	runQueue(t, q)
	assert.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
}

func TestQueue_CancelDelayed(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{})
	runQueue(t, q)

	var ran atomic.Bool
	task, err := q.Schedule(20*time.Millisecond, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.Equal(t, 1, q.Pending())

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second cancel is a no-op")
	assert.Equal(t, 0, q.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestQueue_CancelQueued(t *testing.T) {
	t.Parallel()

	// Not running: the work stays queued until cancelled
	q := workqueue.New(workqueue.Opts{})

	var ran atomic.Bool
	task, err := q.Schedule(0, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.True(t, task.Cancel())

	runQueue(t, q)
	time.Sleep(30 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestQueue_CancelAfterRun(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{})
	runQueue(t, q)

	done := make(chan struct{})
	task, err := q.Schedule(0, func() { close(done) })
	require.NoError(t, err)
	<-done

	assert.Eventually(t, func() bool { return !task.Cancel() }, time.Second, 5*time.Millisecond)
}

func TestQueue_Full(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{MaxPending: 2})

	_, err := q.Schedule(time.Hour, func() {})
	require.NoError(t, err)
	task, err := q.Schedule(time.Hour, func() {})
	require.NoError(t, err)

	_, err = q.Schedule(time.Hour, func() {})
	assert.ErrorIs(t, err, workqueue.ErrQueueFull)

	// cancelling frees a slot
	task.Cancel()
	_, err = q.Schedule(time.Hour, func() {})
	assert.NoError(t, err)
}

func TestQueue_ClosedAfterRun(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{})
	_, err := q.Schedule(time.Hour, func() {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Run(ctx), context.Canceled)

	assert.Equal(t, 0, q.Pending())
	_, err = q.Schedule(0, func() {})
	assert.ErrorIs(t, err, workqueue.ErrQueueClosed)
}

func TestQueue_PanicDoesNotStopWorker(t *testing.T) {
	t.Parallel()

	q := workqueue.New(workqueue.Opts{})
	runQueue(t, q)

	_, err := q.Schedule(0, func() { panic("boom") })
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = q.Schedule(0, func() { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker stopped after panic")
	}
}

func TestQueue_UsesClockForDelays(t *testing.T) {
	t.Parallel()

	clock := &util.MockClock{}
	timer := &util.MockTimer{}
	timer.On("Stop").Return(true)

	var fire func()
	clock.On("AfterFunc", 30*time.Second, mock.Anything).
		Run(func(args mock.Arguments) { fire = args.Get(1).(func()) }).
		Return(timer)

	q := workqueue.New(workqueue.Opts{Clock: clock})
	runQueue(t, q)

	done := make(chan struct{})
	_, err := q.Schedule(30*time.Second, func() { close(done) })
	require.NoError(t, err)
	require.NotNil(t, fire)
	clock.AssertExpectations(t)

	fire()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work did not run after timer fired")
	}
}
