// Package workqueue implements a shared delayed-work facility: callers schedule a function to
// run after a delay and may cancel it before it starts. Due work is executed by a small pool of
// workers, so many controllers can share one queue without owning a goroutine each.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"github.com/uptime-industries/gboxfan-agent/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull   = errors.New("work queue is full")
	ErrQueueClosed = errors.New("work queue is closed")
)

var (
	pendingWork = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Subsystem: "workqueue",
		Name:      "pending",
		Help:      "Number of scheduled work items that have not started yet",
	})
	executedWork = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gboxfan",
		Subsystem: "workqueue",
		Name:      "executed_total",
		Help:      "Number of executed work items",
	})
)

// Task is a handle to scheduled work.
type Task interface {
	// Cancel prevents the work from starting. It returns false if the work already started,
	// finished or was cancelled before. Work that is executing is not interrupted.
	Cancel() bool
}

// Scheduler schedules work after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (Task, error)
}

// Opts configures a Queue
type Opts struct {
	// Workers is the number of goroutines executing due work
	Workers int `mapstructure:"workers"`
	// MaxPending bounds the number of scheduled work items that have not started yet
	MaxPending int `mapstructure:"max_pending"`
	// Clock is used for delays, defaults to the real clock
	Clock util.Clock `mapstructure:"-"`
}

type workState int

const (
	stateDelayed workState = iota
	stateQueued
	stateRunning
	stateDone
	stateCancelled
)

type work struct {
	q     *Queue
	fn    func()
	timer util.Timer
	state workState
}

// Queue is a bounded delayed-work queue. It implements Scheduler.
type Queue struct {
	opts  Opts
	clock util.Clock

	mu      sync.Mutex
	pending map[*work]struct{}
	ready   []*work
	closed  bool

	wake chan struct{}
}

// fails if Queue does not implement Scheduler
var _ Scheduler = &Queue{}

// New returns a queue; work only executes while Run is active.
func New(opts Opts) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 16
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Queue{
		opts:    opts,
		clock:   clock,
		pending: make(map[*work]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Schedule runs fn after delay. A delay <= 0 queues fn for immediate execution.
func (q *Queue) Schedule(delay time.Duration, fn func()) (Task, error) {
	if fn == nil {
		return nil, fmt.Errorf("schedule: nil function")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if len(q.pending) >= q.opts.MaxPending {
		return nil, ErrQueueFull
	}

	w := &work{q: q, fn: fn}
	q.pending[w] = struct{}{}
	pendingWork.Set(float64(len(q.pending)))

	if delay <= 0 {
		q.enqueueLocked(w)
		return w, nil
	}
	w.timer = q.clock.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if w.state == stateDelayed {
			q.enqueueLocked(w)
		}
	})
	return w, nil
}

// Pending returns the number of work items that have not started yet.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run executes due work until the context is done. Afterwards the queue is closed and all
// outstanding work is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	log.FromContext(ctx).Debug("starting work queue", zap.Int("workers", q.opts.Workers))
	defer q.close()

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		group.Go(func() error {
			return q.worker(ctx)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (q *Queue) worker(ctx context.Context) error {
	for {
		w := q.next()
		if w == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-q.wake:
			}
			continue
		}
		q.execute(ctx, w)
	}
}

func (q *Queue) execute(ctx context.Context, w *work) {
	defer func() {
		if r := recover(); r != nil {
			log.FromContext(ctx).Error("work item panicked", zap.Any("panic", r))
		}
		q.mu.Lock()
		w.state = stateDone
		q.mu.Unlock()
		executedWork.Inc()
	}()
	w.fn()
}

// next pops the first queued work item, skipping cancelled ones.
func (q *Queue) next() *work {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ready) > 0 {
		w := q.ready[0]
		q.ready[0] = nil
		q.ready = q.ready[1:]
		if w.state != stateQueued {
			continue
		}
		w.state = stateRunning
		delete(q.pending, w)
		pendingWork.Set(float64(len(q.pending)))
		if len(q.ready) > 0 {
			q.signal()
		}
		return w
	}
	return nil
}

func (q *Queue) enqueueLocked(w *work) {
	w.state = stateQueued
	q.ready = append(q.ready, w)
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for w := range q.pending {
		w.cancelLocked()
	}
	q.ready = nil
	pendingWork.Set(0)
}

// Cancel implements Task.
func (w *work) Cancel() bool {
	w.q.mu.Lock()
	defer w.q.mu.Unlock()
	if w.state != stateDelayed && w.state != stateQueued {
		return false
	}
	w.cancelLocked()
	pendingWork.Set(float64(len(w.q.pending)))
	return true
}

func (w *work) cancelLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.state = stateCancelled
	delete(w.q.pending, w)
}
