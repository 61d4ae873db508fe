// Package dispatch provides single-threaded task loops standing in for the
// content and compositing threads of a page view.
//
// A Loop runs posted tasks one at a time in FIFO order. It either owns a
// goroutine (Start/Stop) or is pumped by its owner with RunPending, which is
// how tests drive the content role deterministically.
//
// Send is the only blocking cross-loop call: the caller stalls until the
// target loop has run the task, so everything the task reads was written
// before the call and is owned by the target afterwards.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLoopStopped is returned when a loop stops before running a task.
var ErrLoopStopped = errors.New("dispatch: loop stopped")

// Task is a unit of work run on a loop.
type Task func()

// Loop is a FIFO task queue executed by a single goroutine at a time.
//
// Thread-safety: Post, Send, Pending and Stop are safe for concurrent use.
// RunPending must only be called by the goroutine that owns an unstarted loop.
type Loop struct {
	name string

	mu       sync.Mutex
	cond     *sync.Cond // signals run when the queue grows or on shutdown
	queue    []Task
	stopped  bool
	executed uint64

	quit     chan struct{} // closed once on shutdown
	quitOnce sync.Once

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // tracks run
	started bool
}

// NewLoop creates an idle loop. Name is used in error messages.
func NewLoop(name string) *Loop {
	l := &Loop{
		name: name,
		quit: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string { return l.name }

// Start spawns the goroutine that runs posted tasks until ctx is cancelled or
// Stop is called. A loop can be started once.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("dispatch: loop %s already started", l.name)
	}
	if l.stopped {
		return fmt.Errorf("dispatch: start %s: %w", l.name, ErrLoopStopped)
	}

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	context.AfterFunc(l.ctx, l.shutdown)

	l.wg.Add(1)
	go l.run()
	return nil
}

// Stop shuts the loop down and waits for a running task to return. Queued
// tasks are dropped. Idempotent.
func (l *Loop) Stop() {
	l.shutdown()

	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.cond.Broadcast()
	l.mu.Unlock()

	l.quitOnce.Do(func() { close(l.quit) })
}

// Post queues task without waiting. Posting to a stopped loop drops the task
// and reports false.
func (l *Loop) Post(task Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return false
	}
	l.queue = append(l.queue, task)
	l.cond.Signal()
	return true
}

// Send queues task and blocks until it has run, the loop stops, or ctx is done.
// Calling Send from a task running on the same loop deadlocks.
func (l *Loop) Send(ctx context.Context, task Task) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		task()
	}) {
		return fmt.Errorf("dispatch: send to %s: %w", l.name, ErrLoopStopped)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		// A task already running finishes before Stop returns.
		l.wg.Wait()
		select {
		case <-done:
			return nil
		default:
			return fmt.Errorf("dispatch: send to %s: %w", l.name, ErrLoopStopped)
		}
	}
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted while draining. It returns the number run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		task, ok := l.next(false)
		if !ok {
			return n
		}
		task()
		n++
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Executed returns the number of tasks dequeued so far.
func (l *Loop) Executed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executed
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		task, ok := l.next(true)
		if !ok {
			return
		}
		task()
	}
}

// next pops the head task. With wait set it blocks until a task arrives or
// the loop shuts down.
func (l *Loop) next(wait bool) (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.queue) == 0 {
		if !wait || l.stopped {
			return nil, false
		}
		l.cond.Wait()
	}
	if l.stopped {
		return nil, false
	}

	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.executed++
	return task, true
}
