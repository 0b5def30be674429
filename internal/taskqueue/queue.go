// Package taskqueue is an in-process named task queue. Tasks are dispatched
// by name with JSON arguments and executed by a fixed pool of workers.
// Dispatch never waits for the task to run.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrQueueClosed = errors.New("queue closed")
)

// HandlerFunc executes one task with its JSON-encoded arguments.
type HandlerFunc func(ctx context.Context, args json.RawMessage) error

// Status is the lifecycle position of a dispatched task.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Handle identifies a dispatched task.
type Handle struct {
	ID   uuid.UUID
	Task string
}

type task struct {
	Handle
	args json.RawMessage
}

// Queue holds registered handlers and pending tasks.
type Queue struct {
	logger  logging.Logger
	workers int

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	pending  []*task
	status   map[uuid.UUID]Status
	inflight int
	idle     chan struct{}
	closed   bool

	wake chan struct{}
	done chan struct{}
}

// New returns a queue executed by the given number of workers once Run is
// called. Fewer than one worker means one.
func New(workers int, logger logging.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		logger:   logger.With("module", "taskqueue"),
		workers:  workers,
		handlers: make(map[string]HandlerFunc),
		status:   make(map[uuid.UUID]Status),
		idle:     idle,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Register binds name to h, replacing any previous handler.
func (q *Queue) Register(name string, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Dispatch encodes args as JSON and enqueues a task for name.
func (q *Queue) Dispatch(ctx context.Context, name string, args any) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return Handle{}, fmt.Errorf("encode %s args: %w", name, err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Handle{}, ErrQueueClosed
	}
	if _, ok := q.handlers[name]; !ok {
		q.mu.Unlock()
		return Handle{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	t := &task{Handle: Handle{ID: uuid.New(), Task: name}, args: raw}
	q.pending = append(q.pending, t)
	q.status[t.ID] = StatusPending
	if q.inflight == 0 {
		q.idle = make(chan struct{})
	}
	q.inflight++
	q.mu.Unlock()

	tasksPending.Inc()
	q.signal()
	q.logger.Debug(ctx, "task dispatched", "task", name, "id", t.ID.String())
	return t.Handle, nil
}

// Status reports the state of a dispatched task.
func (q *Queue) Status(h Handle) Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.status[h.ID]; ok {
		return s
	}
	return StatusUnknown
}

// Wait blocks until no task is pending or running, or ctx is done. Tasks
// dispatched by running tasks are waited for as well.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Workers finish what is already queued and
// then Run returns.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Run starts the workers and blocks until the queue is closed and drained,
// or ctx is done. A done ctx stops workers from taking new tasks but does
// not cancel running ones.
func (q *Queue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		t, h, ok := q.next(ctx)
		if !ok {
			return
		}
		q.execute(context.WithoutCancel(ctx), t, h)
	}
}

// next pops the oldest pending task, waiting for one if needed.
func (q *Queue) next(ctx context.Context) (*task, HandlerFunc, bool) {
	for {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		q.mu.Lock()
		if len(q.pending) > 0 {
			t := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.status[t.ID] = StatusRunning
			h := q.handlers[t.Task]
			more := len(q.pending) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return t, h, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, nil, false
		}

		select {
		case <-q.wake:
		case <-q.done:
		case <-ctx.Done():
			return nil, nil, false
		}
	}
}

func (q *Queue) execute(ctx context.Context, t *task, h HandlerFunc) {
	result := StatusSucceeded
	label := "succeeded"

	err := q.invoke(ctx, t, h)
	if err != nil {
		result = StatusFailed
		label = "failed"
		q.logger.Error(ctx, "task failed", "task", t.Task, "id", t.ID.String(), "error", err)
	}

	tasksTotal.WithLabelValues(t.Task, label).Inc()
	tasksPending.Dec()

	q.mu.Lock()
	q.status[t.ID] = result
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
	q.mu.Unlock()
}

func (q *Queue) invoke(ctx context.Context, t *task, h HandlerFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Task, p)
		}
	}()
	return h(ctx, t.args)
}
