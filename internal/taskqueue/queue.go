package taskqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler runs one task attempt. It receives a snapshot of the task; any
// panic is recovered at the task boundary and treated as a normal failure.
type Handler func(ctx context.Context, task Task) (any, error)

type Options struct {
	Capacity     int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// Queue schedules tasks on a bounded worker pool. Pending tasks start in
// FIFO creation order whenever a slot is free; completion order is whatever
// it is. The scheduler polls at a fixed short interval and is also woken
// directly by Submit.
type Queue struct {
	capacity     int
	pollInterval time.Duration
	retryDelay   time.Duration
	publisher    Publisher
	logger       *zap.Logger

	mu       sync.Mutex
	tasks    map[string]*Task
	handlers map[string]Handler
	active   int

	wake chan struct{}
}

func New(opts Options, publisher Publisher, logger *zap.Logger) *Queue {
	if opts.Capacity <= 0 {
		opts.Capacity = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &Queue{
		capacity:     opts.Capacity,
		pollInterval: opts.PollInterval,
		retryDelay:   opts.RetryDelay,
		publisher:    publisher,
		logger:       logger,
		tasks:        make(map[string]*Task),
		handlers:     make(map[string]Handler),
		wake:         make(chan struct{}, 1),
	}
}

// RegisterHandler binds a task kind to its body. The queue itself is
// kind-agnostic.
func (q *Queue) RegisterHandler(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// Submit enqueues a task and returns its id immediately. The only
// synchronous failure is an input error: a kind nobody registered.
func (q *Queue) Submit(kind string, payload any, groupKey string, maxRetries int) (string, error) {
	q.mu.Lock()
	if _, ok := q.handlers[kind]; !ok {
		q.mu.Unlock()
		return "", fmt.Errorf("no handler registered for task kind %q", kind)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	task := newTask(kind, payload, groupKey, maxRetries)
	q.tasks[task.ID] = task
	snap := task.snapshot()
	q.mu.Unlock()

	q.publish(Event{Type: EventEnqueued, Task: snap})
	q.logger.Info("task enqueued",
		zap.String("task_id", snap.ID),
		zap.String("kind", kind),
		zap.Int("max_retries", maxRetries))

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return task.ID, nil
}

// Get returns a snapshot of the task, or false when unknown (or evicted).
func (q *Queue) Get(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.snapshot(), true
}

// Stats returns a consistent snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

func (q *Queue) statsLocked() Stats {
	s := Stats{Capacity: q.capacity, Active: q.active}
	for _, t := range q.tasks {
		s.Total++
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Cleanup evicts terminal tasks whose completion is older than age and
// returns how many were removed. Eviction is explicit, never automatic.
func (q *Queue) Cleanup(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for id, t := range q.tasks {
		if t.Status != StatusCompleted && t.Status != StatusFailed {
			continue
		}
		if t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(q.tasks, id)
			removed++
		}
	}
	return removed
}

// Start runs the scheduler loop until ctx is canceled. In-flight tasks are
// abandoned on shutdown; there is no in-flight cancellation.
func (q *Queue) Start(ctx context.Context) {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		q.dispatch(ctx)
		select {
		case <-ticker.C:
		case <-q.wake:
		case <-ctx.Done():
			return
		}
	}
}

// dispatch starts as many schedulable pending tasks as free slots allow,
// oldest first.
func (q *Queue) dispatch(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	free := q.capacity - q.active
	if free <= 0 {
		q.mu.Unlock()
		return
	}

	var ready []*Task
	for _, t := range q.tasks {
		if t.Status == StatusPending && !t.notBefore.After(now) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	if len(ready) > free {
		ready = ready[:free]
	}

	var started []Task
	for _, t := range ready {
		t.Status = StatusProcessing
		startedAt := now
		t.StartedAt = &startedAt
		q.active++
		started = append(started, t.snapshot())
	}
	q.mu.Unlock()

	for _, snap := range started {
		q.publish(Event{Type: EventStarted, Task: snap})
		go q.run(ctx, snap)
	}
}

// run executes one attempt of a task and records the outcome.
func (q *Queue) run(ctx context.Context, snap Task) {
	q.mu.Lock()
	handler := q.handlers[snap.Kind]
	q.mu.Unlock()

	result, err := q.runHandler(ctx, handler, snap)

	now := time.Now()
	q.mu.Lock()
	task, ok := q.tasks[snap.ID]
	if !ok {
		// Evicted while running; nothing to record.
		q.active--
		q.mu.Unlock()
		return
	}

	var ev Event
	if err == nil {
		task.Status = StatusCompleted
		task.Result = result
		task.Error = ""
		task.CompletedAt = &now
		ev = Event{Type: EventCompleted, Task: task.snapshot()}
	} else {
		task.Error = err.Error()
		// RetryCount never exceeds MaxRetries: it counts retries granted,
		// and the terminal failure is not granted one.
		if task.RetryCount < task.MaxRetries {
			task.RetryCount++
			task.Status = StatusPending
			task.StartedAt = nil
			task.notBefore = now.Add(q.retryDelay)
			ev = Event{Type: EventRetried, Task: task.snapshot()}
		} else {
			task.Status = StatusFailed
			task.CompletedAt = &now
			ev = Event{Type: EventFailed, Task: task.snapshot()}
		}
	}
	q.active--
	q.mu.Unlock()

	switch ev.Type {
	case EventCompleted:
		q.logger.Info("task completed", zap.String("task_id", snap.ID), zap.String("kind", snap.Kind))
	case EventRetried:
		q.logger.Warn("task failed, will retry",
			zap.String("task_id", snap.ID),
			zap.Int("retry_count", ev.Task.RetryCount),
			zap.Int("max_retries", ev.Task.MaxRetries),
			zap.Error(err))
	case EventFailed:
		q.logger.Error("task failed permanently",
			zap.String("task_id", snap.ID),
			zap.Int("retry_count", ev.Task.RetryCount),
			zap.Error(err))
	}
	q.publish(ev)
}

// runHandler isolates the handler call so a panic inside a task body becomes
// a normal task failure, never an escaped goroutine panic.
func (q *Queue) runHandler(ctx context.Context, handler Handler, snap Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panic: %v", r)
		}
	}()
	return handler(ctx, snap)
}

func (q *Queue) publish(ev Event) {
	if q.publisher != nil {
		q.publisher.PublishTaskEvent(ev)
	}
}
