// Package taskqueue is a bounded-concurrency in-memory scheduler for the
// evaluation pipeline. Expensive, failure-prone work is deferred here off
// the request path and tracked through a small task state machine.
package taskqueue

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is one unit of deferred work. Owned exclusively by the queue: the
// scheduler loop and completion callbacks are the only writers, and they
// serialize through the queue mutex. Completed/failed are terminal and
// never revert.
type Task struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Payload     any        `json:"payload,omitempty"`
	GroupKey    string     `json:"group_key,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`

	// notBefore keeps a failed task out of the schedulable pool until the
	// retry delay has elapsed.
	notBefore time.Time
}

func newTask(kind string, payload any, groupKey string, maxRetries int) *Task {
	return &Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    payload,
		GroupKey:   groupKey,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
	}
}

// snapshot copies the task for handing outside the lock.
func (t *Task) snapshot() Task {
	c := *t
	return c
}

type EventType string

const (
	EventEnqueued  EventType = "enqueued"
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventRetried   EventType = "retried"
)

// Event is one lifecycle transition, carrying a snapshot of the task as it
// was at the moment of the transition.
type Event struct {
	Type EventType `json:"type"`
	Task Task      `json:"task"`
}

// Publisher receives lifecycle events. Implementations must never block the
// scheduler; delivery failures are theirs to log and drop.
type Publisher interface {
	PublishTaskEvent(ev Event)
}

// Stats is a point-in-time snapshot of the queue.
// Total == Pending + Processing + Completed + Failed.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Capacity   int `json:"capacity"`
	Active     int `json:"active"`
}
