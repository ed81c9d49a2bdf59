package events

import (
	"github.com/arkanata/talentsift/internal/taskqueue"
)

// TaskEvent is the wire shape pushed to task and job topics.
type TaskEvent struct {
	Type       string `json:"type"`
	TaskID     string `json:"task_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	Error      string `json:"error,omitempty"`
	Result     any    `json:"result,omitempty"`
}

// QueueBridge adapts queue lifecycle events onto hub topics: the task's own
// topic, its job grouping topic, and a stats snapshot on the global topic
// after every transition.
type QueueBridge struct {
	hub   *Hub
	stats func() taskqueue.Stats
}

func NewQueueBridge(hub *Hub, stats func() taskqueue.Stats) *QueueBridge {
	return &QueueBridge{hub: hub, stats: stats}
}

func (b *QueueBridge) PublishTaskEvent(ev taskqueue.Event) {
	payload := TaskEvent{
		Type:       string(ev.Type),
		TaskID:     ev.Task.ID,
		Kind:       ev.Task.Kind,
		Status:     string(ev.Task.Status),
		RetryCount: ev.Task.RetryCount,
		MaxRetries: ev.Task.MaxRetries,
		Error:      ev.Task.Error,
		Result:     ev.Task.Result,
	}

	b.hub.Publish(TaskTopic(ev.Task.ID), payload)
	if ev.Task.GroupKey != "" {
		b.hub.Publish(JobTopic(ev.Task.GroupKey), payload)
	}
	if b.stats != nil {
		b.hub.Publish(StatsTopic, b.stats())
	}
}
