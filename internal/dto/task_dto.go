package dto

import "github.com/arkanata/talentsift/internal/taskqueue"

// TaskStatusDTO is the status-poll shape for a queued evaluation task.
type TaskStatusDTO struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	Error      string `json:"error,omitempty"`
	Result     any    `json:"result,omitempty"`
}

func TaskStatusFromTask(t taskqueue.Task) TaskStatusDTO {
	return TaskStatusDTO{
		ID:         t.ID,
		Kind:       t.Kind,
		Status:     string(t.Status),
		RetryCount: t.RetryCount,
		MaxRetries: t.MaxRetries,
		Error:      t.Error,
		Result:     t.Result,
	}
}
