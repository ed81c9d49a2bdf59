package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/arkanata/talentsift/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	id string

	mu       sync.Mutex
	received []any
	failWith error
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.received = append(c.received, v)
	return nil
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.received...)
}

func TestSubscribeDeliversExactlyOnce(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{id: "c1"}

	hub.Subscribe(conn, TaskTopic("t1"))
	hub.Publish(TaskTopic("t1"), TaskEvent{TaskID: "t1", Status: "completed"})

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "completed", msgs[0].(TaskEvent).Status)
}

func TestUnsubscribedConnReceivesNothing(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{id: "c1"}

	hub.Subscribe(conn, TaskTopic("t1"))
	hub.Unsubscribe(conn, TaskTopic("t1"))
	hub.Publish(TaskTopic("t1"), TaskEvent{TaskID: "t1"})

	assert.Empty(t, conn.messages())
}

func TestPublishOnlyReachesMatchingTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	taskSub := &fakeConn{id: "task-sub"}
	jobSub := &fakeConn{id: "job-sub"}

	hub.Subscribe(taskSub, TaskTopic("t1"))
	hub.Subscribe(jobSub, JobTopic("j1"))

	hub.Publish(TaskTopic("t1"), "task event")

	assert.Len(t, taskSub.messages(), 1)
	assert.Empty(t, jobSub.messages())
}

func TestFailedWriteDropsConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	broken := &fakeConn{id: "broken", failWith: errors.New("write: broken pipe")}
	healthy := &fakeConn{id: "healthy"}

	hub.Subscribe(broken, StatsTopic)
	hub.Subscribe(broken, TaskTopic("t1"))
	hub.Subscribe(healthy, StatsTopic)

	hub.Publish(StatsTopic, "snapshot")

	assert.Len(t, healthy.messages(), 1)
	assert.Equal(t, 0, hub.SubscriberCount(TaskTopic("t1")))
	assert.Equal(t, 1, hub.SubscriberCount(StatsTopic))
}

func TestCloseConnTearsDownAllSubscriptions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{id: "c1"}

	hub.Subscribe(conn, TaskTopic("t1"))
	hub.Subscribe(conn, JobTopic("j1"))
	hub.CloseConn(conn)

	hub.Publish(TaskTopic("t1"), "x")
	hub.Publish(JobTopic("j1"), "y")
	assert.Empty(t, conn.messages())
}

func TestQueueBridgeFansOut(t *testing.T) {
	hub := NewHub(zap.NewNop())
	taskSub := &fakeConn{id: "task-sub"}
	jobSub := &fakeConn{id: "job-sub"}
	statsSub := &fakeConn{id: "stats-sub"}

	hub.Subscribe(taskSub, TaskTopic("t1"))
	hub.Subscribe(jobSub, JobTopic("j1"))
	hub.Subscribe(statsSub, StatsTopic)

	bridge := NewQueueBridge(hub, func() taskqueue.Stats {
		return taskqueue.Stats{Total: 1, Completed: 1, Capacity: 5}
	})

	bridge.PublishTaskEvent(taskqueue.Event{
		Type: taskqueue.EventCompleted,
		Task: taskqueue.Task{
			ID:       "t1",
			Kind:     "evaluation",
			GroupKey: "j1",
			Status:   taskqueue.StatusCompleted,
		},
	})

	require.Len(t, taskSub.messages(), 1)
	require.Len(t, jobSub.messages(), 1)
	require.Len(t, statsSub.messages(), 1)

	ev := taskSub.messages()[0].(TaskEvent)
	assert.Equal(t, "completed", ev.Status)
	assert.Equal(t, "t1", ev.TaskID)

	stats := statsSub.messages()[0].(taskqueue.Stats)
	assert.Equal(t, 1, stats.Completed)
}
