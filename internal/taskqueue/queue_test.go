package taskqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) PublishTaskEvent(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) typesFor(taskID string) []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []EventType
	for _, ev := range p.events {
		if ev.Task.ID == taskID {
			types = append(types, ev.Type)
		}
	}
	return types
}

func newTestQueue(t *testing.T, capacity int) (*Queue, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	q := New(Options{
		Capacity:     capacity,
		PollInterval: 5 * time.Millisecond,
		RetryDelay:   10 * time.Millisecond,
	}, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Start(ctx)
	return q, pub
}

func waitForStatus(t *testing.T, q *Queue, id string, want Status) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		got, ok := q.Get(id)
		if !ok {
			return false
		}
		task = got
		return got.Status == want
	}, 5*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
	return task
}

func TestSubmitUnknownKindFailsFast(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	_, err := q.Submit("nope", nil, "", 0)
	require.Error(t, err)
}

func TestTaskCompletes(t *testing.T) {
	q, pub := newTestQueue(t, 2)
	q.RegisterHandler("echo", func(ctx context.Context, task Task) (any, error) {
		return task.Payload, nil
	})

	id, err := q.Submit("echo", "hello", "job1", 0)
	require.NoError(t, err)

	task := waitForStatus(t, q, id, StatusCompleted)
	assert.Equal(t, "hello", task.Result)
	assert.Empty(t, task.Error)
	assert.NotNil(t, task.CompletedAt)

	require.Eventually(t, func() bool {
		return len(pub.typesFor(id)) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventEnqueued, EventStarted, EventCompleted}, pub.typesFor(id))
}

func TestRetryThenSucceed(t *testing.T) {
	q, pub := newTestQueue(t, 2)

	var attempts int32
	q.RegisterHandler("flaky", func(ctx context.Context, task Task) (any, error) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			return nil, errors.New("transient")
		}
		return "done", nil
	})

	id, err := q.Submit("flaky", nil, "", 2)
	require.NoError(t, err)

	task := waitForStatus(t, q, id, StatusCompleted)
	assert.Equal(t, 2, task.RetryCount)
	assert.Equal(t, "done", task.Result)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	types := pub.typesFor(id)
	assert.Contains(t, types, EventRetried)
	assert.Equal(t, EventCompleted, types[len(types)-1])
}

func TestExhaustedRetriesFail(t *testing.T) {
	q, pub := newTestQueue(t, 2)

	var attempts int32
	q.RegisterHandler("doomed", func(ctx context.Context, task Task) (any, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("scoring service timeout")
	})

	id, err := q.Submit("doomed", nil, "", 1)
	require.NoError(t, err)

	task := waitForStatus(t, q, id, StatusFailed)
	assert.Equal(t, 1, task.RetryCount)
	assert.Equal(t, "scoring service timeout", task.Error)
	assert.Nil(t, task.Result)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	types := pub.typesFor(id)
	assert.Equal(t, EventFailed, types[len(types)-1])
}

func TestTerminalStateNeverReverts(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	q.RegisterHandler("ok", func(ctx context.Context, task Task) (any, error) {
		return 1, nil
	})

	id, _ := q.Submit("ok", nil, "", 3)
	done := waitForStatus(t, q, id, StatusCompleted)

	time.Sleep(50 * time.Millisecond)
	again, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.Equal(t, done.CompletedAt.UnixNano(), again.CompletedAt.UnixNano())
	assert.Equal(t, done.RetryCount, again.RetryCount)
}

func TestPanicInHandlerBecomesFailure(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	q.RegisterHandler("boom", func(ctx context.Context, task Task) (any, error) {
		panic("kaboom")
	})

	id, err := q.Submit("boom", nil, "", 0)
	require.NoError(t, err)

	task := waitForStatus(t, q, id, StatusFailed)
	assert.Contains(t, task.Error, "kaboom")
}

func TestCapacityBoundsConcurrency(t *testing.T) {
	q, _ := newTestQueue(t, 2)

	var running, peak int32
	release := make(chan struct{})
	q.RegisterHandler("slow", func(ctx context.Context, task Task) (any, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil, nil
	})

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Submit("slow", i, "", 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.Eventually(t, func() bool {
		return q.Stats().Processing == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, q.Stats().Active)

	close(release)
	for _, id := range ids {
		waitForStatus(t, q, id, StatusCompleted)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestFIFOStartOrder(t *testing.T) {
	q, _ := newTestQueue(t, 1)

	var mu sync.Mutex
	var order []any
	q.RegisterHandler("track", func(ctx context.Context, task Task) (any, error) {
		mu.Lock()
		order = append(order, task.Payload)
		mu.Unlock()
		return nil, nil
	})

	var last string
	for i := 0; i < 4; i++ {
		id, err := q.Submit("track", i, "", 0)
		require.NoError(t, err)
		last = id
		time.Sleep(2 * time.Millisecond) // distinct CreatedAt
	}

	waitForStatus(t, q, last, StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{0, 1, 2, 3}, order)
}

func TestStatsInvariant(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	q.RegisterHandler("mixed", func(ctx context.Context, task Task) (any, error) {
		if task.Payload == "fail" {
			return nil, errors.New("nope")
		}
		return nil, nil
	})

	for i := 0; i < 3; i++ {
		_, err := q.Submit("mixed", "ok", "", 0)
		require.NoError(t, err)
	}
	failID, err := q.Submit("mixed", "fail", "", 0)
	require.NoError(t, err)

	waitForStatus(t, q, failID, StatusFailed)

	require.Eventually(t, func() bool {
		return q.Stats().Completed == 3
	}, time.Second, 5*time.Millisecond)

	s := q.Stats()
	assert.Equal(t, s.Total, s.Pending+s.Processing+s.Completed+s.Failed)
	assert.Equal(t, 4, s.Total)
}

func TestCleanupEvictsOnlyOldTerminalTasks(t *testing.T) {
	q, _ := newTestQueue(t, 2)
	q.RegisterHandler("ok", func(ctx context.Context, task Task) (any, error) {
		return nil, nil
	})

	id, err := q.Submit("ok", nil, "", 0)
	require.NoError(t, err)
	waitForStatus(t, q, id, StatusCompleted)

	// Too young to evict.
	assert.Equal(t, 0, q.Cleanup(time.Hour))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, q.Cleanup(10*time.Millisecond))

	_, ok := q.Get(id)
	assert.False(t, ok)
}
