package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakeProber) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestHealthMonitorReportsProbeOutcome(t *testing.T) {
	prober := &fakeProber{}
	m := NewHealthMonitor(prober, time.Minute, time.Second, zap.NewNop())

	assert.True(t, m.ForceCheck(context.Background()))

	prober.setErr(errors.New("connection refused"))
	assert.False(t, m.ForceCheck(context.Background()))

	prober.setErr(nil)
	assert.True(t, m.ForceCheck(context.Background()))
}

func TestHealthMonitorDoesNotReprobeWhenFresh(t *testing.T) {
	prober := &fakeProber{}
	m := NewHealthMonitor(prober, time.Minute, time.Second, zap.NewNop())

	m.ForceCheck(context.Background())
	before := prober.callCount()

	for i := 0; i < 5; i++ {
		assert.True(t, m.IsHealthy(context.Background()))
	}

	assert.Equal(t, before, prober.callCount())
}

func TestHealthMonitorProbesWhenStale(t *testing.T) {
	prober := &fakeProber{}
	m := NewHealthMonitor(prober, 10*time.Millisecond, time.Second, zap.NewNop())

	m.ForceCheck(context.Background())
	time.Sleep(20 * time.Millisecond)

	prober.setErr(errors.New("boom"))
	assert.False(t, m.IsHealthy(context.Background()))
}

func TestHealthMonitorTracksProbeCount(t *testing.T) {
	prober := &fakeProber{}
	m := NewHealthMonitor(prober, time.Minute, time.Second, zap.NewNop())

	m.ForceCheck(context.Background())
	m.ForceCheck(context.Background())

	checked, count := m.LastChecked()
	assert.False(t, checked.IsZero())
	assert.Equal(t, 2, count)
}
