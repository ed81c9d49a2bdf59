package scoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober is the liveness check the monitor runs against the scoring service.
type Prober interface {
	Ping(ctx context.Context) error
}

// HealthMonitor is a two-state circuit breaker for the scoring service:
// healthy means RPCs are attempted, unhealthy means callers go straight to
// the fallback evaluator. State is re-evaluated at most once per interval
// unless ForceCheck is called.
type HealthMonitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	healthy     bool
	lastChecked time.Time
	probeCount  int
}

func NewHealthMonitor(prober Prober, interval, timeout time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthMonitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start runs the periodic probe until ctx is canceled. An initial probe runs
// immediately so IsHealthy has a fresh answer from the first request on.
func (m *HealthMonitor) Start(ctx context.Context) {
	m.ForceCheck(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ForceCheck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// IsHealthy reports the circuit state, probing first when the last result is
// older than the refresh interval.
func (m *HealthMonitor) IsHealthy(ctx context.Context) bool {
	m.mu.Lock()
	stale := time.Since(m.lastChecked) > m.interval
	healthy := m.healthy
	m.mu.Unlock()

	if stale {
		return m.ForceCheck(ctx)
	}
	return healthy
}

// ForceCheck probes immediately regardless of staleness and returns the new state.
func (m *HealthMonitor) ForceCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)

	m.mu.Lock()
	defer m.mu.Unlock()

	wasHealthy := m.healthy
	m.healthy = err == nil
	m.lastChecked = time.Now()
	m.probeCount++

	if m.healthy != wasHealthy {
		if m.healthy {
			m.logger.Info("scoring service is reachable again")
		} else {
			m.logger.Warn("scoring service is unreachable, routing to fallback", zap.Error(err))
		}
	}
	return m.healthy
}

// LastChecked returns when the most recent probe finished and how many probes
// have run.
func (m *HealthMonitor) LastChecked() (time.Time, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChecked, m.probeCount
}
