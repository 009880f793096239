// Package health runs periodic background checks of the gateway's
// Marketing Cloud session. A check performs a token exchange (cached or
// fresh) through the session's Status call; consecutive failures past a
// threshold mark the session degraded until a check succeeds again.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// Config holds session check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// SessionFunc returns the session to check, or nil while none exists.
// The gateway handler's ActiveSession satisfies this.
type SessionFunc func() *sfmc.Client

// MetricsRecordFunc is an optional callback for recording check results.
type MetricsRecordFunc func(connected bool)

// Monitor runs periodic session checks.
type Monitor struct {
	session   SessionFunc
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu        sync.Mutex
	failCount int
	degraded  bool
}

// New creates a Monitor. Zero config fields get working defaults.
func New(session SessionFunc, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	return &Monitor{
		session: session,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Degraded reports whether the last checks crossed the failure threshold
// without a recovery since.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Start runs the check loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProbeTimeout)
			m.CheckOnce(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckOnce performs one session check and returns the observed status.
// With no session installed it reports not_initialized and leaves the
// failure count untouched.
func (m *Monitor) CheckOnce(ctx context.Context) sfmc.ConnectionStatus {
	sess := m.session()
	if sess == nil {
		return sfmc.NotInitializedStatus()
	}

	st := sess.Status(ctx)
	connected := st.State == sfmc.StateConnected

	if m.onMetrics != nil {
		m.onMetrics(connected)
	}

	m.mu.Lock()
	if connected {
		wasDegraded := m.degraded
		m.failCount = 0
		m.degraded = false
		m.mu.Unlock()

		if wasDegraded {
			m.logger.Info("session recovered", zap.String("subdomain", st.Subdomain))
		}
		return st
	}

	m.failCount++
	count := m.failCount
	atThreshold := count == m.cfg.FailThreshold
	if count >= m.cfg.FailThreshold {
		m.degraded = true
	}
	m.mu.Unlock()

	if atThreshold {
		m.logger.Warn("session degraded",
			zap.String("subdomain", st.Subdomain),
			zap.Int("fail_count", count),
			zap.String("error", st.Error),
		)
	}
	return st
}
