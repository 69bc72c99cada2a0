package database

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// DefaultHealthCheckInterval is how often the liveness check runs
const DefaultHealthCheckInterval = 30 * time.Second

// HealthMonitor periodically runs a trivial query against the shared database
// handle and keeps a process-wide healthy flag that request handlers consult
// to fail fast.
type HealthMonitor struct {
	db        *gorm.DB
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	healthy   atomic.Bool
	lastError atomic.Value
	lastCheck atomic.Int64

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewHealthMonitor creates a monitor. The database is assumed healthy until
// the first check says otherwise.
func NewHealthMonitor(db *gorm.DB, interval time.Duration, logger *slog.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &HealthMonitor{
		db:       db,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	m.healthy.Store(true)
	return m
}

// Start begins probing in the background
func (m *HealthMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.checkLoop()

	m.logger.Info("database health monitor started",
		slog.Duration("interval", m.interval))
}

// Stop halts the background check and waits for it to exit
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("database health monitor stopped")
}

// IsRunning reports whether the background check is active
func (m *HealthMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// IsHealthy returns the result of the most recent check
func (m *HealthMonitor) IsHealthy() bool {
	return m.healthy.Load()
}

// LastError returns the error from the most recent failed check, if any
func (m *HealthMonitor) LastError() string {
	if v, ok := m.lastError.Load().(string); ok {
		return v
	}
	return ""
}

// LastCheck returns when the last check finished; zero if none has run
func (m *HealthMonitor) LastCheck() time.Time {
	ns := m.lastCheck.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (m *HealthMonitor) checkLoop() {
	defer m.wg.Done()

	m.Check(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(context.Background())
		}
	}
}

// Check runs one check immediately, updates the flag and returns the result
func (m *HealthMonitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.db.WithContext(ctx).Exec("SELECT 1").Error
	m.lastCheck.Store(time.Now().UnixNano())

	wasHealthy := m.healthy.Load()
	if err != nil {
		m.healthy.Store(false)
		m.lastError.Store(err.Error())
		if wasHealthy {
			m.logger.Error("database health check failed", slog.Any("error", err))
		}
		return false
	}

	m.healthy.Store(true)
	m.lastError.Store("")
	if !wasHealthy {
		m.logger.Info("database connection restored")
	}
	return true
}
