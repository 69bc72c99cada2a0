package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MailboxSyncer runs a sync pass over every active mailbox
type MailboxSyncer interface {
	SyncAllMailboxes(ctx context.Context) SyncAllResult
}

// SyncSchedulerConfig holds configuration for the periodic sync
type SyncSchedulerConfig struct {
	// Interval between sync passes
	Interval time.Duration
	// RunTimeout bounds a single pass
	RunTimeout time.Duration
}

// SyncScheduler runs SyncAllMailboxes periodically. A pass that is due while
// the previous one is still running is skipped.
type SyncScheduler struct {
	syncer  MailboxSyncer
	config  SyncSchedulerConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	busy    atomic.Bool
	skipped atomic.Int64
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(syncer MailboxSyncer, config SyncSchedulerConfig, logger *slog.Logger) *SyncScheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncScheduler{
		syncer: syncer,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the periodic sync. The first pass runs immediately.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(stop)

	s.logger.Info("mailbox sync scheduler started",
		slog.Duration("interval", s.config.Interval))
}

// Stop halts the schedule and waits for a pass in flight to finish
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("mailbox sync scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Skipped returns how many passes were skipped because one was in flight
func (s *SyncScheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *SyncScheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	s.runScheduled(stop)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runScheduled(stop)
		}
	}
}

func (s *SyncScheduler) runScheduled(stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	// stop cancels a pass in flight
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, ok := s.RunNow(ctx); !ok {
		s.logger.Warn("previous mailbox sync still running, skipping")
	}
}

// RunNow runs a pass immediately. It reports false without running when a
// pass is already in flight.
func (s *SyncScheduler) RunNow(ctx context.Context) (SyncAllResult, bool) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return SyncAllResult{}, false
	}
	defer s.busy.Store(false)

	started := time.Now()
	result := s.syncer.SyncAllMailboxes(ctx)

	s.logger.Info("scheduled mailbox sync finished",
		slog.Int("mailboxes", len(result.Results)),
		slog.Int("processed", result.TotalProcessed),
		slog.Int("errors", result.TotalErrors),
		slog.Duration("took", time.Since(started)))
	return result, true
}
