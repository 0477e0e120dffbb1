package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// Ensure RebuildScheduler implements the interface.
var _ driving.Scheduler = (*RebuildScheduler)(nil)

// RebuildScheduler rebuilds the index on a fixed interval.
// It is a pure core service with no external control API.
type RebuildScheduler struct {
	interval time.Duration
	indexes  driving.IndexService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRebuildScheduler creates a scheduler. A non-positive interval makes
// Start return immediately.
func NewRebuildScheduler(interval time.Duration, indexes driving.IndexService) *RebuildScheduler {
	return &RebuildScheduler{
		interval: interval,
		indexes:  indexes,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx ends.
func (s *RebuildScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	logger.Info("Scheduled index rebuild every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for an in-progress
// rebuild to return.
func (s *RebuildScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	return nil
}

func (s *RebuildScheduler) runOnce(ctx context.Context) {
	if _, err := s.indexes.Rebuild(ctx); err != nil {
		logger.Warn("Scheduled rebuild failed: %v", err)
	}
}
