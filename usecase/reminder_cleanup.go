package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// ReminderCleanupService periodically deletes reminders that fired or were
// cancelled longer than the retention period ago.
type ReminderCleanupService struct {
	repo      repositories.ReminderRepository
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	done      chan struct{}
}

// NewReminderCleanupService creates a new cleanup service
func NewReminderCleanupService(repo repositories.ReminderRepository, interval, retention time.Duration, logger *zap.Logger) *ReminderCleanupService {
	return &ReminderCleanupService{
		repo:      repo,
		interval:  interval,
		retention: retention,
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *ReminderCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Reminder cleanup service started", zap.Duration("retention", s.retention))
}

// Stop gracefully stops the cleanup service
func (s *ReminderCleanupService) Stop() {
	close(s.stopChan)
	<-s.done
	s.logger.Info("Reminder cleanup service stopped")
}

func (s *ReminderCleanupService) cleanupLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunCleanup(time.Now())
		}
	}
}

// RunCleanup deletes finished reminders older than the retention period and
// returns how many were removed.
func (s *ReminderCleanupService) RunCleanup(now time.Time) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reminders, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list reminders for cleanup", zap.Error(err))
		return 0
	}

	cutoff := now.Add(-s.retention)
	removed := 0
	for _, r := range reminders {
		if r.IsPending() {
			continue
		}
		finished := r.DueAt
		if r.FiredAt != nil {
			finished = *r.FiredAt
		}
		if finished.After(cutoff) {
			continue
		}
		if err := s.repo.Delete(ctx, r.ID); err != nil {
			s.logger.Warn("Failed to delete reminder", zap.String("reminderID", r.ID), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Reminder cleanup completed", zap.Int("removed", removed))
	}
	return removed
}
