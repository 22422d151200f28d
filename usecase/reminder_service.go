package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/metrics"
)

// ErrReminderNotPending is returned when cancelling a fired or cancelled reminder
var ErrReminderNotPending = errors.New("reminder is not pending")

const (
	fireTimeout  = 5 * time.Second
	speakTimeout = 30 * time.Second
)

// ReminderSpeaker reads due reminders aloud
type ReminderSpeaker interface {
	Speak(ctx context.Context, text string) error
	SpeakSupported() bool
}

// ReminderService schedules reminders and fires them when due. Timers live
// in memory; Restore re-arms pending reminders after a restart.
type ReminderService struct {
	repo     repositories.ReminderRepository
	notifier repositories.Notifier
	speaker  ReminderSpeaker
	metrics  *metrics.Session
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	firing sync.WaitGroup
}

// NewReminderService creates a reminder service. notifier, speaker and m
// may be nil.
func NewReminderService(
	repo repositories.ReminderRepository,
	notifier repositories.Notifier,
	speaker ReminderSpeaker,
	m *metrics.Session,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		repo:     repo,
		notifier: notifier,
		speaker:  speaker,
		metrics:  m,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule stores a reminder due delayMinutes from now and arms its timer
func (s *ReminderService) Schedule(ctx context.Context, task string, delayMinutes float64) (*entities.Reminder, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, errors.New("task must not be empty")
	}
	if err := entities.CheckDelay(delayMinutes); err != nil {
		return nil, err
	}

	reminder := entities.NewReminder(task, delayMinutes)
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to store reminder: %w", err)
	}

	s.arm(reminder)
	s.metrics.Reminder("scheduled")
	s.logger.Info("Reminder scheduled",
		zap.String("reminderID", reminder.ID),
		zap.String("task", reminder.Task),
		zap.Time("dueAt", reminder.DueAt))
	return reminder, nil
}

// List returns every stored reminder, newest first
func (s *ReminderService) List(ctx context.Context) ([]*entities.Reminder, error) {
	return s.repo.List(ctx)
}

// Cancel disarms a pending reminder and marks it cancelled
func (s *ReminderService) Cancel(ctx context.Context, id string) (*entities.Reminder, error) {
	reminder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reminder.IsPending() {
		return nil, ErrReminderNotPending
	}

	s.disarm(id)
	reminder.Cancel()
	if err := s.repo.Update(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to cancel reminder: %w", err)
	}

	s.metrics.Reminder("cancelled")
	s.logger.Info("Reminder cancelled", zap.String("reminderID", id))
	return reminder, nil
}

// Restore arms every pending reminder. Overdue reminders fire immediately.
func (s *ReminderService) Restore(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending reminders: %w", err)
	}
	for _, r := range pending {
		s.arm(r)
	}
	if len(pending) > 0 {
		s.logger.Info("Restored pending reminders", zap.Int("count", len(pending)))
	}
	return len(pending), nil
}

// Pending returns the number of armed timers
func (s *ReminderService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close disarms every timer and waits for reminders that are firing
func (s *ReminderService) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.firing.Wait()
}

func (s *ReminderService) arm(r *entities.Reminder) {
	id := r.ID
	delay := r.Remaining(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
}

func (s *ReminderService) disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *ReminderService) fire(id string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.firing.Add(1)
	s.mu.Unlock()
	defer s.firing.Done()

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	reminder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load due reminder", zap.String("reminderID", id), zap.Error(err))
		return
	}
	// cancelled after the timer fired
	if !reminder.IsPending() {
		return
	}

	reminder.Fire()
	if err := s.repo.Update(ctx, reminder); err != nil {
		s.logger.Error("Failed to mark reminder fired", zap.String("reminderID", id), zap.Error(err))
		return
	}

	s.metrics.Reminder("fired")
	s.logger.Info("Reminder fired", zap.String("reminderID", id), zap.String("task", reminder.Task))
	if s.notifier != nil {
		s.notifier.NotifyReminderFired(reminder)
	}

	if s.speaker != nil && s.speaker.SpeakSupported() {
		speakCtx, cancelSpeak := context.WithTimeout(context.Background(), speakTimeout)
		defer cancelSpeak()
		if err := s.speaker.Speak(speakCtx, "Reminder: "+reminder.Task); err != nil {
			s.logger.Warn("Failed to speak reminder", zap.String("reminderID", id), zap.Error(err))
		}
	}
}
