package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// MemoryReminderRepository is an in-memory implementation of
// ReminderRepository. Reminders do not survive a restart.
type MemoryReminderRepository struct {
	mu        sync.RWMutex
	reminders map[string]*entities.Reminder
}

var _ repositories.ReminderRepository = (*MemoryReminderRepository)(nil)

// NewMemoryReminderRepository creates a new in-memory reminder repository
func NewMemoryReminderRepository() *MemoryReminderRepository {
	return &MemoryReminderRepository{
		reminders: make(map[string]*entities.Reminder),
	}
}

// Create implements ReminderRepository interface
func (m *MemoryReminderRepository) Create(ctx context.Context, reminder *entities.Reminder) error {
	if reminder == nil {
		return errors.New("reminder cannot be nil")
	}
	if err := reminder.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reminders[reminder.ID]; exists {
		return errors.New("reminder with this ID already exists")
	}
	m.reminders[reminder.ID] = clone(reminder)
	return nil
}

// GetByID implements ReminderRepository interface
func (m *MemoryReminderRepository) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reminder, exists := m.reminders[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return clone(reminder), nil
}

// List implements ReminderRepository interface, newest first
func (m *MemoryReminderRepository) List(ctx context.Context) ([]*entities.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*entities.Reminder, 0, len(m.reminders))
	for _, r := range m.reminders {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListPending implements ReminderRepository interface, soonest first
func (m *MemoryReminderRepository) ListPending(ctx context.Context) ([]*entities.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*entities.Reminder
	for _, r := range m.reminders {
		if r.IsPending() {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

// Update implements ReminderRepository interface
func (m *MemoryReminderRepository) Update(ctx context.Context, reminder *entities.Reminder) error {
	if reminder == nil {
		return errors.New("reminder cannot be nil")
	}
	if err := reminder.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reminders[reminder.ID]; !exists {
		return repositories.ErrNotFound
	}
	m.reminders[reminder.ID] = clone(reminder)
	return nil
}

// Delete implements ReminderRepository interface
func (m *MemoryReminderRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reminders[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.reminders, id)
	return nil
}

// GetStats returns the number of reminders per status
func (m *MemoryReminderRepository) GetStats() map[entities.ReminderStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[entities.ReminderStatus]int)
	for _, r := range m.reminders {
		stats[r.Status]++
	}
	return stats
}

func clone(r *entities.Reminder) *entities.Reminder {
	c := *r
	if r.FiredAt != nil {
		at := *r.FiredAt
		c.FiredAt = &at
	}
	return &c
}
