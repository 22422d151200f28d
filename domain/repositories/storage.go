package repositories

import (
	"context"
	"errors"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// ReminderRepository defines data access methods for reminders
type ReminderRepository interface {
	Create(ctx context.Context, reminder *entities.Reminder) error
	GetByID(ctx context.Context, id string) (*entities.Reminder, error)
	List(ctx context.Context) ([]*entities.Reminder, error)
	ListPending(ctx context.Context) ([]*entities.Reminder, error)
	Update(ctx context.Context, reminder *entities.Reminder) error
	Delete(ctx context.Context, id string) error
}
