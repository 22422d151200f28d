package entities

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ReminderStatus represents the status of a reminder
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusFired     ReminderStatus = "fired"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

// MaxReminderDelayMinutes caps how far ahead a reminder can be scheduled (one year)
const MaxReminderDelayMinutes = 365 * 24 * 60

// CheckDelay rejects delays that are negative, not a number, or beyond MaxReminderDelayMinutes
func CheckDelay(delayMinutes float64) error {
	if math.IsNaN(delayMinutes) || delayMinutes < 0 {
		return fmt.Errorf("delay_minutes must be a non-negative number, got %v", delayMinutes)
	}
	if delayMinutes > MaxReminderDelayMinutes {
		return fmt.Errorf("delay_minutes must be at most %d, got %v", MaxReminderDelayMinutes, delayMinutes)
	}
	return nil
}

// Reminder is a timed notification requested through the set_reminder tool
type Reminder struct {
	ID           string         `json:"id" bson:"_id"`
	Task         string         `json:"task" bson:"task"`
	DelayMinutes float64        `json:"delay_minutes" bson:"delay_minutes"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
	DueAt        time.Time      `json:"due_at" bson:"due_at"`
	FiredAt      *time.Time     `json:"fired_at,omitempty" bson:"fired_at,omitempty"`
	Status       ReminderStatus `json:"status" bson:"status"`
}

// NewReminder creates a pending reminder due delayMinutes from now
func NewReminder(task string, delayMinutes float64) *Reminder {
	now := time.Now()
	return &Reminder{
		ID:           uuid.New().String(),
		Task:         task,
		DelayMinutes: delayMinutes,
		CreatedAt:    now,
		DueAt:        now.Add(time.Duration(delayMinutes * float64(time.Minute))),
		Status:       ReminderStatusPending,
	}
}

// Remaining returns the time left until the reminder is due, never negative
func (r *Reminder) Remaining(now time.Time) time.Duration {
	if d := r.DueAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// IsPending checks if the reminder still has to fire
func (r *Reminder) IsPending() bool {
	return r.Status == ReminderStatusPending
}

// Fire marks the reminder as delivered
func (r *Reminder) Fire() {
	now := time.Now()
	r.Status = ReminderStatusFired
	r.FiredAt = &now
}

// Cancel marks the reminder as cancelled
func (r *Reminder) Cancel() {
	r.Status = ReminderStatusCancelled
}

// Validate validates the reminder data
func (r *Reminder) Validate() error {
	if r.Task == "" {
		return errors.New("task is required")
	}

	if err := CheckDelay(r.DelayMinutes); err != nil {
		return err
	}

	if r.Status != ReminderStatusPending && r.Status != ReminderStatusFired && r.Status != ReminderStatusCancelled {
		return errors.New("invalid reminder status")
	}

	return nil
}
