package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// ReminderRepository stores reminders in the "reminders" collection
type ReminderRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewReminderRepository creates a new MongoDB reminder repository
func NewReminderRepository(db *mongo.Database, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{
		collection: db.Collection("reminders"),
		logger:     logger,
	}
}

var _ repositories.ReminderRepository = (*ReminderRepository)(nil)

// EnsureIndexes creates the index used by ListPending
func (r *ReminderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder index: %w", err)
	}
	return nil
}

// Create implements repositories.ReminderRepository
func (r *ReminderRepository) Create(ctx context.Context, reminder *entities.Reminder) error {
	if reminder == nil {
		return errors.New("reminder cannot be nil")
	}
	if err := reminder.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, reminder); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	r.logger.Debug("Reminder stored", zap.String("reminderID", reminder.ID))
	return nil
}

// GetByID implements repositories.ReminderRepository
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	if id == "" {
		return nil, errors.New("reminder ID cannot be empty")
	}

	var reminder entities.Reminder
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reminder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}

// List implements repositories.ReminderRepository, newest first
func (r *ReminderRepository) List(ctx context.Context) ([]*entities.Reminder, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	return r.find(ctx, bson.M{}, opts)
}

// ListPending implements repositories.ReminderRepository, soonest first
func (r *ReminderRepository) ListPending(ctx context.Context) ([]*entities.Reminder, error) {
	opts := options.Find().SetSort(bson.M{"due_at": 1})
	return r.find(ctx, bson.M{"status": entities.ReminderStatusPending}, opts)
}

func (r *ReminderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.Reminder, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []*entities.Reminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	return reminders, nil
}

// Update implements repositories.ReminderRepository
func (r *ReminderRepository) Update(ctx context.Context, reminder *entities.Reminder) error {
	if reminder == nil {
		return errors.New("reminder cannot be nil")
	}
	if err := reminder.Validate(); err != nil {
		return err
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": reminder.ID}, reminder)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete implements repositories.ReminderRepository
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
