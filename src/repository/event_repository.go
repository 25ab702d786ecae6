package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yieldengine/src/database"
	"yieldengine/src/model"
)

// EngineEventRepository persists the structured audit event stream.
type EngineEventRepository struct {
	db *gorm.DB
}

// NewEngineEventRepository creates a new repository instance using the main database.
func NewEngineEventRepository() *EngineEventRepository {
	return &EngineEventRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *EngineEventRepository) WithDB(db *gorm.DB) *EngineEventRepository {
	return &EngineEventRepository{db: db}
}

// Create inserts a new engine event.
func (r *EngineEventRepository) Create(ctx context.Context, event *model.EngineEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "EngineEventRepository",
			"op":   "Create",
			"kind": event.Kind,
		}).WithError(err).Error("Failed to create engine event")
		return err
	}
	return nil
}

// FindByCycle fetches all events for one cycle timestamp, oldest first.
func (r *EngineEventRepository) FindByCycle(ctx context.Context, mode string, cycle time.Time) ([]model.EngineEvent, error) {
	var events []model.EngineEvent
	err := r.db.WithContext(ctx).
		Where("mode = ? AND cycle_time = ?", mode, cycle).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "EngineEventRepository",
			"op":   "FindByCycle",
		}).WithError(err).Error("Failed to fetch engine events")
		return nil, err
	}
	return events, nil
}
