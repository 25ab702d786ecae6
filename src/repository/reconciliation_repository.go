package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yieldengine/src/database"
	"yieldengine/src/model"
)

// ReconciliationRepository keeps the audit trail of resolved reconciliation
// records.
type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository() *ReconciliationRepository {
	return &ReconciliationRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ReconciliationRepository) WithDB(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// Create inserts a new reconciliation log entry.
func (r *ReconciliationRepository) Create(ctx context.Context, log *model.ReconciliationLog) error {
	err := r.db.WithContext(ctx).Create(log).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ReconciliationRepository",
			"op":     "Create",
			"status": log.Status,
		}).WithError(err).Error("Failed to create reconciliation log")
		return err
	}
	return nil
}

// FindSince returns reconciliation logs at or after the given time, oldest first.
func (r *ReconciliationRepository) FindSince(ctx context.Context, mode string, since time.Time) ([]model.ReconciliationLog, error) {
	var logs []model.ReconciliationLog
	err := r.db.WithContext(ctx).
		Where("mode = ? AND cycle_time >= ?", mode, since).
		Order("cycle_time ASC").
		Find(&logs).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ReconciliationRepository",
			"op":   "FindSince",
		}).WithError(err).Error("Failed to fetch reconciliation logs")
		return nil, err
	}
	return logs, nil
}
