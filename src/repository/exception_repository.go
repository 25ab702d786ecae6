package repository

import (
	"context"
	"encoding/json"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yieldengine/src/database"
	"yieldengine/src/model"
)

// ExceptionRepository persists system-level errors for auditing.
type ExceptionRepository struct {
	db *gorm.DB
}

func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create inserts a new exception record.
func (r *ExceptionRepository) Create(ctx context.Context, exception *model.Exception) error {
	err := r.db.WithContext(ctx).Create(exception).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExceptionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create exception")
		return err
	}
	return nil
}

// Capture builds and persists an exception record from an error plus its
// context. Persistence failures are logged and swallowed: capturing an error
// must never mask the original one.
func (r *ExceptionRepository) Capture(
	ctx context.Context,
	module, method, level string,
	err error,
	context map[string]interface{},
) {
	if err == nil {
		return
	}

	encoded, marshalErr := json.Marshal(context)
	if marshalErr != nil {
		encoded = []byte("{}")
	}

	exception := &model.Exception{
		Service: "yield_engine",
		Module:  module,
		Method:  method,
		Message: err.Error(),
		Level:   level,
		Context: string(encoded),
	}

	if createErr := r.Create(ctx, exception); createErr != nil {
		logger.WithError(createErr).
			WithField("original_error", err.Error()).
			Error("Failed to capture exception")
	}
}
