package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"neotrade/src/model"
)

// ExceptionRepository handles persistence of reported failures.
type ExceptionRepository struct {
	db *gorm.DB
}

func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
		"level":   exc.Level,
	}).Warn("Persisting reported exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// FindByModule returns the most recent exceptions of one module.
func (r *ExceptionRepository) FindByModule(
	ctx context.Context,
	module string,
	limit int,
) ([]model.Exception, error) {
	if limit <= 0 {
		limit = 20
	}

	var out []model.Exception
	err := r.db.WithContext(ctx).
		Where("module = ?", module).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
