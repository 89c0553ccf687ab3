package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"neotrade/src/model"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepositoryWithDB(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID returns (nil, nil) when the user does not exist in the tenant.
func (r *GormUserRepository) GetUserByID(
	ctx context.Context,
	tenant string,
	id string,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("tenant = ? AND id = ?", tenant, id).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "GormUserRepository",
			"op":   "GetUserByID",
			"user": id,
		}).WithError(err).Error("Failed to fetch user")

		return nil, err
	}

	return &u, nil
}

// UpdateTokenHash replaces the stored credential hash of a user.
func (r *GormUserRepository) UpdateTokenHash(
	ctx context.Context,
	tenant string,
	id string,
	tokenHash string,
) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("tenant = ? AND id = ?", tenant, id).
		Update("token_hash", tokenHash)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "GormUserRepository",
			"op":   "UpdateTokenHash",
			"user": id,
		}).WithError(res.Error).Error("Failed to update token hash")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
