package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/repository"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserRepository(db *gorm.DB, logger *zap.Logger) repository.UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("subscription_tier", tier)

	if result.Error != nil {
		r.logger.Error("Failed to set subscription tier",
			zap.String("user_id", userID.String()),
			zap.String("tier", tier),
			zap.Error(result.Error))
		return fmt.Errorf("failed to set subscription tier: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	return nil
}
