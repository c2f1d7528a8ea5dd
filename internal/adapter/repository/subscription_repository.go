package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/repository"
	"github.com/scantablehq/billing-service/internal/infrastructure/crypto"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

type subscriptionRepository struct {
	db         *gorm.DB
	encryption crypto.EncryptionService
	logger     *zap.Logger
}

func NewSubscriptionRepository(db *gorm.DB, encryption crypto.EncryptionService, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:         db,
		encryption: encryption,
		logger:     logger,
	}
}

// upsertColumns is the field set a charge success owns. Status and
// cancel_at_period_end are included so a renewal reactivates a past_due row;
// plan and user_id are deliberately absent so a redelivered event cannot
// reassign a subscription.
var upsertColumns = []string{
	"status",
	"provider_customer_code",
	"provider_authorization_code",
	"current_period_start",
	"current_period_end",
	"cancel_at_period_end",
	"updated_at",
}

// Upsert inserts or refreshes the row keyed by provider_subscription_code in
// one statement. The WHERE arm keeps canceled rows dead: a late retry of an
// old success event must not revive a subscription the provider already
// disabled. When the guard suppresses the write, RowsAffected is 0 and the
// caller is told nothing landed.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) (bool, error) {
	if sub.ProviderAuthorizationCode != "" {
		encrypted, err := r.encryption.Encrypt(sub.ProviderAuthorizationCode)
		if err != nil {
			return false, fmt.Errorf("failed to encrypt authorization code: %w", err)
		}
		sub.ProviderAuthorizationCode = encrypted
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_subscription_code"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
		Where: clause.Where{
			Exprs: []clause.Expression{
				clause.Expr{SQL: "subscriptions.status <> ?", Vars: []interface{}{string(model.SubscriptionStatusCanceled)}},
			},
		},
	}).Create(sub)

	if result.Error != nil {
		r.logger.Error("Failed to upsert subscription",
			zap.String("provider_subscription_code", sub.ProviderSubscriptionCode),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to upsert subscription: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *subscriptionRepository) GetByCode(ctx context.Context, code string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("provider_subscription_code = ?", code).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("subscription %s not found", code)
		}
		r.logger.Error("Failed to get subscription",
			zap.String("provider_subscription_code", code),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.decryptAuthCode(&sub), nil
}

func (r *subscriptionRepository) GetCurrentByUserID(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]string{string(model.SubscriptionStatusActive), string(model.SubscriptionStatusTrialing), string(model.SubscriptionStatusPastDue)}).
		Order("current_period_end DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get current subscription",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}

	return r.decryptAuthCode(&sub), nil
}

func (r *subscriptionRepository) UpdateStatusByCode(ctx context.Context, code string, status model.SubscriptionStatus) (*model.Subscription, error) {
	var sub model.Subscription
	result := r.db.WithContext(ctx).
		Model(&sub).
		Clauses(clause.Returning{}).
		Where("provider_subscription_code = ?", code).
		Update("status", status)

	if result.Error != nil {
		r.logger.Error("Failed to update subscription status",
			zap.String("provider_subscription_code", code),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFoundf("subscription %s not found", code)
	}

	return r.decryptAuthCode(&sub), nil
}

func (r *subscriptionRepository) SetCancelAtPeriodEnd(ctx context.Context, code string, cancel bool) (*model.Subscription, error) {
	var sub model.Subscription
	result := r.db.WithContext(ctx).
		Model(&sub).
		Clauses(clause.Returning{}).
		Where("provider_subscription_code = ?", code).
		Update("cancel_at_period_end", cancel)

	if result.Error != nil {
		r.logger.Error("Failed to set cancel_at_period_end",
			zap.String("provider_subscription_code", code),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to set cancel_at_period_end: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFoundf("subscription %s not found", code)
	}

	return r.decryptAuthCode(&sub), nil
}

// decryptAuthCode restores the plaintext authorization code on reads. A value
// that fails to decrypt is dropped rather than surfaced; nothing downstream
// can use a garbled token.
func (r *subscriptionRepository) decryptAuthCode(sub *model.Subscription) *model.Subscription {
	if sub.ProviderAuthorizationCode == "" {
		return sub
	}
	plaintext, err := r.encryption.Decrypt(sub.ProviderAuthorizationCode)
	if err != nil {
		r.logger.Warn("Failed to decrypt authorization code",
			zap.String("provider_subscription_code", sub.ProviderSubscriptionCode),
			zap.Error(err))
		sub.ProviderAuthorizationCode = ""
		return sub
	}
	sub.ProviderAuthorizationCode = plaintext
	return sub
}
