package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

// Insert appends a ledger row. DO NOTHING on the provider_reference conflict
// makes webhook redelivery a clean no-op.
func (r *paymentRepository) Insert(ctx context.Context, payment *model.Payment) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_reference"}},
		DoNothing: true,
	}).Create(payment).Error

	if err != nil {
		r.logger.Error("Failed to insert payment",
			zap.String("provider_reference", payment.ProviderReference),
			zap.Error(err))
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}
