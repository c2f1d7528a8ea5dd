package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/repository"
)

// SubscriptionService exposes read access to the reconciled subscription
// state.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	logger        *zap.Logger
}

func NewSubscriptionService(subscriptions repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{subscriptions: subscriptions, logger: logger}
}

// Current returns the user's most recent live subscription, or nil when the
// user is on the free tier.
func (s *SubscriptionService) Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	return s.subscriptions.GetCurrentByUserID(ctx, userID)
}
