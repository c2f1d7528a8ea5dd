package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/scantablehq/billing-service/internal/domain/model"
)

// SubscriptionRepository persists the canonical subscription state. All
// mutation methods must stay correct under concurrent duplicate webhook
// deliveries; the implementations lean on the unique index over
// provider_subscription_code rather than in-process locks.
type SubscriptionRepository interface {
	// Upsert performs a single conditional insert-or-update keyed by
	// ProviderSubscriptionCode. The update arm only touches the fields a
	// success event owns and never revives a canceled row. The returned bool
	// reports whether the write landed; false means the conflict guard
	// suppressed it, so the caller must not act on the event.
	Upsert(ctx context.Context, sub *model.Subscription) (bool, error)

	GetByCode(ctx context.Context, code string) (*model.Subscription, error)

	// GetCurrentByUserID returns the user's most recent entitling
	// subscription, or nil when none exists.
	GetCurrentByUserID(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)

	// UpdateStatusByCode transitions the matched subscription and returns the
	// updated row; a missing code yields apperrors.NotFound.
	UpdateStatusByCode(ctx context.Context, code string, status model.SubscriptionStatus) (*model.Subscription, error)

	// SetCancelAtPeriodEnd flips the renewal flag without changing status.
	SetCancelAtPeriodEnd(ctx context.Context, code string, cancel bool) (*model.Subscription, error)
}
