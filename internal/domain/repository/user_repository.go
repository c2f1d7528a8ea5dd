package repository

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository updates the denormalized entitlement column on the user
// record. The rest of the user row belongs to the main application.
type UserRepository interface {
	SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier string) error
}
