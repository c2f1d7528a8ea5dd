package model

import (
	"time"

	"github.com/google/uuid"
)

// TierFree is the entitlement every user falls back to when no active or
// trialing subscription exists.
const TierFree = "free"

// User carries the denormalized entitlement read by the feature gate. The
// rest of the user record is owned by the main application; this service only
// ever writes subscription_tier.
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string    `gorm:"size:255" json:"email"`
	SubscriptionTier string    `gorm:"size:50;not null;default:'free'" json:"subscription_tier"`
	CreatedAt        time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
