package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusCanceled
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Entitled reports whether the status grants access to paid features.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription is the canonical record the webhook reconciler folds provider
// events into. Exactly one row may exist per ProviderSubscriptionCode no
// matter how many deliveries touch it; the unique index enforces that.
type Subscription struct {
	ID                        int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                    uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Plan                      string             `gorm:"not null;size:50" json:"plan"`
	Provider                  string             `gorm:"not null;size:30" json:"provider"`
	Status                    SubscriptionStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	ProviderSubscriptionCode  string             `gorm:"uniqueIndex;not null;size:191" json:"provider_subscription_code"`
	ProviderCustomerCode      string             `gorm:"size:191" json:"provider_customer_code"`
	ProviderAuthorizationCode string             `gorm:"size:512" json:"-"` // encrypted at rest
	CurrentPeriodStart        time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd          time.Time          `gorm:"not null" json:"current_period_end"`
	CancelAtPeriodEnd         bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt                 time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt                 time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
