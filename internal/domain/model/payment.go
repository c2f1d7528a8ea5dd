package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an append-only ledger row, one per verified charge. The unique
// index on ProviderReference makes redelivered webhooks collapse into a
// single record.
type Payment struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency              string          `gorm:"size:3;not null" json:"currency"`
	Status                string          `gorm:"size:30;not null" json:"status"`
	Provider              string          `gorm:"size:30;not null" json:"provider"`
	ProviderReference     string          `gorm:"uniqueIndex;not null;size:191" json:"provider_reference"`
	ProviderTransactionID string          `gorm:"size:191" json:"provider_transaction_id"`
	Description           string          `gorm:"size:255" json:"description"`
	CreatedAt             time.Time       `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
