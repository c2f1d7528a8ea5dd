package repository

import (
	"context"

	"github.com/scantablehq/billing-service/internal/domain/model"
)

// PaymentRepository appends to the payment ledger. Insert is idempotent on
// ProviderReference: redelivering the same charge is a no-op, not an error.
type PaymentRepository interface {
	Insert(ctx context.Context, payment *model.Payment) error
}
