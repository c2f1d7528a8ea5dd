package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scantablehq/billing-service/internal/adapter/repository"
	domainRepo "github.com/scantablehq/billing-service/internal/domain/repository"
	"github.com/scantablehq/billing-service/internal/infrastructure/crypto"
)

// Repositories holds all repository instances.
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Payment      domainRepo.PaymentRepository
	User         domainRepo.UserRepository
}

// NewRepositories wires the GORM repositories. The encryption service guards
// stored provider authorization codes.
func NewRepositories(db *gorm.DB, encryption crypto.EncryptionService, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, encryption, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
		User:         repository.NewUserRepository(db, logger),
	}
}
