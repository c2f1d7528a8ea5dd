package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/billing"
	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// ProviderRegistry resolves a provider name to its configured client.
type ProviderRegistry interface {
	ForName(name string) (provider.PaymentProvider, error)
}

// CheckoutInput is the validated intent to start a purchase. Currency is
// already resolved by the caller, either from an explicit override or from
// request geolocation.
type CheckoutInput struct {
	UserID          string
	Email           string
	Plan            string
	BillingInterval string
	Currency        string
	// Provider overrides the currency-based recommendation when set.
	Provider       string
	PaymentMethod  string
	IdempotencyKey string
	// SuccessURL and CancelURL are where the provider's hosted page returns
	// the buyer; the caller supplies both.
	SuccessURL string
	CancelURL  string
}

// CheckoutService picks a provider, prices the purchase and creates the
// hosted session with reconciliation metadata embedded. It writes nothing:
// all state is created later by the webhook that reports the charge.
type CheckoutService struct {
	registry     ProviderRegistry
	logger       *zap.Logger
	newReference func() string
}

func NewCheckoutService(registry ProviderRegistry, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		registry: registry,
		logger:   logger,
		newReference: func() string {
			return "stb_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func (s *CheckoutService) CreateSession(ctx context.Context, in *CheckoutInput) (*provider.CheckoutSession, error) {
	if in.Email == "" {
		return nil, apperrors.Validation("email is required for checkout")
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, apperrors.Validation("invalid user id")
	}
	if in.SuccessURL == "" || in.CancelURL == "" {
		return nil, apperrors.Validation("success and cancel URLs are required")
	}

	plan, err := model.ParsePlan(in.Plan)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	interval, err := billing.ParseInterval(in.BillingInterval)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		return nil, apperrors.Validation("currency could not be determined")
	}
	amount, ok := model.PlanPrice(plan, currency, interval)
	if !ok {
		return nil, apperrors.Validationf("currency %s is not supported for plan %s", currency, plan)
	}

	providerName := in.Provider
	if providerName == "" {
		providerName = provider.Recommend(currency)
	}
	p, err := s.registry.ForName(providerName)
	if err != nil {
		return nil, err
	}
	if p.Name() == provider.NameStripe && in.PaymentMethod == "mobile_money" {
		return nil, apperrors.Validation("stripe does not support mobile money")
	}

	reference := in.IdempotencyKey
	if reference == "" {
		reference = s.newReference()
	}

	session, err := p.CreateCheckoutSession(ctx, &provider.CheckoutRequest{
		Reference:       reference,
		Email:           in.Email,
		Amount:          amount,
		Currency:        currency,
		PlanID:          string(plan),
		BillingInterval: string(interval),
		UserID:          userID.String(),
		SuccessURL:      in.SuccessURL,
		CancelURL:       in.CancelURL,
		PaymentMethod:   in.PaymentMethod,
	})
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("provider", p.Name()),
			zap.String("plan", string(plan)),
			zap.String("currency", currency),
			zap.Error(err))
		return nil, apperrors.Wrap(err, "failed to create checkout session")
	}

	s.logger.Info("Checkout session created",
		zap.String("provider", session.Provider),
		zap.String("reference", session.Reference),
		zap.String("plan", string(plan)),
		zap.String("interval", string(interval)),
		zap.String("currency", currency),
		zap.Int64("amount", amount))

	return session, nil
}
