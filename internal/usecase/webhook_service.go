package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/billing"
	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/domain/repository"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// WebhookService folds verified provider events into subscription state, the
// payment ledger and the user's entitlement tier. Every handler is safe to
// re-run: the repositories collapse duplicate deliveries instead of the
// service tracking them.
type WebhookService struct {
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	users         repository.UserRepository
	trialDays     int
	logger        *zap.Logger
	now           func() time.Time
}

func NewWebhookService(
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	trialDays int,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		subscriptions: subscriptions,
		payments:      payments,
		users:         users,
		trialDays:     trialDays,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleEvent dispatches a normalized event to its handler. Unknown and
// informational events are acknowledged without side effects so the provider
// stops retrying them.
func (s *WebhookService) HandleEvent(ctx context.Context, ev *provider.Event) error {
	switch ev.Type {
	case provider.EventChargeSuccess:
		return s.handleChargeSuccess(ctx, ev)
	case provider.EventSubscriptionDisabled:
		return s.handleSubscriptionDisabled(ctx, ev)
	case provider.EventSubscriptionNotRenewing:
		return s.handleSubscriptionNotRenewing(ctx, ev)
	case provider.EventChargeFailed:
		return s.handleChargeFailed(ctx, ev)
	case provider.EventSubscriptionCreated:
		// The paired charge.success owns row creation; the create event alone
		// carries no period or payment facts worth acting on.
		s.logger.Info("Subscription create event acknowledged",
			zap.String("provider", ev.Provider),
			zap.String("subscription_code", ev.SubscriptionCode))
		return nil
	default:
		s.logger.Info("Unhandled webhook event acknowledged",
			zap.String("provider", ev.Provider),
			zap.String("type", string(ev.Type)))
		return nil
	}
}

// handleChargeSuccess is the reconciliation core. The metadata gate runs
// before any write: an event that cannot name the purchase must produce zero
// state changes, because a retried delivery will carry the same payload.
func (s *WebhookService) handleChargeSuccess(ctx context.Context, ev *provider.Event) error {
	userID, plan, interval, err := s.reconcileMetadata(ev)
	if err != nil {
		return err
	}

	now := s.now()
	sub := s.decideSubscription(ev, userID, plan, interval, now)

	applied := false
	if sub != nil {
		applied, err = s.subscriptions.Upsert(ctx, sub)
		if err != nil {
			return apperrors.Wrap(err, "failed to reconcile subscription")
		}
	}

	// The ledger is a soft dependency: a failed insert is logged and the
	// delivery still succeeds, so the entitlement is never held hostage to
	// bookkeeping.
	if err := s.recordPayment(ctx, ev, userID); err != nil {
		s.logger.Error("Failed to record payment, continuing",
			zap.String("provider", ev.Provider),
			zap.String("reference", ev.Reference),
			zap.Error(err))
	}

	if sub != nil {
		// A suppressed upsert means the row is already canceled: the charge is
		// a stale redelivery and must not re-upgrade the entitlement.
		if !applied {
			s.logger.Warn("Charge success for a canceled subscription, entitlement untouched",
				zap.String("provider", ev.Provider),
				zap.String("reference", ev.Reference),
				zap.String("subscription_code", sub.ProviderSubscriptionCode))
			return nil
		}
		if err := s.users.SetSubscriptionTier(ctx, userID, string(plan)); err != nil {
			return apperrors.Wrap(err, "failed to update entitlement")
		}
		s.logger.Info("Charge success reconciled",
			zap.String("provider", ev.Provider),
			zap.String("reference", ev.Reference),
			zap.String("subscription_code", sub.ProviderSubscriptionCode),
			zap.String("status", string(sub.Status)),
			zap.String("plan", string(plan)))
	} else {
		s.logger.Info("One-off charge recorded without subscription",
			zap.String("provider", ev.Provider),
			zap.String("reference", ev.Reference))
	}

	return nil
}

func (s *WebhookService) reconcileMetadata(ev *provider.Event) (uuid.UUID, model.PlanID, billing.Interval, error) {
	meta := ev.Metadata
	if meta.UserID == "" || meta.PlanID == "" || meta.BillingInterval == "" {
		return uuid.Nil, "", "", apperrors.Validation("charge event is missing reconciliation metadata")
	}

	userID, err := uuid.Parse(meta.UserID)
	if err != nil {
		return uuid.Nil, "", "", apperrors.Validationf("invalid user id in metadata: %s", meta.UserID)
	}

	plan, err := model.ParsePlan(meta.PlanID)
	if err != nil {
		return uuid.Nil, "", "", apperrors.Validation(err.Error())
	}

	interval, err := billing.ParseInterval(meta.BillingInterval)
	if err != nil {
		return uuid.Nil, "", "", apperrors.Validation(err.Error())
	}

	return userID, plan, interval, nil
}

// decideSubscription maps a successful charge onto the row it implies.
//
// A charge carrying a provider plan or subscription code is a recurring
// charge: the subscription activates under the provider's own code, falling
// back to a reference-derived code when the charge precedes subscription
// creation. A trial charge gets a synthetic code and starts a trialing,
// non-renewing period. A plain one-off charge implies no subscription at all.
func (s *WebhookService) decideSubscription(ev *provider.Event, userID uuid.UUID, plan model.PlanID, interval billing.Interval, now time.Time) *model.Subscription {
	recurring := ev.PlanCode != "" || ev.SubscriptionCode != ""

	switch {
	case recurring:
		code := ev.SubscriptionCode
		if code == "" {
			code = "sub_" + ev.Reference
		}
		return &model.Subscription{
			UserID:                    userID,
			Plan:                      string(plan),
			Provider:                  ev.Provider,
			Status:                    model.SubscriptionStatusActive,
			ProviderSubscriptionCode:  code,
			ProviderCustomerCode:      ev.CustomerCode,
			ProviderAuthorizationCode: ev.AuthorizationCode,
			CurrentPeriodStart:        now,
			CurrentPeriodEnd:          billing.ComputePeriodEnd(interval, now, s.trialDays),
			CancelAtPeriodEnd:         false,
		}
	case interval == billing.IntervalTrial:
		return &model.Subscription{
			UserID:                    userID,
			Plan:                      string(plan),
			Provider:                  ev.Provider,
			Status:                    model.SubscriptionStatusTrialing,
			ProviderSubscriptionCode:  "trial_" + ev.Reference,
			ProviderCustomerCode:      ev.CustomerCode,
			ProviderAuthorizationCode: ev.AuthorizationCode,
			CurrentPeriodStart:        now,
			CurrentPeriodEnd:          billing.ComputePeriodEnd(billing.IntervalTrial, now, s.trialDays),
			CancelAtPeriodEnd:         true,
		}
	default:
		return nil
	}
}

func (s *WebhookService) recordPayment(ctx context.Context, ev *provider.Event, userID uuid.UUID) error {
	if ev.Reference == "" {
		return apperrors.Validation("charge event carries no reference for the ledger")
	}
	return s.payments.Insert(ctx, &model.Payment{
		UserID:                userID,
		Amount:                decimal.New(ev.Amount, -2),
		Currency:              ev.Currency,
		Status:                "succeeded",
		Provider:              ev.Provider,
		ProviderReference:     ev.Reference,
		ProviderTransactionID: ev.TransactionID,
		Description:           "subscription charge",
	})
}

func (s *WebhookService) handleSubscriptionDisabled(ctx context.Context, ev *provider.Event) error {
	if ev.SubscriptionCode == "" {
		s.logger.Warn("Disable event carries no subscription code, acknowledged",
			zap.String("provider", ev.Provider))
		return nil
	}

	sub, err := s.subscriptions.UpdateStatusByCode(ctx, ev.SubscriptionCode, model.SubscriptionStatusCanceled)
	if err != nil {
		return err
	}

	if err := s.users.SetSubscriptionTier(ctx, sub.UserID, model.TierFree); err != nil {
		return apperrors.Wrap(err, "failed to downgrade entitlement")
	}

	s.logger.Info("Subscription canceled",
		zap.String("provider", ev.Provider),
		zap.String("subscription_code", ev.SubscriptionCode),
		zap.String("user_id", sub.UserID.String()))
	return nil
}

// handleSubscriptionNotRenewing flips the renewal flag only. The customer
// keeps access until the period ends; the provider's disable event does the
// downgrade.
func (s *WebhookService) handleSubscriptionNotRenewing(ctx context.Context, ev *provider.Event) error {
	if ev.SubscriptionCode == "" {
		s.logger.Warn("Not-renew event carries no subscription code, acknowledged",
			zap.String("provider", ev.Provider))
		return nil
	}

	sub, err := s.subscriptions.SetCancelAtPeriodEnd(ctx, ev.SubscriptionCode, true)
	if err != nil {
		return err
	}

	s.logger.Info("Subscription set to not renew",
		zap.String("provider", ev.Provider),
		zap.String("subscription_code", ev.SubscriptionCode),
		zap.Time("access_until", sub.CurrentPeriodEnd))
	return nil
}

// handleChargeFailed marks the subscription past_due without touching the
// entitlement tier; the grace decision belongs to the disable event that
// follows if the provider gives up retrying.
func (s *WebhookService) handleChargeFailed(ctx context.Context, ev *provider.Event) error {
	if ev.SubscriptionCode == "" {
		// A failed one-off charge never created anything to transition.
		s.logger.Info("Charge failure without subscription code acknowledged",
			zap.String("provider", ev.Provider),
			zap.String("reference", ev.Reference))
		return nil
	}

	sub, err := s.subscriptions.UpdateStatusByCode(ctx, ev.SubscriptionCode, model.SubscriptionStatusPastDue)
	if err != nil {
		return err
	}

	s.logger.Warn("Subscription marked past due",
		zap.String("provider", ev.Provider),
		zap.String("subscription_code", ev.SubscriptionCode),
		zap.String("user_id", sub.UserID.String()))
	return nil
}
