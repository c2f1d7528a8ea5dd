// Package provider defines the provider-agnostic contract the billing service
// programs against. Each payment provider adapter normalizes its own webhook
// payloads into the Event union defined here before any business logic runs.
package provider

import (
	"context"
	"strings"
	"time"
)

// Provider names as used in routes, config and stored rows.
const (
	NamePaystack    = "paystack"
	NameFlutterwave = "flutterwave"
	NameStripe      = "stripe"
)

// EventType is the normalized event family. Adapters map their raw event
// strings onto exactly one of these; anything unrecognized becomes
// EventUnknown, which handlers acknowledge without side effects.
type EventType string

const (
	EventChargeSuccess           EventType = "charge_success"
	EventSubscriptionCreated     EventType = "subscription_created"
	EventSubscriptionDisabled    EventType = "subscription_disabled"
	EventSubscriptionNotRenewing EventType = "subscription_not_renewing"
	EventChargeFailed            EventType = "charge_failed"
	EventUnknown                 EventType = "unknown"
)

// Metadata is the reconciliation payload staged at checkout. Its presence on
// a success event is a correctness precondition, not a nicety: it is the only
// channel by which the webhook learns what was purchased.
type Metadata struct {
	UserID          string `json:"user_id"`
	PlanID          string `json:"plan_id"`
	BillingInterval string `json:"billing_interval"`
}

// Event is a parsed, signature-verified webhook delivery.
type Event struct {
	Type     EventType
	Provider string

	// Reference is the canonical charge reference used for idempotent
	// payment-ledger matching.
	Reference string
	// SubscriptionCode is the provider's recurring-subscription identifier,
	// when the event carries one.
	SubscriptionCode string
	// PlanCode is the provider-side recurring-plan identifier; non-empty
	// means the charge implies a recurring subscription.
	PlanCode          string
	CustomerCode      string
	AuthorizationCode string
	TransactionID     string

	// Amount in the minor unit of Currency.
	Amount   int64
	Currency string

	Metadata  Metadata
	CreatedAt time.Time
}

// CheckoutRequest carries everything a provider needs to create a hosted
// payment session.
type CheckoutRequest struct {
	Reference       string
	Email           string
	Amount          int64 // minor units
	Currency        string
	PlanID          string
	BillingInterval string
	UserID          string
	SuccessURL      string
	CancelURL       string
	// PaymentMethod is "card", "mobile_money" or empty for provider default.
	PaymentMethod string
}

// CheckoutSession is the provider-hosted session the client is redirected to.
type CheckoutSession struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url"`
}

// PaymentProvider is implemented once per upstream processor.
type PaymentProvider interface {
	Name() string

	// CreateCheckoutSession creates a hosted session with the reconciliation
	// metadata embedded.
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)

	// VerifySignature checks the provider signature over the raw body bytes.
	// Callers must not parse the body when it returns an error.
	VerifySignature(payload []byte, signatureHeader string) error

	// ParseWebhook decodes a verified payload into a normalized Event.
	ParseWebhook(payload []byte) (*Event, error)

	// VerifyTransaction re-fetches the charge from the provider's
	// authoritative API and confirms reference and success status. Providers
	// whose signatures already bind a timestamped payload may implement it
	// as a no-op.
	VerifyTransaction(ctx context.Context, reference string) error
}

// Provider recommendation by settlement currency. Paystack wins its home
// markets, Flutterwave covers the East African mobile-money currencies
// Paystack does not settle, and everything else goes to Stripe.
var (
	paystackCurrencies    = map[string]bool{"NGN": true, "GHS": true, "KES": true, "ZAR": true, "EGP": true}
	flutterwaveCurrencies = map[string]bool{"UGX": true, "TZS": true, "RWF": true, "ZMW": true, "MWK": true}
)

// Recommend picks the provider best suited to settle a currency.
func Recommend(currency string) string {
	c := strings.ToUpper(currency)
	switch {
	case paystackCurrencies[c]:
		return NamePaystack
	case flutterwaveCurrencies[c]:
		return NameFlutterwave
	default:
		return NameStripe
	}
}

// Error carries the upstream provider's error code for logging and mapping.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
