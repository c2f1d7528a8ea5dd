// Package stripe implements the PaymentProvider contract for Stripe, the
// card-first processor used outside mobile-money markets.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/billing"
	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// SignatureHeader carries Stripe's timestamped HMAC-SHA256 signature.
const SignatureHeader = "Stripe-Signature"

type Client struct {
	api           *client.API
	webhookSecret string
	// prices maps "<plan>_<interval>" to a Stripe price ID.
	prices map[string]string
	logger *zap.Logger
}

func NewClient(secretKey, webhookSecret string, prices map[string]string, logger *zap.Logger) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
		prices:        prices,
		logger:        logger,
	}
}

func (c *Client) Name() string {
	return provider.NameStripe
}

// VerifySignature delegates to stripe-go's webhook verification, which checks
// an HMAC-SHA256 over a timestamped payload and rejects stale deliveries.
func (c *Client) VerifySignature(payload []byte, signatureHeader string) error {
	if c.webhookSecret == "" {
		return apperrors.Internal("stripe webhook secret is not configured", nil)
	}
	if signatureHeader == "" {
		return apperrors.Authorization("missing stripe signature header")
	}

	_, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return apperrors.Authorization("stripe signature verification failed")
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte) (*provider.Event, error) {
	var event stripeapi.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperrors.Validation("unparseable stripe webhook payload")
	}
	if event.Type == "" {
		return nil, apperrors.Validation("stripe webhook payload has no event type")
	}

	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		return c.parseCheckoutCompleted(&event)
	case stripeapi.EventTypeInvoicePaymentSucceeded:
		return c.parseInvoice(&event, provider.EventChargeSuccess)
	case stripeapi.EventTypeInvoicePaymentFailed:
		return c.parseInvoice(&event, provider.EventChargeFailed)
	case stripeapi.EventTypeCustomerSubscriptionCreated:
		return c.parseSubscription(&event, provider.EventSubscriptionCreated)
	case stripeapi.EventTypeCustomerSubscriptionUpdated:
		return c.parseSubscriptionUpdated(&event)
	case stripeapi.EventTypeCustomerSubscriptionDeleted:
		return c.parseSubscription(&event, provider.EventSubscriptionDisabled)
	default:
		return &provider.Event{Type: provider.EventUnknown, Provider: provider.NameStripe}, nil
	}
}

func (c *Client) parseCheckoutCompleted(event *stripeapi.Event) (*provider.Event, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, apperrors.Validation("unparseable stripe checkout session payload")
	}

	// Sessions complete asynchronously for some payment methods; anything not
	// yet paid is acknowledged without action and the paired async event will
	// carry the success.
	if session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		return &provider.Event{Type: provider.EventUnknown, Provider: provider.NameStripe}, nil
	}

	ev := &provider.Event{
		Type:      provider.EventChargeSuccess,
		Provider:  provider.NameStripe,
		Reference: session.ClientReferenceID,
		Amount:    session.AmountTotal,
		Currency:  string(session.Currency),
		Metadata:  metadataFromMap(session.Metadata),
	}
	if ev.Reference == "" {
		ev.Reference = session.ID
	}
	if session.Customer != nil {
		ev.CustomerCode = session.Customer.ID
	}
	if session.Subscription != nil {
		ev.SubscriptionCode = session.Subscription.ID
		ev.PlanCode = session.Subscription.ID
	}
	return ev, nil
}

func (c *Client) parseInvoice(event *stripeapi.Event, eventType provider.EventType) (*provider.Event, error) {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, apperrors.Validation("unparseable stripe invoice payload")
	}

	ev := &provider.Event{
		Type:      eventType,
		Provider:  provider.NameStripe,
		Reference: invoice.ID,
		Amount:    invoice.AmountPaid,
		Currency:  string(invoice.Currency),
	}
	if eventType == provider.EventChargeFailed {
		ev.Amount = invoice.AmountDue
	}
	if invoice.Customer != nil {
		ev.CustomerCode = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		ev.SubscriptionCode = invoice.Subscription.ID
		ev.PlanCode = invoice.Subscription.ID
	}
	if invoice.SubscriptionDetails != nil {
		ev.Metadata = metadataFromMap(invoice.SubscriptionDetails.Metadata)
	}
	return ev, nil
}

func (c *Client) parseSubscription(event *stripeapi.Event, eventType provider.EventType) (*provider.Event, error) {
	sub, err := subscriptionFromEvent(event)
	if err != nil {
		return nil, err
	}

	ev := &provider.Event{
		Type:             eventType,
		Provider:         provider.NameStripe,
		SubscriptionCode: sub.ID,
		Metadata:         metadataFromMap(sub.Metadata),
	}
	if sub.Customer != nil {
		ev.CustomerCode = sub.Customer.ID
	}
	return ev, nil
}

// A subscription update only matters here when the customer turned off
// auto-renewal; everything else about the subscription is owned by the
// success/failure events.
func (c *Client) parseSubscriptionUpdated(event *stripeapi.Event) (*provider.Event, error) {
	sub, err := subscriptionFromEvent(event)
	if err != nil {
		return nil, err
	}

	if !sub.CancelAtPeriodEnd {
		return &provider.Event{Type: provider.EventUnknown, Provider: provider.NameStripe}, nil
	}

	ev := &provider.Event{
		Type:             provider.EventSubscriptionNotRenewing,
		Provider:         provider.NameStripe,
		SubscriptionCode: sub.ID,
		Metadata:         metadataFromMap(sub.Metadata),
	}
	if sub.Customer != nil {
		ev.CustomerCode = sub.Customer.ID
	}
	return ev, nil
}

func subscriptionFromEvent(event *stripeapi.Event) (*stripeapi.Subscription, error) {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, apperrors.Validation("unparseable stripe subscription payload")
	}
	return &sub, nil
}

func metadataFromMap(m map[string]string) provider.Metadata {
	return provider.Metadata{
		UserID:          m["user_id"],
		PlanID:          m["plan_id"],
		BillingInterval: m["billing_interval"],
	}
}

// CreateCheckoutSession creates a Stripe-hosted checkout. Recurring intervals
// use subscription mode against a preconfigured price; paid trials are a
// one-off payment so the trial entitlement stays under this service's
// control.
func (c *Client) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	metadata := map[string]string{
		"user_id":          req.UserID,
		"plan_id":          req.PlanID,
		"billing_interval": req.BillingInterval,
	}

	params := &stripeapi.CheckoutSessionParams{
		Params:             stripeapi.Params{Context: ctx, Metadata: metadata},
		ClientReferenceID:  stripeapi.String(req.Reference),
		CustomerEmail:      stripeapi.String(req.Email),
		SuccessURL:         stripeapi.String(req.SuccessURL),
		CancelURL:          stripeapi.String(req.CancelURL),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
	}

	if req.BillingInterval == string(billing.IntervalTrial) {
		params.Mode = stripeapi.String(string(stripeapi.CheckoutSessionModePayment))
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(req.Currency),
				UnitAmount: stripeapi.Int64(req.Amount),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(fmt.Sprintf("%s plan trial", req.PlanID)),
				},
			},
		}}
		params.PaymentIntentData = &stripeapi.CheckoutSessionPaymentIntentDataParams{Metadata: metadata}
	} else {
		priceID, ok := c.prices[req.PlanID+"_"+req.BillingInterval]
		if !ok {
			return nil, apperrors.Validationf("no stripe price configured for %s/%s", req.PlanID, req.BillingInterval)
		}
		params.Mode = stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription))
		params.LineItems = []*stripeapi.CheckoutSessionLineItemParams{{
			Price:    stripeapi.String(priceID),
			Quantity: stripeapi.Int64(1),
		}}
		params.SubscriptionData = &stripeapi.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		c.logger.Error("Failed to create stripe checkout session",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, &provider.Error{Code: "CHECKOUT_CREATE_FAILED", Message: "stripe checkout session creation failed", Details: err.Error()}
	}

	return &provider.CheckoutSession{
		Provider:  provider.NameStripe,
		Reference: req.Reference,
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// VerifyTransaction is a no-op for Stripe: the signature binds a timestamped
// payload under a dedicated webhook secret, so there is no replay window to
// re-check against the API.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) error {
	return nil
}
