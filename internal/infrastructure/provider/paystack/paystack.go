// Package paystack implements the PaymentProvider contract for Paystack, the
// card-and-mobile-money aggregator used for African settlement currencies.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	// Paystack's verify endpoint is the authoritative source for a charge;
	// re-verification must not hang a webhook worker indefinitely.
	verifyTimeout = 15 * time.Second
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw body under the
// account secret key.
const SignatureHeader = "x-paystack-signature"

type Client struct {
	secretKey string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

func NewClient(secretKey string, logger *zap.Logger) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: verifyTimeout},
		logger:    logger,
	}
}

// NewClientWithBaseURL points the client at a non-production API host.
func NewClientWithBaseURL(secretKey, baseURL string, logger *zap.Logger) *Client {
	c := NewClient(secretKey, logger)
	c.baseURL = baseURL
	return c
}

func (c *Client) Name() string {
	return provider.NamePaystack
}

// VerifySignature checks the HMAC-SHA512 of the raw body. Paystack signs with
// the account secret key itself, so a missing key is a server misconfiguration
// rather than a client fault.
func (c *Client) VerifySignature(payload []byte, signatureHeader string) error {
	if c.secretKey == "" {
		return apperrors.Internal("paystack secret key is not configured", nil)
	}
	if signatureHeader == "" {
		return apperrors.Authorization("missing paystack signature header")
	}

	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return apperrors.Authorization("paystack signature mismatch")
	}
	return nil
}

// webhookEnvelope is the explicit schema for the Paystack events we act on.
// Anything that fails to decode is rejected before business logic runs.
type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"reference"`
	OfferReference   string          `json:"offer_reference"`
	Status           string          `json:"status"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	SubscriptionCode string          `json:"subscription_code"`
	PaidAt           string          `json:"paid_at"`
	Metadata         webhookMetadata `json:"metadata"`
	Customer         struct {
		CustomerCode string `json:"customer_code"`
		Email        string `json:"email"`
	} `json:"customer"`
	Authorization struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
	Plan json.RawMessage `json:"plan"`
	// Disable/not-renew events nest the subscription under "subscription".
	Subscription struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription"`
}

// webhookMetadata tolerates Paystack's habit of turning empty metadata into
// "" or [] instead of an object.
type webhookMetadata struct {
	provider.Metadata
}

func (m *webhookMetadata) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	return json.Unmarshal(data, &m.Metadata)
}

// planInfo is the subset of the plan object that matters for reconciliation.
type planInfo struct {
	PlanCode string `json:"plan_code"`
	Interval string `json:"interval"`
}

func (c *Client) ParseWebhook(payload []byte) (*provider.Event, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, apperrors.Validation("unparseable paystack webhook payload")
	}
	if envelope.Event == "" {
		return nil, apperrors.Validation("paystack webhook payload has no event field")
	}

	data := envelope.Data
	ev := &provider.Event{
		Type:              mapEventType(envelope.Event),
		Provider:          provider.NamePaystack,
		Reference:         data.Reference,
		SubscriptionCode:  data.SubscriptionCode,
		CustomerCode:      data.Customer.CustomerCode,
		AuthorizationCode: data.Authorization.AuthorizationCode,
		TransactionID:     fmt.Sprintf("%d", data.ID),
		Amount:            data.Amount,
		Currency:          data.Currency,
		Metadata:          data.Metadata.Metadata,
		CreatedAt:         time.Now(),
	}

	if ev.SubscriptionCode == "" {
		ev.SubscriptionCode = data.Subscription.SubscriptionCode
	}

	// "plan" is {} for plain charges and a populated object for charges
	// belonging to a recurring plan.
	if len(data.Plan) > 0 {
		var plan planInfo
		if err := json.Unmarshal(data.Plan, &plan); err == nil {
			ev.PlanCode = plan.PlanCode
		}
	}

	return ev, nil
}

func mapEventType(event string) provider.EventType {
	switch event {
	case "charge.success":
		return provider.EventChargeSuccess
	case "subscription.create":
		return provider.EventSubscriptionCreated
	case "subscription.disable":
		return provider.EventSubscriptionDisabled
	case "subscription.not_renew":
		return provider.EventSubscriptionNotRenewing
	case "invoice.payment_failed", "charge.failed":
		return provider.EventChargeFailed
	default:
		return provider.EventUnknown
	}
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Channels    []string          `json:"channels,omitempty"`
	Metadata    provider.Metadata `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// CreateCheckoutSession initializes a Paystack transaction carrying the
// reconciliation metadata and returns the hosted payment page.
// POST /transaction/initialize
func (c *Client) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	channels := []string{"card"}
	if req.PaymentMethod == "mobile_money" {
		channels = []string{"mobile_money", "card"}
	}

	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.SuccessURL,
		Channels:    channels,
		Metadata: provider.Metadata{
			UserID:          req.UserID,
			PlanID:          req.PlanID,
			BillingInterval: req.BillingInterval,
		},
	}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &provider.Error{Code: "INITIALIZE_FAILED", Message: resp.Message}
	}

	c.logger.Info("Paystack transaction initialized",
		zap.String("reference", resp.Data.Reference))

	return &provider.CheckoutSession{
		Provider:  provider.NamePaystack,
		Reference: resp.Data.Reference,
		SessionID: resp.Data.AccessCode,
		URL:       resp.Data.AuthorizationURL,
	}, nil
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// VerifyTransaction re-fetches the charge from Paystack's authoritative API.
// The webhook secret is the rotatable account key, so a valid signature alone
// is not proof the charge exists.
// GET /transaction/verify/{reference}
func (c *Client) VerifyTransaction(ctx context.Context, reference string) error {
	if reference == "" {
		return apperrors.Authorization("paystack event carries no reference to verify")
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	var resp verifyResponse
	if err := c.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		return err
	}

	if !resp.Status || resp.Data.Status != "success" || resp.Data.Reference != reference {
		c.logger.Warn("Paystack transaction verification mismatch",
			zap.String("webhook_reference", reference),
			zap.String("fetched_reference", resp.Data.Reference),
			zap.String("fetched_status", resp.Data.Status))
		return apperrors.Authorization("paystack transaction verification failed")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return &provider.Error{Code: "MARSHAL_ERROR", Message: "failed to prepare request", Details: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return &provider.Error{Code: "REQUEST_ERROR", Message: "failed to create request", Details: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &provider.Error{Code: "REQUEST_ERROR", Message: "failed to create request", Details: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Paystack API request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return &provider.Error{Code: "API_ERROR", Message: "paystack API request failed", Details: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{Code: "RESPONSE_ERROR", Message: "failed to read response", Details: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		c.logger.Error("Paystack API returned an error",
			zap.String("path", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", errResp.Message))

		return &provider.Error{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: errResp.Message,
			Details: string(respBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &provider.Error{Code: "PARSE_ERROR", Message: "failed to parse response", Details: err.Error()}
	}
	return nil
}
