// Package flutterwave implements the PaymentProvider contract for
// Flutterwave, the mobile-money-first aggregator covering East African
// settlement currencies.
package flutterwave

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

const (
	defaultBaseURL = "https://api.flutterwave.com/v3"
	verifyTimeout  = 15 * time.Second
)

// SignatureHeader carries the literal secret hash configured in the
// Flutterwave dashboard. There is no per-payload MAC; the header is a shared
// secret, which is exactly why success events get re-verified upstream.
const SignatureHeader = "verif-hash"

type Client struct {
	secretKey   string
	webhookHash string
	baseURL     string
	client      *http.Client
	logger      *zap.Logger
}

func NewClient(secretKey, webhookHash string, logger *zap.Logger) *Client {
	return &Client{
		secretKey:   secretKey,
		webhookHash: webhookHash,
		baseURL:     defaultBaseURL,
		client:      &http.Client{Timeout: verifyTimeout},
		logger:      logger,
	}
}

// NewClientWithBaseURL points the client at a non-production API host.
func NewClientWithBaseURL(secretKey, webhookHash, baseURL string, logger *zap.Logger) *Client {
	c := NewClient(secretKey, webhookHash, logger)
	c.baseURL = baseURL
	return c
}

func (c *Client) Name() string {
	return provider.NameFlutterwave
}

// VerifySignature compares the verif-hash header against the configured
// secret hash in constant time.
func (c *Client) VerifySignature(payload []byte, signatureHeader string) error {
	if c.webhookHash == "" {
		return apperrors.Internal("flutterwave webhook hash is not configured", nil)
	}
	if signatureHeader == "" {
		return apperrors.Authorization("missing flutterwave verif-hash header")
	}
	if subtle.ConstantTimeCompare([]byte(c.webhookHash), []byte(signatureHeader)) != 1 {
		return apperrors.Authorization("flutterwave verif-hash mismatch")
	}
	return nil
}

type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	FlwRef   string  `json:"flw_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Customer struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"customer"`
	Card struct {
		Token string `json:"token"`
	} `json:"card"`
	PaymentPlan int64             `json:"payment_plan"`
	Meta        provider.Metadata `json:"meta"`
}

func (c *Client) ParseWebhook(payload []byte) (*provider.Event, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, apperrors.Validation("unparseable flutterwave webhook payload")
	}
	if envelope.Event == "" {
		return nil, apperrors.Validation("flutterwave webhook payload has no event field")
	}

	data := envelope.Data
	ev := &provider.Event{
		Type:              mapEventType(envelope.Event, data.Status),
		Provider:          provider.NameFlutterwave,
		Reference:         data.TxRef,
		CustomerCode:      fmt.Sprintf("%d", data.Customer.ID),
		AuthorizationCode: data.Card.Token,
		TransactionID:     fmt.Sprintf("%d", data.ID),
		// Flutterwave reports major units; the ledger stores minor units.
		// Rounded, not truncated: 19.99 * 100 is 1998.999... in binary.
		Amount:    int64(math.Round(data.Amount * 100)),
		Currency:  data.Currency,
		Metadata:  data.Meta,
		CreatedAt: time.Now(),
	}

	if data.PaymentPlan != 0 {
		ev.PlanCode = fmt.Sprintf("%d", data.PaymentPlan)
		ev.SubscriptionCode = fmt.Sprintf("flw_plan_%d_cus_%d", data.PaymentPlan, data.Customer.ID)
	}

	return ev, nil
}

func mapEventType(event, status string) provider.EventType {
	switch event {
	case "charge.completed":
		if status == "successful" {
			return provider.EventChargeSuccess
		}
		return provider.EventChargeFailed
	case "subscription.cancelled":
		return provider.EventSubscriptionDisabled
	default:
		return provider.EventUnknown
	}
}

type paymentRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url"`
	PaymentOptions string            `json:"payment_options,omitempty"`
	Customer       paymentCustomer   `json:"customer"`
	Meta           provider.Metadata `json:"meta"`
}

type paymentCustomer struct {
	Email string `json:"email"`
}

type paymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// CreateCheckoutSession creates a hosted payment page.
// POST /payments
func (c *Client) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	options := "card"
	if req.PaymentMethod == "mobile_money" {
		options = "mobilemoneyghana,mobilemoneyuganda,mpesa,card"
	}

	body := paymentRequest{
		TxRef: req.Reference,
		// Flutterwave takes major units.
		Amount:         fmt.Sprintf("%d.%02d", req.Amount/100, req.Amount%100),
		Currency:       req.Currency,
		RedirectURL:    req.SuccessURL,
		PaymentOptions: options,
		Customer:       paymentCustomer{Email: req.Email},
		Meta: provider.Metadata{
			UserID:          req.UserID,
			PlanID:          req.PlanID,
			BillingInterval: req.BillingInterval,
		},
	}

	var resp paymentResponse
	if err := c.post(ctx, "/payments", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, &provider.Error{Code: "PAYMENT_CREATE_FAILED", Message: resp.Message}
	}

	c.logger.Info("Flutterwave payment session created",
		zap.String("tx_ref", req.Reference))

	return &provider.CheckoutSession{
		Provider:  provider.NameFlutterwave,
		Reference: req.Reference,
		URL:       resp.Data.Link,
	}, nil
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

// VerifyTransaction re-fetches the charge by reference. The webhook header is
// a shared secret rather than a payload MAC, so the payload itself is never
// trusted without this call.
// GET /transactions/verify_by_reference?tx_ref=...
func (c *Client) VerifyTransaction(ctx context.Context, reference string) error {
	if reference == "" {
		return apperrors.Authorization("flutterwave event carries no reference to verify")
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	var resp verifyResponse
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	if err := c.get(ctx, path, &resp); err != nil {
		return err
	}

	if resp.Status != "success" || resp.Data.Status != "successful" || resp.Data.TxRef != reference {
		c.logger.Warn("Flutterwave transaction verification mismatch",
			zap.String("webhook_reference", reference),
			zap.String("fetched_reference", resp.Data.TxRef),
			zap.String("fetched_status", resp.Data.Status))
		return apperrors.Authorization("flutterwave transaction verification failed")
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
		c.logger.Error("Flutterwave API request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return &provider.Error{Code: "API_ERROR", Message: "flutterwave API request failed", Details: err.Error()}
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

		c.logger.Error("Flutterwave API returned an error",
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
