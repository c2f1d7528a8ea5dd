package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

const testSecret = "sk_test_abc123"

func sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := NewClient(testSecret, zap.NewNop())
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1"}}`)

	t.Run("valid signature passes", func(t *testing.T) {
		assert.NoError(t, c.VerifySignature(body, sign(body, testSecret)))
	})

	t.Run("one flipped byte invalidates the signature", func(t *testing.T) {
		sig := sign(body, testSecret)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = '2'
		err := c.VerifySignature(tampered, sig)
		assert.Error(t, err)
		assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		err := c.VerifySignature(body, "")
		assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	})

	t.Run("missing secret is a server misconfiguration", func(t *testing.T) {
		unconfigured := NewClient("", zap.NewNop())
		err := unconfigured.VerifySignature(body, sign(body, testSecret))
		assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	})
}

func TestParseWebhook(t *testing.T) {
	c := NewClient(testSecret, zap.NewNop())

	t.Run("charge success with plan and metadata", func(t *testing.T) {
		payload := []byte(`{
			"event": "charge.success",
			"data": {
				"id": 302961,
				"reference": "ref_1",
				"status": "success",
				"amount": 1250000,
				"currency": "NGN",
				"metadata": {"user_id": "u-1", "plan_id": "pro", "billing_interval": "monthly"},
				"customer": {"customer_code": "CUS_xr58yrr2ujlft9k", "email": "a@b.co"},
				"authorization": {"authorization_code": "AUTH_8dfhjjdt"},
				"plan": {"plan_code": "PLN_gx2wn530m0i3w3m", "interval": "monthly"}
			}
		}`)

		ev, err := c.ParseWebhook(payload)
		assert.NoError(t, err)
		assert.Equal(t, provider.EventChargeSuccess, ev.Type)
		assert.Equal(t, "ref_1", ev.Reference)
		assert.Equal(t, "PLN_gx2wn530m0i3w3m", ev.PlanCode)
		assert.Equal(t, "AUTH_8dfhjjdt", ev.AuthorizationCode)
		assert.Equal(t, "u-1", ev.Metadata.UserID)
		assert.Equal(t, "pro", ev.Metadata.PlanID)
		assert.Equal(t, "monthly", ev.Metadata.BillingInterval)
		assert.Equal(t, int64(1250000), ev.Amount)
	})

	t.Run("empty plan object means no recurring plan", func(t *testing.T) {
		payload := []byte(`{"event":"charge.success","data":{"reference":"ref_2","plan":{}}}`)
		ev, err := c.ParseWebhook(payload)
		assert.NoError(t, err)
		assert.Empty(t, ev.PlanCode)
	})

	t.Run("metadata serialized as empty string is tolerated", func(t *testing.T) {
		payload := []byte(`{"event":"charge.success","data":{"reference":"ref_3","metadata":""}}`)
		ev, err := c.ParseWebhook(payload)
		assert.NoError(t, err)
		assert.Empty(t, ev.Metadata.UserID)
	})

	t.Run("subscription disable carries nested subscription code", func(t *testing.T) {
		payload := []byte(`{
			"event": "subscription.disable",
			"data": {"subscription": {"subscription_code": "SUB_vsyqdmlzble3uii"}}
		}`)
		ev, err := c.ParseWebhook(payload)
		assert.NoError(t, err)
		assert.Equal(t, provider.EventSubscriptionDisabled, ev.Type)
		assert.Equal(t, "SUB_vsyqdmlzble3uii", ev.SubscriptionCode)
	})

	t.Run("unrecognized event maps to unknown", func(t *testing.T) {
		ev, err := c.ParseWebhook([]byte(`{"event":"transfer.success","data":{}}`))
		assert.NoError(t, err)
		assert.Equal(t, provider.EventUnknown, ev.Type)
	})

	t.Run("unparseable payload is a validation error", func(t *testing.T) {
		_, err := c.ParseWebhook([]byte(`{not json`))
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

		_, err = c.ParseWebhook([]byte(`{"data":{}}`))
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})
}

func TestVerifyTransaction(t *testing.T) {
	t.Run("accepts matching successful transaction", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/verify/ref_1", r.URL.Path)
			assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))
			w.Write([]byte(`{"status":true,"data":{"reference":"ref_1","status":"success"}}`))
		}))
		defer srv.Close()

		c := NewClientWithBaseURL(testSecret, srv.URL, zap.NewNop())
		assert.NoError(t, c.VerifyTransaction(context.Background(), "ref_1"))
	})

	t.Run("rejects reference mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"data":{"reference":"something_else","status":"success"}}`))
		}))
		defer srv.Close()

		c := NewClientWithBaseURL(testSecret, srv.URL, zap.NewNop())
		err := c.VerifyTransaction(context.Background(), "ref_1")
		assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	})

	t.Run("rejects non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"data":{"reference":"ref_1","status":"failed"}}`))
		}))
		defer srv.Close()

		c := NewClientWithBaseURL(testSecret, srv.URL, zap.NewNop())
		err := c.VerifyTransaction(context.Background(), "ref_1")
		assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	})

	t.Run("canceled context aborts the call", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"data":{"reference":"ref_1","status":"success"}}`))
		}))
		defer srv.Close()

		c := NewClientWithBaseURL(testSecret, srv.URL, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, c.VerifyTransaction(ctx, "ref_1"))
	})

	t.Run("empty reference never reaches the API", func(t *testing.T) {
		c := NewClient(testSecret, zap.NewNop())
		err := c.VerifyTransaction(context.Background(), "")
		assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)

		var req initializeRequest
		assert.NoError(t, decodeJSONBody(r, &req))
		assert.Equal(t, "buyer@example.com", req.Email)
		assert.Equal(t, "u-1", req.Metadata.UserID)
		assert.Equal(t, "pro", req.Metadata.PlanID)
		assert.Equal(t, "monthly", req.Metadata.BillingInterval)
		assert.Equal(t, []string{"mobile_money", "card"}, req.Channels)

		w.Write([]byte(`{"status":true,"data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"ac_1","reference":"ref_1"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testSecret, srv.URL, zap.NewNop())
	session, err := c.CreateCheckoutSession(context.Background(), &provider.CheckoutRequest{
		Reference:       "ref_1",
		Email:           "buyer@example.com",
		Amount:          1250000,
		Currency:        "NGN",
		PlanID:          "pro",
		BillingInterval: "monthly",
		UserID:          "u-1",
		SuccessURL:      "https://app.example.com/billing/success",
		PaymentMethod:   "mobile_money",
	})

	assert.NoError(t, err)
	assert.Equal(t, "ref_1", session.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc", session.URL)
}

func decodeJSONBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
