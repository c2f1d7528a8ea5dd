package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *mockProvider) VerifySignature(payload []byte, signatureHeader string) error {
	return m.Called(payload, signatureHeader).Error(0)
}

func (m *mockProvider) ParseWebhook(payload []byte) (*provider.Event, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

func (m *mockProvider) VerifyTransaction(ctx context.Context, reference string) error {
	return m.Called(ctx, reference).Error(0)
}

type stubRegistry struct {
	providers map[string]provider.PaymentProvider
}

func (r *stubRegistry) ForName(name string) (provider.PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperrors.Validationf("unsupported payment provider: %s", name)
	}
	return p, nil
}

type mockEventHandler struct {
	mock.Mock
}

func (m *mockEventHandler) HandleEvent(ctx context.Context, ev *provider.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func newWebhookFixture(p *mockProvider) (*WebhookHandler, *mockEventHandler) {
	events := new(mockEventHandler)
	registry := &stubRegistry{providers: map[string]provider.PaymentProvider{p.name: p}}
	return NewWebhookHandler(registry, events, zap.NewNop()), events
}

func postWebhook(h echo.HandlerFunc, body, signature string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestWebhookChargeSuccessPipeline(t *testing.T) {
	p := &mockProvider{name: provider.NamePaystack}
	h, events := newWebhookFixture(p)

	body := `{"event":"charge.success"}`
	ev := &provider.Event{Type: provider.EventChargeSuccess, Provider: provider.NamePaystack, Reference: "ref_1"}

	p.On("VerifySignature", []byte(body), "sig").Return(nil)
	p.On("ParseWebhook", []byte(body)).Return(ev, nil)
	p.On("VerifyTransaction", mock.Anything, "ref_1").Return(nil)
	events.On("HandleEvent", mock.Anything, ev).Return(nil)

	rec, err := postWebhook(h.HandlePaystack, body, "sig")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	p.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestWebhookBadSignatureStopsPipeline(t *testing.T) {
	p := &mockProvider{name: provider.NamePaystack}
	h, events := newWebhookFixture(p)

	p.On("VerifySignature", mock.Anything, "bad").Return(apperrors.Authorization("signature mismatch"))

	_, err := postWebhook(h.HandlePaystack, `{"event":"charge.success"}`, "bad")
	assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	p.AssertNotCalled(t, "ParseWebhook", mock.Anything)
	events.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}

func TestWebhookFailedReverificationStopsPipeline(t *testing.T) {
	p := &mockProvider{name: provider.NamePaystack}
	h, events := newWebhookFixture(p)

	body := `{"event":"charge.success"}`
	ev := &provider.Event{Type: provider.EventChargeSuccess, Provider: provider.NamePaystack, Reference: "ref_1"}

	p.On("VerifySignature", mock.Anything, "sig").Return(nil)
	p.On("ParseWebhook", mock.Anything).Return(ev, nil)
	p.On("VerifyTransaction", mock.Anything, "ref_1").Return(apperrors.Authorization("verification failed"))

	_, err := postWebhook(h.HandlePaystack, body, "sig")
	assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))
	events.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}

func TestWebhookNonSuccessEventSkipsReverification(t *testing.T) {
	p := &mockProvider{name: provider.NamePaystack}
	h, events := newWebhookFixture(p)

	body := `{"event":"subscription.disable"}`
	ev := &provider.Event{Type: provider.EventSubscriptionDisabled, Provider: provider.NamePaystack, SubscriptionCode: "SUB_1"}

	p.On("VerifySignature", mock.Anything, "sig").Return(nil)
	p.On("ParseWebhook", mock.Anything).Return(ev, nil)
	events.On("HandleEvent", mock.Anything, ev).Return(nil)

	rec, err := postWebhook(h.HandlePaystack, body, "sig")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	p.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
}

func TestWebhookUnparseablePayload(t *testing.T) {
	p := &mockProvider{name: provider.NamePaystack}
	h, events := newWebhookFixture(p)

	p.On("VerifySignature", mock.Anything, "sig").Return(nil)
	p.On("ParseWebhook", mock.Anything).Return(nil, apperrors.Validation("unparseable payload"))

	_, err := postWebhook(h.HandlePaystack, `garbage`, "sig")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	events.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}
