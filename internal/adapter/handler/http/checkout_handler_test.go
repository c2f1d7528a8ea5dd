package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/infrastructure/geo"
	"github.com/scantablehq/billing-service/internal/middleware/auth"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
	"github.com/scantablehq/billing-service/internal/usecase"
)

var testUserID = uuid.MustParse("6b5b7f0a-6f44-4d2a-a9f7-3c1f15d1a001")

const testReturnURLs = `"success_url":"https://app.example.com/billing/success","cancel_url":"https://app.example.com/billing/cancel"`

type mockSessionCreator struct {
	mock.Mock
}

func (m *mockSessionCreator) CreateSession(ctx context.Context, in *usecase.CheckoutInput) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

// geoDetectorStub pins detection to Nigeria so tests exercise the
// currency-from-geo path deterministically.
type geoDetectorStub struct{}

func (geoDetectorStub) Detect(headers http.Header, override string) geo.Location {
	return geo.Location{Country: "NG", Currency: "NGN"}
}

func postCheckout(h *CheckoutHandler, body string, user *auth.AuthUser) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("CF-IPCountry", "NG")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set("authenticated_user", user)
	}
	return rec, h.CreateSession(c)
}

func TestCreateSessionAuthenticated(t *testing.T) {
	creator := new(mockSessionCreator)
	h := newCheckoutHandler(creator)

	creator.On("CreateSession", mock.Anything, mock.MatchedBy(func(in *usecase.CheckoutInput) bool {
		return in.UserID == testUserID.String() &&
			in.Email == "token@example.com" &&
			in.Currency == "NGN" &&
			in.SuccessURL == "https://app.example.com/billing/success" &&
			in.CancelURL == "https://app.example.com/billing/cancel"
	})).Return(&provider.CheckoutSession{Provider: "paystack", Reference: "stb_1", URL: "https://pay"}, nil)

	rec, err := postCheckout(h, `{"plan":"pro","billing_interval":"monthly","email":"body@example.com",`+testReturnURLs+`}`,
		&auth.AuthUser{UserID: testUserID, Email: "token@example.com"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	creator.AssertExpectations(t)
}

func TestCreateSessionAnonymousWithEmail(t *testing.T) {
	creator := new(mockSessionCreator)
	h := newCheckoutHandler(creator)

	creator.On("CreateSession", mock.Anything, mock.MatchedBy(func(in *usecase.CheckoutInput) bool {
		return in.Email == "body@example.com" && in.UserID == testUserID.String()
	})).Return(&provider.CheckoutSession{Provider: "paystack", Reference: "stb_1", URL: "https://pay"}, nil)

	body := `{"plan":"pro","billing_interval":"monthly","email":"body@example.com","user_id":"` + testUserID.String() + `",` + testReturnURLs + `}`
	rec, err := postCheckout(h, body, nil)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSessionNoEmailIsUnauthenticated(t *testing.T) {
	creator := new(mockSessionCreator)
	h := newCheckoutHandler(creator)

	_, err := postCheckout(h, `{"plan":"pro","billing_interval":"monthly",`+testReturnURLs+`}`, nil)
	assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
	creator.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCreateSessionExplicitCurrencySkipsDetection(t *testing.T) {
	creator := new(mockSessionCreator)
	h := newCheckoutHandler(creator)

	creator.On("CreateSession", mock.Anything, mock.MatchedBy(func(in *usecase.CheckoutInput) bool {
		return in.Currency == "USD"
	})).Return(&provider.CheckoutSession{Provider: "stripe", Reference: "stb_1", URL: "https://pay"}, nil)

	body := `{"plan":"pro","billing_interval":"monthly","currency":"USD","email":"a@b.co","user_id":"` + testUserID.String() + `",` + testReturnURLs + `}`
	_, err := postCheckout(h, body, nil)
	assert.NoError(t, err)
	creator.AssertExpectations(t)
}

func TestCreateSessionRejectsMalformedBody(t *testing.T) {
	creator := new(mockSessionCreator)
	h := newCheckoutHandler(creator)

	cases := []struct {
		name string
		body string
	}{
		{"missing plan", `{"billing_interval":"monthly","email":"a@b.co",` + testReturnURLs + `}`},
		{"missing interval", `{"plan":"pro","email":"a@b.co",` + testReturnURLs + `}`},
		{"bad email", `{"plan":"pro","billing_interval":"monthly","email":"not-an-email",` + testReturnURLs + `}`},
		{"bad provider", `{"plan":"pro","billing_interval":"monthly","email":"a@b.co","provider":"razorpay",` + testReturnURLs + `}`},
		{"bad payment method", `{"plan":"pro","billing_interval":"monthly","email":"a@b.co","payment_method":"cash",` + testReturnURLs + `}`},
		{"missing return urls", `{"plan":"pro","billing_interval":"monthly","email":"a@b.co"}`},
		{"relative success url", `{"plan":"pro","billing_interval":"monthly","email":"a@b.co","success_url":"/done","cancel_url":"https://app.example.com/billing/cancel"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := postCheckout(h, tc.body, nil)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}
}

type mockSubscriptionReader struct {
	mock.Mock
}

func (m *mockSubscriptionReader) Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func getCurrent(h *SubscriptionHandler, user *auth.AuthUser) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/current", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set("authenticated_user", user)
	}
	return rec, h.GetCurrent(c)
}

func TestGetCurrentSubscription(t *testing.T) {
	t.Run("active subscription reports its plan as tier", func(t *testing.T) {
		reader := new(mockSubscriptionReader)
		reader.On("Current", mock.Anything, testUserID).Return(&model.Subscription{
			UserID: testUserID,
			Plan:   "pro",
			Status: model.SubscriptionStatusActive,
		}, nil)

		rec, err := getCurrent(NewSubscriptionHandler(reader), &auth.AuthUser{UserID: testUserID})
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"tier":"pro"`)
	})

	t.Run("no subscription reports free tier", func(t *testing.T) {
		reader := new(mockSubscriptionReader)
		reader.On("Current", mock.Anything, testUserID).Return(nil, nil)

		rec, err := getCurrent(NewSubscriptionHandler(reader), &auth.AuthUser{UserID: testUserID})
		assert.NoError(t, err)
		assert.Contains(t, rec.Body.String(), `"tier":"free"`)
	})

	t.Run("anonymous request is rejected", func(t *testing.T) {
		reader := new(mockSubscriptionReader)
		_, err := getCurrent(NewSubscriptionHandler(reader), nil)
		assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
	})
}

func newCheckoutHandler(creator SessionCreator) *CheckoutHandler {
	return NewCheckoutHandler(creator, geoDetectorStub{}, zap.NewNop())
}
