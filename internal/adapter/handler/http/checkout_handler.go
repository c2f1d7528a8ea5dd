package http

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	"github.com/scantablehq/billing-service/internal/infrastructure/geo"
	"github.com/scantablehq/billing-service/internal/middleware/auth"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
	"github.com/scantablehq/billing-service/internal/usecase"
)

// SessionCreator prices and creates a hosted checkout session.
type SessionCreator interface {
	CreateSession(ctx context.Context, in *usecase.CheckoutInput) (*provider.CheckoutSession, error)
}

type checkoutRequest struct {
	Plan            string `json:"plan" validate:"required"`
	BillingInterval string `json:"billing_interval" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	// UserID lets trusted server-to-server callers purchase on behalf of a
	// user; a bearer token overrides it.
	UserID         string `json:"user_id"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	Country        string `json:"country" validate:"omitempty,len=2"`
	Provider       string `json:"provider" validate:"omitempty,oneof=paystack flutterwave stripe"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,oneof=card mobile_money"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=64"`
	SuccessURL     string `json:"success_url" validate:"required,url"`
	CancelURL      string `json:"cancel_url" validate:"required,url"`
}

type CheckoutHandler struct {
	checkout SessionCreator
	detector geo.Detector
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCheckoutHandler(checkout SessionCreator, detector geo.Detector, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		detector: detector,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/checkout/session", h.CreateSession)
}

// CreateSession starts a hosted checkout. The token identity wins over body
// fields; a request that can name no email at all cannot produce a receipt
// and is rejected before touching any provider.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.Validation(err.Error())
	}

	email := req.Email
	userID := req.UserID
	if user := auth.UserFrom(c); user != nil {
		userID = user.UserID.String()
		if user.Email != "" {
			email = user.Email
		}
	}
	if email == "" {
		return apperrors.Unauthenticated("an email is required to start checkout")
	}
	if userID == "" {
		return apperrors.Unauthenticated("a user identity is required to start checkout")
	}

	currency := req.Currency
	if currency == "" {
		location := h.detector.Detect(c.Request().Header, req.Country)
		currency = location.Currency
	}

	session, err := h.checkout.CreateSession(c.Request().Context(), &usecase.CheckoutInput{
		UserID:          userID,
		Email:           email,
		Plan:            req.Plan,
		BillingInterval: req.BillingInterval,
		Currency:        currency,
		Provider:        req.Provider,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  req.IdempotencyKey,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}
