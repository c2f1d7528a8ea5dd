package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/domain/provider"
	flutterwaveProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/flutterwave"
	paystackProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/paystack"
	stripeProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/stripe"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
	"github.com/scantablehq/billing-service/internal/usecase"
)

// EventHandler reconciles a verified, normalized event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *provider.Event) error
}

// WebhookHandler terminates provider webhook deliveries. The pipeline is the
// same for every provider: verify the signature over the raw bytes, parse,
// re-verify success charges against the provider API, then reconcile.
type WebhookHandler struct {
	registry usecase.ProviderRegistry
	events   EventHandler
	logger   *zap.Logger
}

func NewWebhookHandler(registry usecase.ProviderRegistry, events EventHandler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		events:   events,
		logger:   logger,
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/paystack", h.HandlePaystack)
	e.POST("/webhooks/flutterwave", h.HandleFlutterwave)
	e.POST("/webhooks/stripe", h.HandleStripe)
}

func (h *WebhookHandler) HandlePaystack(c echo.Context) error {
	return h.handle(c, provider.NamePaystack, paystackProvider.SignatureHeader)
}

func (h *WebhookHandler) HandleFlutterwave(c echo.Context) error {
	return h.handle(c, provider.NameFlutterwave, flutterwaveProvider.SignatureHeader)
}

func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	return h.handle(c, provider.NameStripe, stripeProvider.SignatureHeader)
}

func (h *WebhookHandler) handle(c echo.Context, providerName, signatureHeader string) error {
	// The signature covers the exact bytes on the wire; read them before any
	// binding can touch the body.
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.Validation("failed to read webhook body")
	}

	p, err := h.registry.ForName(providerName)
	if err != nil {
		return err
	}

	if err := p.VerifySignature(body, c.Request().Header.Get(signatureHeader)); err != nil {
		h.logger.Warn("Webhook signature rejected",
			zap.String("provider", providerName),
			zap.String("remote_ip", c.RealIP()))
		return err
	}

	ev, err := p.ParseWebhook(body)
	if err != nil {
		return err
	}

	// A valid signature proves the sender holds the secret, not that the
	// charge is real. Success events go back to the provider's authoritative
	// API before any money-shaped state changes.
	if ev.Type == provider.EventChargeSuccess {
		if err := p.VerifyTransaction(c.Request().Context(), ev.Reference); err != nil {
			h.logger.Warn("Webhook charge failed re-verification",
				zap.String("provider", providerName),
				zap.String("reference", ev.Reference))
			return err
		}
	}

	if err := h.events.HandleEvent(c.Request().Context(), ev); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
