package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scantablehq/billing-service/internal/domain/model"
	"github.com/scantablehq/billing-service/internal/middleware/auth"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// SubscriptionReader looks up a user's current subscription.
type SubscriptionReader interface {
	Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionReader
}

func NewSubscriptionHandler(subscriptions SubscriptionReader) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/subscriptions/current", h.GetCurrent)
}

type currentSubscriptionResponse struct {
	Tier         string              `json:"tier"`
	Subscription *model.Subscription `json:"subscription"`
}

// GetCurrent returns the caller's live subscription, or the free tier when
// none exists.
func (h *SubscriptionHandler) GetCurrent(c echo.Context) error {
	user := auth.UserFrom(c)
	if user == nil {
		return apperrors.Unauthenticated("authentication required")
	}

	sub, err := h.subscriptions.Current(c.Request().Context(), user.UserID)
	if err != nil {
		return err
	}

	resp := currentSubscriptionResponse{Tier: model.TierFree}
	if sub != nil {
		resp.Subscription = sub
		if sub.Status.Entitled() || sub.Status == model.SubscriptionStatusPastDue {
			resp.Tier = sub.Plan
		}
	}
	return c.JSON(http.StatusOK, resp)
}
