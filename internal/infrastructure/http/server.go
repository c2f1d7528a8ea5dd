// Package http assembles the echo server: middleware chain, routes and the
// wiring between handlers, usecases and repositories.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	handlers "github.com/scantablehq/billing-service/internal/adapter/handler/http"
	"github.com/scantablehq/billing-service/internal/config"
	"github.com/scantablehq/billing-service/internal/infrastructure/database"
	"github.com/scantablehq/billing-service/internal/infrastructure/geo"
	providerRegistry "github.com/scantablehq/billing-service/internal/infrastructure/provider"
	"github.com/scantablehq/billing-service/internal/middleware/auth"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
	"github.com/scantablehq/billing-service/internal/pkg/logger"
	"github.com/scantablehq/billing-service/internal/usecase"
)

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	repos  *database.Repositories
}

func NewServer(cfg *config.Config, log *zap.Logger, repos *database.Repositories) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperrors.NewEchoErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	// Webhook payloads are small; anything bigger is not a provider.
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))
	e.Use(rateLimiter(cfg.Server.HTTP))

	return &Server{
		config: cfg,
		logger: log,
		echo:   e,
		repos:  repos,
	}
}

// rateLimiter throttles per client IP across all public endpoints.
func rateLimiter(cfg config.HTTPConfig) echo.MiddlewareFunc {
	limit := rate.Limit(cfg.RateLimitPerSecond)
	if limit <= 0 {
		limit = 20
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 40
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  limit,
			Burst: burst,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.Internal("failed to identify client for rate limiting", err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperrors.RateLimited("too many requests")
		},
	})
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	registry := providerRegistry.NewRegistry(&s.config.Service, s.logger)

	webhookService := usecase.NewWebhookService(
		s.repos.Subscription,
		s.repos.Payment,
		s.repos.User,
		s.config.Service.PaidTrialDays,
		s.logger.Named("webhook"),
	)
	checkoutService := usecase.NewCheckoutService(registry, s.logger.Named("checkout"))
	subscriptionService := usecase.NewSubscriptionService(s.repos.Subscription, s.logger.Named("subscription"))

	webhookHandler := handlers.NewWebhookHandler(registry, webhookService, s.logger)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, geo.NewHeaderDetector(), s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)

	// Webhooks authenticate by signature, never by JWT.
	webhookHandler.RegisterRoutes(s.echo)

	authCfg := auth.Config{Secret: s.config.Service.JWTSecret, Logger: s.logger}

	v1 := s.echo.Group("/api/v1")

	// Checkout accepts anonymous buyers carrying an email in the body.
	optional := v1.Group("", auth.Optional(authCfg))
	checkoutHandler.RegisterRoutes(optional)

	protected := v1.Group("", auth.Required(authCfg))
	subscriptionHandler.RegisterRoutes(protected)
}
