// Package auth validates the application JWT and exposes the authenticated
// user to handlers. Checkout accepts anonymous requests that carry an email
// in the body, so the middleware comes in required and optional flavors.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// AuthUser is the identity extracted from a valid token.
type AuthUser struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

const userContextKey = "authenticated_user"

// Claims mirrors the token payload issued by the main application.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Logger *zap.Logger
}

// Required rejects requests without a valid bearer token.
func Required(cfg Config) echo.MiddlewareFunc {
	return middleware(cfg, true)
}

// Optional parses a bearer token when present and lets anonymous requests
// through. An invalid token is still rejected: a client that sends one is
// broken, not anonymous.
func Optional(cfg Config) echo.MiddlewareFunc {
	return middleware(cfg, false)
}

func middleware(cfg Config, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				if required {
					return apperrors.Unauthenticated("authorization header required")
				}
				return next(c)
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				return apperrors.Unauthenticated("authorization header must use the Bearer scheme")
			}

			user, err := parseToken(token, cfg.Secret)
			if err != nil {
				cfg.Logger.Warn("Rejected bearer token",
					zap.String("path", c.Request().URL.Path),
					zap.Error(err))
				return apperrors.Unauthenticated("invalid or expired token")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func parseToken(tokenString, secret string) (*AuthUser, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthenticated("unexpected token signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthenticated("token validation failed")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.Unauthenticated("token subject is not a user id")
	}

	return &AuthUser{UserID: userID, Email: claims.Email}, nil
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(c echo.Context) *AuthUser {
	user, _ := c.Get(userContextKey).(*AuthUser)
	return user
}
