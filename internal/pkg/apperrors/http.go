package apperrors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewEchoErrorHandler returns an echo.HTTPErrorHandler that renders every
// error, including panics recovered by the Recover middleware, as a structured
// JSON body. Providers parse the body to decide whether to redeliver, so a
// non-JSON response is never acceptable here.
func NewEchoErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := CodeInternal
		message := "internal server error"

		var appErr *AppError
		switch {
		case As(err, &appErr):
			code = appErr.Code()
			status = HTTPStatus(code)
			message = appErr.Message()
		default:
			if echoErr, ok := err.(*echo.HTTPError); ok {
				status = echoErr.Code
				if m, ok := echoErr.Message.(string); ok {
					message = m
				}
				code = statusToCode(status)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("error_code", code),
				zap.Error(err))
		}

		if jsonErr := c.JSON(status, echo.Map{"error": message, "code": code}); jsonErr != nil {
			logger.Error("Failed to write error response", zap.Error(jsonErr))
		}
	}
}

func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
