package apperrors

import "net/http"

// Error codes shared across handlers and usecases.
const (
	CodeValidation      = "VALIDATION"
	CodeAuthorization   = "AUTHORIZATION"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// Payment providers parse our webhook responses to decide whether to retry,
// so the mapping from code to status is part of the external contract:
// 4xx means "do not redeliver", 5xx means "safe to redeliver".
var codeStatus = map[string]int{
	CodeValidation:      http.StatusBadRequest,
	CodeAuthorization:   http.StatusBadRequest,
	CodeUnauthenticated: http.StatusUnauthorized,
	CodeNotFound:        http.StatusNotFound,
	CodeRateLimited:     http.StatusTooManyRequests,
	CodeInternal:        http.StatusInternalServerError,
}

// HTTPStatus maps an error code to its HTTP status. Unknown codes are treated
// as internal errors.
func HTTPStatus(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
