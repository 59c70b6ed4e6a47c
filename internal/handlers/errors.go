package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/munai7/TrustGate/internal/models"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
)

func writeBadRequest(w http.ResponseWriter, message string) {
	pkghttp.WriteBadRequest(w, message)
}

func writeValidationError(w http.ResponseWriter, details string) {
	pkghttp.WriteValidationError(w, "Request validation failed", details)
}

// writeServiceError maps decision and dependency errors to responses. Unknown
// errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeValidationError(w, err.Error())
	case errors.Is(err, models.ErrBlocked):
		pkghttp.WriteAccessDenied(w, "IP blocked")
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid username or password")
	case errors.Is(err, models.ErrChallengeNotFound):
		pkghttp.WriteChallengeNotFound(w)
	case errors.Is(err, models.ErrDependencyUnavailable):
		logger.Error("dependency unavailable", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	default:
		logger.Error("unhandled service error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
