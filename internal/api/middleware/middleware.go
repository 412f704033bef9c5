// Package middleware adapts the shared HTTP middleware to the API's JSON
// error format.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/geoduel/internal/api/apierr"
	"github.com/mcoot/geoduel/internal/middleware"
	"github.com/mcoot/geoduel/internal/model"
)

// Recovery recovers panics with a JSON 500
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// Throttle creates a per-IP throttle answering with a JSON 429
func Throttle(config middleware.ThrottleConfig) *middleware.Throttle {
	return middleware.NewThrottle(config, func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, model.ErrRateLimited)
	})
}
