package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/munai7/TrustGate/internal/auth"
	"github.com/munai7/TrustGate/internal/handlers"
	"github.com/munai7/TrustGate/internal/middleware"
	"github.com/munai7/TrustGate/internal/models"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth     *handlers.AuthHandler
	Admin    *handlers.AdminHandler
	Attempts *handlers.AttemptReportHandler
	Health   *handlers.HealthHandler
	Metrics  http.Handler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	ipConfig *pkghttp.IPConfig,
) {
	router.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}

	// Public routes. Login is throttled by the sliding window inside the auth service.
	router.Post("/auth/login", h.Auth.Login)
	router.Post("/auth/mfa", h.Auth.MFA)

	// Operator routes. Pending challenge IDs are bearer material for /auth/mfa
	// and must stay behind the admin role.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.DefaultAdminRateLimit(), ipConfig))
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.RequireRole(models.RoleAdmin))

		r.Post("/admin/unblock", h.Admin.Unblock)
		r.Get("/admin/blocks/{ip}", h.Admin.BlockStatus)
		r.Get("/admin/attempts/{username}", h.Admin.Attempts)
		r.Get("/soc/alerts", h.Admin.Alerts)
		r.Get("/push/pending/{username}", h.Auth.PendingPush)

		r.Post("/attempts", h.Attempts.Save)
		r.Get("/attempts/last", h.Attempts.Last)
		r.Get("/attempts/{id}", h.Attempts.Get)
	})
}
