package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/services"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
)

// AuthServiceInterface is the two-step login flow
type AuthServiceInterface interface {
	BeginAuthentication(ctx context.Context, req services.BeginRequest) (*services.BeginResult, error)
	ResolveChallenge(ctx context.Context, challengeID string, decision models.Decision) (*services.ResolveResult, error)
}

// ChallengeLister lists pending challenges without consuming them
type ChallengeLister interface {
	ListPending(ctx context.Context, username string) ([]*models.PendingChallenge, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service    AuthServiceInterface
	challenges ChallengeLister
	ipConfig   *pkghttp.IPConfig
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, challenges ChallengeLister, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		challenges: challenges,
		ipConfig:   ipConfig,
		logger:     logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Device   string `json:"device" validate:"max=256"`
	Country  string `json:"country" validate:"max=64"`
}

// MFARequest answers a pending challenge
type MFARequest struct {
	RequestID string `json:"request_id" validate:"required,max=64"`
	Action    string `json:"action" validate:"required,oneof=allow deny"`
}

// Login starts authentication and returns a challenge handle
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.BeginAuthentication(r.Context(), services.BeginRequest{
		Username:      req.Username,
		Password:      req.Password,
		Device:        req.Device,
		Country:       req.Country,
		SourceAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// MFA resolves a pending challenge with allow or deny
// @Router /auth/mfa [post]
func (h *AuthHandler) MFA(w http.ResponseWriter, r *http.Request) {
	var req MFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.ResolveChallenge(r.Context(), req.RequestID, models.Decision(req.Action))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// PendingPush lists the user's outstanding challenges
// @Router /push/pending/{username} [get]
func (h *AuthHandler) PendingPush(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	pending, err := h.challenges.ListPending(r.Context(), username)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pending)
}
