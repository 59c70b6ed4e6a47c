package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/munai7/TrustGate/internal/auth"
	"github.com/munai7/TrustGate/internal/models"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// BlockAdmin exposes administrative block operations
type BlockAdmin interface {
	Unblock(ctx context.Context, sourceAddress string) (bool, error)
	Remaining(ctx context.Context, sourceAddress string) (time.Duration, bool, error)
}

// AlertLister lists SOC alerts newest first
type AlertLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.Alert, error)
}

// AttemptHistory lists a user's attempt records newest first
type AttemptHistory interface {
	History(ctx context.Context, username string, limit int) ([]*models.AttemptRecord, error)
}

// AdminHandler serves the operator endpoints. All routes require an admin token.
type AdminHandler struct {
	blocks   BlockAdmin
	alerts   AlertLister
	attempts AttemptHistory
	audit    *pkglogger.AuditLogger
	logger   *slog.Logger
}

func NewAdminHandler(blocks BlockAdmin, alerts AlertLister, attempts AttemptHistory, audit *pkglogger.AuditLogger, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		blocks:   blocks,
		alerts:   alerts,
		attempts: attempts,
		audit:    audit,
		logger:   logger,
	}
}

// UnblockRequest names the address to release
type UnblockRequest struct {
	IP string `json:"ip" validate:"required,ip"`
}

type UnblockResponse struct {
	Status     string `json:"status"`
	Unblocked  string `json:"unblocked"`
	WasBlocked bool   `json:"was_blocked"`
}

type BlockStatusResponse struct {
	IP               string `json:"ip"`
	Blocked          bool   `json:"blocked"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// Unblock removes a block before it expires
// @Router /admin/unblock [post]
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	var req UnblockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	existed, err := h.blocks.Unblock(r.Context(), req.IP)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	actor := ""
	if claims := auth.GetUserFromContext(r); claims != nil {
		actor = claims.Username()
	}
	h.audit.LogUnblock(r.Context(), actor, req.IP, existed)

	pkghttp.WriteJSON(w, http.StatusOK, UnblockResponse{Status: "ok", Unblocked: req.IP, WasBlocked: existed})
}

// BlockStatus reports whether an address is blocked and for how long
// @Router /admin/blocks/{ip} [get]
func (h *AdminHandler) BlockStatus(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if err := validate.Var(ip, "required,ip"); err != nil {
		writeValidationError(w, "ip: must be a valid IP address")
		return
	}

	remaining, blocked, err := h.blocks.Remaining(r.Context(), ip)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, BlockStatusResponse{
		IP:               ip,
		Blocked:          blocked,
		RemainingSeconds: int64(remaining.Round(time.Second) / time.Second),
	})
}

// Alerts lists recent SOC alerts, newest first
// @Router /soc/alerts [get]
func (h *AdminHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, 0)
	if !ok {
		return
	}

	alerts, err := h.alerts.ListRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, alerts)
}

// Attempts lists a user's attempt history, newest first
// @Router /admin/attempts/{username} [get]
func (h *AdminHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	limit, ok := queryLimit(w, r, defaultHistoryLimit)
	if !ok {
		return
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	records, err := h.attempts.History(r.Context(), username, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, records)
}

// queryLimit parses ?limit=; a missing value returns def
func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeValidationError(w, "limit: must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
