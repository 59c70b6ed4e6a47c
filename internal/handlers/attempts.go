package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/munai7/TrustGate/internal/models"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
)

// AttemptReporter stores and serves externally reported attempts
type AttemptReporter interface {
	Save(ctx context.Context, report *models.AttemptReport) error
	Get(ctx context.Context, id string) (*models.AttemptReport, error)
	Last(ctx context.Context) (*models.AttemptReport, error)
}

type AttemptReportHandler struct {
	reports AttemptReporter
	logger  *slog.Logger
}

func NewAttemptReportHandler(reports AttemptReporter, logger *slog.Logger) *AttemptReportHandler {
	return &AttemptReportHandler{reports: reports, logger: logger}
}

type SaveAttemptResponse struct {
	Status    string `json:"status"`
	AttemptID string `json:"attemptId"`
}

type EmptyAttemptResponse struct {
	Status string `json:"status"`
}

// Save ingests a reported attempt and raises a SOC alert
// @Router /attempts [post]
func (h *AttemptReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	var report models.AttemptReport
	if !decodeAndValidate(w, r, &report) {
		return
	}

	if err := h.reports.Save(r.Context(), &report); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SaveAttemptResponse{Status: "ok", AttemptID: report.AttemptID})
}

// Last returns the newest report, or status "empty" when none is held
// @Router /attempts/last [get]
func (h *AttemptReportHandler) Last(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Last(r.Context())
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteJSON(w, http.StatusOK, EmptyAttemptResponse{Status: "empty"})
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, report)
}

// Get returns one report by ID
// @Router /attempts/{id} [get]
func (h *AttemptReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, report)
}
