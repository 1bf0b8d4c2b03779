package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kyc-gateway/internal/verification"
	"kyc-gateway/internal/verification/monitor"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/requestcontext"
)

// VerificationService is the surface the HTTP layer needs from the
// verification core.
type VerificationService interface {
	Start(ctx context.Context, registrationID string, applicant verification.ApplicantData) (verification.State, error)
	Retry(ctx context.Context, registrationID string) (verification.State, error)
	Cancel(ctx context.Context, registrationID string) (verification.State, error)
	Reset(ctx context.Context, registrationID string) (verification.State, error)
	Status(ctx context.Context, registrationID string) (verification.State, error)
	CheckStatus(ctx context.Context, registrationID string) (verification.State, error)
	ReportSuspicious(ctx context.Context, registrationID string, activity monitor.Activity) (verification.State, error)
}

type VerificationHandler struct {
	service VerificationService
	logger  *slog.Logger
}

func NewVerificationHandler(service VerificationService, logger *slog.Logger) *VerificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationHandler{service: service, logger: logger}
}

func (h *VerificationHandler) Register(r chi.Router) {
	r.Post("/verification/start", h.handleStart)
	r.Route("/verification/{registrationID}", func(r chi.Router) {
		r.Post("/retry", h.handleRetry)
		r.Post("/cancel", h.handleCancel)
		r.Post("/reset", h.handleReset)
		r.Get("/status", h.handleStatus)
		r.Post("/check", h.handleCheck)
		r.Post("/suspicious", h.handleSuspicious)
	})
}

type startRequest struct {
	RegistrationID string                     `json:"registration_id"`
	Applicant      verification.ApplicantData `json:"applicant"`
}

func (h *VerificationHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El cuerpo de la solicitud no es válido."))
		return
	}

	st, err := h.service.Start(r.Context(), req.RegistrationID, req.Applicant)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *VerificationHandler) handleRetry(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Retry)
}

func (h *VerificationHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Cancel)
}

func (h *VerificationHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Reset)
}

func (h *VerificationHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCheck forces one immediate provider poll instead of waiting for the
// next scheduled tick.
func (h *VerificationHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.CheckStatus)
}

type suspiciousRequest struct {
	Type     monitor.ActivityType `json:"type"`
	Severity monitor.Severity     `json:"severity,omitempty"`
	Details  string               `json:"details,omitempty"`
}

func (h *VerificationHandler) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	var req suspiciousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El cuerpo de la solicitud no es válido."))
		return
	}
	if req.Type == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El tipo de actividad es obligatorio."))
		return
	}

	activity := monitor.Activity{
		Type:      req.Type,
		Severity:  req.Severity,
		Details:   req.Details,
		Timestamp: requestcontext.Now(r.Context()),
	}
	st, err := h.service.ReportSuspicious(r.Context(), chi.URLParam(r, "registrationID"), activity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

func (h *VerificationHandler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string) (verification.State, error),
) {
	st, err := op(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
