package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"kyc-gateway/internal/provider"
	"kyc-gateway/internal/verification"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/audit"
	opspub "kyc-gateway/pkg/platform/audit/publishers/ops"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookDispatcher routes a verified provider payload into the verification
// core.
type WebhookDispatcher interface {
	HandleWebhook(ctx context.Context, payload provider.WebhookPayload) (verification.State, error)
}

// WebhookHandler terminates provider callbacks: signature and freshness are
// checked against the raw body before anything is parsed, and rejected
// deliveries leave a security audit trail.
type WebhookHandler struct {
	verifier   *provider.WebhookVerifier
	dispatcher WebhookDispatcher
	ops        *opspub.Publisher
	logger     *slog.Logger
}

func NewWebhookHandler(verifier *provider.WebhookVerifier, dispatcher WebhookDispatcher, ops *opspub.Publisher, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{verifier: verifier, dispatcher: dispatcher, ops: ops, logger: logger}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "No se pudo leer la solicitud."))
		return
	}

	signature := r.Header.Get(provider.SignatureHeader)
	timestamp := r.Header.Get(provider.TimestampHeader)
	if err := h.verifier.Verify(body, signature, timestamp); err != nil {
		h.rejected(r, err)
		writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeUnauthorized, "Firma de webhook inválida."))
		return
	}

	var payload provider.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.rejected(r, err)
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El cuerpo del webhook no es válido."))
		return
	}
	if payload.SessionID == "" || payload.Status == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El webhook no contiene sesión o estado."))
		return
	}

	st, err := h.dispatcher.HandleWebhook(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *WebhookHandler) rejected(r *http.Request, cause error) {
	h.logger.WarnContext(r.Context(), "webhook rejected", "error", cause, "remote", r.RemoteAddr)
	if h.ops == nil {
		return
	}
	h.ops.Emit(context.WithoutCancel(r.Context()), audit.Event{
		ID:        uuid.NewString(),
		Action:    string(audit.EventWebhookRejected),
		Outcome:   "rejected",
		Reason:    cause.Error(),
		RequestID: r.Header.Get("X-Request-Id"),
	})
}
