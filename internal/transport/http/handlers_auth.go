package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kyc-gateway/internal/jwttoken"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/secrets"
)

const defaultTokenTTL = time.Hour

// AuthHandler issues access tokens to the registration backend using a
// client-credentials exchange. Only the bcrypt hash of the client secret is
// kept in configuration.
type AuthHandler struct {
	tokens           *jwttoken.JWTService
	clientID         string
	clientSecretHash string
	tokenTTL         time.Duration
	logger           *slog.Logger
}

func NewAuthHandler(tokens *jwttoken.JWTService, clientID, clientSecretHash string, ttl time.Duration, logger *slog.Logger) *AuthHandler {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		tokens:           tokens,
		clientID:         clientID,
		clientSecretHash: clientSecretHash,
		tokenTTL:         ttl,
		logger:           logger,
	}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "El cuerpo de la solicitud no es válido."))
		return
	}

	if req.ClientID != h.clientID || h.clientSecretHash == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas."))
		return
	}
	if err := secrets.Verify(req.ClientSecret, h.clientSecretHash); err != nil {
		h.logger.WarnContext(r.Context(), "token exchange rejected", "client_id", req.ClientID)
		writeError(w, h.logger, dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas."))
		return
	}

	token, err := h.tokens.GenerateAccessToken("svc:"+req.ClientID, req.ClientID, h.tokenTTL)
	if err != nil {
		writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeInternal, "No se pudo generar el token."))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokenTTL / time.Second),
	})
}
