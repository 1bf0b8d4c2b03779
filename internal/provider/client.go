package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/sentinel"
)

//go:generate mockgen -destination=../verification/mocks/mocks.go -package=mocks kyc-gateway/internal/provider Gateway

// Gateway is the surface the verification core depends on. The HTTP client
// below is the production implementation; tests substitute mocks.
type Gateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSessionDecision(ctx context.Context, sessionID string) (*SessionStatus, error)
	CancelSession(ctx context.Context, sessionID string) error
}

const defaultHTTPTimeout = 12 * time.Second

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPTimeout sets the per-call timeout. This bounds each provider call
// independently of the overall session timeout enforced by the poller.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets a logger for transport-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client. Tests only.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a provider gateway client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession registers a new verification session with the provider and
// validates the response schema before returning it.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v2/session/", req, &session); err != nil {
		return nil, err
	}
	if err := validateSession(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionDecision fetches the current status and, once available, the
// structured decision for a session.
func (c *Client) GetSessionDecision(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var status SessionStatus
	path := fmt.Sprintf("/v2/session/%s/decision/", sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		return nil, dErrors.New(dErrors.CodeServerError, "respuesta inválida del proveedor de verificación")
	}
	return &status, nil
}

// CancelSession asks the provider to abandon a session. Callers treat
// failures as best-effort; the session expires server-side regardless.
func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/v2/session/%s/cancel/", sessionID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal provider request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkError,
			"Error de conexión con el servicio de verificación. Por favor, intente nuevamente.")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyStatus(ctx, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return dErrors.Wrap(err, dErrors.CodeServerError,
				"respuesta inválida del proveedor de verificación")
		}
	}
	return nil
}

// classifyStatus converts provider HTTP failures into the error taxonomy the
// poller branches on: 404 is a sentinel (the provider is eventually
// consistent), 429 and 5xx are retriable, remaining 4xx are not.
func (c *Client) classifyStatus(ctx context.Context, resp *http.Response) error {
	// Bounded read: error bodies are only used for diagnostics.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if c.logger != nil {
		c.logger.WarnContext(ctx, "provider request failed",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("provider session: %w", sentinel.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return dErrors.New(dErrors.CodeRateLimited,
			"Demasiadas solicitudes al servicio de verificación. Espere un momento e intente nuevamente.")
	case resp.StatusCode >= 500:
		return dErrors.Newf(dErrors.CodeServerError,
			"El servicio de verificación no está disponible (HTTP %d).", resp.StatusCode)
	default:
		return dErrors.Newf(dErrors.CodeBadRequest,
			"Solicitud rechazada por el servicio de verificación (HTTP %d).", resp.StatusCode)
	}
}

// validateSession enforces the wire contract for session creation responses:
// a UUID-v4 session id, a positive session number, and an https verification
// URL. Malformed payloads become typed errors instead of propagating.
func validateSession(s *Session) error {
	parsed, err := uuid.Parse(s.SessionID)
	if err != nil || parsed.Version() != 4 {
		return dErrors.New(dErrors.CodeServerError, "el proveedor devolvió un identificador de sesión inválido")
	}
	if s.SessionNumber <= 0 {
		return dErrors.New(dErrors.CodeServerError, "el proveedor devolvió un número de sesión inválido")
	}
	if !strings.HasPrefix(s.VerificationURL, "https://") && !strings.HasPrefix(s.VerificationURL, "http://") {
		return dErrors.New(dErrors.CodeServerError, "el proveedor devolvió una URL de verificación inválida")
	}
	return nil
}

// Retriable reports whether the error represents a transient provider
// condition worth feeding into retry counters rather than failing outright.
func Retriable(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNetworkError, dErrors.CodeServerError, dErrors.CodeRateLimited:
		return true
	}
	return false
}
