package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kyc-gateway/internal/platform/middleware"
)

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries everything the router needs wired in. Auth is applied
// to the verification API; the webhook endpoint authenticates by HMAC
// signature instead and /healthz and /metrics are open.
type RouterConfig struct {
	Verification *VerificationHandler
	Webhook      *WebhookHandler
	Tokens       *AuthHandler
	Auth         middleware.JWTValidator
	Logger       *slog.Logger
	Timeout      time.Duration
	Health       map[string]HealthChecker
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.Webhook != nil {
		r.Method(http.MethodPost, "/webhooks/verification", cfg.Webhook)
	}

	if cfg.Tokens != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			cfg.Tokens.Register(r)
		})
	}

	if cfg.Verification != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			if cfg.Auth != nil {
				r.Use(middleware.RequireAuth(cfg.Auth, logger))
			}
			cfg.Verification.Register(r)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				result["status"] = "degraded"
				continue
			}
			result[name] = "ok"
		}
		writeJSON(w, status, result)
	}
}
