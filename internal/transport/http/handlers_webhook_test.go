package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyc-gateway/internal/provider"
	"kyc-gateway/internal/verification"
)

type stubDispatcher struct {
	handle func(ctx context.Context, payload provider.WebhookPayload) (verification.State, error)
}

func (s *stubDispatcher) HandleWebhook(ctx context.Context, payload provider.WebhookPayload) (verification.State, error) {
	return s.handle(ctx, payload)
}

func webhookRouter(dispatcher WebhookDispatcher, verifier *provider.WebhookVerifier) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterConfig{
		Webhook: NewWebhookHandler(verifier, dispatcher, nil, logger),
		Logger:  logger,
	})
}

func signedRequest(t *testing.T, verifier *provider.WebhookVerifier, payload provider.WebhookPayload) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/verification", strings.NewReader(string(body)))
	req.Header.Set(provider.SignatureHeader, verifier.Sign(body))
	req.Header.Set(provider.TimestampHeader, strconv.FormatInt(time.Now().Unix(), 10))
	return req
}

func TestWebhookHandler(t *testing.T) {
	const secret = "whsec_f41c0de5"

	payload := provider.WebhookPayload{
		SessionID: "3a4c9f2e-8d45-4f6a-9d01-2b7c8e5a1f33",
		Status:    "Approved",
	}

	t.Run("valid signature dispatches the payload", func(t *testing.T) {
		verifier := provider.NewWebhookVerifier(secret)
		var got provider.WebhookPayload
		dispatcher := &stubDispatcher{
			handle: func(_ context.Context, p provider.WebhookPayload) (verification.State, error) {
				got = p
				return verification.State{Status: verification.StatusCompleted, Progress: 100}, nil
			},
		}

		rec := httptest.NewRecorder()
		webhookRouter(dispatcher, verifier).ServeHTTP(rec, signedRequest(t, verifier, payload))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, payload.SessionID, got.SessionID)
		assert.Equal(t, "Approved", got.Status)
	})

	t.Run("tampered body is rejected before dispatch", func(t *testing.T) {
		verifier := provider.NewWebhookVerifier(secret)
		dispatcher := &stubDispatcher{
			handle: func(context.Context, provider.WebhookPayload) (verification.State, error) {
				t.Fatal("dispatcher must not be reached")
				return verification.State{}, nil
			},
		}

		req := signedRequest(t, verifier, payload)
		req.Body = io.NopCloser(strings.NewReader(`{"session_id":"evil","status":"Approved"}`))

		rec := httptest.NewRecorder()
		webhookRouter(dispatcher, verifier).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		signer := provider.NewWebhookVerifier("other-secret")
		verifier := provider.NewWebhookVerifier(secret)
		dispatcher := &stubDispatcher{
			handle: func(context.Context, provider.WebhookPayload) (verification.State, error) {
				t.Fatal("dispatcher must not be reached")
				return verification.State{}, nil
			},
		}

		rec := httptest.NewRecorder()
		webhookRouter(dispatcher, verifier).ServeHTTP(rec, signedRequest(t, signer, payload))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale timestamp is rejected", func(t *testing.T) {
		verifier := provider.NewWebhookVerifier(secret)
		dispatcher := &stubDispatcher{
			handle: func(context.Context, provider.WebhookPayload) (verification.State, error) {
				t.Fatal("dispatcher must not be reached")
				return verification.State{}, nil
			},
		}

		req := signedRequest(t, verifier, payload)
		stale := time.Now().Add(-6 * time.Minute).Unix()
		req.Header.Set(provider.TimestampHeader, strconv.FormatInt(stale, 10))

		rec := httptest.NewRecorder()
		webhookRouter(dispatcher, verifier).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing session or status returns 400", func(t *testing.T) {
		verifier := provider.NewWebhookVerifier(secret)
		dispatcher := &stubDispatcher{
			handle: func(context.Context, provider.WebhookPayload) (verification.State, error) {
				t.Fatal("dispatcher must not be reached")
				return verification.State{}, nil
			},
		}

		rec := httptest.NewRecorder()
		webhookRouter(dispatcher, verifier).
			ServeHTTP(rec, signedRequest(t, verifier, provider.WebhookPayload{Status: "Approved"}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
