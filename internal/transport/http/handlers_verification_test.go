package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyc-gateway/internal/verification"
	"kyc-gateway/internal/verification/monitor"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/testutil"
)

// stubService implements VerificationService with overridable behavior per
// test.
type stubService struct {
	start      func(ctx context.Context, registrationID string, applicant verification.ApplicantData) (verification.State, error)
	lifecycle  func(ctx context.Context, registrationID string) (verification.State, error)
	suspicious func(ctx context.Context, registrationID string, activity monitor.Activity) (verification.State, error)
}

func (s *stubService) Start(ctx context.Context, id string, a verification.ApplicantData) (verification.State, error) {
	return s.start(ctx, id, a)
}
func (s *stubService) Retry(ctx context.Context, id string) (verification.State, error) {
	return s.lifecycle(ctx, id)
}
func (s *stubService) Cancel(ctx context.Context, id string) (verification.State, error) {
	return s.lifecycle(ctx, id)
}
func (s *stubService) Reset(ctx context.Context, id string) (verification.State, error) {
	return s.lifecycle(ctx, id)
}
func (s *stubService) Status(ctx context.Context, id string) (verification.State, error) {
	return s.lifecycle(ctx, id)
}
func (s *stubService) CheckStatus(ctx context.Context, id string) (verification.State, error) {
	return s.lifecycle(ctx, id)
}
func (s *stubService) ReportSuspicious(ctx context.Context, id string, a monitor.Activity) (verification.State, error) {
	return s.suspicious(ctx, id, a)
}

func rawRequest(t *testing.T, method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

func newTestRouter(svc VerificationService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterConfig{
		Verification: NewVerificationHandler(svc, logger),
		Logger:       logger,
	})
}

func TestHandleStart(t *testing.T) {
	t.Run("valid request returns 201 with the new state", func(t *testing.T) {
		svc := &stubService{
			start: func(_ context.Context, id string, a verification.ApplicantData) (verification.State, error) {
				assert.Equal(t, "reg-1", id)
				assert.Equal(t, "V-12345678", a.DocumentNumber)
				return verification.State{Status: verification.StatusUserVerifying, Progress: 25}, nil
			},
		}
		rec := testutil.DoJSON(t, newTestRouter(svc), http.MethodPost, "/verification/start", map[string]any{
			"registration_id": "reg-1",
			"applicant": map[string]string{
				"first_name":      "María",
				"last_name":       "González",
				"document_number": "V-12345678",
				"license_number":  "45678",
				"email":           "maria@example.com",
			},
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var st verification.State
		testutil.DecodeJSON(t, rec, &st)
		assert.Equal(t, verification.StatusUserVerifying, st.Status)
		assert.Equal(t, 25, st.Progress)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		svc := &stubService{}
		req, rec := rawRequest(t, http.MethodPost, "/verification/start", `{not-json`)
		newTestRouter(svc).ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("domain errors map to status codes and spanish messages", func(t *testing.T) {
		svc := &stubService{
			start: func(context.Context, string, verification.ApplicantData) (verification.State, error) {
				return verification.State{}, dErrors.New(dErrors.CodeInvalidData,
					"El número de cédula no es válido. Use el formato V-12345678 o E-12345678.")
			},
		}
		rec := testutil.DoJSON(t, newTestRouter(svc), http.MethodPost, "/verification/start", map[string]any{})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		testutil.DecodeJSON(t, rec, &resp)
		assert.Equal(t, "invalid_data", resp.Error)
		assert.Contains(t, resp.Message, "cédula")
	})
}

func TestLifecycleEndpoints(t *testing.T) {
	svc := &stubService{
		lifecycle: func(_ context.Context, id string) (verification.State, error) {
			if id != "reg-1" {
				return verification.State{}, dErrors.New(dErrors.CodeNotFound, "No existe una verificación para este registro.")
			}
			return verification.State{Status: verification.StatusIdle}, nil
		},
	}
	router := newTestRouter(svc)

	for _, target := range []string{
		"/verification/reg-1/retry",
		"/verification/reg-1/cancel",
		"/verification/reg-1/reset",
		"/verification/reg-1/check",
	} {
		rec := testutil.DoJSON(t, router, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}

	rec := testutil.DoJSON(t, router, http.MethodGet, "/verification/reg-1/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoJSON(t, router, http.MethodGet, "/verification/reg-missing/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSuspicious(t *testing.T) {
	t.Run("report is forwarded with request metadata", func(t *testing.T) {
		var got monitor.Activity
		svc := &stubService{
			suspicious: func(_ context.Context, id string, a monitor.Activity) (verification.State, error) {
				got = a
				return verification.State{Status: verification.StatusUserVerifying, SuspiciousCount: 2}, nil
			},
		}
		rec := testutil.DoJSON(t, newTestRouter(svc), http.MethodPost, "/verification/reg-1/suspicious", map[string]string{
			"type":     "rapid_retry",
			"severity": "medium",
			"details":  "tres reintentos en un minuto",
		})

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, monitor.ActivityRapidRetry, got.Type)
		assert.Equal(t, monitor.SeverityMedium, got.Severity)
		assert.False(t, got.Timestamp.IsZero())
	})

	t.Run("missing type returns 400", func(t *testing.T) {
		svc := &stubService{}
		rec := testutil.DoJSON(t, newTestRouter(svc), http.MethodPost, "/verification/reg-1/suspicious", map[string]string{
			"details": "sin tipo",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rec := testutil.DoJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
