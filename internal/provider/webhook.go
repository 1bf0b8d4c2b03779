package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	dErrors "kyc-gateway/pkg/domain-errors"
)

// Signature and timestamp headers the provider sets on webhook callbacks.
const (
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
)

// maxWebhookAge is how stale a webhook timestamp may be before the message
// is rejected as a possible replay.
const maxWebhookAge = 5 * time.Minute

// WebhookVerifier validates inbound asynchronous callbacks from the provider
// using an HMAC-SHA256 keyed hash over the raw request body.
type WebhookVerifier struct {
	secret []byte
	maxAge time.Duration

	// now is overridable for tests.
	now func() time.Time
}

// NewWebhookVerifier creates a verifier for the shared webhook secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		secret: []byte(secret),
		maxAge: maxWebhookAge,
		now:    time.Now,
	}
}

// WithClock overrides the verifier's time source. Tests only.
func (v *WebhookVerifier) WithClock(now func() time.Time) *WebhookVerifier {
	v.now = now
	return v
}

// Verify checks the hex-encoded HMAC-SHA256 signature over body and the unix
// timestamp header. The signature comparison is constant-time; messages older
// than five minutes (or equally far in the future) are rejected as replays.
func (v *WebhookVerifier) Verify(body []byte, signature, timestamp string) error {
	if len(v.secret) == 0 {
		return dErrors.New(dErrors.CodeInternal, "webhook secret not configured")
	}
	if signature == "" || timestamp == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing webhook signature headers")
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "malformed webhook timestamp")
	}
	age := v.now().Sub(time.Unix(unix, 0))
	if age > v.maxAge || age < -v.maxAge {
		return dErrors.New(dErrors.CodeUnauthorized, "webhook timestamp outside freshness window")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "malformed webhook signature")
	}
	if !hmac.Equal(expected, provided) {
		return dErrors.New(dErrors.CodeUnauthorized, "webhook signature mismatch")
	}
	return nil
}

// Sign computes the hex signature for body. Used by tests and by the local
// provider simulator.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
