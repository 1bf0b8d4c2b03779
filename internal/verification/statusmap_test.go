package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		raw      string
		status   Status
		floor    int
		terminal TerminalKind
	}{
		{"Not Started", StatusUserVerifying, 25, TerminalNone},
		{"In Progress", StatusUserVerifying, 40, TerminalNone},
		{"KYC In Progress", StatusUserVerifying, 40, TerminalNone},
		{"Processing", StatusProcessing, 75, TerminalNone},
		{"In Review", StatusCompleted, 100, TerminalSuccess},
		{"KYC In Review", StatusCompleted, 100, TerminalSuccess},
		{"Approved", StatusCompleted, 100, TerminalSuccess},
		{"Completed", StatusCompleted, 100, TerminalSuccess},
		{"Declined", StatusFailed, 0, TerminalFailure},
		{"KYC Declined", StatusFailed, 0, TerminalFailure},
		{"Abandoned", StatusFailed, 0, TerminalFailure},
		{"Expired", StatusExpired, 0, TerminalFailure},
		{"KYC Expired", StatusExpired, 0, TerminalFailure},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m := MapProviderStatus(tt.raw)
			assert.True(t, m.Recognized)
			assert.Equal(t, tt.status, m.Status)
			assert.Equal(t, tt.floor, m.ProgressFloor)
			assert.Equal(t, tt.terminal, m.Terminal)
		})
	}

	t.Run("matching ignores case and whitespace", func(t *testing.T) {
		m := MapProviderStatus("  aPPRoved ")
		assert.True(t, m.Recognized)
		assert.Equal(t, StatusCompleted, m.Status)
	})

	t.Run("unknown status fails safe", func(t *testing.T) {
		m := MapProviderStatus("Quantum Flux")
		assert.False(t, m.Recognized)
		assert.Equal(t, StatusProcessing, m.Status)
		assert.Equal(t, 0, m.ProgressFloor)
		assert.Equal(t, TerminalNone, m.Terminal)
	})

	t.Run("empty status fails safe", func(t *testing.T) {
		m := MapProviderStatus("")
		assert.False(t, m.Recognized)
		assert.Equal(t, TerminalNone, m.Terminal)
	})
}
