package detection

import (
	"testing"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendedActions_ByTier(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		kind      domain.ScanKind
		wantFirst string
		wantLast  string
		contains  string
	}{
		{"low link", 1, domain.KindLink, "No immediate action required", "Confirm the address bar shows the expected site before signing in", ""},
		{"medium logs", 4, domain.KindLogs, "Verify through an official channel before acting", "Report to IT security if unsure", "Investigate source IP and correlate with recent activity"},
		{"medium email", 3, domain.KindEmail, "Verify through an official channel before acting", "Report to IT security if unsure", "Do not reply directly; contact the sender through a known channel"},
		{"high email", 7, domain.KindEmail, "Do not interact with this content", "Notify your security team", "Do not reply directly or open attachments"},
		{"high text", 6, domain.KindText, "Do not interact with this content", "Notify your security team", "Report the message as phishing"},
		{"critical link", 10, domain.KindLink, "Block immediately", "Escalate to incident response", "Do not click; add the domain to the blocklist"},
		{"critical logs", 9, domain.KindLogs, "Block immediately", "Escalate to incident response", "Reset credentials for affected accounts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := RecommendedActions(tt.score, tt.kind)
			require.NotEmpty(t, actions)

			assert.Equal(t, tt.wantFirst, actions[0])
			assert.Equal(t, tt.wantLast, actions[len(actions)-1])
			if tt.contains != "" {
				assert.Contains(t, actions, tt.contains)
			}
		})
	}
}

func TestRecommendedActions_NeverEmpty(t *testing.T) {
	for _, kind := range domain.ScanKinds {
		for score := domain.MinScore; score <= domain.MaxScore; score++ {
			assert.NotEmpty(t, RecommendedActions(score, kind), "kind %s score %d", kind, score)
		}
	}
}
