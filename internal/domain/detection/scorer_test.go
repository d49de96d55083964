package detection

import (
	"errors"
	"testing"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_PhishingLink(t *testing.T) {
	score, indicators, err := Score(domain.KindLink, "https://amaz0n-deals.malicious-site.com/login?redirect=checkout")
	require.NoError(t, err)

	assert.Equal(t, 10, score, "weights sum past 10 and must be clamped")
	assert.Equal(t, domain.LevelCritical, domain.TierOf(score))
	assert.Contains(t, indicators, "typosquatted brand name in domain")
	assert.Contains(t, indicators, "domain associated with malicious activity")
	assert.Contains(t, indicators, "open redirect parameter")
}

func TestScore_SafeLink(t *testing.T) {
	score, indicators, err := Score(domain.KindLink, "https://www.amazon.com/dp/B09V3KXJPB")
	require.NoError(t, err)

	assert.Equal(t, 1, score)
	assert.Empty(t, indicators)
	assert.Equal(t, domain.LevelLow, domain.TierOf(score))
}

func TestScore_EmptyInputScoresMinimum(t *testing.T) {
	for _, kind := range domain.ScanKinds {
		score, indicators, err := Score(kind, "")
		require.NoError(t, err)
		assert.Equal(t, domain.MinScore, score, "kind %s", kind)
		assert.Empty(t, indicators)
	}
}

func TestScore_UnsupportedKind(t *testing.T) {
	_, _, err := Score(domain.ScanKind("sms"), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedKind))
}

func TestScore_IndicatorsFollowDeclarationOrder(t *testing.T) {
	// Redirect appears before the brand in the text, but the brand rule is declared first
	_, indicators, err := Score(domain.KindLink, "https://example.com/?next=https://paypa1.com")
	require.NoError(t, err)
	require.Len(t, indicators, 2)

	assert.Equal(t, "typosquatted brand name in domain", indicators[0])
	assert.Equal(t, "open redirect parameter", indicators[1])
}

func TestScore_CaseInsensitive(t *testing.T) {
	lower, _, err := Score(domain.KindLogs, "failed login for admin")
	require.NoError(t, err)
	upper, _, err := Score(domain.KindLogs, "FAILED LOGIN FOR ADMIN")
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
	assert.Equal(t, 3, lower)
}

func TestScore_OverlappingRulesEachContribute(t *testing.T) {
	// "brute force" and "failed login" are separate rules; both count
	score, indicators, err := Score(domain.KindLogs, "brute force detected: 30 failed login events")
	require.NoError(t, err)

	assert.Equal(t, 1+2+3, score)
	assert.Equal(t, []string{"failed authentication", "brute-force pattern"}, indicators)
}

func TestScore_Bounds(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"https://www.amazon.com/dp/B09V3KXJPB",
		"http://192.168.4.20/login?redirect=x",
		"URGENT!!! dear customer, verify your account immediately, wire transfer, click here, see attached invoice.zip, ssn",
		"sudo root access brute force sql injection malware port scan new ip skimmer exfiltration failed login access denied",
	}

	for _, kind := range domain.ScanKinds {
		for _, in := range inputs {
			score, _, err := Score(kind, in)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, domain.MinScore)
			assert.LessOrEqual(t, score, domain.MaxScore)
		}
	}
}

func TestScore_Monotonic(t *testing.T) {
	tests := []struct {
		name  string
		kind  domain.ScanKind
		base  string
		extra string
		grows bool
	}{
		{"link redirect", domain.KindLink, "https://shop.example.com/item", "?redirect=https://evil.xyz", true},
		{"link trailing path", domain.KindLink, "https://evil.xyz", " /login", true},
		{"link trailing newline", domain.KindLink, "https://evil.xyz", "\n", false},
		{"email", domain.KindEmail, "Hello, please review the report.", " This is urgent, click here.", true},
		{"logs", domain.KindLogs, "user alice logged in", "\nfailed login for bob\nbrute force suspected", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _, err := Score(tt.kind, tt.base)
			require.NoError(t, err)
			after, _, err := Score(tt.kind, tt.base+tt.extra)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, after, before)
			if tt.grows {
				assert.Greater(t, after, before, "extra text should match at least one rule")
			}
		})
	}
}

func TestScore_LinkRulesMatchAnywhereInText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantScore int
		want      []string
	}{
		{"trailing newline", "https://evil.xyz\n", 4, []string{"high-abuse top-level domain"}},
		{"leading space", " http://192.168.4.20/", 5, []string{"raw IP address used instead of a domain", "unencrypted HTTP connection"}},
		{"prefixed by prose", "check this: http://192.168.4.20/", 5, []string{"raw IP address used instead of a domain", "unencrypted HTTP connection"}},
		{"angle brackets", "<https://evil.xyz>", 4, []string{"high-abuse top-level domain"}},
		{"userinfo after text", "go to https://paypal.com@evil.example/", 4, []string{"credentials or obfuscation via @ in URL"}},
		{"tld must end the host", "https://evil.xyzabc.com/", 1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, indicators, err := Score(domain.KindLink, tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.want, indicators)
		})
	}
}

func TestRulesFor_TextUsesMessageRules(t *testing.T) {
	text, err := RulesFor(domain.KindText)
	require.NoError(t, err)
	email, err := RulesFor(domain.KindEmail)
	require.NoError(t, err)

	assert.Equal(t, len(email), len(text))
}

func TestRules_WeightsArePositive(t *testing.T) {
	for _, set := range [][]Rule{linkRules, emailRules, logRules} {
		for _, r := range set {
			assert.Positive(t, r.Weight, r.Description)
			assert.NotEmpty(t, r.Description)
		}
	}
}
