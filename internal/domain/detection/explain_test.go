package detection

import (
	"strings"
	"testing"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestExplain_LegitimateMessage(t *testing.T) {
	for _, kind := range domain.ScanKinds {
		got := Explain(kind, nil, 1, nil, nil)
		assert.Equal(t, legitimateMessages[kind], got)
		assert.Contains(t, got, "appear")
	}
}

func TestExplain_LowScoringLinksStillLegitimate(t *testing.T) {
	links := []domain.LinkReport{{URL: "https://shop.example", Score: 2, Level: domain.LevelLow}}

	got := Explain(domain.KindEmail, nil, 1, &domain.EmailMetadata{EmbeddedLinks: []string{"https://shop.example"}}, links)

	assert.Equal(t, legitimateMessages[domain.KindEmail], got)
}

func TestExplain_IndicatorsAndScore(t *testing.T) {
	got := Explain(domain.KindLink, []string{"open redirect parameter", "unencrypted HTTP connection"}, 7, nil, nil)

	assert.True(t, strings.HasPrefix(got, "HIGH RISK\n"))
	assert.Contains(t, got, "- open redirect parameter\n")
	assert.Contains(t, got, "- unencrypted HTTP connection\n")
	assert.True(t, strings.HasSuffix(got, "Risk Score: 7/10"))
	assert.NotContains(t, got, advisories[domain.KindLink])
}

func TestExplain_AdvisoryOnlyForMidScores(t *testing.T) {
	tests := []struct {
		score int
		want  bool
	}{
		{2, false},
		{3, true},
		{4, true},
		{5, true},
		{6, false},
		{10, false},
	}

	for _, tt := range tests {
		got := Explain(domain.KindEmail, []string{"urgency language"}, tt.score, nil, nil)
		assert.Equal(t, tt.want, strings.Contains(got, advisories[domain.KindEmail]), "score %d", tt.score)
	}
}

func TestExplain_EmailHeaderAndLinks(t *testing.T) {
	from := "Security <alert@paypa1.com>"
	meta := &domain.EmailMetadata{
		From:          &from,
		EmbeddedLinks: []string{"https://paypa1.com/login"},
	}
	links := []domain.LinkReport{{
		URL:        "https://paypa1.com/login",
		Score:      6,
		Level:      domain.LevelHigh,
		Indicators: []string{"typosquatted brand name in domain", "credential-harvesting path"},
	}}

	got := Explain(domain.KindEmail, []string{"suspicious sender domain"}, 8, meta, links)

	assert.Contains(t, got, "From: Security <alert@paypa1.com>\n")
	assert.Contains(t, got, "Subject: (no subject)\n")
	assert.Contains(t, got, "Embedded links found: 1\n")
	assert.Contains(t, got, "CRITICAL THREAT\n")
	assert.Contains(t, got, "Embedded link analysis:\n")
	assert.Contains(t, got, "* https://paypa1.com/login [HIGH] 6/10\n")
	assert.Contains(t, got, "    - credential-harvesting path\n")
}

func TestExplain_TextHasNoEmailHeader(t *testing.T) {
	meta := &domain.EmailMetadata{EmbeddedLinks: []string{}}

	got := Explain(domain.KindText, []string{"urgency language"}, 3, meta, nil)

	assert.NotContains(t, got, "From:")
	assert.Contains(t, got, advisories[domain.KindText])
}

func TestSeverityLabel(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{1, "NOTICE"},
		{2, "NOTICE"},
		{3, "SUSPICIOUS"},
		{5, "SUSPICIOUS"},
		{6, "HIGH RISK"},
		{7, "HIGH RISK"},
		{8, "CRITICAL THREAT"},
		{10, "CRITICAL THREAT"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, severityLabel(tt.score), "score %d", tt.score)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("hééllo", 3))
}
