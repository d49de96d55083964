package detection

import (
	"fmt"
	"strings"

	"github.com/sentri/retail-security/internal/domain"
)

// linkDisplayLength caps URLs shown in per-link reports
const linkDisplayLength = 60

// legitimateMessages are returned when nothing suspicious was found
var legitimateMessages = map[domain.ScanKind]string{
	domain.KindLink:  "This link appears legitimate. No phishing, typosquatting or redirect indicators were found.",
	domain.KindEmail: "This email appears legitimate. No phishing language, dangerous links or sender anomalies were found.",
	domain.KindLogs:  "These log entries appear normal. No authentication, escalation or intrusion anomalies were found.",
	domain.KindText:  "This message appears legitimate. No scam language or dangerous links were found.",
}

// advisories urge out-of-band verification for mid-tier scores
var advisories = map[domain.ScanKind]string{
	domain.KindLink: "This link is not confirmed safe. Do not open it until you have verified the destination " +
		"by typing the official website address yourself.",
	domain.KindEmail: "This email is not confirmed safe. Verify the request through an official channel, such as " +
		"a phone number or portal you already know, rather than replying or using anything in the message.",
	domain.KindLogs: "This activity is not confirmed benign. Verify it with the account owner or the system " +
		"administrator before closing it out.",
	domain.KindText: "This message is not confirmed safe. Verify the sender through an official channel before acting on it.",
}

// severityLabel maps a score to the narrative heading. It is aligned with,
// but distinct from, the tier table.
func severityLabel(score int) string {
	switch {
	case score >= 8:
		return "CRITICAL THREAT"
	case score >= 6:
		return "HIGH RISK"
	case score >= 3:
		return "SUSPICIOUS"
	default:
		return "NOTICE"
	}
}

// Explain builds the narrative shown alongside a verdict.
//
// meta and links are only used for email and text scans and may be nil.
func Explain(kind domain.ScanKind, indicators []string, score int, meta *domain.EmailMetadata, links []domain.LinkReport) string {
	if len(indicators) == 0 && maxLinkScore(links) <= 2 {
		return legitimateMessages[kind]
	}

	var b strings.Builder

	if kind == domain.KindEmail && meta != nil {
		fmt.Fprintf(&b, "From: %s\n", valueOr(meta.From, "(unknown sender)"))
		fmt.Fprintf(&b, "Subject: %s\n", valueOr(meta.Subject, "(no subject)"))
		fmt.Fprintf(&b, "Embedded links found: %d\n\n", len(meta.EmbeddedLinks))
	}

	fmt.Fprintf(&b, "%s\n", severityLabel(score))
	for _, indicator := range indicators {
		fmt.Fprintf(&b, "- %s\n", indicator)
	}

	if len(links) > 0 {
		b.WriteString("\nEmbedded link analysis:\n")
		for _, link := range links {
			fmt.Fprintf(&b, "* %s [%s] %d/10\n",
				truncate(link.URL, linkDisplayLength), strings.ToUpper(string(link.Level)), link.Score)
			for _, indicator := range link.Indicators {
				fmt.Fprintf(&b, "    - %s\n", indicator)
			}
		}
	}

	if score >= 3 && score <= 5 {
		fmt.Fprintf(&b, "\n%s\n", advisories[kind])
	}

	fmt.Fprintf(&b, "\nRisk Score: %d/10", score)
	return b.String()
}

func maxLinkScore(links []domain.LinkReport) int {
	best := 0
	for _, l := range links {
		best = max(best, l.Score)
	}
	return best
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// truncate shortens s to n runes, appending "..." when cut
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
