package detection

import (
	"github.com/sentri/retail-security/internal/domain"
)

// RecommendedActions returns the ordered action list for a score, refined
// for the scan kind.
func RecommendedActions(score int, kind domain.ScanKind) []string {
	switch domain.TierOf(score) {
	case domain.LevelCritical:
		return criticalActions(kind)
	case domain.LevelHigh:
		return highActions(kind)
	case domain.LevelMedium:
		return mediumActions(kind)
	default:
		return lowActions(kind)
	}
}

func lowActions(kind domain.ScanKind) []string {
	actions := []string{"No immediate action required"}
	switch kind {
	case domain.KindLink:
		actions = append(actions, "Confirm the address bar shows the expected site before signing in")
	case domain.KindEmail, domain.KindText:
		actions = append(actions, "Stay alert for unexpected follow-up requests")
	case domain.KindLogs:
		actions = append(actions, "Continue routine monitoring")
	}
	return actions
}

func mediumActions(kind domain.ScanKind) []string {
	actions := []string{"Verify through an official channel before acting"}
	switch kind {
	case domain.KindLink:
		actions = append(actions, "Do not click until the destination is verified")
	case domain.KindEmail, domain.KindText:
		actions = append(actions, "Do not reply directly; contact the sender through a known channel")
	case domain.KindLogs:
		actions = append(actions, "Investigate source IP and correlate with recent activity")
	}
	return append(actions, "Report to IT security if unsure")
}

func highActions(kind domain.ScanKind) []string {
	actions := []string{"Do not interact with this content"}
	switch kind {
	case domain.KindLink:
		actions = append(actions, "Do not click; report the link as phishing")
	case domain.KindEmail, domain.KindText:
		actions = append(actions,
			"Do not reply directly or open attachments",
			"Report the message as phishing",
		)
	case domain.KindLogs:
		actions = append(actions,
			"Investigate source IP and block it if unrecognized",
			"Review affected accounts for compromise",
		)
	}
	return append(actions, "Notify your security team")
}

func criticalActions(kind domain.ScanKind) []string {
	actions := []string{"Block immediately"}
	switch kind {
	case domain.KindLink:
		actions = append(actions,
			"Do not click; add the domain to the blocklist",
			"If already opened, change any credentials entered",
		)
	case domain.KindEmail, domain.KindText:
		actions = append(actions,
			"Do not reply directly, click links or open attachments",
			"Delete the message and report it as phishing",
		)
	case domain.KindLogs:
		actions = append(actions,
			"Investigate source IP and isolate affected systems",
			"Reset credentials for affected accounts",
		)
	}
	return append(actions, "Escalate to incident response")
}
