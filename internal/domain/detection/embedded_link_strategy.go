package detection

// Embedded link thresholds on the secondary link score
const (
	dangerousLinkScore  = 7
	suspiciousLinkScore = 5
)

// Escalation indicators appended after base scoring of an email
const (
	IndicatorDangerousLink  = "dangerous embedded link detected"
	IndicatorSuspiciousLink = "suspicious embedded link detected"
)

// EmbeddedLinkStrategy escalates on the worst link found in the message:
// +2 for a dangerous link, +1 for a suspicious one.
type EmbeddedLinkStrategy struct{}

// NewEmbeddedLinkStrategy creates a new embedded link escalation strategy
func NewEmbeddedLinkStrategy() *EmbeddedLinkStrategy {
	return &EmbeddedLinkStrategy{}
}

// Name returns the strategy name
func (s *EmbeddedLinkStrategy) Name() string {
	return "Embedded Link"
}

// Escalate checks the highest embedded link score against the thresholds
func (s *EmbeddedLinkStrategy) Escalate(ctx *EscalationContext) (int, string) {
	switch best := maxLinkScore(ctx.Links); {
	case best >= dangerousLinkScore:
		return 2, IndicatorDangerousLink
	case best >= suspiciousLinkScore:
		return 1, IndicatorSuspiciousLink
	default:
		return 0, ""
	}
}
