package detection

import (
	"github.com/sentri/retail-security/internal/domain"
)

// EscalationStrategy adds to the base score of an email or free-text message
// after the rule pass.
//
// Strategies are independent: each one sees the same context and more than
// one may fire on the same input.
type EscalationStrategy interface {
	// Escalate returns the score bonus and the indicator to record, or
	// (0, "") when the strategy does not fire
	Escalate(ctx *EscalationContext) (int, string)

	// Name returns the human-readable name of this escalation strategy
	Name() string
}

// EscalationContext is the shared input of every escalation strategy
type EscalationContext struct {
	Email domain.EmailMetadata

	// Links holds the secondary link-rule report of every embedded link
	Links []domain.LinkReport
}
