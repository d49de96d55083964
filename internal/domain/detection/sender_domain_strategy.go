package detection

// IndicatorSenderDomain is recorded when the From address matches the sender policy
const IndicatorSenderDomain = "suspicious sender domain"

// SenderDomainStrategy escalates by 2 when the sender impersonates a brand or
// uses a known-bad domain
type SenderDomainStrategy struct {
	policy *SenderPolicy
}

// NewSenderDomainStrategy creates a new sender domain escalation strategy
func NewSenderDomainStrategy(policy *SenderPolicy) *SenderDomainStrategy {
	return &SenderDomainStrategy{policy: policy}
}

// Name returns the strategy name
func (s *SenderDomainStrategy) Name() string {
	return "Sender Domain"
}

// Escalate checks the From header, if any, against the policy
func (s *SenderDomainStrategy) Escalate(ctx *EscalationContext) (int, string) {
	if ctx.Email.From == nil || s.policy == nil {
		return 0, ""
	}
	if s.policy.Suspicious(*ctx.Email.From) {
		return 2, IndicatorSenderDomain
	}
	return 0, ""
}
