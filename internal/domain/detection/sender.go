package detection

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/net/idna"
)

// SenderPolicy decides whether an email's From address impersonates a brand
// or comes from a known-bad domain. It is an illustrative policy table, not a
// threat feed, and can be replaced wholesale.
type SenderPolicy struct {
	// Patterns are matched case-insensitively against the raw From value
	Patterns []*regexp.Regexp

	// TrustedDomains are legitimate brand domains. A sender domain within a
	// small edit distance of one of them (but not equal) is a lookalike.
	TrustedDomains []string
}

// DefaultSenderPolicy returns the built-in impersonation policy
func DefaultSenderPolicy() *SenderPolicy {
	return &SenderPolicy{
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)@[^\s>]*(malicious|phish|scam|fraud|malware)`),
			regexp.MustCompile(`(?i)@[^\s>]*(amaz0n|arnazon|paypa1|paypai|g00gle|micros0ft|app1e|netf1ix)`),
			regexp.MustCompile(`(?i)@[^\s>]*\.(xyz|tk|ml|ga|cf|gq|top|buzz)\b`),
			regexp.MustCompile(`(?i)@[^\s>]*-(security|support|verify|verification|billing|alerts?|service)\.`),
			regexp.MustCompile(`(?i)\d{5,}@`),
		},
		TrustedDomains: []string{
			"amazon.com", "paypal.com", "google.com", "microsoft.com",
			"apple.com", "netflix.com", "facebook.com", "linkedin.com",
		},
	}
}

// Suspicious reports whether the From value matches the policy
func (p *SenderPolicy) Suspicious(from string) bool {
	for _, re := range p.Patterns {
		if re.MatchString(from) {
			return true
		}
	}
	return p.isLookalike(senderDomain(from))
}

// isLookalike checks if a domain is similar to, but not the same as, a trusted domain
func (p *SenderPolicy) isLookalike(domain string) bool {
	if domain == "" {
		return false
	}

	for _, trusted := range p.TrustedDomains {
		if domain == trusted || strings.HasSuffix(domain, "."+trusted) {
			return false
		}
	}

	for _, trusted := range p.TrustedDomains {
		distance := levenshtein.ComputeDistance(domain, trusted)
		if distance > 0 && distance <= lookalikeThreshold(trusted) {
			return true
		}
	}
	return false
}

// lookalikeThreshold allows one edit for short domains and two for longer ones
func lookalikeThreshold(domain string) int {
	if len(domain) <= 11 {
		return 1
	}
	return 2
}

// senderDomain extracts the lower-cased ASCII domain from a From value such as
// "PayPal Support <help@paypa1.com>". It returns "" when no address is present.
func senderDomain(from string) string {
	address := from
	if addr, err := mail.ParseAddress(from); err == nil {
		address = addr.Address
	}

	_, domain, ok := strings.Cut(address, "@")
	if !ok {
		return ""
	}
	domain = strings.ToLower(strings.Trim(domain, " <>\"'"))

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return domain
	}
	return ascii
}
