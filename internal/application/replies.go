package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/domain/detection"
)

var (
	chatURLRe     = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
	emailHeaderRe = regexp.MustCompile(`(?im)^(from|subject):`)

	logMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\[(ERROR|WARN|INFO)\]`),
		regexp.MustCompile(`(?i)failed|denied|error|unauthorized`),
	}

	scanIntentRe = regexp.MustCompile(`scan|check|analy[sz]e|verify|is.*safe|review`)
	scanTargets  = []string{"link", "url", "email", "message", "logs", "website"}
)

// route is the tool decision for one chat message
type route struct {
	kind  domain.ScanKind
	input string
	tool  domain.ToolUsed
}

// routeMessage picks the scanner for a chat message. Explicit email headers
// win over bare URLs so embedded links get email escalation; otherwise the
// order is URL, logs, then email-like prose.
func routeMessage(message string) (route, bool) {
	if emailHeaderRe.MatchString(message) {
		return route{kind: domain.KindEmail, input: message, tool: domain.ToolEmailScan}, true
	}
	if url := chatURLRe.FindString(message); url != "" {
		url = strings.TrimRight(url, ".,;:!?)")
		return route{kind: domain.KindLink, input: url, tool: domain.ToolLinkScan}, true
	}
	if lines := logLines(message); len(lines) >= 2 && looksLikeLogs(message) {
		return route{kind: domain.KindLogs, input: strings.Join(lines, "\n"), tool: domain.ToolLogsScan}, true
	}
	if looksLikeEmail(message) && len(strings.TrimSpace(message)) > 30 {
		return route{kind: domain.KindEmail, input: message, tool: domain.ToolEmailScan}, true
	}
	return route{}, false
}

func looksLikeLogs(message string) bool {
	if strings.Count(message, "\n") < 2 {
		return false
	}
	matches := 0
	for _, re := range logMarkers {
		if re.MatchString(message) {
			matches++
		}
	}
	return matches >= 2
}

func logLines(message string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(message, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func looksLikeEmail(message string) bool {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "dear customer"), strings.Contains(lower, "dear user"):
		return true
	case strings.Contains(lower, "click here") && len(message) > 100:
		return true
	case strings.Count(lower, "\n") >= 3 && containsAny(lower, "urgent", "invoice", "payment", "verify"):
		return true
	}
	return false
}

// wantsScan reports a scan request that carries nothing to scan
func wantsScan(lower string) bool {
	hasContent := strings.Contains(lower, "http") || len(lower) > 200
	return scanIntentRe.MatchString(lower) && containsAny(lower, scanTargets...) && !hasContent
}

func scanPrompt(lower string) string {
	switch {
	case containsAny(lower, "link", "url", "website"):
		return "I can scan that link for you. Just paste the URL and I'll analyze it for security risks."
	case containsAny(lower, "email", "message"):
		return "I can analyze that email for phishing indicators. Paste the full email, including the From and Subject lines, and I'll check it."
	case strings.Contains(lower, "log"):
		return "I can review those logs for security events. Paste the log entries and I'll summarize any concerns."
	default:
		return "I can scan links, emails, or logs for security threats. What would you like me to analyze?"
	}
}

func topicReply(lower string) string {
	switch {
	case containsAny(lower, "phishing", "suspicious link", "fake"):
		return phishingGuidance
	case containsAny(lower, "invoice", "payment", "vendor"):
		return invoiceGuidance
	case containsAny(lower, "password", "login", "credential"):
		return credentialGuidance
	case containsAny(lower, "pos", "terminal", "register"):
		return posGuidance
	case containsAny(lower, "report", "incident", "breach"):
		return incidentGuidance
	case containsAny(lower, "help", "what can you", "how do"):
		return helpReply
	default:
		return defaultReply
	}
}

// scanReply renders a stored scan as a chat message
func scanReply(r route, rec domain.ScanRecord) string {
	var b strings.Builder

	switch r.kind {
	case domain.KindLink:
		b.WriteString("**Link Scan Complete**\n")
		fmt.Fprintf(&b, "**URL:** `%s`\n", shorten(r.input, 60))
	case domain.KindLogs:
		b.WriteString("**Log Analysis Complete**\n")
		fmt.Fprintf(&b, "**Entries Analyzed:** %d\n", len(strings.Split(r.input, "\n")))
	default:
		b.WriteString("**Email Analysis Complete**\n")
		subject := "(Not provided)"
		if meta := detection.ExtractEmailMetadata(r.input); meta.Subject != nil && *meta.Subject != "" {
			subject = shorten(*meta.Subject, 60)
		}
		fmt.Fprintf(&b, "**Subject:** %s\n", subject)
	}

	fmt.Fprintf(&b, "**Risk Level:** %s (%d/10)\n", strings.ToUpper(string(rec.RiskLevel)), rec.RiskScore)
	fmt.Fprintf(&b, "**Verdict:** %s\n\n---\n\n", rec.Verdict)
	b.WriteString(rec.Explanation)

	if len(rec.RecommendedActions) > 0 {
		b.WriteString("\n\n**Recommended Actions:**\n")
		for _, action := range rec.RecommendedActions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

const phishingGuidance = `**Phishing Detection Guide for Retail**

**Red flags to watch:**
1. **Lookalike domains** - amaz0n, paypa1, g00gle
2. **Urgency language** - "Act now", "Account suspended"
3. **Generic greetings** - "Dear Customer" instead of your name
4. **Suspicious links** - hover to preview before clicking
5. **Requests for credentials** - legitimate companies don't ask by email

**Retail-specific threats:** fake vendor invoices, fraudulent shipping notifications, gift card scams, POS "system update" emails.

**What to do:** don't click any links, verify the sender through official channels, report to IT security, and paste the link here so I can scan it.

Would you like me to analyze a specific link or email?`

const invoiceGuidance = `**Vendor Invoice Fraud Protection**

**Warning signs:**
- Invoice from an unknown vendor
- Changed payment details or a new bank account
- Pressure to pay "immediately"
- Slight variations in the vendor's email domain

**Verification steps:**
1. **Call the vendor** using a number you already have, never one from the email
2. **Check purchase orders** against your records
3. **Verify banking changes** through established contacts

Paste the invoice email here and I'll check it for spoofed senders, urgency tactics and payment links.`

const credentialGuidance = `**Credential Security for Retail Staff**

**Password basics:** at least 12 characters, a different password for each system, never shared with anyone.

**Be suspicious of:**
- Unexpected password reset emails
- Login pages that look slightly different
- Requests to "verify" your account

**On POS terminals:** log out between shifts, never leave a terminal logged in unattended, and report unusual login screens.

**If you suspect compromise:** change your password immediately, report to IT security, review recent account activity and enable MFA if available.`

const posGuidance = `**POS & Terminal Security**

**Daily checks:**
1. Inspect the card reader for tampering
2. Check for unknown USB devices
3. Verify the secure network indicator

**Skimmer signs:** loose card slot, extra attachments on the reader, keyboard overlays, hidden cameras near the PIN pad.

**Suspicious activity:** unexpected system updates, slow transactions, login prompts at odd hours.

Paste terminal or security logs here and I'll review them for failed logins, privilege changes and tampering events.`

const incidentGuidance = `**Security Incident Reporting**

**Immediate steps:**
1. Document everything and don't delete suspicious items
2. Disconnect the affected system only if instructed
3. Contact your IT security hotline

**What to report:** what happened and when, the systems or accounts affected, any actions you took, and screenshots if possible.

You won't get in trouble for reporting. A false alarm is always better than a missed incident.`

const helpReply = `**How I Can Help**

**Security analysis:**
- **Scan Link** - paste any URL for a risk assessment
- **Analyze Email** - paste an email to check it for phishing or fraud
- **Review Logs** - paste log entries to find security anomalies

**Security guidance:** phishing detection, invoice fraud, passwords and credentials, POS terminal protection, incident reporting.

**Try:** "Is this link safe? https://..." or "How do I report a security incident?"`

const defaultReply = `I'm here to help with retail security concerns.

**I can assist with:**
- Analyzing suspicious links, emails or logs
- Security best practices
- Incident reporting procedures
- POS and terminal security

Paste a URL or an email, or describe your concern.`
