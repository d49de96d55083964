package detection

import (
	"regexp"

	"github.com/sentri/retail-security/internal/domain"
)

// Rule is a single weighted threat indicator. Rule sets are plain ordered
// data: they are compiled once at startup and never mutated.
type Rule struct {
	Pattern     *regexp.Regexp
	Weight      int
	Description string
}

// rule compiles a case-insensitive pattern
func rule(pattern string, weight int, description string) Rule {
	return Rule{
		Pattern:     regexp.MustCompile(`(?i)` + pattern),
		Weight:      weight,
		Description: description,
	}
}

// urlStart and urlEnd bound a URL token, so host rules hold wherever the URL
// sits in the submitted text
const (
	urlStart = `(?:^|[\s("'<])`
	urlEnd   = `(?:[/?#\s)"'>]|$)`
)

// linkRules score a single URL
var linkRules = []Rule{
	rule(`amaz0n|arnazon|amazom|paypa1|paypai|g00gle|gogle\.|micros0ft|rnicrosoft|app1e|netf1ix|faceb00k|1inkedin`, 3, "typosquatted brand name in domain"),
	rule(`malicious|phish|scam|fraud|malware`, 4, "domain associated with malicious activity"),
	rule(`[?&](redirect|redir|url|next|return_?to|returnurl|continue)=`, 2, "open redirect parameter"),
	rule(urlStart+`https?://[^/?#\s]+\.(xyz|tk|ml|ga|cf|gq|top|buzz|club|click|loan|work|zip)(:\d+)?`+urlEnd, 3, "high-abuse top-level domain"),
	rule(urlStart+`https?://\d{1,3}(\.\d{1,3}){3}(:\d+)?`+urlEnd, 3, "raw IP address used instead of a domain"),
	rule(urlStart+`https?://[^/?#\s]*@`, 3, "credentials or obfuscation via @ in URL"),
	rule(urlStart+`http://`, 1, "unencrypted HTTP connection"),
	rule(`/(login|signin|sign-in|verify|account|secure|update|confirm|password|banking)\b`, 2, "credential-harvesting path"),
	rule(`\b(bit\.ly|tinyurl\.com|goo\.gl|t\.co|ow\.ly|is\.gd|cutt\.ly)/`, 2, "URL shortener hides the destination"),
	rule(urlStart+`https?://([^/?#.\s]+\.){4,}`, 1, "excessive subdomains"),
	rule(`free-|gift|prize|winner|claim|bonus|-deals?\b`, 1, "lure keyword in URL"),
}

// emailRules score email bodies and free-text messages
var emailRules = []Rule{
	rule(`\b(urgent|immediately|asap|right away|act now|within (24|48) hours|expires? (today|soon))\b`, 2, "urgency language"),
	rule(`account (will be|has been) (suspended|closed|locked|terminated)|unusual (activity|sign-?in|login)|unauthori[sz]ed (access|login)`, 2, "account threat or fear tactic"),
	rule(`(verify|confirm|update|validate) your (account|identity|password|details|information|payment)|login credentials|reset your password`, 3, "request to verify credentials"),
	rule(`wire transfer|bank account details|gift cards?|payment (failed|overdue|declined)|overdue invoice|outstanding balance`, 2, "payment or invoice pressure"),
	rule(`dear (valued )?(customer|user|account holder|sir/madam|member)`, 1, "generic greeting"),
	rule(`click (here|the link|below)|follow the link`, 2, "call to click a link"),
	rule(`congratulations|you('ve| have) (won|been selected)|claim your (prize|reward|gift)`, 2, "prize or reward lure"),
	rule(`\.(zip|exe|scr|js|iso|html?)\b|see attached|attached (file|invoice|document)`, 2, "suspicious attachment reference"),
	rule(`\b(ssn|social security( number)?|credit card number|cvv|routing number|pin code)\b`, 3, "request for sensitive information"),
	rule(`kindly do the needful|please to verify|you have been select\b`, 1, "grammar typical of phishing"),
}

// logRules score security and POS log excerpts
var logRules = []Rule{
	rule(`failed (login|password|authentication)|authentication failed|invalid (password|credentials)|login failure`, 2, "failed authentication"),
	rule(`brute.?force|multiple failed|too many (attempts|failures)|repeated (login|auth)`, 3, "brute-force pattern"),
	rule(`\bsudo\b|root access|privilege (escalation|change)|admin token|elevated (rights|privileges)|permission change`, 3, "privilege escalation"),
	rule(`access denied|unauthori[sz]ed|permission denied|403 forbidden`, 1, "access denied or unauthorized request"),
	rule(`sql injection|union\s+select|'\s*or\s+1\s*=\s*1|<script|\bxss\b`, 4, "injection attempt"),
	rule(`malware|ransomware|trojan|virus detected|c2 beacon|command and control`, 4, "malware indicator"),
	rule(`port ?scan|\bnmap\b|syn flood|\bddos\b`, 3, "network reconnaissance or flooding"),
	rule(`new ip|unusual location|odd hour|impossible travel|geo.?anomaly`, 2, "anomalous access location or time"),
	rule(`skimm(er|ing)|tamper(ed|ing)?|unknown (usb|device)`, 3, "possible POS or terminal tampering"),
	rule(`exfiltrat|large (outbound|upload)|data (dump|export)`, 3, "possible data exfiltration"),
}

// RulesFor returns the ordered rule set for a scan kind. Free text is scored
// as a message, with the email rules.
func RulesFor(kind domain.ScanKind) ([]Rule, error) {
	switch kind {
	case domain.KindLink:
		return linkRules, nil
	case domain.KindEmail, domain.KindText:
		return emailRules, nil
	case domain.KindLogs:
		return logRules, nil
	default:
		return nil, domain.UnsupportedKind(string(kind))
	}
}
