package domain

import (
	"errors"
	"fmt"
	"time"
)

// ScanKind is the category of input submitted for scoring
type ScanKind string

const (
	KindLink  ScanKind = "link"
	KindEmail ScanKind = "email"
	KindLogs  ScanKind = "logs"
	KindText  ScanKind = "text"
)

// ScanKinds lists every kind a scan may be submitted as, in display order
var ScanKinds = []ScanKind{KindLink, KindEmail, KindLogs, KindText}

// ParseScanKind validates a raw kind string
func ParseScanKind(s string) (ScanKind, error) {
	for _, k := range ScanKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", UnsupportedKind(s)
}

// RiskLevel is one of the four ordinal tiers derived from a risk score
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// RiskLevels lists the tiers from least to most severe
var RiskLevels = []RiskLevel{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Score bounds shared by every scoring path
const (
	MinScore = 1
	MaxScore = 10
)

// ClampScore forces a raw score into [MinScore, MaxScore]
func ClampScore(score int) int {
	return max(MinScore, min(score, MaxScore))
}

// TierOf converts a risk score to its risk level.
//
// The boundaries separate "suspicious but unverified" (3-5) from "safe" (1-2);
// medium is never treated as safe.
func TierOf(score int) RiskLevel {
	switch {
	case score >= 9:
		return LevelCritical
	case score >= 6:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Verdict returns the short user-facing verdict for a tier
func Verdict(level RiskLevel) string {
	switch level {
	case LevelCritical:
		return "BLOCK IMMEDIATELY"
	case LevelHigh:
		return "HIGH RISK - likely phishing/attack"
	case LevelMedium:
		return "SUSPICIOUS - verify before acting"
	default:
		return "SAFE"
	}
}

// EmailMetadata is what the extractor pulls out of raw email text.
// Subject and From are nil when the corresponding header line is absent.
type EmailMetadata struct {
	Subject       *string  `json:"subject"`
	From          *string  `json:"from"`
	EmbeddedLinks []string `json:"embeddedLinks"`
}

// LinkReport is the secondary analysis of one link embedded in an email
type LinkReport struct {
	URL        string    `json:"url"`
	Score      int       `json:"score"`
	Level      RiskLevel `json:"level"`
	Indicators []string  `json:"indicators"`
}

// Analysis is the output of the scoring pipeline before it is stored
type Analysis struct {
	Kind               ScanKind       `json:"kind"`
	Score              int            `json:"riskScore"`
	Level              RiskLevel      `json:"riskLevel"`
	Verdict            string         `json:"verdict"`
	Explanation        string         `json:"explanation"`
	Indicators         []string       `json:"indicators"`
	RecommendedActions []string       `json:"recommendedActions"`
	Email              *EmailMetadata `json:"email,omitempty"`
	Links              []LinkReport   `json:"links,omitempty"`
}

// ScanDraft is a scan record before the history store assigns its id and timestamp
type ScanDraft struct {
	UserID             int64
	Kind               ScanKind
	Input              string
	RiskScore          int
	Verdict            string
	Explanation        string
	Indicators         []string
	RecommendedActions []string
}

// DraftFromAnalysis builds the draft the history store persists for an analysis
func DraftFromAnalysis(userID int64, input string, a Analysis) ScanDraft {
	return ScanDraft{
		UserID:             userID,
		Kind:               a.Kind,
		Input:              input,
		RiskScore:          a.Score,
		Verdict:            a.Verdict,
		Explanation:        a.Explanation,
		Indicators:         a.Indicators,
		RecommendedActions: a.RecommendedActions,
	}
}

// ScanRecord is a stored scan. Records are immutable once created; callers
// holding one must not modify its slices.
type ScanRecord struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"userId"`
	Kind               ScanKind  `json:"kind"`
	Input              string    `json:"input"`
	InputPreview       string    `json:"inputPreview"`
	RiskScore          int       `json:"riskScore"`
	RiskLevel          RiskLevel `json:"riskLevel"`
	Verdict            string    `json:"verdict"`
	Explanation        string    `json:"explanation"`
	Indicators         []string  `json:"indicators"`
	RecommendedActions []string  `json:"recommendedActions"`
	CreatedAt          time.Time `json:"createdAt"`
}

// PreviewLength is the maximum number of characters kept in InputPreview
const PreviewLength = 50

// Preview truncates input to PreviewLength runes, appending "..." when cut
func Preview(input string) string {
	runes := []rune(input)
	if len(runes) <= PreviewLength {
		return input
	}
	return string(runes[:PreviewLength]) + "..."
}

// Stats aggregates the history store
type Stats struct {
	Total         int               `json:"total"`
	TodayCount    int               `json:"todayCount"`
	TodayHighRisk int               `json:"todayHighRisk"`
	TodaySafe     int               `json:"todaySafe"`
	ByLevel       map[RiskLevel]int `json:"byLevel"`
	ByKind        map[ScanKind]int  `json:"byKind"`
	AvgRiskScore  float64           `json:"avgRiskScore"`
}

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ToolUsed records which scanner, if any, produced an assistant reply
type ToolUsed string

const (
	ToolNone      ToolUsed = "none"
	ToolLinkScan  ToolUsed = "link_scan"
	ToolEmailScan ToolUsed = "email_scan"
	ToolLogsScan  ToolUsed = "logs_scan"
)

// Message is a single chat turn. ScanResult references the stored record
// and is never copied.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolUsed   ToolUsed    `json:"toolUsed,omitempty"`
	ScanResult *ScanRecord `json:"scanResult,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Conversation is the bounded chat history of one user
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	// ErrUnsupportedKind is returned when a scan kind has no rule set
	ErrUnsupportedKind = errors.New("unsupported scan kind")

	// ErrConversationNotFound is returned when a message targets an unknown conversation
	ErrConversationNotFound = errors.New("conversation not found")
)

// UnsupportedKind wraps ErrUnsupportedKind with the offending kind
func UnsupportedKind(kind string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
}
