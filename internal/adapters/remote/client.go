package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/domain/detection"
)

const (
	maxResponseBytes = 1 << 20

	// remoteScoreMax is the top of the remote service's 0-100 scale
	remoteScoreMax = 100
)

// scanResponse is the remote service's scan result
type scanResponse struct {
	Kind               string   `json:"kind"`
	RiskScore          *int     `json:"risk_score"`
	RiskLevel          string   `json:"risk_level"`
	Verdict            string   `json:"verdict"`
	Explanation        string   `json:"explanation"`
	RecommendedActions []string `json:"recommended_actions"`
}

type linkRequest struct {
	URL string `json:"url"`
}

type emailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type logsRequest struct {
	Source string   `json:"source"`
	Lines  []string `json:"lines"`
}

// Client implements ports.RemoteScorer against a scan service exposing
// POST /scans/{link,email,logs}
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client targeting baseURL
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Score submits input to the remote service. Free text is sent as an email body.
//
// The remote score is on a 0-100 scale and is mapped onto the local 1-10
// scale by ScaleScore. Level and verdict are always re-derived locally so a
// remote result can never disagree with the local tier table.
func (c *Client) Score(ctx context.Context, kind domain.ScanKind, input string) (domain.Analysis, error) {
	path, payload, err := buildRequest(kind, input)
	if err != nil {
		return domain.Analysis{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("encode %s scan request: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("scan request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return domain.Analysis{}, fmt.Errorf("remote scorer returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("read scan response: %w", err)
	}

	var result scanResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode scan response: %w", err)
	}
	if result.RiskScore == nil {
		return domain.Analysis{}, fmt.Errorf("remote scorer returned no risk score")
	}

	score := ScaleScore(*result.RiskScore)
	level := domain.TierOf(score)
	actions := result.RecommendedActions
	if len(actions) == 0 {
		actions = detection.RecommendedActions(score, kind)
	}

	return domain.Analysis{
		Kind:               kind,
		Score:              score,
		Level:              level,
		Verdict:            domain.Verdict(level),
		Explanation:        result.Explanation,
		Indicators:         []string{},
		RecommendedActions: actions,
	}, nil
}

// ScaleScore maps a 0-100 remote score onto [domain.MinScore, domain.MaxScore]
// by tens, rounding down. The remote LOW (<30), MEDIUM (30-59) and HIGH (60+)
// bands land on the local low, medium and high-or-critical tiers.
func ScaleScore(remote int) int {
	if remote < 0 {
		remote = 0
	}
	if remote > remoteScoreMax {
		remote = remoteScoreMax
	}
	return domain.ClampScore(remote / 10)
}

func buildRequest(kind domain.ScanKind, input string) (string, any, error) {
	switch kind {
	case domain.KindLink:
		return "/scans/link", linkRequest{URL: strings.TrimSpace(input)}, nil
	case domain.KindEmail, domain.KindText:
		meta := detection.ExtractEmailMetadata(input)
		subject := ""
		if meta.Subject != nil {
			subject = *meta.Subject
		}
		return "/scans/email", emailRequest{Subject: subject, Body: input}, nil
	case domain.KindLogs:
		return "/scans/logs", logsRequest{Source: "sentri", Lines: splitLines(input)}, nil
	default:
		return "", nil, domain.UnsupportedKind(string(kind))
	}
}

func splitLines(input string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
