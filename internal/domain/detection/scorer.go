package detection

import (
	"github.com/sentri/retail-security/internal/domain"
)

// Score applies the rule set for kind to text.
//
// Scoring starts at domain.MinScore; every matching rule adds its weight and
// contributes its description, in rule declaration order. Rules are evaluated
// independently, so overlapping matches all count. The total is capped at
// domain.MaxScore.
func Score(kind domain.ScanKind, text string) (int, []string, error) {
	rules, err := RulesFor(kind)
	if err != nil {
		return 0, nil, err
	}
	score, indicators := applyRules(rules, text)
	return score, indicators, nil
}

// applyRules is Score over an explicit rule set
func applyRules(rules []Rule, text string) (int, []string) {
	score := domain.MinScore
	indicators := make([]string, 0)

	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			score += r.Weight
			indicators = append(indicators, r.Description)
		}
	}

	return domain.ClampScore(score), indicators
}
