package detection

import (
	"github.com/sentri/retail-security/internal/domain"
)

// Analyzer runs the full scoring pipeline on one input
//
// The pipeline is:
//   - Base scoring with the rule set for the scan kind
//   - For emails and free text: metadata extraction, a secondary link-rule
//     pass over every embedded link, and additive escalation
//   - Tier, verdict, explanation and recommended actions
//
// Analyzer is pure: it holds only its escalation strategies and never performs
// I/O, so one instance can be shared across requests.
type Analyzer struct {
	strategies []EscalationStrategy
}

// NewAnalyzer creates an analyzer with the default sender policy
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithPolicy(DefaultSenderPolicy())
}

// NewAnalyzerWithPolicy creates an analyzer with a custom sender policy
func NewAnalyzerWithPolicy(policy *SenderPolicy) *Analyzer {
	return NewAnalyzerWithStrategies(
		NewEmbeddedLinkStrategy(),
		NewSenderDomainStrategy(policy),
	)
}

// NewAnalyzerWithStrategies creates an analyzer running the given escalation
// strategies, in order, on emails and free text
func NewAnalyzerWithStrategies(strategies ...EscalationStrategy) *Analyzer {
	return &Analyzer{strategies: strategies}
}

// Analyze scores text as the given kind
func (a *Analyzer) Analyze(kind domain.ScanKind, text string) (domain.Analysis, error) {
	score, indicators, err := Score(kind, text)
	if err != nil {
		return domain.Analysis{}, err
	}

	var (
		meta  *domain.EmailMetadata
		links []domain.LinkReport
	)

	if kind == domain.KindEmail || kind == domain.KindText {
		extracted := ExtractEmailMetadata(text)
		meta = &extracted
		links = analyzeLinks(extracted.EmbeddedLinks)
		score, indicators = a.escalate(score, indicators, extracted, links)
	}

	level := domain.TierOf(score)

	return domain.Analysis{
		Kind:               kind,
		Score:              score,
		Level:              level,
		Verdict:            domain.Verdict(level),
		Explanation:        Explain(kind, indicators, score, meta, links),
		Indicators:         indicators,
		RecommendedActions: RecommendedActions(score, kind),
		Email:              meta,
		Links:              links,
	}, nil
}

// analyzeLinks scores every embedded link with the link rules
func analyzeLinks(urls []string) []domain.LinkReport {
	reports := make([]domain.LinkReport, 0, len(urls))
	for _, u := range urls {
		score, indicators := applyRules(linkRules, u)
		reports = append(reports, domain.LinkReport{
			URL:        u,
			Score:      score,
			Level:      domain.TierOf(score),
			Indicators: indicators,
		})
	}
	return reports
}

// escalate applies every strategy's bonus and clamps the total
func (a *Analyzer) escalate(score int, indicators []string, meta domain.EmailMetadata, links []domain.LinkReport) (int, []string) {
	ctx := &EscalationContext{Email: meta, Links: links}
	for _, strategy := range a.strategies {
		if bonus, indicator := strategy.Escalate(ctx); bonus > 0 {
			score += bonus
			indicators = append(indicators, indicator)
		}
	}
	return domain.ClampScore(score), indicators
}
