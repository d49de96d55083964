package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/domain/detection"
	"github.com/sentri/retail-security/internal/history"
	"github.com/sentri/retail-security/internal/ports"
	"go.uber.org/zap"
)

const defaultRemoteTimeout = 3 * time.Second

// ScanService orchestrates scoring and history storage
type ScanService struct {
	analyzer *detection.Analyzer
	history  *history.Store
	logger   *zap.Logger

	// Optional external scorer; the local analyzer is the fallback
	remote        ports.RemoteScorer
	remoteTimeout time.Duration
}

// NewScanService creates a new scan service with dependency injection
func NewScanService(analyzer *detection.Analyzer, store *history.Store, logger *zap.Logger) *ScanService {
	return &ScanService{
		analyzer:      analyzer,
		history:       store,
		logger:        logger,
		remoteTimeout: defaultRemoteTimeout,
	}
}

// SetRemoteScorer routes scoring through an external service first
func (s *ScanService) SetRemoteScorer(remote ports.RemoteScorer, timeout time.Duration) {
	s.remote = remote
	if timeout > 0 {
		s.remoteTimeout = timeout
	}
}

// History exposes the underlying store for read-only queries
func (s *ScanService) History() *history.Store {
	return s.history
}

// Analyze scores input without storing it.
// Error handling strategy:
//   - An unknown kind fails fast with domain.ErrUnsupportedKind
//   - Any remote scorer failure is logged and the local engine is used instead
func (s *ScanService) Analyze(ctx context.Context, kind domain.ScanKind, input string) (domain.Analysis, error) {
	if _, err := detection.RulesFor(kind); err != nil {
		return domain.Analysis{}, err
	}

	if s.remote != nil {
		analysis, err := s.scoreRemote(ctx, kind, input)
		if err == nil {
			return analysis, nil
		}
		remoteFallbacksTotal.Inc()
		s.logger.Warn("remote scorer unavailable, scoring locally",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	return s.analyzer.Analyze(kind, input)
}

// Scan scores input and stores the result in the history
// A request whose context is already done is neither scored nor stored.
func (s *ScanService) Scan(ctx context.Context, userID int64, kind domain.ScanKind, input string) (domain.ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScanRecord{}, fmt.Errorf("scan abandoned: %w", err)
	}

	analysis, err := s.Analyze(ctx, kind, input)
	if err != nil {
		return domain.ScanRecord{}, err
	}

	rec := s.history.Add(domain.DraftFromAnalysis(userID, input, analysis))

	scansTotal.WithLabelValues(string(rec.Kind), string(rec.RiskLevel)).Inc()
	scanScore.Observe(float64(rec.RiskScore))

	if rec.RiskScore >= history.HighRiskThreshold {
		s.logger.Warn("high risk scan",
			zap.Int64("scan_id", rec.ID),
			zap.Int64("user_id", rec.UserID),
			zap.String("kind", string(rec.Kind)),
			zap.Int("risk_score", rec.RiskScore),
			zap.Strings("indicators", rec.Indicators),
		)
	}
	return rec, nil
}

// Clear wipes the scan history
func (s *ScanService) Clear() {
	s.history.Clear()
	s.logger.Info("scan history cleared")
}

func (s *ScanService) scoreRemote(ctx context.Context, kind domain.ScanKind, input string) (domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	return s.remote.Score(ctx, kind, input)
}
