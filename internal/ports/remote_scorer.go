package ports

import (
	"context"

	"github.com/sentri/retail-security/internal/domain"
)

// RemoteScorer defines the contract for an external scoring service.
// Implementations must honour ctx cancellation; callers fall back to the
// local engine on any error.
type RemoteScorer interface {
	Score(ctx context.Context, kind domain.ScanKind, input string) (domain.Analysis, error)
}
