package ports

import (
	"context"

	"github.com/sentri/retail-security/internal/domain"
)

// SnapshotKey is the fixed key the scan history is persisted under
const SnapshotKey = "sentri.scan_history"

// Snapshot is the durable form of the scan history.
// Scans are ordered most recent first; NextID is the id the next scan will receive.
type Snapshot struct {
	Scans  []domain.ScanRecord `json:"scans"`
	NextID int64               `json:"nextId"`
}

// SnapshotStore defines the contract for persisting the scan history blob
type SnapshotStore interface {
	// Load returns the saved snapshot, or nil when nothing has been saved yet
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the saved snapshot
	Save(ctx context.Context, snapshot Snapshot) error

	// Lifecycle
	Close() error
}
