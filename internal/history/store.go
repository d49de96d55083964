package history

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/ports"
	"go.uber.org/zap"
)

const (
	// Capacity is the number of scans kept; older scans are evicted first
	Capacity = 100

	// HighRiskThreshold is the minimum score counted as high risk in queries and stats
	HighRiskThreshold = 7

	// CriticalThreshold is the minimum score returned by GetCriticalScans
	CriticalThreshold = 9

	// TodaySafeThreshold is the maximum score counted in Stats.TodaySafe.
	// It is intentionally looser than the low tier (score <= 2).
	TodaySafeThreshold = 3

	saveTimeout = 5 * time.Second
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// Listener is notified with every newly added scan
type Listener func(domain.ScanRecord)

type listenerEntry struct {
	id int
	fn Listener
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used for timestamps and "today" queries
func WithClock(clock Clock) Option {
	return func(s *Store) { s.now = clock }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSnapshotStore enables best-effort persistence of every mutation
func WithSnapshotStore(snapshots ports.SnapshotStore) Option {
	return func(s *Store) { s.snapshots = snapshots }
}

// Store is the bounded, most-recent-first scan history.
//
// Guarantees:
//   - Ids are assigned under the lock, so concurrent Adds never share an id
//   - Records are immutable once stored; queries return copies of the list
//   - Listeners run synchronously, in registration order, while the lock is
//     held. They must not call back into the Store.
//   - Persistence never blocks or fails Add: snapshots are handed to a single
//     background writer that keeps only the latest pending one.
type Store struct {
	mu        sync.RWMutex
	scans     []domain.ScanRecord
	nextID    int64
	listeners []listenerEntry
	listenSeq int

	now    Clock
	logger *zap.Logger

	snapshots ports.SnapshotStore
	pendingMu sync.Mutex
	pending   *ports.Snapshot
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates an empty history store
func NewStore(opts ...Option) *Store {
	s := &Store{
		scans:  make([]domain.ScanRecord, 0, Capacity),
		nextID: 1,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.snapshots != nil {
		s.wake = make(chan struct{}, 1)
		s.quit = make(chan struct{})
		s.done = make(chan struct{})
		go s.writeLoop()
	}
	return s
}

// Load restores the persisted snapshot. Absent or corrupt data leaves the
// store empty; the error is logged, not returned.
func (s *Store) Load(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logger.Warn("scan history snapshot unreadable, starting empty", zap.Error(err))
		return
	}
	if snap == nil {
		s.logger.Info("no scan history snapshot found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scans := snap.Scans
	if len(scans) > Capacity {
		scans = scans[:Capacity]
	}

	s.scans = make([]domain.ScanRecord, 0, Capacity)
	s.nextID = max(snap.NextID, 1)
	for _, rec := range scans {
		// riskLevel is always derived from the score, never trusted from storage
		rec.RiskScore = domain.ClampScore(rec.RiskScore)
		rec.RiskLevel = domain.TierOf(rec.RiskScore)
		s.scans = append(s.scans, rec)
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	}

	s.logger.Info("scan history restored",
		zap.Int("scans", len(s.scans)),
		zap.Int64("next_id", s.nextID),
	)
}

// Add stores a scan, assigning its id and timestamp, and notifies listeners
func (s *Store) Add(draft domain.ScanDraft) domain.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := domain.ClampScore(draft.RiskScore)
	rec := domain.ScanRecord{
		ID:                 s.nextID,
		UserID:             draft.UserID,
		Kind:               draft.Kind,
		Input:              draft.Input,
		InputPreview:       domain.Preview(draft.Input),
		RiskScore:          score,
		RiskLevel:          domain.TierOf(score),
		Verdict:            draft.Verdict,
		Explanation:        draft.Explanation,
		Indicators:         nonNil(draft.Indicators),
		RecommendedActions: nonNil(draft.RecommendedActions),
		CreatedAt:          s.now(),
	}
	s.nextID++

	scans := make([]domain.ScanRecord, 0, Capacity)
	scans = append(scans, rec)
	if len(s.scans) >= Capacity {
		scans = append(scans, s.scans[:Capacity-1]...)
	} else {
		scans = append(scans, s.scans...)
	}
	s.scans = scans

	s.schedulePersist()

	for _, l := range s.listeners {
		l.fn(rec)
	}
	return rec
}

// GetAll returns every stored scan, most recent first
func (s *Store) GetAll() []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(domain.ScanRecord) bool { return true })
}

// GetRecent returns up to n scans, most recent first. n <= 0 returns none.
func (s *Store) GetRecent(n int) []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = max(0, min(n, len(s.scans)))
	out := make([]domain.ScanRecord, n)
	copy(out, s.scans[:n])
	return out
}

// GetByUserID returns the scans submitted by one user
func (s *Store) GetByUserID(userID int64) []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r domain.ScanRecord) bool { return r.UserID == userID })
}

// GetByRiskLevel returns the scans in one tier
func (s *Store) GetByRiskLevel(level domain.RiskLevel) []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r domain.ScanRecord) bool { return r.RiskLevel == level })
}

// GetHighRiskScans returns scans scoring HighRiskThreshold or more
func (s *Store) GetHighRiskScans() []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r domain.ScanRecord) bool { return r.RiskScore >= HighRiskThreshold })
}

// GetCriticalScans returns scans scoring CriticalThreshold or more
func (s *Store) GetCriticalScans() []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r domain.ScanRecord) bool { return r.RiskScore >= CriticalThreshold })
}

// GetTodayScans returns scans created on the clock's current calendar day,
// in the clock's location
func (s *Store) GetTodayScans() []domain.ScanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	return s.filter(func(r domain.ScanRecord) bool { return sameDay(r.CreatedAt, now) })
}

// GetStats aggregates the whole history
func (s *Store) GetStats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{
		Total:   len(s.scans),
		ByLevel: make(map[domain.RiskLevel]int, len(domain.RiskLevels)),
		ByKind:  make(map[domain.ScanKind]int, len(domain.ScanKinds)),
	}
	for _, level := range domain.RiskLevels {
		stats.ByLevel[level] = 0
	}
	for _, kind := range domain.ScanKinds {
		stats.ByKind[kind] = 0
	}

	now := s.now()
	sum := 0
	for _, r := range s.scans {
		sum += r.RiskScore
		stats.ByLevel[r.RiskLevel]++
		stats.ByKind[r.Kind]++

		if !sameDay(r.CreatedAt, now) {
			continue
		}
		stats.TodayCount++
		if r.RiskScore >= HighRiskThreshold {
			stats.TodayHighRisk++
		}
		if r.RiskScore <= TodaySafeThreshold {
			stats.TodaySafe++
		}
	}

	if stats.Total > 0 {
		stats.AvgRiskScore = math.Round(float64(sum)/float64(stats.Total)*10) / 10
	}
	return stats
}

// Clear wipes every scan and resets the id counter to 1
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans = make([]domain.ScanRecord, 0, Capacity)
	s.nextID = 1
	s.schedulePersist()
}

// OnAdd registers a listener and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (s *Store) OnAdd(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listenSeq++
	id := s.listenSeq
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Close flushes the pending snapshot and stops the background writer
func (s *Store) Close() error {
	if s.snapshots == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}

// filter must be called with the read lock held
func (s *Store) filter(keep func(domain.ScanRecord) bool) []domain.ScanRecord {
	out := make([]domain.ScanRecord, 0)
	for _, r := range s.scans {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// schedulePersist must be called with the write lock held so snapshots are
// queued in mutation order
func (s *Store) schedulePersist() {
	if s.snapshots == nil {
		return
	}

	scans := make([]domain.ScanRecord, len(s.scans))
	copy(scans, s.scans)
	snap := ports.Snapshot{Scans: scans, NextID: s.nextID}

	s.pendingMu.Lock()
	s.pending = &snap
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *Store) flush() {
	s.pendingMu.Lock()
	snap := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.snapshots.Save(ctx, *snap); err != nil {
		s.logger.Warn("failed to persist scan history", zap.Error(err))
	}
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
