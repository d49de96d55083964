package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite" // pure Go, no cgo needed
	_ "github.com/lib/pq"
	"github.com/sentri/retail-security/internal/ports"
)

// Dialect names a supported database/sql driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrCorruptSnapshot is returned by Load when the stored blob cannot be decoded
var ErrCorruptSnapshot = errors.New("corrupt scan history snapshot")

// SQLStore implements ports.SnapshotStore on PostgreSQL or SQLite
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	key     string
}

// NewSQLStore creates a new SQL storage instance
func NewSQLStore(dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported storage dialect: %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite serialises writers; one connection avoids "database is locked"
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(1)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return &SQLStore{db: db, dialect: dialect, key: ports.SnapshotKey}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the key/value table if it doesn't exist.
// One row per key; the scan history lives under ports.SnapshotKey.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key VARCHAR(128) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load retrieves the saved snapshot. It returns nil when no snapshot exists.
func (s *SQLStore) Load(ctx context.Context) (*ports.Snapshot, error) {
	query := s.rebind(`SELECT value FROM kv_store WHERE key = ?`)

	var value string
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap ports.Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

// Save upserts the snapshot under the store key
func (s *SQLStore) Save(ctx context.Context, snap ports.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := s.rebind(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`)
	_, err = s.db.ExecContext(ctx, query, s.key, string(value), time.Now().UTC())
	return err
}

// rebind converts ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
