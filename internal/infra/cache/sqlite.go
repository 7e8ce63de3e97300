package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/labelscan/labelscan/internal/domain/analysis"
)

// DefaultCapacity bounds the local history at the 50 most recent entries.
const DefaultCapacity = 50

// Store is the device-local fallback history: a bounded, most-recent-first
// SQLite file outside the primary store. It holds fallback results and a
// write-through copy of successful ones. Not subject to owner isolation.
type Store struct {
	db       *sql.DB
	capacity int
}

func New(dbPath string, capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local history: %w", err)
	}

	s := &Store{db: db, capacity: capacity}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize local history schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS local_history (
        id TEXT PRIMARY KEY,
        owner_id TEXT NOT NULL,
        input_text TEXT NOT NULL,
        judgment TEXT NOT NULL,
        key_factors TEXT NOT NULL,
        tradeoffs TEXT NOT NULL,
        uncertainty TEXT NOT NULL,
        confidence TEXT NOT NULL,
        source TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_local_history_created_at ON local_history(created_at);
    `
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put stores one record and prunes anything beyond capacity, oldest first.
func (s *Store) Put(a *domain.Analysis) error {
	factors, err := json.Marshal(a.KeyFactors)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `
        INSERT OR REPLACE INTO local_history
          (id, owner_id, input_text, judgment, key_factors, tradeoffs, uncertainty, confidence, source, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := tx.Exec(insert,
		string(a.ID), a.OwnerID, a.InputText, a.Judgment, string(factors),
		a.Tradeoffs, a.Uncertainty, string(a.Confidence), string(a.Source), a.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	const prune = `
        DELETE FROM local_history
        WHERE id NOT IN (
            SELECT id FROM local_history
            ORDER BY created_at DESC, id DESC
            LIMIT ?
        )
    `
	if _, err := tx.Exec(prune, s.capacity); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	return tx.Commit()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]*domain.Analysis, error) {
	if limit <= 0 || limit > s.capacity {
		limit = s.capacity
	}
	const q = `
        SELECT id, owner_id, input_text, judgment, key_factors, tradeoffs, uncertainty, confidence, source, created_at
        FROM local_history
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `
	rows, err := s.db.Query(q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		var factors string
		var created time.Time
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.InputText, &a.Judgment, &factors,
			&a.Tradeoffs, &a.Uncertainty, &a.Confidence, &a.Source, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(factors), &a.KeyFactors); err != nil {
			return nil, fmt.Errorf("failed to decode key factors: %w", err)
		}
		a.CreatedAt = created
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Ping reports whether the underlying file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
