package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// SnapshotRecord is one image file written for a run.
type SnapshotRecord struct {
	RunID     string
	RTime     int
	Path      string
	MaxAbs    float64
	CreatedAt int64
}

// SnapshotStore reads and writes rtm_snapshots.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a SnapshotStore over db.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Insert records one snapshot file. Recording the same (run, rtime, path)
// twice replaces the earlier row.
func (s *SnapshotStore) Insert(rec *SnapshotRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO rtm_snapshots (run_id, rtime, path, max_abs, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, rec.RunID, rec.RTime, rec.Path, rec.MaxAbs, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

// ListByRun returns a run's snapshots in emission order (descending
// rtime).
func (s *SnapshotStore) ListByRun(runID string) ([]*SnapshotRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, rtime, path, max_abs, created_at
		FROM rtm_snapshots
		WHERE run_id = ?
		ORDER BY rtime DESC, path ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.RunID, &rec.RTime, &rec.Path, &rec.MaxAbs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
