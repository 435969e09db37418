package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of rtm_runs.
type Run struct {
	RunID              string
	VelocityPath       string
	ShotPath           string
	DimX               int
	DimT               int
	DimZ               int
	VelocityMultiplier float64
	Dt                 float64
	Dx                 float64
	Dz                 float64
	SnapshotInterval   int
	SnapshotCutoff     int
	Kernel             string
	Workers            int
	Version            string
	ParamsJSON         string
	Status             string
	Error              string
	Steps              int
	SnapshotCount      int
	StartedAt          int64 // unix nanos
	FinishedAt         int64 // unix nanos, 0 while running
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == 0 {
		return 0
	}
	return time.Duration(r.FinishedAt - r.StartedAt)
}

// RunStore reads and writes rtm_runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore over db.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert stores r with status running. RunID and StartedAt are filled in
// when empty.
func (s *RunStore) Insert(r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.StartedAt == 0 {
		r.StartedAt = time.Now().UnixNano()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}

	query := `
		INSERT INTO rtm_runs (
			run_id, velocity_path, shot_path, dim_x, dim_t, dim_z,
			velocity_multiplier, dt, dx, dz, snapshot_interval, snapshot_cutoff,
			kernel, workers, version, params_json, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			r.RunID, r.VelocityPath, r.ShotPath, r.DimX, r.DimT, r.DimZ,
			r.VelocityMultiplier, r.Dt, r.Dx, r.Dz, r.SnapshotInterval, r.SnapshotCutoff,
			r.Kernel, r.Workers, r.Version, nullString(r.ParamsJSON), r.Status, r.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// SetGeometry records the depth-grid height and spacing once the mapper
// has run.
func (s *RunStore) SetGeometry(runID string, dimZ int, dz float64) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`UPDATE rtm_runs SET dim_z = ?, dz = ? WHERE run_id = ?`, dimZ, dz, runID)
		if err != nil {
			return fmt.Errorf("update run geometry: %w", err)
		}
		return expectOneRow(res, runID)
	})
}

// Finish closes out a run with its final status.
func (s *RunStore) Finish(runID, status, errMsg string, steps, snapshots int) error {
	finished := time.Now().UnixNano()
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE rtm_runs
			SET status = ?, error = ?, steps = ?, snapshot_count = ?, finished_at = ?
			WHERE run_id = ?
		`, status, nullString(errMsg), steps, snapshots, finished, runID)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		return expectOneRow(res, runID)
	})
}

const runColumns = `
	run_id, velocity_path, shot_path, dim_x, dim_t, dim_z,
	velocity_multiplier, dt, dx, dz, snapshot_interval, snapshot_cutoff,
	kernel, workers, version, params_json, status, error,
	steps, snapshot_count, started_at, finished_at
`

// Get loads one run.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM rtm_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A limit of 0 or less
// returns all of them.
func (s *RunStore) List(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM rtm_runs ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var (
		r          Run
		paramsJSON sql.NullString
		errMsg     sql.NullString
		finishedAt sql.NullInt64
	)
	err := sc.Scan(
		&r.RunID, &r.VelocityPath, &r.ShotPath, &r.DimX, &r.DimT, &r.DimZ,
		&r.VelocityMultiplier, &r.Dt, &r.Dx, &r.Dz, &r.SnapshotInterval, &r.SnapshotCutoff,
		&r.Kernel, &r.Workers, &r.Version, &paramsJSON, &r.Status, &errMsg,
		&r.Steps, &r.SnapshotCount, &r.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ParamsJSON = paramsJSON.String
	r.Error = errMsg.String
	r.FinishedAt = finishedAt.Int64
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
