package sqlite

// Catalog bundles the stores over one open database.
type Catalog struct {
	db        *DB
	Runs      *RunStore
	Snapshots *SnapshotStore
}

// OpenCatalog opens the database at path and returns its stores.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		db:        db,
		Runs:      NewRunStore(db.DB),
		Snapshots: NewSnapshotStore(db.DB),
	}, nil
}

// DB exposes the underlying database, for migrations.
func (c *Catalog) DB() *DB { return c.db }

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// BeginRun inserts r as a running run.
func (c *Catalog) BeginRun(r *Run) error { return c.Runs.Insert(r) }

// SetGeometry records the mapped depth grid of a run.
func (c *Catalog) SetGeometry(runID string, dimZ int, dz float64) error {
	return c.Runs.SetGeometry(runID, dimZ, dz)
}

// RecordSnapshot inserts one snapshot row.
func (c *Catalog) RecordSnapshot(rec *SnapshotRecord) error { return c.Snapshots.Insert(rec) }

// FinishRun closes out a run.
func (c *Catalog) FinishRun(runID, status, errMsg string, steps, snapshots int) error {
	return c.Runs.Finish(runID, status, errMsg, steps, snapshots)
}
