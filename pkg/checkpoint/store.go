package checkpoint

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/logging"
)

// SQLiteStore persists one snapshot per run ID in a SQLite database. Saving
// again under the same run ID replaces the previous snapshot.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// NewSQLiteStore opens (or creates) a checkpoint database. Use ":memory:"
// for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open checkpoint database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL keeps checkpoint writes from blocking concurrent readers.
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS checkpoints (
            run_id TEXT PRIMARY KEY,
            generation INTEGER NOT NULL,
            best_fitness REAL NOT NULL,
            snapshot BLOB NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );

        CREATE INDEX IF NOT EXISTS idx_checkpoints_updated_at
        ON checkpoints(updated_at);
        `
		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.WithFields(
				errors.Wrap(err, errors.Unknown, "failed to initialize checkpoint schema"),
				errors.Fields{"query": query},
			)
		}
	})
	return initErr
}

// Save upserts the snapshot under its run ID.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return errors.New(errors.InvalidArgument, "nil snapshot")
	}
	if snap.RunID == "" {
		return errors.New(errors.InvalidArgument, "snapshot has no run ID")
	}

	data, err := snap.EncodeBinary()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO checkpoints (run_id, generation, best_fitness, snapshot)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            generation = excluded.generation,
            best_fitness = excluded.best_fitness,
            snapshot = excluded.snapshot,
            updated_at = CURRENT_TIMESTAMP`,
		snap.RunID, snap.Generation, snap.BestFitness, data)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to save checkpoint"),
			errors.Fields{"run_id": snap.RunID},
		)
	}

	logging.GetLogger().Debug(ctx, "checkpoint saved: run=%s gen=%d",
		snap.RunID, snap.Generation)
	return nil
}

// Load returns the snapshot stored under runID.
func (s *SQLiteStore) Load(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM checkpoints WHERE run_id = ?", runID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.CheckpointNotFound, "no checkpoint for run"),
			errors.Fields{"run_id": runID},
		)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to load checkpoint")
	}

	return DecodeBinary(data)
}

// List returns the run IDs with stored checkpoints, most recently updated
// first.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id FROM checkpoints ORDER BY updated_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list checkpoints")
	}
	defer rows.Close()

	var runIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan checkpoint row")
		}
		runIDs = append(runIDs, id)
	}
	return runIDs, rows.Err()
}

// Delete removes the checkpoint stored under runID.
func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE run_id = ?", runID)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to delete checkpoint")
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.WithFields(
			errors.New(errors.CheckpointNotFound, "no checkpoint for run"),
			errors.Fields{"run_id": runID},
		)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
