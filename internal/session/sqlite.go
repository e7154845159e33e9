package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	run_id         TEXT PRIMARY KEY,
	graph_id       TEXT NOT NULL,
	graph_version  TEXT NOT NULL,
	paused_at      TEXT NOT NULL,
	context        TEXT NOT NULL,
	steps_executed INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

// SQLiteStore persists snapshots in a local SQLite database. WAL mode keeps
// concurrent runs from blocking each other on save.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) a snapshot database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		path, int((5 * time.Second).Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			fmt.Sprintf("failed to open session database at %s", path), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			fmt.Sprintf("failed to ping session database at %s", path), err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			"failed to apply session schema", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save upserts the snapshot for its run ID.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *engine.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	contextJSON, err := json.Marshal(snapshot.Context)
	if err != nil {
		return types.WrapError(types.SESSION_SAVE_FAILED,
			fmt.Sprintf("failed to serialize context for run %s", snapshot.RunID), err)
	}

	query := `
		INSERT INTO snapshots (
			run_id, graph_id, graph_version, paused_at,
			context, steps_executed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			graph_id = excluded.graph_id,
			graph_version = excluded.graph_version,
			paused_at = excluded.paused_at,
			context = excluded.context,
			steps_executed = excluded.steps_executed,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		snapshot.RunID.String(),
		snapshot.GraphID.String(),
		snapshot.GraphVersion,
		snapshot.PausedAt,
		string(contextJSON),
		snapshot.StepsExecuted,
		snapshot.CreatedAt,
	)
	if err != nil {
		return types.WrapError(types.SESSION_SAVE_FAILED,
			fmt.Sprintf("failed to save snapshot for run %s", snapshot.RunID), err)
	}
	return nil
}

// Load fetches the snapshot for a run.
func (s *SQLiteStore) Load(ctx context.Context, runID types.ID) (*engine.Snapshot, error) {
	query := `
		SELECT run_id, graph_id, graph_version, paused_at,
		       context, steps_executed, created_at
		FROM snapshots WHERE run_id = ?
	`
	snapshot, err := scanSnapshot(s.db.QueryRowContext(ctx, query, runID.String()))
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.SESSION_NOT_FOUND,
			fmt.Sprintf("no paused snapshot for run %s", runID))
	}
	if err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			fmt.Sprintf("failed to load snapshot for run %s", runID), err)
	}
	return snapshot, nil
}

// Delete removes the snapshot for a run. Missing rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, runID types.ID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE run_id = ?`, runID.String())
	if err != nil {
		return types.WrapError(types.SESSION_SAVE_FAILED,
			fmt.Sprintf("failed to delete snapshot for run %s", runID), err)
	}
	return nil
}

// PruneExpired deletes snapshots created more than ttl ago, returning how
// many were removed. A run paused for longer than the TTL is considered
// abandoned. A non-positive ttl disables pruning.
func (s *SQLiteStore) PruneExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE created_at < ?`, time.Now().Add(-ttl))
	if err != nil {
		return 0, types.WrapError(types.SESSION_SAVE_FAILED,
			"failed to prune expired snapshots", err)
	}
	pruned, _ := res.RowsAffected()
	return pruned, nil
}

// List returns all snapshots, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*engine.Snapshot, error) {
	query := `
		SELECT run_id, graph_id, graph_version, paused_at,
		       context, steps_executed, created_at
		FROM snapshots ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED, "failed to list snapshots", err)
	}
	defer rows.Close()

	var snapshots []*engine.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, types.WrapError(types.SESSION_OPEN_FAILED, "failed to scan snapshot", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED, "failed to list snapshots", err)
	}
	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*engine.Snapshot, error) {
	var (
		snapshot    engine.Snapshot
		runID       string
		graphID     string
		contextJSON string
	)
	err := row.Scan(&runID, &graphID, &snapshot.GraphVersion, &snapshot.PausedAt,
		&contextJSON, &snapshot.StepsExecuted, &snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}

	snapshot.RunID = types.ID(runID)
	snapshot.GraphID = types.ID(graphID)
	if err := json.Unmarshal([]byte(contextJSON), &snapshot.Context); err != nil {
		return nil, fmt.Errorf("malformed context for run %s: %w", runID, err)
	}
	return &snapshot, nil
}
