// Package session persists paused-run snapshots. A snapshot exists only
// while its run is paused: stores hold exactly one snapshot per run ID, and
// the caller deletes it once a resume finishes in a non-paused state.
package session

import (
	"context"

	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/types"
)

// Store is the persistence boundary for paused runs. Implementations must
// be safe for concurrent use across runs.
type Store interface {
	// Save persists a snapshot, replacing any existing one for the same
	// run ID.
	Save(ctx context.Context, snapshot *engine.Snapshot) error

	// Load fetches the snapshot for a run. Returns SESSION_NOT_FOUND if
	// the run has no paused snapshot.
	Load(ctx context.Context, runID types.ID) (*engine.Snapshot, error)

	// Delete removes the snapshot for a run. Deleting a missing snapshot
	// is not an error.
	Delete(ctx context.Context, runID types.ID) error

	// List returns all persisted snapshots, newest first.
	List(ctx context.Context) ([]*engine.Snapshot, error)
}
