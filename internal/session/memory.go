package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aden-hq/hive/internal/engine"
	"github.com/aden-hq/hive/internal/types"
)

// MemoryStore keeps snapshots in process memory with a TTL, so abandoned
// paused runs expire instead of accumulating. Suited to tests and embedded
// use; anything that must survive a restart belongs in SQLiteStore.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store whose snapshots expire after ttl.
// A non-positive ttl means snapshots never expire.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{cache: gocache.New(ttl, cleanupInterval)}
}

// Save stores a deep copy of the snapshot, replacing any existing one for
// the same run.
func (s *MemoryStore) Save(_ context.Context, snapshot *engine.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	// Round-trip through JSON so later context mutations by the caller
	// cannot reach into the stored copy.
	data, err := snapshot.ToJSON()
	if err != nil {
		return err
	}
	copied, err := engine.SnapshotFromJSON(data)
	if err != nil {
		return err
	}

	s.cache.Set(snapshot.RunID.String(), copied, gocache.DefaultExpiration)
	return nil
}

// Load fetches the snapshot for a run.
func (s *MemoryStore) Load(_ context.Context, runID types.ID) (*engine.Snapshot, error) {
	v, ok := s.cache.Get(runID.String())
	if !ok {
		return nil, types.NewError(types.SESSION_NOT_FOUND,
			fmt.Sprintf("no paused snapshot for run %s", runID))
	}
	return v.(*engine.Snapshot), nil
}

// Delete removes the snapshot for a run.
func (s *MemoryStore) Delete(_ context.Context, runID types.ID) error {
	s.cache.Delete(runID.String())
	return nil
}

// List returns all unexpired snapshots, newest first.
func (s *MemoryStore) List(_ context.Context) ([]*engine.Snapshot, error) {
	items := s.cache.Items()
	snapshots := make([]*engine.Snapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, item.Object.(*engine.Snapshot))
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}
