package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aden-hq/hive/internal/types"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		RunID:        types.NewID(),
		GraphID:      types.NewID(),
		GraphVersion: "3",
		PausedAt:     "confirm",
		Context: map[string]any{
			"attendees": []any{"alice", "bob"},
			"count":     float64(2),
		},
		StepsExecuted: 4,
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := original.ToJSON()
	require.NoError(t, err)

	restored, err := SnapshotFromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, original.RunID, restored.RunID)
	assert.Equal(t, original.GraphVersion, restored.GraphVersion)
	assert.Equal(t, original.PausedAt, restored.PausedAt)
	assert.Equal(t, original.StepsExecuted, restored.StepsExecuted)
	assert.Equal(t, original.Context, restored.Context)
	assert.True(t, original.CreatedAt.Equal(restored.CreatedAt))
}

func TestSnapshot_YAMLRoundTrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := original.ToYAML()
	require.NoError(t, err)

	restored, err := SnapshotFromYAML(data)
	require.NoError(t, err)

	assert.Equal(t, original.RunID, restored.RunID)
	assert.Equal(t, original.PausedAt, restored.PausedAt)
	assert.Equal(t, original.StepsExecuted, restored.StepsExecuted)
}

func TestSnapshot_Validate(t *testing.T) {
	s := sampleSnapshot()
	require.NoError(t, s.Validate())

	noRun := sampleSnapshot()
	noRun.RunID = ""
	assert.Error(t, noRun.Validate())

	noPause := sampleSnapshot()
	noPause.PausedAt = ""
	assert.Error(t, noPause.Validate())
}

func TestSnapshotFromJSON_Invalid(t *testing.T) {
	_, err := SnapshotFromJSON([]byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, types.SESSION_OPEN_FAILED, types.CodeOf(err))

	_, err = SnapshotFromJSON([]byte("{}"))
	require.Error(t, err)
}
