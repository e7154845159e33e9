package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aden-hq/hive/internal/types"
)

// Snapshot is the serializable state of a paused run. It carries everything
// a resume needs to be reproducible against the same graph version: where
// the run paused, the full context at that moment, and the step counter.
// A snapshot is persisted only while its run is paused and is consumed
// exactly once by a resume.
type Snapshot struct {
	RunID         types.ID       `json:"run_id" yaml:"run_id"`
	GraphID       types.ID       `json:"graph_id" yaml:"graph_id"`
	GraphVersion  string         `json:"graph_version" yaml:"graph_version"`
	PausedAt      string         `json:"paused_at" yaml:"paused_at"`
	Context       map[string]any `json:"context" yaml:"context"`
	StepsExecuted int            `json:"steps_executed" yaml:"steps_executed"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
}

// Validate checks that the snapshot carries the fields a resume depends on.
func (s *Snapshot) Validate() error {
	if s == nil {
		return types.NewError(types.SESSION_NOT_FOUND, "no snapshot to resume from")
	}
	if s.RunID.IsZero() {
		return types.NewError(types.SESSION_NOT_FOUND, "snapshot has no run id")
	}
	if s.PausedAt == "" {
		return types.NewError(types.SESSION_NOT_FOUND,
			fmt.Sprintf("snapshot %s has no pause node", s.RunID))
	}
	return nil
}

// ToJSON serializes the snapshot to JSON.
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, types.WrapError(types.SESSION_SAVE_FAILED,
			fmt.Sprintf("failed to serialize snapshot %s", s.RunID), err)
	}
	return data, nil
}

// SnapshotFromJSON deserializes a snapshot from JSON.
func SnapshotFromJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			"failed to parse snapshot", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ToYAML serializes the snapshot to YAML.
func (s *Snapshot) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, types.WrapError(types.SESSION_SAVE_FAILED,
			fmt.Sprintf("failed to serialize snapshot %s", s.RunID), err)
	}
	return data, nil
}

// SnapshotFromYAML deserializes a snapshot from YAML.
func SnapshotFromYAML(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, types.WrapError(types.SESSION_OPEN_FAILED,
			"failed to parse snapshot", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
