package store

import (
	"context"
	"iter"
)

// Config identifies a checkpoint lineage and, optionally, one checkpoint in it.
// An empty ThreadID or CheckpointID means the value is absent. CheckpointNS
// defaults to the root namespace "".
type Config struct {
	ThreadID     string `json:"thread_id"`
	CheckpointNS string `json:"checkpoint_ns"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// ConfigFromConfigurable reads a Config out of a graph "configurable" map.
// Unknown keys and non-string values are ignored.
func ConfigFromConfigurable(configurable map[string]any) Config {
	var cfg Config
	if v, ok := configurable["thread_id"].(string); ok {
		cfg.ThreadID = v
	}
	if v, ok := configurable["checkpoint_ns"].(string); ok {
		cfg.CheckpointNS = v
	}
	if v, ok := configurable["checkpoint_id"].(string); ok {
		cfg.CheckpointID = v
	}
	return cfg
}

// Configurable returns the config as a graph "configurable" map.
func (c Config) Configurable() map[string]any {
	m := map[string]any{
		"thread_id":     c.ThreadID,
		"checkpoint_ns": c.CheckpointNS,
	}
	if c.CheckpointID != "" {
		m["checkpoint_id"] = c.CheckpointID
	}
	return m
}

// Checkpoint is a snapshot of graph execution state at a given point in time.
type Checkpoint struct {
	V               int                       `json:"v"`
	ID              string                    `json:"id"`
	TS              string                    `json:"ts"`
	ChannelValues   map[string]any            `json:"channel_values"`
	ChannelVersions map[string]any            `json:"channel_versions"`
	VersionsSeen    map[string]map[string]any `json:"versions_seen"`
	PendingSends    []any                     `json:"pending_sends,omitempty"`
}

// CheckpointMetadata holds the metadata saved alongside a checkpoint,
// e.g. "source", "step", "writes" and "parents".
type CheckpointMetadata map[string]any

// Write is one channel write produced by a task.
type Write struct {
	Channel string
	Value   any
}

// PendingWrite is a task write that has not been applied to a checkpoint yet.
type PendingWrite struct {
	TaskID  string
	Channel string
	Value   any
}

// CheckpointTuple bundles a checkpoint with its config, metadata, pending
// writes and the pointer to its parent. ParentConfig is nil for a root checkpoint.
type CheckpointTuple struct {
	Config        Config
	Checkpoint    *Checkpoint
	Metadata      CheckpointMetadata
	PendingWrites []PendingWrite
	ParentConfig  *Config
}

// ListOptions narrows a checkpoint listing.
type ListOptions struct {
	// Limit caps the number of checkpoints returned. Zero means no limit.
	Limit int

	// Before only returns checkpoints whose id sorts strictly before Before.CheckpointID.
	Before *Config

	// Filter keeps checkpoints whose metadata has equal values for every key.
	Filter map[string]any
}

// CheckpointSaver persists checkpoints and pending writes for resumable graphs.
type CheckpointSaver interface {
	// GetTuple returns the checkpoint addressed by cfg, or the latest one of the
	// lineage when cfg has no checkpoint id. It returns nil when nothing matches.
	GetTuple(ctx context.Context, cfg Config) (*CheckpointTuple, error)

	// List yields checkpoints newest first.
	List(ctx context.Context, cfg Config, opts *ListOptions) iter.Seq2[*CheckpointTuple, error]

	// Put stores a checkpoint and returns the config pointing at it.
	Put(ctx context.Context, cfg Config, checkpoint *Checkpoint, metadata CheckpointMetadata) (Config, error)

	// PutWrites stores the writes of one task against the checkpoint in cfg.
	PutWrites(ctx context.Context, cfg Config, writes []Write, taskID string) error

	// DeleteThread removes every checkpoint and write of a thread.
	DeleteThread(ctx context.Context, threadID string) error
}
