package firestore

import (
	"context"
	"fmt"

	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
)

// GetTuple returns the checkpoint addressed by cfg together with its pending
// writes and parent pointer. Without a checkpoint id in cfg the newest
// checkpoint of the thread and namespace is returned. It returns nil, nil when
// cfg has no thread id or nothing matches.
func (s *FirestoreSaver) GetTuple(ctx context.Context, cfg store.Config) (tuple *store.CheckpointTuple, err error) {
	ctx, done := s.telemetry.start(ctx, opGetTuple, cfg.ThreadID)
	defer func() { done(err) }()

	if cfg.ThreadID == "" {
		return nil, nil
	}

	doc, err := s.getCheckpointDoc(ctx, cfg.ThreadID, cfg.CheckpointNS, cfg.CheckpointID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", opGetTuple, store.ErrStoreUnavailable, err)
	}
	if doc == nil {
		return nil, nil
	}

	tuple, err = s.tupleFromDoc(*doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opGetTuple, err)
	}

	tuple.PendingWrites, err = s.getWrites(ctx, tuple.Config.ThreadID, tuple.Config.CheckpointNS, tuple.Config.CheckpointID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opGetTuple, err)
	}
	return tuple, nil
}
