package firestore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
)

// PutWrites stores the writes of task taskID against the checkpoint in cfg.
// Write i is stored under index i, so resubmitting the same writes overwrites
// them. All writes commit in one batch; an empty list does nothing.
func (s *FirestoreSaver) PutWrites(ctx context.Context, cfg store.Config, writes []store.Write, taskID string) (err error) {
	ctx, done := s.telemetry.start(ctx, opPutWrites, cfg.ThreadID)
	defer func() { done(err) }()

	if cfg.ThreadID == "" || cfg.CheckpointID == "" {
		return fmt.Errorf("%s: %w", opPutWrites, store.ErrMissingConfig)
	}
	if len(writes) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for idx, w := range writes {
		tag, value, err := s.encode(w.Value)
		if err != nil {
			return fmt.Errorf("%s: failed to serialize write %d to %s: %w", opPutWrites, idx, w.Channel, err)
		}
		id := writeDocID(cfg.ThreadID, cfg.CheckpointNS, cfg.CheckpointID, taskID, idx)
		batch.Set(s.writes, id, map[string]any{
			fieldThreadID:     cfg.ThreadID,
			fieldCheckpointNS: cfg.CheckpointNS,
			fieldCheckpointID: cfg.CheckpointID,
			fieldTaskID:       taskID,
			fieldIdx:          int64(idx),
			fieldChannel:      w.Channel,
			fieldType:         tag,
			fieldValue:        value,
		}, docstore.MergeAll)
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", opPutWrites, store.ErrStoreWriteFailed, err)
	}
	s.logger.Debug("put %d writes for task %s at checkpoint %s", len(writes), taskID, cfg.CheckpointID)
	return nil
}

type storedWrite struct {
	idx   int64
	write store.PendingWrite
}

// getWrites returns the pending writes of one checkpoint ordered by task id,
// then by index within the task.
func (s *FirestoreSaver) getWrites(ctx context.Context, threadID, checkpointNS, checkpointID string) ([]store.PendingWrite, error) {
	q := docstore.NewQuery(s.writes).
		Where(fieldThreadID, docstore.Equal, threadID).
		Where(fieldCheckpointNS, docstore.Equal, checkpointNS).
		Where(fieldCheckpointID, docstore.Equal, checkpointID)

	docs, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStoreReadFailed, err)
	}

	stored := make([]storedWrite, 0, len(docs))
	for _, doc := range docs {
		value, err := s.decode(stringField(doc.Data, fieldType), doc.Data[fieldValue])
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", doc.ID, err)
		}
		idx, _ := doc.Data[fieldIdx].(int64)
		stored = append(stored, storedWrite{
			idx: idx,
			write: store.PendingWrite{
				TaskID:  stringField(doc.Data, fieldTaskID),
				Channel: stringField(doc.Data, fieldChannel),
				Value:   value,
			},
		})
	}

	slices.SortStableFunc(stored, func(a, b storedWrite) int {
		if c := cmp.Compare(a.write.TaskID, b.write.TaskID); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	writes := make([]store.PendingWrite, len(stored))
	for i, sw := range stored {
		writes[i] = sw.write
	}
	return writes, nil
}
