package firestore

import (
	"context"
	"fmt"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
)

// DeleteThread removes every checkpoint and pending write of threadID, one
// batch of at most DeleteBatchSize documents at a time. Batches are atomic but
// the deletion as a whole is not: on error some documents may already be gone,
// and calling DeleteThread again finishes the job.
func (s *FirestoreSaver) DeleteThread(ctx context.Context, threadID string) (err error) {
	ctx, done := s.telemetry.start(ctx, opDeleteThread, threadID)
	defer func() { done(err) }()

	if threadID == "" {
		return fmt.Errorf("%s: %w", opDeleteThread, store.ErrMissingThreadID)
	}

	for _, collection := range []string{s.checkpoints, s.writes} {
		n, err := s.deleteByThread(ctx, collection, threadID)
		s.telemetry.recordDeleted(ctx, collection, n)
		if err != nil {
			if n > 0 {
				s.logger.Warn("thread %s partially deleted: %d documents removed from %s before: %v", threadID, n, collection, err)
			}
			return fmt.Errorf("%s: %w", opDeleteThread, err)
		}
		s.logger.Debug("deleted %d documents of thread %s from %s", n, threadID, collection)
	}
	return nil
}

// deleteByThread deletes the documents of collection whose thread_id equals
// threadID and returns how many it removed.
func (s *FirestoreSaver) deleteByThread(ctx context.Context, collection, threadID string) (int, error) {
	base := docstore.NewQuery(collection).
		Where(fieldThreadID, docstore.Equal, threadID).
		KeysOnly().
		Limit(s.deleteBatchSize)

	deleted := 0
	q := base
	for {
		docs, err := s.client.Query(ctx, q)
		if err != nil {
			return deleted, fmt.Errorf("%w: %w", store.ErrStoreReadFailed, err)
		}
		if len(docs) == 0 {
			return deleted, nil
		}

		batch := s.client.Batch()
		for _, doc := range docs {
			batch.Delete(collection, doc.ID)
		}
		if err := batch.Commit(ctx); err != nil {
			return deleted, fmt.Errorf("%w: %w", store.ErrStoreWriteFailed, err)
		}
		deleted += len(docs)

		if len(docs) < s.deleteBatchSize {
			return deleted, nil
		}
		q = base.StartAfter(docs[len(docs)-1])
	}
}
