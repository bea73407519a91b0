package firestore

import (
	"context"
	"fmt"
	"iter"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
)

// getCheckpointDoc returns the newest checkpoint document of a lineage, or the
// one with checkpointID when it is set. It returns nil when nothing matches.
func (s *FirestoreSaver) getCheckpointDoc(ctx context.Context, threadID, checkpointNS, checkpointID string) (*docstore.Document, error) {
	q := docstore.NewQuery(s.checkpoints).
		Where(fieldThreadID, docstore.Equal, threadID).
		Where(fieldCheckpointNS, docstore.Equal, checkpointNS)
	if checkpointID != "" {
		q = q.Where(fieldCheckpointID, docstore.Equal, checkpointID)
	}
	q = q.OrderBy(fieldCheckpointID, docstore.Desc).Limit(1)

	docs, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// tupleFromDoc decodes a checkpoint document. Pending writes are not loaded.
func (s *FirestoreSaver) tupleFromDoc(doc docstore.Document) (*store.CheckpointTuple, error) {
	tag := stringField(doc.Data, fieldType)

	checkpoint, err := s.decodeCheckpoint(tag, doc.Data[fieldCheckpoint])
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", doc.ID, err)
	}
	metadata, err := s.decodeMetadata(tag, doc.Data[fieldMetadata])
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s metadata: %w", doc.ID, err)
	}

	cfg := store.Config{
		ThreadID:     stringField(doc.Data, fieldThreadID),
		CheckpointNS: stringField(doc.Data, fieldCheckpointNS),
		CheckpointID: stringField(doc.Data, fieldCheckpointID),
	}
	tuple := &store.CheckpointTuple{
		Config:     cfg,
		Checkpoint: checkpoint,
		Metadata:   metadata,
	}
	if parentID := stringField(doc.Data, fieldParentCheckpointID); parentID != "" {
		tuple.ParentConfig = &store.Config{
			ThreadID:     cfg.ThreadID,
			CheckpointNS: cfg.CheckpointNS,
			CheckpointID: parentID,
		}
	}
	return tuple, nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// Get returns the checkpoint addressed by cfg, or nil when nothing matches.
func (s *FirestoreSaver) Get(ctx context.Context, cfg store.Config) (*store.Checkpoint, error) {
	tuple, err := s.GetTuple(ctx, cfg)
	if err != nil || tuple == nil {
		return nil, err
	}
	return tuple.Checkpoint, nil
}

// List yields the checkpoints matching cfg and opts, newest first. An empty
// thread id or namespace in cfg matches every thread or namespace. Pages of
// checkpoints are fetched lazily; breaking out of the loop stops fetching.
//
// Listed tuples carry no pending writes. The sequence ends after the first
// error.
func (s *FirestoreSaver) List(ctx context.Context, cfg store.Config, opts *store.ListOptions) iter.Seq2[*store.CheckpointTuple, error] {
	return func(yield func(*store.CheckpointTuple, error) bool) {
		var err error
		ctx, done := s.telemetry.start(ctx, opList, cfg.ThreadID)
		defer func() { done(err) }()

		if opts == nil {
			opts = &store.ListOptions{}
		}
		q, residual := s.listQuery(cfg, opts)

		remaining := opts.Limit
		var cursor *docstore.Document
		for page := 1; ; page++ {
			size := s.pageSize
			if remaining > 0 && !residual {
				size = min(size, remaining)
			}
			pq := q.Limit(size)
			if cursor != nil {
				pq = pq.StartAfter(*cursor)
			}

			docs, qerr := s.client.Query(ctx, pq)
			if qerr != nil {
				err = fmt.Errorf("%s: %w: %w", opList, store.ErrStoreReadFailed, qerr)
				yield(nil, err)
				return
			}
			s.logger.Debug("list %s: page %d returned %d checkpoints", s.checkpoints, page, len(docs))

			for _, doc := range docs {
				tuple, derr := s.tupleFromDoc(doc)
				if derr != nil {
					err = fmt.Errorf("%s: %w", opList, derr)
					yield(nil, err)
					return
				}
				if !matchesFilter(tuple.Metadata, opts.Filter) {
					continue
				}
				if !yield(tuple, nil) {
					return
				}
				if remaining > 0 {
					remaining--
					if remaining == 0 {
						return
					}
				}
			}

			if len(docs) < size {
				return
			}
			cursor = &docs[len(docs)-1]
		}
	}
}

// listQuery builds the store query of a listing. residual reports whether some
// filter entries can only be checked after decoding, in which case the store
// may return more documents than the caller keeps.
func (s *FirestoreSaver) listQuery(cfg store.Config, opts *store.ListOptions) (q docstore.Query, residual bool) {
	q = docstore.NewQuery(s.checkpoints)
	if cfg.ThreadID != "" {
		q = q.Where(fieldThreadID, docstore.Equal, cfg.ThreadID)
	}
	if cfg.CheckpointNS != "" {
		q = q.Where(fieldCheckpointNS, docstore.Equal, cfg.CheckpointNS)
	}
	for k, v := range opts.Filter {
		if !indexable(k, v) {
			residual = true
			continue
		}
		q = q.Where(fieldMetadataFields+"."+k, docstore.Equal, v)
	}
	if opts.Before != nil && opts.Before.CheckpointID != "" {
		q = q.Where(fieldCheckpointID, docstore.LessThan, opts.Before.CheckpointID)
	}
	return q.OrderBy(fieldCheckpointID, docstore.Desc), residual
}

// Put stores checkpoint under the thread and namespace of cfg. The checkpoint
// id in cfg, if any, becomes the parent of the stored checkpoint. The document
// is merged into any existing one with the same id.
func (s *FirestoreSaver) Put(ctx context.Context, cfg store.Config, checkpoint *store.Checkpoint, metadata store.CheckpointMetadata) (next store.Config, err error) {
	ctx, done := s.telemetry.start(ctx, opPut, cfg.ThreadID)
	defer func() { done(err) }()

	if cfg.ThreadID == "" {
		return store.Config{}, fmt.Errorf("%s: %w", opPut, store.ErrMissingThreadID)
	}
	if checkpoint == nil || checkpoint.ID == "" {
		return store.Config{}, fmt.Errorf("%s: %w: checkpoint id is empty", opPut, store.ErrMissingConfig)
	}
	if metadata == nil {
		metadata = store.CheckpointMetadata{}
	}

	cpTag, cpData, err := s.encode(checkpoint)
	if err != nil {
		return store.Config{}, fmt.Errorf("%s: failed to serialize checkpoint: %w", opPut, err)
	}
	metaTag, metaData, err := s.encode(metadata)
	if err != nil {
		return store.Config{}, fmt.Errorf("%s: failed to serialize metadata: %w", opPut, err)
	}
	if cpTag != metaTag {
		return store.Config{}, fmt.Errorf("%s: %w: %q and %q", opPut, store.ErrSerializationMismatch, cpTag, metaTag)
	}

	var parent any
	if cfg.CheckpointID != "" {
		parent = cfg.CheckpointID
	}

	id := checkpointDocID(cfg.ThreadID, cfg.CheckpointNS, checkpoint.ID)
	data := map[string]any{
		fieldThreadID:           cfg.ThreadID,
		fieldCheckpointNS:       cfg.CheckpointNS,
		fieldCheckpointID:       checkpoint.ID,
		fieldParentCheckpointID: parent,
		fieldType:               cpTag,
		fieldCheckpoint:         cpData,
		fieldMetadata:           metaData,
		fieldMetadataFields:     metadataFields(metadata),
	}
	if err := s.client.Set(ctx, s.checkpoints, id, data, docstore.MergeAll); err != nil {
		return store.Config{}, fmt.Errorf("%s: %w: %w", opPut, store.ErrStoreWriteFailed, err)
	}
	s.logger.Debug("put checkpoint %s", id)

	return store.Config{
		ThreadID:     cfg.ThreadID,
		CheckpointNS: cfg.CheckpointNS,
		CheckpointID: checkpoint.ID,
	}, nil
}
