// Package firestore persists LangGraph checkpoints and pending writes in a
// document database.
//
// FirestoreSaver implements store.CheckpointSaver on any docstore.Client. It
// was written for Cloud Firestore and keeps to Firestore's rules (cursor
// pagination, 500 writes per batch, merge sets), so the same saver runs on the
// Redis, PostgreSQL, SQLite and in-memory backends of the docstore packages.
//
// # Layout
//
// Two collections are used, "checkpoints" and "checkpoint_writes" by default.
// A checkpoint document is keyed by thread id, namespace and checkpoint id; a
// write document additionally by task id and the write's index in its batch.
// Key parts are escaped and joined with "|", so saving the same key twice
// updates a single document. Checkpoint, metadata and write payloads are
// serialized with a store.Serializer and kept as base64 text next to the
// serializer's type tag.
//
// Scalar top-level metadata entries are also copied into a "metadata_fields"
// map so List can filter on them in the store.
//
// # Usage
//
//	client, err := fsdocstore.NewClient(ctx, fsdocstore.FirestoreOptions{ProjectID: "my-project"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	saver := firestore.NewFirestoreSaver(client,
//		firestore.WithLogger(logger),
//	)
//
//	cfg := store.Config{ThreadID: "thread-1"}
//	next, err := saver.Put(ctx, cfg, &store.Checkpoint{ID: store.NewCheckpointID()}, store.CheckpointMetadata{"step": 0})
//
//	for tuple, err := range saver.List(ctx, store.Config{ThreadID: "thread-1"}, &store.ListOptions{Limit: 10}) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(tuple.Config.CheckpointID)
//	}
//
// # Indexes
//
// On Cloud Firestore, GetTuple and List combine equality filters with a
// descending order on checkpoint_id and need composite indexes on
// (thread_id, checkpoint_ns, checkpoint_id desc) and, for filtered listings,
// on the metadata_fields entries used.
//
// # Telemetry
//
// Every operation runs in an OpenTelemetry span named "checkpoint.<operation>"
// and is counted in the checkpoint.operations, checkpoint.errors and
// checkpoint.latency_ms metrics. Documents removed by DeleteThread are counted
// in checkpoint.documents_deleted.
package firestore
