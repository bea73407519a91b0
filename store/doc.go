// Package store defines the checkpoint model shared by every saver in this module.
//
// A graph engine persists its progress as a chain of checkpoints per thread. Each
// checkpoint is addressed by a Config triple (thread_id, checkpoint_ns,
// checkpoint_id) and may point at the checkpoint it was derived from. Writes that
// tasks produced after a checkpoint but before the next one are kept as pending
// writes next to it.
//
// # Core Types
//
//   - Config: the logical pointer. CheckpointNS defaults to "" (root graph).
//   - Checkpoint and CheckpointMetadata: the snapshot and its metadata.
//   - CheckpointTuple: a checkpoint with its pending writes and parent pointer.
//   - CheckpointSaver: the interface implemented by savers, e.g. store/firestore.
//
// # Serialization
//
// Savers never inspect payloads. They hand values to a Serializer, which returns
// a type tag and bytes. JSONSerializer is the default; it goes through a
// TypeRegistry so registered structs decode back to their Go type:
//
//	type MyState struct {
//	    Messages []string `json:"messages"`
//	}
//
//	if err := store.RegisterTypeWithValue(MyState{}, "MyState"); err != nil {
//	    return err
//	}
//
//	serde := store.NewJSONSerializer(nil)
//	tag, data, _ := serde.DumpsTyped(MyState{Messages: []string{"hi"}})
//	v, _ := serde.LoadsTyped(tag, data) // v is MyState
//
// # Checkpoint IDs
//
// Savers list checkpoints by id in descending order, so ids must sort by
// creation time. NewCheckpointID returns UUIDv7 strings which do.
//
// # Errors
//
// Failures wrap one of the Err* sentinels together with the underlying cause;
// match them with errors.Is. A nil result with a nil error means "not found".
package store
