// LangGraph Go Checkpoint Firestore - durable checkpoint persistence for
// LangGraph-style graph runs.
//
// A graph run saves a checkpoint of its channel state after every step,
// together with the writes each task produced before the next checkpoint.
// This module stores both in a document database laid out the way Cloud
// Firestore expects, so a run can be resumed, replayed or inspected later.
//
// # Quick Start
//
//	import (
//		"github.com/cassina/langgraphgo-checkpoint-firestore/config"
//		"github.com/cassina/langgraphgo-checkpoint-firestore/store"
//	)
//
//	cfg, _ := config.FromFile("checkpoints.yaml")
//	saver, closer, err := config.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//
//	next, err := saver.Put(ctx, store.Config{ThreadID: "t1"}, checkpoint, store.CheckpointMetadata{"step": 1})
//	err = saver.PutWrites(ctx, next, []store.Write{{Channel: "messages", Value: msg}}, "task-1")
//	tuple, err := saver.GetTuple(ctx, store.Config{ThreadID: "t1"})
//
//	for t, err := range saver.List(ctx, store.Config{ThreadID: "t1"}, &store.ListOptions{Limit: 10}) {
//		...
//	}
//
//	err = saver.DeleteThread(ctx, "t1")
//
// # Package Structure
//
// store/
// Checkpoint types, the saver interface, errors and the serializer.
//
// store/firestore/
// The saver: checkpoint and pending-write persistence, tuple assembly and
// thread deletion on top of a document store.
//
// docstore/
// The document store abstraction with memory, firestore, redis, postgres
// and sqlite backends.
//
// config/
// YAML configuration and backend selection.
//
// log/
// Leveled logging used by the saver.
//
// # Configuration
//
//	backend: firestore
//	log_level: info
//	firestore:
//	  project_id: ${GOOGLE_CLOUD_PROJECT}
//
// See the config package for every option and examples/checkpointing for a
// runnable program.
package checkpointfirestore // import "github.com/cassina/langgraphgo-checkpoint-firestore"
