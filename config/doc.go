// Package config loads checkpoint saver settings from YAML and opens the
// configured document store.
//
//	backend: redis
//	log_level: debug
//	list_page_size: 100
//	redis:
//	  addr: ${REDIS_ADDR}
//	  prefix: "langgraph:"
//
// Backends are memory, firestore (the default), redis, postgres and sqlite.
//
//	cfg, err := config.FromFile("checkpoints.yaml")
//	if err != nil {
//		return err
//	}
//	saver, closer, err := config.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
package config
