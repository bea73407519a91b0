// Package log provides the leveled logging interface used by the checkpoint
// savers and document store backends.
//
// Two implementations ship with the package: DefaultLogger on Go's standard
// log package and GologLogger on github.com/kataras/golog. NoOpLogger discards
// everything.
//
//	logger := log.NewGologLoggerWithLevel(os.Stderr, log.LogLevelDebug)
//	saver := firestore.NewFirestoreSaver(client, firestore.WithLogger(logger))
//
// Levels are ordered Debug < Info < Warn < Error < None; messages below the
// configured level are dropped. ParseLevel reads level names from
// configuration files.
//
// A package-level logger is available through Debug, Info, Warn and Error and
// can be replaced with SetDefaultLogger.
package log
