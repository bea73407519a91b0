package firestore

import (
	gcfirestore "cloud.google.com/go/firestore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	fsdocstore "github.com/cassina/langgraphgo-checkpoint-firestore/docstore/firestore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/log"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultCheckpointsCollection holds one document per checkpoint.
	DefaultCheckpointsCollection = "checkpoints"

	// DefaultWritesCollection holds one document per pending write.
	DefaultWritesCollection = "checkpoint_writes"

	// ListPageSize is the number of checkpoints fetched per List round trip.
	ListPageSize = 100

	// DeleteBatchSize is the number of documents removed per DeleteThread batch.
	DeleteBatchSize = docstore.MaxBatchWrites
)

// FirestoreSaver implements store.CheckpointSaver on a document store.
type FirestoreSaver struct {
	client          docstore.Client
	serde           store.Serializer
	checkpoints     string
	writes          string
	pageSize        int
	deleteBatchSize int
	logger          log.Logger
	tracerProvider  trace.TracerProvider
	meterProvider   metric.MeterProvider
	telemetry       *telemetry
}

var _ store.CheckpointSaver = (*FirestoreSaver)(nil)

// Option configures a FirestoreSaver.
type Option func(*FirestoreSaver)

// WithSerializer replaces the default JSON serializer.
func WithSerializer(serde store.Serializer) Option {
	return func(s *FirestoreSaver) {
		if serde != nil {
			s.serde = serde
		}
	}
}

// WithCollections sets the collection names. Empty names keep the defaults.
func WithCollections(checkpoints, writes string) Option {
	return func(s *FirestoreSaver) {
		if checkpoints != "" {
			s.checkpoints = checkpoints
		}
		if writes != "" {
			s.writes = writes
		}
	}
}

// WithLogger sets the logger. The package-level logger is used by default.
func WithLogger(logger log.Logger) Option {
	return func(s *FirestoreSaver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPageSize sets the number of checkpoints fetched per List round trip.
func WithPageSize(n int) Option {
	return func(s *FirestoreSaver) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDeleteBatchSize sets the number of documents removed per batch by
// DeleteThread. Values above docstore.MaxBatchWrites are clamped.
func WithDeleteBatchSize(n int) Option {
	return func(s *FirestoreSaver) {
		if n > 0 {
			s.deleteBatchSize = min(n, docstore.MaxBatchWrites)
		}
	}
}

// WithTracerProvider sets the provider of operation spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *FirestoreSaver) {
		if tp != nil {
			s.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the provider of operation metrics. The global
// provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *FirestoreSaver) {
		if mp != nil {
			s.meterProvider = mp
		}
	}
}

// NewFirestoreSaver creates a saver on client. The client stays owned by the
// caller.
func NewFirestoreSaver(client docstore.Client, opts ...Option) *FirestoreSaver {
	s := &FirestoreSaver{
		client:          client,
		serde:           store.NewJSONSerializer(nil),
		checkpoints:     DefaultCheckpointsCollection,
		writes:          DefaultWritesCollection,
		pageSize:        ListPageSize,
		deleteBatchSize: DeleteBatchSize,
		logger:          log.GetDefaultLogger(),
		tracerProvider:  otel.GetTracerProvider(),
		meterProvider:   otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.telemetry = newTelemetry(s.tracerProvider, s.meterProvider)
	return s
}

// NewFirestoreSaverFromClient creates a saver on a Cloud Firestore client.
func NewFirestoreSaverFromClient(client *gcfirestore.Client, opts ...Option) *FirestoreSaver {
	return NewFirestoreSaver(fsdocstore.NewClientFromFirestore(client), opts...)
}
