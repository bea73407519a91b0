package firestore

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
)

// encode serializes v and returns its type tag and base64 text.
func (s *FirestoreSaver) encode(v any) (string, string, error) {
	tag, data, err := s.serde.DumpsTyped(v)
	if err != nil {
		return "", "", err
	}
	return tag, base64.StdEncoding.EncodeToString(data), nil
}

// decode reverses encode. Every failure wraps store.ErrDeserializationFailed.
func (s *FirestoreSaver) decode(tag string, encoded any) (any, error) {
	text, ok := encoded.(string)
	if !ok {
		return nil, fmt.Errorf("%w: payload is %T, not base64 text", store.ErrDeserializationFailed, encoded)
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrDeserializationFailed, err)
	}
	v, err := s.serde.LoadsTyped(tag, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrDeserializationFailed, err)
	}
	return v, nil
}

func (s *FirestoreSaver) decodeCheckpoint(tag string, encoded any) (*store.Checkpoint, error) {
	v, err := s.decode(tag, encoded)
	if err != nil {
		return nil, err
	}
	switch cp := v.(type) {
	case *store.Checkpoint:
		return cp, nil
	case store.Checkpoint:
		return &cp, nil
	default:
		return nil, fmt.Errorf("%w: checkpoint decoded as %T", store.ErrDeserializationFailed, v)
	}
}

func (s *FirestoreSaver) decodeMetadata(tag string, encoded any) (store.CheckpointMetadata, error) {
	v, err := s.decode(tag, encoded)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return nil, nil
	case store.CheckpointMetadata:
		return m, nil
	case map[string]any:
		return store.CheckpointMetadata(m), nil
	default:
		return nil, fmt.Errorf("%w: metadata decoded as %T", store.ErrDeserializationFailed, v)
	}
}

var simpleFieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// indexable reports whether a metadata entry is copied into metadata_fields
// and can be filtered by the store.
func indexable(key string, value any) bool {
	if !simpleFieldName.MatchString(key) {
		return false
	}
	switch docstore.Normalize(value).(type) {
	case string, bool, int64, float64:
		return true
	default:
		return false
	}
}

// metadataFields returns the scalar top-level metadata entries.
func metadataFields(metadata store.CheckpointMetadata) map[string]any {
	fields := make(map[string]any)
	for k, v := range metadata {
		if indexable(k, v) {
			fields[k] = v
		}
	}
	return fields
}

// matchesFilter compares decoded metadata against every filter entry.
func matchesFilter(metadata store.CheckpointMetadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || docstore.Compare(docstore.Normalize(got), docstore.Normalize(want)) != 0 {
			return false
		}
	}
	return true
}
