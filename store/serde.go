package store

import "fmt"

// Serializer turns values into tagged byte payloads and back.
// LoadsTyped receives the same bytes DumpsTyped produced, as UTF-8 text.
type Serializer interface {
	DumpsTyped(value any) (typeTag string, data []byte, err error)
	LoadsTyped(typeTag string, data []byte) (any, error)
}

// JSONTypeTag is the type tag written by JSONSerializer.
const JSONTypeTag = "json"

// JSONSerializer encodes values as JSON through a TypeRegistry so registered
// struct types survive the round trip.
type JSONSerializer struct {
	registry *TypeRegistry
}

var _ Serializer = (*JSONSerializer)(nil)

// NewJSONSerializer returns a serializer backed by registry, or by the global
// registry when registry is nil.
func NewJSONSerializer(registry *TypeRegistry) *JSONSerializer {
	if registry == nil {
		registry = GlobalTypeRegistry()
	}
	return &JSONSerializer{registry: registry}
}

// DumpsTyped encodes value as JSON.
func (s *JSONSerializer) DumpsTyped(value any) (string, []byte, error) {
	data, err := s.registry.MarshalJSON(value)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %T: %w", value, err)
	}
	return JSONTypeTag, data, nil
}

// LoadsTyped decodes JSON written by DumpsTyped.
func (s *JSONSerializer) LoadsTyped(typeTag string, data []byte) (any, error) {
	if typeTag != JSONTypeTag {
		return nil, fmt.Errorf("unsupported type tag %q", typeTag)
	}
	return s.registry.UnmarshalJSON(data)
}
