package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// TypeRegistry maps Go types to stable names so serialized payloads decode
// back into the type they were written from.
type TypeRegistry struct {
	mu                sync.RWMutex
	typeNameToType    map[string]reflect.Type
	typeToName        map[reflect.Type]string
	jsonMarshallers   map[reflect.Type]func(any) ([]byte, error)
	jsonUnmarshallers map[reflect.Type]func([]byte) (any, error)
}

// typedEnvelope is the JSON form of a value whose type is registered.
type typedEnvelope struct {
	Type  string          `json:"_type"`
	Value json.RawMessage `json:"_value"`
}

// plainTypeName marks an envelope around an unregistered value whose JSON
// object has its own "_type" key. It cannot be registered.
const plainTypeName = "__plain__"

var globalTypeRegistry = NewTypeRegistry()

func init() {
	if err := globalTypeRegistry.Register(reflect.TypeFor[Checkpoint](), "Checkpoint"); err != nil {
		panic(err)
	}
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		typeNameToType:    make(map[string]reflect.Type),
		typeToName:        make(map[reflect.Type]string),
		jsonMarshallers:   make(map[reflect.Type]func(any) ([]byte, error)),
		jsonUnmarshallers: make(map[reflect.Type]func([]byte) (any, error)),
	}
}

// GlobalTypeRegistry returns the registry used by the default serializer.
func GlobalTypeRegistry() *TypeRegistry {
	return globalTypeRegistry
}

// RegisterType registers t under typeName in the global registry.
func RegisterType(t reflect.Type, typeName string) error {
	return globalTypeRegistry.Register(t, typeName)
}

// RegisterTypeWithValue registers the type of value in the global registry.
//
//	var state MyState
//	RegisterTypeWithValue(state, "MyState")
func RegisterTypeWithValue(value any, typeName string) error {
	return globalTypeRegistry.Register(reflect.TypeOf(value), typeName)
}

// RegisterTypeWithCustomSerialization registers t in the global registry with
// its own marshal and unmarshal functions.
func RegisterTypeWithCustomSerialization(
	t reflect.Type,
	typeName string,
	marshalFunc func(any) ([]byte, error),
	unmarshalFunc func([]byte) (any, error),
) error {
	return globalTypeRegistry.RegisterWithCustomSerialization(t, typeName, marshalFunc, unmarshalFunc)
}

// Register adds a struct (or pointer to struct) type to the registry.
func (r *TypeRegistry) Register(t reflect.Type, typeName string) error {
	if t == nil {
		return fmt.Errorf("cannot register nil type as %s", typeName)
	}
	if typeName == plainTypeName {
		return fmt.Errorf("type name %s is reserved", typeName)
	}
	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return fmt.Errorf("type %s must be a struct or pointer to struct", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existingName, ok := r.typeToName[t]; ok && existingName != typeName {
		return fmt.Errorf("type %v already registered as %s", t, existingName)
	}
	if existing, ok := r.typeNameToType[typeName]; ok && existing != t {
		return fmt.Errorf("name %s already registered for %v", typeName, existing)
	}

	r.typeNameToType[typeName] = t
	r.typeToName[t] = typeName
	return nil
}

// RegisterWithCustomSerialization registers t with its own marshal and unmarshal functions.
func (r *TypeRegistry) RegisterWithCustomSerialization(
	t reflect.Type,
	typeName string,
	marshalFunc func(any) ([]byte, error),
	unmarshalFunc func([]byte) (any, error),
) error {
	if err := r.Register(t, typeName); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jsonMarshallers[t] = marshalFunc
	r.jsonUnmarshallers[t] = unmarshalFunc
	return nil
}

// GetTypeByName returns the type registered under typeName.
func (r *TypeRegistry) GetTypeByName(typeName string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.typeNameToType[typeName]
	return t, ok
}

// GetTypeName returns the name t is registered under.
func (r *TypeRegistry) GetTypeName(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.typeToName[t]
	return name, ok
}

// CreateInstance returns the zero value of a registered type.
func (r *TypeRegistry) CreateInstance(typeName string) (any, error) {
	t, ok := r.GetTypeByName(typeName)
	if !ok {
		return nil, fmt.Errorf("type %s not registered", typeName)
	}
	return reflect.New(t).Elem().Interface(), nil
}

// lookup resolves the registered type for value, falling back from a pointer
// to its element type.
func (r *TypeRegistry) lookup(value any) (any, reflect.Type, string, bool) {
	t := reflect.TypeOf(value)
	if name, ok := r.GetTypeName(t); ok {
		return value, t, name, true
	}
	if t.Kind() == reflect.Ptr {
		if name, ok := r.GetTypeName(t.Elem()); ok {
			rv := reflect.ValueOf(value)
			if rv.IsNil() {
				return nil, nil, "", false
			}
			return rv.Elem().Interface(), t.Elem(), name, true
		}
	}
	return value, t, "", false
}

// MarshalJSON encodes value, wrapping registered types in a typed envelope.
func (r *TypeRegistry) MarshalJSON(value any) ([]byte, error) {
	if value == nil {
		return json.Marshal(nil)
	}

	value, t, typeName, ok := r.lookup(value)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil || !hasTypeKey(data) {
			return data, err
		}
		return json.Marshal(typedEnvelope{Type: plainTypeName, Value: data})
	}

	r.mu.RLock()
	marshalFunc, hasCustomMarshaler := r.jsonMarshallers[t]
	r.mu.RUnlock()

	var data []byte
	var err error
	if hasCustomMarshaler {
		data, err = marshalFunc(value)
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(typedEnvelope{Type: typeName, Value: data})
}

// UnmarshalJSON decodes data produced by MarshalJSON. Typed envelopes decode
// into their registered type; anything else decodes into generic JSON values
// with integral numbers as int64.
func (r *TypeRegistry) UnmarshalJSON(data []byte) (any, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if typeBytes, ok := wrapped["_type"]; ok {
			return r.unmarshalTyped(typeBytes, wrapped["_value"])
		}
	}
	return decodeGeneric(data)
}

func (r *TypeRegistry) unmarshalTyped(typeBytes, valueBytes json.RawMessage) (any, error) {
	var typeName string
	if err := json.Unmarshal(typeBytes, &typeName); err != nil {
		return nil, fmt.Errorf("failed to unmarshal type name: %w", err)
	}

	if typeName == plainTypeName {
		if valueBytes == nil {
			return nil, fmt.Errorf("missing _value in wrapped data")
		}
		return decodeGeneric(valueBytes)
	}

	t, ok := r.GetTypeByName(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown type: %s", typeName)
	}
	if valueBytes == nil {
		return nil, fmt.Errorf("missing _value in wrapped data")
	}

	r.mu.RLock()
	unmarshalFunc, hasCustomUnmarshaler := r.jsonUnmarshallers[t]
	r.mu.RUnlock()

	if hasCustomUnmarshaler {
		return unmarshalFunc(valueBytes)
	}

	ptr := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(valueBytes))
	dec.UseNumber()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	convertNumbers(ptr.Elem())
	return ptr.Elem().Interface(), nil
}

// hasTypeKey reports whether data is a JSON object with a top-level "_type" key.
func hasTypeKey(data []byte) bool {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return false
	}
	_, ok := obj["_type"]
	return ok
}

func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var result any
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return fromJSONValue(result), nil
}

// fromJSONValue replaces json.Number with int64 when integral, float64 otherwise.
func fromJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSONValue(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromJSONValue(e)
		}
		return x
	default:
		return v
	}
}

var emptyInterface = reflect.TypeFor[any]()

// convertNumbers applies fromJSONValue to every empty-interface value reachable
// from rv, which must be addressable.
func convertNumbers(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() || rv.Type() != emptyInterface || !rv.CanSet() {
			return
		}
		rv.Set(reflect.ValueOf(fromJSONValue(rv.Elem().Interface())))
	case reflect.Pointer:
		if !rv.IsNil() {
			convertNumbers(rv.Elem())
		}
	case reflect.Struct:
		for i := range rv.NumField() {
			if f := rv.Field(i); f.CanSet() {
				convertNumbers(f)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			convertNumbers(rv.Index(i))
		}
	case reflect.Map:
		if rv.IsNil() {
			return
		}
		elemType := rv.Type().Elem()
		switch elemType.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct:
		default:
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			elem := reflect.New(elemType).Elem()
			elem.Set(iter.Value())
			convertNumbers(elem)
			rv.SetMapIndex(iter.Key(), elem)
		}
	}
}
