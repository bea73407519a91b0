package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeJSON serializes document data for backends that store documents as JSON.
func EncodeJSON(data map[string]any) ([]byte, error) {
	b, err := json.Marshal(NormalizeData(data))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

// DecodeJSON parses document data written by EncodeJSON. Integral numbers
// decode as int64 so they compare like the values that were written.
func DecodeJSON(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return fromJSONValue(data).(map[string]any), nil
}

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
