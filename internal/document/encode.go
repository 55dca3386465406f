package document

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes v as JSON indented by two spaces, with map keys in
// insertion order and without escaping HTML or non-ASCII characters.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCompactJSON encodes v as single-line JSON with map keys in insertion order.
func MarshalCompactJSON(v any) (string, error) {
	b, err := marshalNoEscape(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
