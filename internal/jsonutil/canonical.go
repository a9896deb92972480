// Package jsonutil provides canonical JSON encoding: object keys sorted
// lexicographically so that two logically equal values serialize to
// byte-identical output. The audit log (C1) and dead-letter store (C2)
// both depend on this for plan-determinism (spec property 1) and for
// log-diffing.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonical marshals v to JSON with every object's keys sorted
// lexicographically, recursively. Arrays keep their original order.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonutil: marshal: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("jsonutil: unmarshal for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, generic); err != nil {
		return nil, fmt.Errorf("jsonutil: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// MustCanonical is Canonical but panics on error. Intended for values
// that are known-encodable (plain structs/maps built internally), not
// for data crossing a trust boundary.
func MustCanonical(v any) []byte {
	out, err := Canonical(v)
	if err != nil {
		panic(err)
	}
	return out
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		return encodeObject(buf, val)
	case []any:
		return encodeArray(buf, val)
	default:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(enc)
		return nil
	}
}

func encodeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		if err := encode(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, elem); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
