// ABOUTME: Native timestamp type, server timestamp sentinel and JSON document codec
// ABOUTME: Encodes Fields for storage and restores Timestamp values on read
package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampKey marks an encoded Timestamp inside stored JSON.
const timestampKey = "_ts"

// timestampLayout is fixed width so encoded timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp is the store's native point-in-time representation.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// TimestampOf converts a time.Time.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts back to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

func (ts Timestamp) String() string {
	return ts.Time().Format(timestampLayout)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{timestampKey: ts.String()})
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, ok := raw[timestampKey]
	if !ok {
		return fmt.Errorf("missing %s key", timestampKey)
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return err
	}
	*ts = TimestampOf(t)
	return nil
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when written.
var ServerTimestamp = serverTimestamp{}

// Encode resolves sentinels and time values against now and serializes fields.
func Encode(fields Fields, now time.Time) ([]byte, error) {
	resolved := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		resolved[k] = resolveValue(v, now)
	}
	return json.Marshal(resolved)
}

// Decode parses stored JSON back into Fields, restoring Timestamp values.
func Decode(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	fields := make(Fields, len(raw))
	for k, v := range raw {
		fields[k] = restoreValue(v)
	}
	return fields, nil
}

// Merge copies src over dst at the top level.
func Merge(dst, src Fields) Fields {
	if dst == nil {
		dst = make(Fields, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// NormalizeValue converts caller-side values into their stored form, so
// filters compare like with like.
func NormalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return TimestampOf(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return TimestampOf(*val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	}
	return v
}

func resolveValue(v interface{}, now time.Time) interface{} {
	switch val := v.(type) {
	case serverTimestamp:
		return TimestampOf(now)
	case Fields:
		return resolveMap(val, now)
	case map[string]interface{}:
		return resolveMap(val, now)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, now)
		}
		return out
	}
	return NormalizeValue(v)
}

func resolveMap(m map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, item := range m {
		out[k] = resolveValue(item, now)
	}
	return out
}

func restoreValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if len(val) == 1 {
			if s, ok := val[timestampKey].(string); ok {
				if t, err := time.Parse(timestampLayout, s); err == nil {
					return TimestampOf(t)
				}
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = restoreValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = restoreValue(item)
		}
		return out
	}
	return v
}
