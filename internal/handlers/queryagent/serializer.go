// internal/handlers/queryagent/serializer.go
package queryagent

import (
	"strconv"
	"time"
)

// serializeRows normalizes driver-native values into transport-safe
// primitives: arbitrary-precision numerics become float64, dates become
// YYYY-MM-DD strings, timestamps become RFC 3339 strings, containers are
// walked recursively and everything else passes through. The function is
// idempotent over its own output.
func serializeRows(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = serializeMap(row)
	}
	return out
}

func serializeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = serializeValue(v)
	}
	return out
}

func serializeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		// lib/pq hands numeric/decimal columns back as raw bytes; currency
		// amounts must survive as numbers, other byte payloads as text.
		s := string(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case map[string]interface{}:
		return serializeMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = serializeValue(item)
		}
		return out
	default:
		return v
	}
}
