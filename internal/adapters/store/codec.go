package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// TimestampLayout is the stored form of every timestamp: UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// timestampKeys are the JSON keys the entities use for time fields. Strings
// under any other key are user text and stay untouched.
var timestampKeys = map[string]bool{
	"createdAt":  true,
	"updatedAt":  true,
	"timestamp":  true,
	"uploadedAt": true,
	"expiresAt":  true,
}

// Encode serializes v as JSON, rewriting ISO-8601 timestamps stored under a
// time field key to TimestampLayout.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("re-reading value: %w", err)
	}

	return json.Marshal(normalize(tree, false))
}

// Decode parses data into v. Timestamps written by Encode come back as
// time.Time wherever v declares one.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return nil
}

func normalize(node any, timeField bool) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = normalize(v, timestampKeys[k])
		}
		return n
	case []any:
		for i, v := range n {
			n[i] = normalize(v, false)
		}
		return n
	case string:
		if !timeField || !timestampPattern.MatchString(n) {
			return n
		}
		t, err := time.Parse(time.RFC3339Nano, n)
		if err != nil {
			return n
		}
		return t.UTC().Format(TimestampLayout)
	default:
		return n
	}
}
