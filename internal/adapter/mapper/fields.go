// Package mapper normalizes loosely shaped provider payloads into domain
// entities. Field names drift between API versions, so every lookup walks an
// ordered fallback list and takes the first non-empty value.
package mapper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Payload is a decoded JSON object. Numbers are kept as json.Number.
type Payload = map[string]interface{}

// Decode parses raw JSON into a Payload without losing integer precision.
func Decode(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeList parses a JSON array of objects, or an object wrapping one under
// "items" or "data".
func DecodeList(raw []byte) ([]Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []interface{}:
		return objects(t), nil
	case map[string]interface{}:
		for _, key := range []string{"items", "data"} {
			if list, ok := t[key].([]interface{}); ok {
				return objects(list), nil
			}
		}
	}
	return nil, nil
}

func objects(list []interface{}) []Payload {
	out := make([]Payload, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// FirstString returns the first key holding a non-empty string (or number).
func FirstString(p Payload, keys ...string) string {
	for _, key := range keys {
		switch v := p[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// FirstTime returns the first key holding an RFC 3339 string or unix seconds.
func FirstTime(p Payload, keys ...string) *time.Time {
	for _, key := range keys {
		if t := parseTime(p[key]); t != nil {
			return t
		}
	}
	return nil
}

func parseTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return unixTime(n)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return unixTime(n)
		}
	case float64:
		return unixTime(int64(t))
	}
	return nil
}

func unixTime(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	// Millisecond timestamps
	if n > 1e12 {
		t := time.UnixMilli(n).UTC()
		return &t
	}
	t := time.Unix(n, 0).UTC()
	return &t
}

// Int64 reads a whole number from a JSON value.
func Int64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// FirstInt64 returns the first key holding a number.
func FirstInt64(p Payload, keys ...string) (int64, bool) {
	for _, key := range keys {
		if n, ok := Int64(p[key]); ok {
			return n, true
		}
	}
	return 0, false
}

// FirstBool returns the first key holding a boolean.
func FirstBool(p Payload, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch b := p[key].(type) {
		case bool:
			return b, true
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed, true
			}
		}
	}
	return false, false
}

// Object returns the nested object under key, or nil.
func Object(p Payload, key string) Payload {
	m, _ := p[key].(map[string]interface{})
	return m
}

// StringMap flattens a metadata object into strings.
func StringMap(p Payload, key string) map[string]string {
	m := Object(p, key)
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
