// Package record defines the flat, schema-less row type shared by every
// dataset the API serves.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record is one row as returned by the API. Numbers are kept as
// json.Number so unknown fields round-trip unchanged on update.
type Record map[string]any

// DecodeList parses a JSON array of records. An empty body or a JSON null
// yields an empty, non-nil slice.
func DecodeList(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out []Record
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// Decode parses a single JSON object. An empty body yields an empty record.
func Decode(body []byte) (Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out Record
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

// Clone returns a shallow copy. Values are scalars so this is sufficient
// for edit drafts.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Key renders field as an identity string. ok is false when the field is
// missing or null.
func (r Record) Key(field string) (key string, ok bool) {
	v, present := r[field]
	if !present || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Float returns field as a number. ok is false for missing, null or
// non-numeric values.
func (r Record) Float(field string) (float64, bool) {
	switch t := r[field].(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// Num returns field as a number, treating anything absent as zero.
func (r Record) Num(field string) float64 {
	f, _ := r.Float(field)
	return f
}

// Str returns field as display text, "" when missing or null.
func (r Record) Str(field string) string {
	s, _ := r.Key(field)
	return s
}

// ParseValue converts raw user input into a record value. Empty input is
// null; input that parses as a number becomes a json.Number when numeric
// is true; otherwise the raw text is kept.
func ParseValue(raw string, numeric bool) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if !numeric {
		return raw, nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	return json.Number(s), nil
}

// IsNumeric reports whether field currently holds a number.
func (r Record) IsNumeric(field string) bool {
	_, ok := r.Float(field)
	return ok
}
