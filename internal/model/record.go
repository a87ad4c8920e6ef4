// Package model defines the schema-agnostic record type shared by every list screen.
//
// A Record is whatever one element of a list resource decodes to: a JSON object
// with arbitrary fields. Nothing in fmconsole fixes the schema; filters, sorts and
// renderers look fields up by name and coerce values as needed.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record is one item of a fetched list resource.
type Record map[string]any

// SortDirection orders records by a key.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ParseDirection maps user input to a SortDirection. Anything that is not
// "desc" (case-insensitive) is ascending.
func ParseDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Get returns the value at field. Dotted paths walk nested objects
// ("company.name"). Missing fields return nil.
func (r Record) Get(field string) any {
	if r == nil {
		return nil
	}
	if v, ok := r[field]; ok {
		return v
	}
	if !strings.Contains(field, ".") {
		return nil
	}

	var cur any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[part]
		case Record:
			cur = m[part]
		default:
			return nil
		}
	}
	return cur
}

// Text returns the display string of field.
func (r Record) Text(field string) string {
	return Text(r.Get(field))
}

// ID returns the record's "id" field as text, or "" if absent.
func (r Record) ID() string {
	return r.Text("id")
}

// Text coerces any decoded JSON value to a string.
// nil becomes "", numbers use their shortest decimal form, and nested
// objects and arrays are rendered as compact JSON.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, Record, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// Number reports the numeric value of v, if it has one.
// Strings are not parsed: "10" and 10 are different kinds of value.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// NumberLike is like Number but also accepts numeric strings. Used where the
// value came from user input (a filter box, a query parameter).
func NumberLike(v any) (float64, bool) {
	if f, ok := Number(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Decode reads a JSON document keeping numbers as json.Number.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeRecords decodes a JSON array of objects, as written by EncodeRecords.
func DecodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// EncodeRecords encodes records as a JSON array. A nil slice encodes as [].
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}
