// Package filter provides pure filter and sort functions for records.
// All functions are simple: []Record in, []Record out. No side effects,
// and the input slice is never modified.
package filter

import (
	"strings"

	"github.com/abelbrown/fmconsole/internal/model"
)

// Text keeps records where any of fields contains term, case-insensitively.
// A blank term returns records unchanged. Missing and nil fields match as "".
func Text(records []model.Record, term string, fields []string) []model.Record {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return records
	}

	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matchesText(r, needle, fields) {
			result = append(result, r)
		}
	}
	return result
}

// matchesText expects needle already lowercased and trimmed.
func matchesText(r model.Record, needle string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(r.Text(f)), needle) {
			return true
		}
	}
	return false
}

// Structured keeps records that satisfy every predicate (logical AND).
// An empty predicate set returns records unchanged.
func Structured(records []model.Record, predicates map[string]Predicate) []model.Record {
	if len(predicates) == 0 {
		return records
	}

	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, predicates) {
			result = append(result, r)
		}
	}
	return result
}

func matchesAll(r model.Record, predicates map[string]Predicate) bool {
	for field, p := range predicates {
		if p == nil {
			continue
		}
		if !p.Match(r.Get(field)) {
			return false
		}
	}
	return true
}

// Apply runs the text filter and the structured filters together: a record
// must match the term (in any field) and every predicate.
func Apply(records []model.Record, term string, fields []string, predicates map[string]Predicate) []model.Record {
	return Structured(Text(records, term, fields), predicates)
}
