package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/abelbrown/fmconsole/internal/model"
)

// Predicate is a structured filter on a single field.
//
// Predicates come from fixed UI controls (dropdowns, toggles, range inputs),
// so they are assumed valid by construction.
type Predicate interface {
	// Match reports whether a field value satisfies the predicate.
	// v may be nil when the field is missing.
	Match(v any) bool

	// Encode adds the predicate to q using Ransack-style keys
	// (q[field_eq], q[field_cont], ...) for backends that filter server-side.
	Encode(field string, q url.Values)

	// String describes the predicate for status lines and logs.
	String() string
}

// Equals matches exact values. Numbers compare numerically when both sides
// are numeric ("1" from a dropdown equals 1 from JSON); everything else
// compares as text.
type Equals struct {
	Value any
}

// Eq returns an Equals predicate.
func Eq(v any) Equals { return Equals{Value: v} }

func (p Equals) Match(v any) bool {
	if a, ok := model.NumberLike(p.Value); ok {
		if b, ok := model.Number(v); ok {
			return a == b
		}
	}
	return model.Text(v) == model.Text(p.Value)
}

func (p Equals) Encode(field string, q url.Values) {
	q.Set(ransackKey(field, "eq"), model.Text(p.Value))
}

func (p Equals) String() string {
	return "= " + model.Text(p.Value)
}

// Contains matches values whose text contains Value, case-insensitively.
type Contains struct {
	Value string
}

// Cont returns a Contains predicate.
func Cont(s string) Contains { return Contains{Value: s} }

func (p Contains) Match(v any) bool {
	needle := strings.ToLower(strings.TrimSpace(p.Value))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(model.Text(v)), needle)
}

func (p Contains) Encode(field string, q url.Values) {
	q.Set(ransackKey(field, "cont"), strings.TrimSpace(p.Value))
}

func (p Contains) String() string {
	return fmt.Sprintf("~ %q", p.Value)
}

// Range matches numeric values within inclusive bounds. A nil bound is open.
// Non-numeric values never match.
type Range struct {
	Min *float64
	Max *float64
}

// Between returns a closed Range.
func Between(lo, hi float64) Range { return Range{Min: &lo, Max: &hi} }

// AtLeast returns a Range with only a lower bound.
func AtLeast(lo float64) Range { return Range{Min: &lo} }

// AtMost returns a Range with only an upper bound.
func AtMost(hi float64) Range { return Range{Max: &hi} }

func (p Range) Match(v any) bool {
	f, ok := model.Number(v)
	if !ok {
		// Numeric strings from loosely typed backends still count.
		if s, isStr := v.(string); isStr && s != "" {
			f, ok = model.NumberLike(s)
		}
	}
	if !ok {
		return false
	}
	if p.Min != nil && f < *p.Min {
		return false
	}
	if p.Max != nil && f > *p.Max {
		return false
	}
	return true
}

func (p Range) Encode(field string, q url.Values) {
	if p.Min != nil {
		q.Set(ransackKey(field, "gteq"), strconv.FormatFloat(*p.Min, 'f', -1, 64))
	}
	if p.Max != nil {
		q.Set(ransackKey(field, "lteq"), strconv.FormatFloat(*p.Max, 'f', -1, 64))
	}
}

func (p Range) String() string {
	lo, hi := "", ""
	if p.Min != nil {
		lo = strconv.FormatFloat(*p.Min, 'f', -1, 64)
	}
	if p.Max != nil {
		hi = strconv.FormatFloat(*p.Max, 'f', -1, 64)
	}
	return fmt.Sprintf("in [%s, %s]", lo, hi)
}

// Encode adds every predicate to q.
func Encode(predicates map[string]Predicate, q url.Values) {
	for field, p := range predicates {
		if p != nil {
			p.Encode(field, q)
		}
	}
}

func ransackKey(field, op string) string {
	return "q[" + field + "_" + op + "]"
}

// ParseRansack turns q[field_op] query keys back into predicates. Unknown
// operators are ignored. The stub backend uses this to honour the same
// filters the console sends.
func ParseRansack(q url.Values) map[string]Predicate {
	preds := make(map[string]Predicate)
	ranges := make(map[string]Range)

	for key, vals := range q {
		if len(vals) == 0 || !strings.HasPrefix(key, "q[") || !strings.HasSuffix(key, "]") {
			continue
		}
		inner := key[2 : len(key)-1]
		idx := strings.LastIndex(inner, "_")
		if idx <= 0 {
			continue
		}
		field, op, val := inner[:idx], inner[idx+1:], vals[0]

		switch op {
		case "eq":
			preds[field] = Eq(val)
		case "cont":
			preds[field] = Cont(val)
		case "gteq", "lteq":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				continue
			}
			// A field may carry both bounds.
			r := ranges[field]
			if op == "gteq" {
				r.Min = &f
			} else {
				r.Max = &f
			}
			ranges[field] = r
		}
	}

	for field, r := range ranges {
		preds[field] = r
	}
	return preds
}
