package fetch

import (
	"fmt"
	"sort"

	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// Shape names the response layout a record set was extracted from.
type Shape string

const (
	ShapeArray       Shape = "array"        // [...]
	ShapeData        Shape = "data"         // {"data": [...]}
	ShapeResourceKey Shape = "resource_key" // {"<Endpoint.ResourceKey>": [...]}
	ShapeSoleArray   Shape = "sole_array"   // an object with exactly one array-valued key
	ShapeUnknown     Shape = "unknown"      // nothing matched; no records
)

// shapeMatcher tries to find the record array in a decoded document.
type shapeMatcher struct {
	shape Shape
	match func(doc any, ep Endpoint) ([]any, bool)
}

// shapeMatchers are tried in order; the first match wins.
var shapeMatchers = []shapeMatcher{
	{ShapeArray, func(doc any, _ Endpoint) ([]any, bool) {
		arr, ok := doc.([]any)
		return arr, ok
	}},
	{ShapeData, func(doc any, _ Endpoint) ([]any, bool) {
		return arrayAt(doc, "data")
	}},
	{ShapeResourceKey, func(doc any, ep Endpoint) ([]any, bool) {
		if ep.ResourceKey == "" {
			return nil, false
		}
		return arrayAt(doc, ep.ResourceKey)
	}},
	{ShapeSoleArray, func(doc any, _ Endpoint) ([]any, bool) {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, false
		}
		var found []any
		n := 0
		for _, v := range obj {
			if arr, ok := v.([]any); ok {
				found = arr
				n++
			}
		}
		return found, n == 1
	}},
}

func arrayAt(doc any, key string) ([]any, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	arr, ok := obj[key].([]any)
	return arr, ok
}

// normalize turns a decoded response into records. Only a document that is
// neither an array nor an object is an error; an object of unknown shape
// yields no records and a warning.
func normalize(doc any, ep Endpoint) ([]model.Record, Shape, error) {
	switch doc.(type) {
	case []any, map[string]any:
	default:
		return nil, ShapeUnknown, fmt.Errorf("expected JSON array or object, got %T", doc)
	}

	for _, m := range shapeMatchers {
		arr, ok := m.match(doc, ep)
		if !ok {
			continue
		}
		return toRecords(arr, ep), m.shape, nil
	}

	logging.Warn("fetch: unrecognized response shape", "endpoint", ep.Name, "keys", objectKeys(doc))
	return []model.Record{}, ShapeUnknown, nil
}

func toRecords(arr []any, ep Endpoint) []model.Record {
	records := make([]model.Record, 0, len(arr))
	skipped := 0
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		records = append(records, model.Record(obj))
	}
	if skipped > 0 {
		logging.Warn("fetch: skipped non-object elements", "endpoint", ep.Name, "skipped", skipped)
	}
	return records
}

func objectKeys(doc any) []string {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extractMeta reads pagination metadata from a "pagination" or "meta"
// object, falling back to top-level keys. It returns nil when the response
// carries none.
func extractMeta(doc any) *paging.Meta {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	for _, key := range []string{"pagination", "meta"} {
		if nested, ok := obj[key].(map[string]any); ok {
			if m, found := readMeta(nested); found {
				return m
			}
		}
	}
	if m, found := readMeta(obj); found {
		return m
	}
	return nil
}

func readMeta(obj map[string]any) (*paging.Meta, bool) {
	var m paging.Meta
	found := false
	for key, dst := range map[string]*int{
		"current_page": &m.CurrentPage,
		"per_page":     &m.PerPage,
		"total_pages":  &m.TotalPages,
		"total_count":  &m.TotalCount,
	} {
		if f, ok := model.NumberLike(obj[key]); ok {
			*dst = int(f)
			found = true
		}
	}
	return &m, found
}
