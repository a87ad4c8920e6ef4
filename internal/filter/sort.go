package filter

import (
	"sort"
	"strings"

	"github.com/abelbrown/fmconsole/internal/model"
)

// Sort returns a new slice ordered by key. The sort is stable: records with
// equal keys keep their input order in both directions, because Desc inverts
// the comparator rather than reversing the output. An empty key returns a
// copy in input order.
func Sort(records []model.Record, key string, dir model.SortDirection) []model.Record {
	result := make([]model.Record, len(records))
	copy(result, records)

	if key == "" || len(result) < 2 {
		return result
	}

	desc := dir == model.Desc
	sort.SliceStable(result, func(i, j int) bool {
		c := Compare(result[i].Get(key), result[j].Get(key))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return result
}

// Compare orders two field values: numerically when both are numbers,
// otherwise by their text. A number sorts before any non-number, which keeps
// mixed columns totally ordered. nil sorts as "".
func Compare(a, b any) int {
	x, aNum := model.Number(a)
	y, bNum := model.Number(b)
	switch {
	case aNum && bNum:
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(model.Text(a), model.Text(b))
}

// ParseSort splits a sort string like "-name" into key and direction.
// A leading "-" means descending; "+" or no prefix means ascending.
func ParseSort(s string) (string, model.SortDirection) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "-"):
		return strings.TrimPrefix(s, "-"), model.Desc
	case strings.HasPrefix(s, "+"):
		return strings.TrimPrefix(s, "+"), model.Asc
	default:
		return s, model.Asc
	}
}
