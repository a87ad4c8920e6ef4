package controller

import (
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/abelbrown/fmconsole/internal/filter"
	"github.com/abelbrown/fmconsole/internal/model"
)

// Query is the user's current view of a list. It changes only through
// ListController operations.
type Query struct {
	SearchTerm    string
	Page          int // 1-based; may exceed the page count, the view clamps it
	PerPage       int
	SortKey       string // empty means input order
	SortDirection model.SortDirection
	Filters       map[string]filter.Predicate
}

func (q Query) clone() Query {
	q.Filters = maps.Clone(q.Filters)
	return q
}

// Params encodes q the way a paginating backend expects: page, per_page,
// q[<searchParam>]=term, one q[...] entry per filter, and q[s]="key dir".
func (q Query) Params(searchParam string) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))

	if term := strings.TrimSpace(q.SearchTerm); term != "" && searchParam != "" {
		v.Set("q["+searchParam+"]", term)
	}
	filter.Encode(q.Filters, v)
	if q.SortKey != "" {
		v.Set("q[s]", q.SortKey+" "+string(q.SortDirection))
	}
	return v
}

// stages is the local pipeline for q: search, then filters, then sort.
func (q Query) stages(searchFields []string) *filter.Pipeline {
	return filter.NewPipeline(
		filter.TextStage(q.SearchTerm, searchFields),
		filter.PredicateStage(q.Filters),
		filter.SortStage(q.SortKey, q.SortDirection),
	)
}
