package controller

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/abelbrown/fmconsole/internal/config"
	"github.com/abelbrown/fmconsole/internal/fetch"
	"github.com/abelbrown/fmconsole/internal/filter"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// DefaultSearchParam is the backend search key used in server mode when a
// resource does not name one.
const DefaultSearchParam = "search_all_fields_cont"

// Resource is everything a ListController needs to know about one list.
type Resource struct {
	Name     string         `validate:"required"`
	Title    string
	Endpoint fetch.Endpoint `validate:"-"`

	// SearchFields are matched by the free-text search in client mode.
	SearchFields []string
	// SearchParam is the q[...] key carrying the search term in server mode.
	SearchParam     string
	ServerPaginated bool

	PerPage       int                 `validate:"min=0"`
	SortKey       string
	SortDirection model.SortDirection `validate:"omitempty,oneof=asc desc"`

	Columns []Column
}

// Column is one displayed field.
type Column struct {
	Key   string
	Title string
	Width int
}

// maxDerivedColumns caps the columns guessed from a record.
const maxDerivedColumns = 6

// ColumnsFor returns the configured columns, or when there are none, up to
// six fields of sample ("id" first, then alphabetical).
func (r Resource) ColumnsFor(sample model.Record) []Column {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	keys := make([]string, 0, len(sample))
	for k := range sample {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := sample["id"]; ok {
		keys = append([]string{"id"}, keys...)
	}
	if len(keys) > maxDerivedColumns {
		keys = keys[:maxDerivedColumns]
	}
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Key: k, Title: k}
	}
	return cols
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the resource and fills in defaults.
func (r *Resource) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid resource %q: %w", r.Name, err)
	}
	if r.Endpoint.Path == "" {
		return fmt.Errorf("invalid resource %q: endpoint path is required", r.Name)
	}
	if r.Endpoint.Name == "" {
		r.Endpoint.Name = r.Name
	}
	if r.PerPage <= 0 {
		r.PerPage = paging.DefaultPerPage
	}
	if r.SortDirection == "" {
		r.SortDirection = model.Asc
	}
	if r.ServerPaginated && r.SearchParam == "" {
		r.SearchParam = DefaultSearchParam
	}
	return nil
}

// ResourceFromConfig builds a Resource from a configured screen.
// defaultPerPage applies when the screen does not set its own.
func ResourceFromConfig(rc config.ResourceConfig, defaultPerPage int) Resource {
	perPage := rc.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	key, dir := filter.ParseSort(rc.Sort)

	cols := make([]Column, len(rc.Columns))
	for i, c := range rc.Columns {
		cols[i] = Column{Key: c.Key, Title: c.Title, Width: c.Width}
	}

	return Resource{
		Name:            rc.Name,
		Title:           rc.DisplayTitle(),
		Endpoint:        rc.Endpoint(),
		SearchFields:    rc.SearchFields,
		SearchParam:     rc.SearchParam,
		ServerPaginated: rc.ServerPaginated,
		PerPage:         perPage,
		SortKey:         key,
		SortDirection:   dir,
		Columns:         cols,
	}
}
