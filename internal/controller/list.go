package controller

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/abelbrown/fmconsole/internal/fetch"
	"github.com/abelbrown/fmconsole/internal/filter"
	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
	"github.com/abelbrown/fmconsole/internal/store"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Lister fetches one list resource. *fetch.Fetcher implements it.
type Lister interface {
	FetchList(ctx context.Context, rc fetch.RequestContext, ep fetch.Endpoint, params url.Values) (*fetch.RecordSet, error)
}

// Snapshots persists last good record sets. *store.Store implements it.
type Snapshots interface {
	SaveSnapshot(snap store.Snapshot) error
	LoadSnapshot(resource, queryKey string) (*store.Snapshot, error)
	LatestSnapshot(resource string) (*store.Snapshot, error)
}

// View is a consistent snapshot of a controller's state.
type View struct {
	Resource string
	State    State
	Query    Query
	Page     paging.Page[model.Record]

	// Loaded is the size of the held record set (the whole list in client
	// mode, the current page in server mode).
	Loaded int

	Err     error
	Message string // user-facing error text
	// Stale is set when the records come from a stored snapshot rather
	// than this session's fetch.
	Stale     bool
	FetchedAt time.Time

	// Generation is the fetch the records came from.
	Generation uint64
}

// HasData reports whether there is a record set to show.
func (v View) HasData() bool {
	return !v.FetchedAt.IsZero()
}

// Option configures a ListController.
type Option func(*ListController)

// WithSnapshots saves every successful fetch to s and falls back to it when
// a fetch fails before anything was loaded.
func WithSnapshots(s Snapshots) Option {
	return func(c *ListController) { c.snaps = s }
}

// WithEventBuffer sets the event channel capacity (default 16).
func WithEventBuffer(n int) Option {
	return func(c *ListController) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

var _ Controller = (*ListController)(nil)

// ListController drives one list screen.
type ListController struct {
	res    Resource
	rc     fetch.RequestContext
	lister Lister
	snaps  Snapshots

	bufSize int
	events  chan Event

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	query     Query
	state     State
	records   []model.Record // last good record set
	visible   []model.Record // client mode: records after search, filters, sort
	meta      *paging.Meta
	err       error
	message   string
	stale     bool
	fetchedAt time.Time

	gen      uint64             // latest fetch issued
	applied  uint64             // fetch the records came from
	inflight context.CancelFunc // cancels the latest fetch
}

// New creates a controller for res. It does not fetch; call Refresh.
//
// The provided context bounds the controller's lifetime: cancelling it
// cancels any in-flight fetch (same as calling Close, minus closing the
// event channel).
func New(ctx context.Context, res Resource, rc fetch.RequestContext, lister Lister, opts ...Option) (*ListController, error) {
	if lister == nil {
		return nil, errors.New("controller: lister is required")
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}

	c := &ListController{
		res:     res,
		rc:      rc,
		lister:  lister,
		bufSize: 16,
		state:   StateIdle,
		query: Query{
			Page:          1,
			PerPage:       res.PerPage,
			SortKey:       res.SortKey,
			SortDirection: res.SortDirection,
			Filters:       map[string]filter.Predicate{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan Event, c.bufSize)
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c, nil
}

// ID returns the resource name.
func (c *ListController) ID() string { return c.res.Name }

// Resource returns the validated resource definition.
func (c *ListController) Resource() Resource { return c.res }

// Subscribe returns the event channel. It is closed by Close.
func (c *ListController) Subscribe() <-chan Event { return c.events }

// Refresh fetches the resource with the current query, cancelling any
// fetch already in flight.
func (c *ListController) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.startFetchLocked()
}

// SetSearchTerm changes the search term and goes back to page 1.
// Setting the current term again does nothing.
func (c *ListController) SetSearchTerm(term string) {
	c.update(func(q *Query) bool {
		if q.SearchTerm == term {
			return false
		}
		q.SearchTerm = term
		q.Page = 1
		return true
	})
}

// SetPage moves to page n. Values below 1 mean 1; values past the last page
// are kept in the query and clamped in the View.
func (c *ListController) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.update(func(q *Query) bool {
		if q.Page == n {
			return false
		}
		q.Page = n
		return true
	})
}

// NextPage moves forward one page if there is one.
func (c *ListController) NextPage() {
	v := c.View()
	if v.Page.HasNext {
		c.SetPage(v.Page.CurrentPage + 1)
	}
}

// PrevPage moves back one page if there is one.
func (c *ListController) PrevPage() {
	v := c.View()
	if v.Page.HasPrev {
		c.SetPage(v.Page.CurrentPage - 1)
	}
}

// SetPerPage changes the page size and goes back to page 1. Non-positive
// sizes mean paging.DefaultPerPage.
func (c *ListController) SetPerPage(n int) {
	if n <= 0 {
		n = paging.DefaultPerPage
	}
	c.update(func(q *Query) bool {
		if q.PerPage == n {
			return false
		}
		q.PerPage = n
		q.Page = 1
		return true
	})
}

// SetSort orders by key in dir. The current page is kept. An empty key
// restores input order.
func (c *ListController) SetSort(key string, dir model.SortDirection) {
	if dir != model.Desc {
		dir = model.Asc
	}
	c.update(func(q *Query) bool {
		if q.SortKey == key && q.SortDirection == dir {
			return false
		}
		q.SortKey = key
		q.SortDirection = dir
		return true
	})
}

// ToggleSort sorts by key ascending, or flips the direction if already
// sorting by key.
func (c *ListController) ToggleSort(key string) {
	c.update(func(q *Query) bool {
		if q.SortKey == key && q.SortDirection == model.Asc {
			q.SortDirection = model.Desc
		} else {
			q.SortKey = key
			q.SortDirection = model.Asc
		}
		return true
	})
}

// SetFilter sets the structured filter on field and goes back to page 1.
// A nil predicate removes it.
func (c *ListController) SetFilter(field string, p filter.Predicate) {
	if p == nil {
		c.RemoveFilter(field)
		return
	}
	c.update(func(q *Query) bool {
		q.Filters[field] = p
		q.Page = 1
		return true
	})
}

// RemoveFilter drops the filter on field and goes back to page 1.
func (c *ListController) RemoveFilter(field string) {
	c.update(func(q *Query) bool {
		if _, ok := q.Filters[field]; !ok {
			return false
		}
		delete(q.Filters, field)
		q.Page = 1
		return true
	})
}

// ClearFilters drops every structured filter and goes back to page 1.
func (c *ListController) ClearFilters() {
	c.update(func(q *Query) bool {
		if len(q.Filters) == 0 {
			return false
		}
		clear(q.Filters)
		q.Page = 1
		return true
	})
}

// Query returns a copy of the current query.
func (c *ListController) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.clone()
}

// View returns the current state with the visible page computed from it.
func (c *ListController) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Visible returns every record that passes the current query, in sorted
// order, across all pages. In server mode that is the page the backend
// last returned.
func (c *ListController) Visible() []model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Record, len(c.visible))
	copy(out, c.visible)
	return out
}

// Close cancels any in-flight fetch, waits for it, and closes the event
// channel. Later calls do nothing.
func (c *ListController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	close(c.events)
	c.records, c.visible = nil, nil
	c.mu.Unlock()
}

// update applies fn to the query. In server mode a change re-fetches; in
// client mode the view is recomputed locally.
func (c *ListController) update(fn func(q *Query) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !fn(&c.query) {
		return
	}

	if c.res.ServerPaginated {
		// Nothing to re-fetch until the first Refresh.
		if c.state == StateIdle {
			c.emitLocked(Event{Type: EventChanged, View: c.viewLocked()})
			return
		}
		c.startFetchLocked()
		return
	}

	if c.hasDataLocked() {
		c.recomputeLocked()
		if c.state == StateError {
			c.state = StateReady
			c.err, c.message = nil, ""
		}
	}
	c.emitLocked(Event{Type: EventChanged, View: c.viewLocked()})
}

func (c *ListController) hasDataLocked() bool {
	return !c.fetchedAt.IsZero()
}

// paramsLocked is what the next fetch sends.
func (c *ListController) paramsLocked() url.Values {
	if !c.res.ServerPaginated {
		return url.Values{}
	}
	return c.query.Params(c.res.SearchParam)
}

func (c *ListController) startFetchLocked() {
	if c.inflight != nil {
		c.inflight()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.inflight = cancel
	c.state = StateLoading
	params := c.paramsLocked()

	c.wg.Add(1)
	go c.runFetch(ctx, cancel, gen, params)

	c.emitLocked(Event{Type: EventStarted, View: c.viewLocked()})
}

func (c *ListController) runFetch(ctx context.Context, cancel context.CancelFunc, gen uint64, params url.Values) {
	defer c.wg.Done()
	defer cancel()

	rs, err := c.lister.FetchList(ctx, c.rc, c.res.Endpoint, params)

	var snap *store.Snapshot
	if err != nil && c.snaps != nil && ctx.Err() == nil {
		snap = c.loadSnapshot(params)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		logging.Debug("controller: discarding stale response", "resource", c.res.Name, "generation", gen, "latest", c.gen)
		return
	}
	c.inflight = nil

	if err != nil {
		c.applyErrorLocked(err, snap, gen)
		c.emitLocked(Event{Type: EventError, View: c.viewLocked(), Err: err})
		return
	}

	c.applySuccessLocked(rs, gen)
	if c.snaps != nil {
		s := store.Snapshot{
			Resource:  c.res.Name,
			QueryKey:  store.QueryKey(params),
			Records:   rs.Records,
			Meta:      rs.Meta,
			FetchedAt: c.fetchedAt,
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.snaps.SaveSnapshot(s); err != nil {
				logging.Warn("controller: failed to save snapshot", "resource", s.Resource, "error", err)
			}
		}()
	}
	c.emitLocked(Event{Type: EventCompleted, View: c.viewLocked()})
}

func (c *ListController) applySuccessLocked(rs *fetch.RecordSet, gen uint64) {
	c.records = rs.Records
	if c.records == nil {
		c.records = []model.Record{}
	}
	c.meta = rs.Meta
	c.state = StateReady
	c.err, c.message = nil, ""
	c.stale = false
	c.fetchedAt = time.Now()
	c.applied = gen
	c.recomputeLocked()

	logging.Info("controller: loaded", "resource", c.res.Name, "records", len(c.records), "generation", gen)
}

// applyErrorLocked keeps the last good record set. With none, it falls back
// to snap when there is one.
func (c *ListController) applyErrorLocked(err error, snap *store.Snapshot, gen uint64) {
	c.state = StateError
	c.err = err
	c.message = fetch.UserMessage(err)
	logging.Error("controller: fetch failed", "resource", c.res.Name, "generation", gen, "error", err)

	if c.hasDataLocked() || snap == nil {
		return
	}
	c.records = snap.Records
	c.meta = snap.Meta
	c.fetchedAt = snap.FetchedAt
	c.stale = true
	c.applied = gen
	c.message += " Showing saved data from " + snap.FetchedAt.Local().Format("Jan 2 15:04") + "."
	c.recomputeLocked()
}

func (c *ListController) loadSnapshot(params url.Values) *store.Snapshot {
	snap, err := c.snaps.LoadSnapshot(c.res.Name, store.QueryKey(params))
	if errors.Is(err, store.ErrNotFound) {
		snap, err = c.snaps.LatestSnapshot(c.res.Name)
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.Warn("controller: failed to load snapshot", "resource", c.res.Name, "error", err)
		}
		return nil
	}
	return snap
}

// recomputeLocked rebuilds the client-mode visible set from records.
func (c *ListController) recomputeLocked() {
	if c.res.ServerPaginated {
		c.visible = c.records
		return
	}
	visible, err := c.query.stages(c.res.SearchFields).Run(c.ctx, c.records)
	if err != nil {
		// Only cancellation fails; keep the previous visible set.
		return
	}
	c.visible = visible
}

func (c *ListController) viewLocked() View {
	v := View{
		Resource:   c.res.Name,
		State:      c.state,
		Query:      c.query.clone(),
		Loaded:     len(c.records),
		Err:        c.err,
		Message:    c.message,
		Stale:      c.stale,
		FetchedAt:  c.fetchedAt,
		Generation: c.applied,
	}

	switch {
	case c.res.ServerPaginated && c.meta != nil:
		v.Page = paging.FromMeta(c.visible, *c.meta, c.query.Page, c.query.PerPage)
	default:
		// Client mode, or a backend that sent no metadata.
		v.Page = paging.Paginate(c.visible, c.query.Page, c.query.PerPage)
	}
	if v.Page.Items == nil {
		v.Page.Items = []model.Record{}
	}
	return v
}

// emitLocked sends without blocking; events are dropped when the buffer is
// full.
func (c *ListController) emitLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- e:
	default:
		logging.Debug("controller: event dropped", "resource", c.res.Name, "type", e.Type)
	}
}
