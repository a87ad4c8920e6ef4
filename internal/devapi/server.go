// Package devapi serves canned list endpoints shaped like the facility
// management backend. It understands the same query parameters the fetch
// package sends (page, per_page, q[...] predicates, q[s] sort), so the
// console can be developed and tested without the real service.
package devapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abelbrown/fmconsole/internal/filter"
	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// SearchAllField is the pseudo-field whose _cont predicate searches every
// field of a record.
const SearchAllField = "search_all_fields"

// Shape is how a fixture wraps its records in the response body.
type Shape string

const (
	ShapeArray Shape = "array" // [ ... ]
	ShapeData  Shape = "data"  // {"data": [ ... ]}
	ShapeKeyed Shape = "keyed" // {"<Key>": [ ... ]}
)

// Fixture is one served list.
type Fixture struct {
	Path    string // without leading slash or .json
	Key     string // wrapper key for ShapeKeyed
	Shape   Shape
	Records []model.Record

	// Paginated fixtures honour page/per_page and report pagination
	// metadata. Others always return every matching record.
	Paginated bool
}

// Server is an http.Handler serving fixtures.
type Server struct {
	token   string
	handler http.Handler

	mu       sync.RWMutex
	fixtures map[string]Fixture
	delay    time.Duration
	failures map[string]int // path -> status to fail with
}

// New returns a server for fixtures. When token is non-empty every request
// must carry it as a bearer token or an access_token parameter.
func New(token string, fixtures ...Fixture) *Server {
	s := &Server{
		token:    token,
		fixtures: make(map[string]Fixture, len(fixtures)),
		failures: make(map[string]int),
	}
	for _, f := range fixtures {
		s.Add(f)
	}
	s.handler = s.routes()
	return s
}

// Add registers or replaces a fixture.
func (s *Server) Add(f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[strings.Trim(f.Path, "/")] = f
}

// SetDelay makes every response wait d first.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// FailWith makes requests for path answer with status until cleared with 0.
func (s *Server) FailWith(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = strings.Trim(path, "/")
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Paths lists the served paths, sorted.
func (s *Server) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.fixtures))
	for p := range s.fixtures {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.authenticate)

	r.Get("/*", s.list)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("devapi: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if bearer == s.token || r.URL.Query().Get("access_token") == s.token {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid or missing access token")
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.Trim(chi.URLParam(r, "*"), "/"), ".json")

	s.mu.RLock()
	f, ok := s.fixtures[path]
	delay := s.delay
	failStatus := s.failures[path]
	s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failStatus != 0 {
		writeError(w, failStatus, http.StatusText(failStatus))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no such list: "+path)
		return
	}

	q := r.URL.Query()
	records := Query(f.Records, q)

	var meta *paging.Meta
	if f.Paginated {
		page := paging.Paginate(records, atoi(q.Get("page"), 1), atoi(q.Get("per_page"), paging.DefaultPerPage))
		records = page.Items
		meta = &paging.Meta{
			CurrentPage: page.CurrentPage,
			PerPage:     page.PerPage,
			TotalPages:  page.TotalPages,
			TotalCount:  page.TotalCount,
		}
	}

	writeJSON(w, http.StatusOK, body(f, records, meta))
}

// Query applies the q[...] parameters to records the way the backend does:
// q[search_all_fields_cont] searches every field, other predicates must all
// match, and q[s]="key dir" sorts.
func Query(records []model.Record, q url.Values) []model.Record {
	preds := filter.ParseRansack(q)

	if p, ok := preds[SearchAllField]; ok {
		delete(preds, SearchAllField)
		if c, isCont := p.(filter.Contains); isCont {
			records = filter.Text(records, c.Value, allFields(records))
		}
	}
	records = filter.Structured(records, preds)

	if vals := q["q[s]"]; len(vals) > 0 {
		key, dir, _ := strings.Cut(strings.TrimSpace(vals[0]), " ")
		records = filter.Sort(records, key, model.ParseDirection(dir))
	}
	return records
}

func allFields(records []model.Record) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func body(f Fixture, records []model.Record, meta *paging.Meta) any {
	if records == nil {
		records = []model.Record{}
	}
	switch f.Shape {
	case ShapeData:
		out := map[string]any{"data": records}
		if meta != nil {
			out["pagination"] = meta
		}
		return out
	case ShapeKeyed:
		out := map[string]any{f.Key: records}
		if meta != nil {
			out["pagination"] = meta
		}
		return out
	default:
		return records
	}
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("devapi: failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
