package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/paging"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(5*time.Second, WithRateLimit(0, 0))
}

// recorder keeps the last request a test server saw.
type recorder struct {
	mu   sync.Mutex
	last *http.Request
	hits int
}

func (r *recorder) request() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.last = r.Clone(context.Background())
		rec.hits++
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestFetchListShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		key       string
		wantIDs   []string
		wantShape Shape
	}{
		{"bare array", `[{"id":1},{"id":2}]`, "", []string{"1", "2"}, ShapeArray},
		{"data key", `{"data":[{"id":"a"}]}`, "", []string{"a"}, ShapeData},
		{"empty data", `{"data":[]}`, "", []string{}, ShapeData},
		{"resource key", `{"headquarters":[{"id":1,"country_name":"India"}],"pagination":{"total_count":1}}`, "headquarters", []string{"1"}, ShapeResourceKey},
		{"sole array without key", `{"home_loans":[{"id":9}],"count":1}`, "", []string{"9"}, ShapeSoleArray},
		{"non-objects skipped", `[{"id":1},"x",3,null,{"id":2}]`, "", []string{"1", "2"}, ShapeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := jsonServer(t, http.StatusOK, tt.body)
			rc := RequestContext{BaseURL: srv.URL, Token: "tok"}
			ep := Endpoint{Name: "test", Path: "pms/things", ResourceKey: tt.key}

			rs, err := newTestFetcher().FetchList(context.Background(), rc, ep, nil)
			if err != nil {
				t.Fatalf("FetchList: %v", err)
			}
			got := make([]string, len(rs.Records))
			for i, r := range rs.Records {
				got[i] = r.ID()
			}
			if diff := cmp.Diff(tt.wantIDs, got); diff != "" {
				t.Errorf("records (-want +got):\n%s", diff)
			}
			if rs.Shape != tt.wantShape {
				t.Errorf("shape = %s, want %s", rs.Shape, tt.wantShape)
			}
		})
	}
}

func TestFetchListHeadquartersRecord(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `{"headquarters":[{"id":1,"country_name":"India","company":{"name":"Lockated"}}]}`)
	rs, err := newTestFetcher().FetchList(context.Background(),
		RequestContext{BaseURL: srv.URL, Token: "tok"},
		Endpoint{Name: "countries", Path: "headquarters", ResourceKey: "headquarters"}, nil)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if len(rs.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rs.Records))
	}
	r := rs.Records[0]
	if r.Text("country_name") != "India" || r.Text("company.name") != "Lockated" {
		t.Errorf("unexpected record: %v", r)
	}
	if rs.Meta != nil {
		t.Errorf("expected no meta, got %+v", rs.Meta)
	}
}

func TestFetchListUnknownShapeWarns(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(nil)

	srv, _ := jsonServer(t, http.StatusOK, `{}`)
	rs, err := newTestFetcher().FetchList(context.Background(),
		RequestContext{BaseURL: srv.URL, Token: "tok"},
		Endpoint{Name: "mystery", Path: "mystery"}, nil)
	if err != nil {
		t.Fatalf("unknown shape must not be an error: %v", err)
	}
	if rs.Records == nil || len(rs.Records) != 0 {
		t.Errorf("expected empty non-nil records, got %#v", rs.Records)
	}
	if rs.Shape != ShapeUnknown {
		t.Errorf("shape = %s, want unknown", rs.Shape)
	}
	if !strings.Contains(buf.String(), "unrecognized response shape") {
		t.Errorf("expected a warning, log was: %q", buf.String())
	}
}

func TestFetchListMeta(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *paging.Meta
	}{
		{"pagination object", `{"sites":[],"pagination":{"current_page":2,"per_page":"10","total_pages":5,"total_count":47}}`,
			&paging.Meta{CurrentPage: 2, PerPage: 10, TotalPages: 5, TotalCount: 47}},
		{"meta object", `{"data":[],"meta":{"total_count":3}}`, &paging.Meta{TotalCount: 3}},
		{"top level", `{"records":[],"current_page":1,"total_pages":1}`, &paging.Meta{CurrentPage: 1, TotalPages: 1}},
		{"none", `{"records":[]}`, nil},
		{"array", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := jsonServer(t, http.StatusOK, tt.body)
			rs, err := newTestFetcher().FetchList(context.Background(),
				RequestContext{BaseURL: srv.URL, Token: "tok"},
				Endpoint{Name: "x", Path: "x"}, nil)
			if err != nil {
				t.Fatalf("FetchList: %v", err)
			}
			if diff := cmp.Diff(tt.want, rs.Meta); diff != "" {
				t.Errorf("meta (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchListRequestShape(t *testing.T) {
	srv, rec := jsonServer(t, http.StatusOK, `[]`)
	params := url.Values{"page": {"2"}, "q[name_cont]": {"ind"}}

	_, err := newTestFetcher().FetchList(context.Background(),
		RequestContext{BaseURL: srv.URL + "/", Token: "secret", CompanyID: "42"},
		Endpoint{Name: "sites", Path: "/pms/sites/all_site_list", CompanyParam: "company_id"}, params)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	last := rec.request()

	if last.URL.Path != "/pms/sites/all_site_list.json" {
		t.Errorf("path = %q", last.URL.Path)
	}
	q := last.URL.Query()
	if q.Get("page") != "2" || q.Get("q[name_cont]") != "ind" || q.Get("company_id") != "42" {
		t.Errorf("unexpected query: %v", q)
	}
	if q.Has("access_token") {
		t.Error("bearer auth must not put the token in the query")
	}
	if got := last.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
	if last.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", last.Header.Get("Accept"))
	}
	if last.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}
	if len(params) != 2 {
		t.Errorf("caller params modified: %v", params)
	}
}

func TestFetchListQueryAuth(t *testing.T) {
	srv, rec := jsonServer(t, http.StatusOK, `[]`)
	_, err := newTestFetcher().FetchList(context.Background(),
		RequestContext{BaseURL: srv.URL, Token: "secret"},
		Endpoint{Name: "loans", Path: "home_loans", Auth: AuthQuery}, nil)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	last := rec.request()
	if got := last.URL.Query().Get("access_token"); got != "secret" {
		t.Errorf("access_token = %q", got)
	}
	if last.Header.Get("Authorization") != "" {
		t.Error("query auth must not send Authorization")
	}
}

func TestFetchListErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv, _ := jsonServer(t, http.StatusUnauthorized, `{"error":"token expired"}`)
		_, err := newTestFetcher().FetchList(context.Background(),
			RequestContext{BaseURL: srv.URL, Token: "tok"}, Endpoint{Name: "x", Path: "x"}, nil)

		var fe *Error
		if !errors.As(err, &fe) || fe.Kind != KindHTTP || fe.StatusCode != 401 {
			t.Fatalf("expected HTTP 401 error, got %v", err)
		}
		if !strings.Contains(fe.Error(), "token expired") {
			t.Errorf("expected backend message in error, got %q", fe.Error())
		}
		if !strings.Contains(UserMessage(err), "401") {
			t.Errorf("UserMessage = %q", UserMessage(err))
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		srv, _ := jsonServer(t, http.StatusOK, `{"data": [`)
		_, err := newTestFetcher().FetchList(context.Background(),
			RequestContext{BaseURL: srv.URL, Token: "tok"}, Endpoint{Name: "x", Path: "x"}, nil)
		if !IsKind(err, KindParse) {
			t.Fatalf("expected parse error, got %v", err)
		}
	})

	t.Run("scalar document", func(t *testing.T) {
		srv, _ := jsonServer(t, http.StatusOK, `"ok"`)
		_, err := newTestFetcher().FetchList(context.Background(),
			RequestContext{BaseURL: srv.URL, Token: "tok"}, Endpoint{Name: "x", Path: "x"}, nil)
		if !IsKind(err, KindParse) {
			t.Fatalf("expected parse error, got %v", err)
		}
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		_, err := newTestFetcher().FetchList(context.Background(),
			RequestContext{BaseURL: base, Token: "tok"}, Endpoint{Name: "x", Path: "x"}, nil)
		if !IsKind(err, KindNetwork) {
			t.Fatalf("expected network error, got %v", err)
		}
	})

	t.Run("query token redacted", func(t *testing.T) {
		srv, _ := jsonServer(t, http.StatusInternalServerError, `oops`)
		_, err := newTestFetcher().FetchList(context.Background(),
			RequestContext{BaseURL: srv.URL, Token: "s3cret"}, Endpoint{Name: "x", Path: "x", Auth: AuthQuery}, nil)
		if err == nil || strings.Contains(err.Error(), "s3cret") {
			t.Fatalf("token leaked or no error: %v", err)
		}
	})
}

func TestFetchListValidationBeforeNetwork(t *testing.T) {
	srv, rec := jsonServer(t, http.StatusOK, `[]`)

	tests := []struct {
		name string
		rc   RequestContext
		ep   Endpoint
		want string
	}{
		{"missing token", RequestContext{BaseURL: srv.URL}, Endpoint{Path: "x"}, "token is required"},
		{"missing base", RequestContext{Token: "t"}, Endpoint{Path: "x"}, "base_url is required"},
		{"missing path", RequestContext{BaseURL: srv.URL, Token: "t"}, Endpoint{}, "path is required"},
		{"bad auth", RequestContext{BaseURL: srv.URL, Token: "t"}, Endpoint{Path: "x", Auth: "cookie"}, "auth must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestFetcher().FetchList(context.Background(), tt.rc, tt.ep, nil)
			if !IsKind(err, KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if msg := UserMessage(err); !strings.Contains(msg, tt.want) {
				t.Errorf("UserMessage = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
	if hits := rec.count(); hits != 0 {
		t.Errorf("validation failures reached the server %d times", hits)
	}

	// No token is fine when the endpoint is public.
	_, err := newTestFetcher().FetchList(context.Background(),
		RequestContext{BaseURL: srv.URL}, Endpoint{Path: "x", Auth: AuthNone}, nil)
	if err != nil {
		t.Errorf("public endpoint: %v", err)
	}
}

func TestFetchListCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestFetcher().FetchList(ctx,
		RequestContext{BaseURL: srv.URL, Token: "tok"}, Endpoint{Name: "slow", Path: "slow"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var fe *Error
	if errors.As(err, &fe) {
		t.Errorf("cancellation must not be wrapped in *Error: %v", fe)
	}
}

func TestRateLimitWaits(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[]`)
	f := NewFetcher(5*time.Second, WithRateLimit(20, 1))
	rc := RequestContext{BaseURL: srv.URL, Token: "tok"}
	ep := Endpoint{Name: "x", Path: "x"}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := f.FetchList(context.Background(), rc, ep, nil); err != nil {
			t.Fatalf("FetchList: %v", err)
		}
	}
	// Burst of 1 at 20/s: the 2nd and 3rd calls wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected limiter to delay requests, took %v", elapsed)
	}
}
