package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/fmconsole/internal/controller"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// fakeList records the calls the screen makes.
type fakeList struct {
	mu    sync.Mutex
	view  controller.View
	calls []string
	terms []string
}

func (f *fakeList) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeList) View() controller.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeList) Refresh()  { f.record("refresh") }
func (f *fakeList) NextPage() { f.record("next") }
func (f *fakeList) PrevPage() { f.record("prev") }

func (f *fakeList) SetSearchTerm(term string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "search")
	f.terms = append(f.terms, term)
}

func (f *fakeList) SetPerPage(n int) {
	f.record("per_page")
	f.mu.Lock()
	f.view.Query.PerPage = n
	f.mu.Unlock()
}

func (f *fakeList) SetSort(key string, dir model.SortDirection) {
	f.record("sort " + key + " " + string(dir))
	f.mu.Lock()
	f.view.Query.SortKey, f.view.Query.SortDirection = key, dir
	f.mu.Unlock()
}

func (f *fakeList) ToggleSort(key string) { f.record("toggle " + key) }
func (f *fakeList) ClearFilters()         { f.record("clear") }

func (f *fakeList) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeList) searchTerms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terms...)
}

func readyView() controller.View {
	items := []model.Record{
		{"id": 1, "country_name": "Canada", "active": true},
		{"id": 2, "country_name": "Denmark", "active": false},
	}
	return controller.View{
		Resource:  "countries",
		State:     controller.StateReady,
		Query:     controller.Query{Page: 1, PerPage: 10},
		Page:      paging.Paginate(items, 1, 10),
		Loaded:    2,
		FetchedAt: time.Now(),
	}
}

func testResource() controller.Resource {
	return controller.Resource{
		Name:  "countries",
		Title: "Countries",
		Columns: []controller.Column{
			{Key: "id", Title: "ID", Width: 4},
			{Key: "country_name", Title: "Country", Width: 20},
			{Key: "active", Title: "Active", Width: 7},
		},
	}
}

func newTestApp(t *testing.T, wait time.Duration) (App, *fakeList) {
	t.Helper()
	fl := &fakeList{view: controller.View{State: controller.StateIdle, Query: controller.Query{Page: 1, PerPage: 10}}}
	app := NewApp(fl, testResource(), wait)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), fl
}

func press(t *testing.T, app App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := app.Update(msg)
		app = m.(App)
	}
	return app
}

func TestAppInit(t *testing.T) {
	app, fl := newTestApp(t, time.Millisecond)

	cmd := app.Init()
	if cmd == nil {
		t.Fatal("Init should return a command")
	}
	// The batch runs its commands; execute them by hand.
	if batch, ok := cmd().(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				c()
			}
		}
	}
	if diff := cmp.Diff([]string{"refresh"}, fl.callLog()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestAppViewBeforeSize(t *testing.T) {
	fl := &fakeList{}
	app := NewApp(fl, testResource(), time.Millisecond)
	if got := app.View(); got != "Loading..." {
		t.Errorf("View before WindowSizeMsg = %q", got)
	}
}

func TestViewUpdatedFillsTable(t *testing.T) {
	app, _ := newTestApp(t, time.Millisecond)

	m, _ := app.Update(ViewUpdated{Type: controller.EventCompleted, View: readyView()})
	app = m.(App)

	rows := app.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if diff := cmp.Diff([]string{"1", "Canada", "true"}, []string(rows[0])); diff != "" {
		t.Errorf("row 0 (-want +got):\n%s", diff)
	}

	out := app.View()
	for _, want := range []string{"Countries", "Canada", "page 1 of 1", "2 records", "ready"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDerivedColumns(t *testing.T) {
	fl := &fakeList{view: controller.View{Query: controller.Query{Page: 1, PerPage: 10}}}
	app := NewApp(fl, controller.Resource{Name: "regions"}, time.Millisecond)

	v := readyView()
	m, _ := app.Update(ViewUpdated{Type: controller.EventCompleted, View: v})
	app = m.(App)

	if diff := cmp.Diff([]string{"1", "true", "Canada"}, []string(app.Rows()[0])); diff != "" {
		t.Errorf("derived row (-want +got):\n%s", diff)
	}
}

func TestSearchGoesThroughDebounce(t *testing.T) {
	app, fl := newTestApp(t, 100*time.Millisecond)

	app = press(t, app, "/")
	if !app.Searching() {
		t.Fatal("/ should focus the search box")
	}
	app = press(t, app, "t", "o", "r")

	if terms := fl.searchTerms(); len(terms) != 0 {
		t.Fatalf("search applied before the debounce wait: %v", terms)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(fl.searchTerms()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if diff := cmp.Diff([]string{"tor"}, fl.searchTerms()); diff != "" {
		t.Errorf("only the settled term should be applied (-want +got):\n%s", diff)
	}
	_ = app
}

func TestSearchEnterAppliesImmediately(t *testing.T) {
	app, fl := newTestApp(t, time.Hour)

	app = press(t, app, "/", "d", "e", "n", "enter")
	if app.Searching() {
		t.Error("enter should leave the search box")
	}
	if diff := cmp.Diff([]string{"den"}, fl.searchTerms()); diff != "" {
		t.Errorf("terms (-want +got):\n%s", diff)
	}

	app = press(t, app, "esc")
	if diff := cmp.Diff([]string{"den", ""}, fl.searchTerms()); diff != "" {
		t.Errorf("esc should clear the search (-want +got):\n%s", diff)
	}
}

func TestSearchKeysDoNotTriggerCommands(t *testing.T) {
	app, fl := newTestApp(t, time.Hour)

	press(t, app, "/", "n", "p", "q", "r")
	for _, c := range fl.callLog() {
		if c != "search" {
			t.Errorf("typing in the search box called %q", c)
		}
	}
}

func TestPagingAndSortKeys(t *testing.T) {
	app, fl := newTestApp(t, time.Hour)
	m, _ := app.Update(ViewUpdated{View: readyView()})
	app = m.(App)
	fl.view = readyView()

	app = press(t, app, "n", "right", "p", "+", "s", "s", "S", "c", "r")

	want := []string{
		"next",
		"next",
		"prev",
		"per_page",
		"sort id asc",
		"sort country_name asc",
		"toggle country_name",
		"clear",
		"search",
		"refresh",
	}
	if diff := cmp.Diff(want, fl.callLog()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if app.Current().Query.PerPage != 15 {
		t.Errorf("per page = %d, want 15", app.Current().Query.PerPage)
	}
}

func TestPerPageBounds(t *testing.T) {
	app, fl := newTestApp(t, time.Hour)
	fl.view.Query.PerPage = 5
	m, _ := app.Update(ViewUpdated{View: fl.view})
	app = m.(App)

	press(t, app, "-")
	if len(fl.callLog()) != 0 {
		t.Errorf("per page below 5 should be ignored, got %v", fl.callLog())
	}
}

func TestQuit(t *testing.T) {
	app, _ := newTestApp(t, time.Hour)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}

	_, cmd = app.Update(ControllerClosed{})
	if cmd == nil {
		t.Fatal("ControllerClosed should quit")
	}
}

func TestErrorAndStaleRendering(t *testing.T) {
	app, _ := newTestApp(t, time.Hour)

	v := readyView()
	v.State = controller.StateError
	v.Message = "Unable to reach the server. Showing saved data from Jan 2 15:04."
	v.Stale = true
	m, _ := app.Update(ViewUpdated{Type: controller.EventError, View: v})
	app = m.(App)

	out := app.View()
	for _, want := range []string{"Unable to reach the server", "saved data", "Canada"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLoadingStartsSpinner(t *testing.T) {
	app, _ := newTestApp(t, time.Hour)

	_, cmd := app.Update(ViewUpdated{Type: controller.EventStarted, View: controller.View{State: controller.StateLoading}})
	if cmd == nil {
		t.Error("loading should start the spinner")
	}
	_, cmd = app.Update(ViewUpdated{Type: controller.EventCompleted, View: readyView()})
	if cmd != nil {
		t.Error("ready should not tick the spinner")
	}
}

// sendRecorder collects messages sent to a program.
type sendRecorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *sendRecorder) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestForward(t *testing.T) {
	events := make(chan controller.Event, 2)
	events <- controller.Event{Type: controller.EventStarted}
	events <- controller.Event{Type: controller.EventCompleted, View: readyView()}
	close(events)

	rec := &sendRecorder{}
	Forward(context.Background(), rec, events)

	if len(rec.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(rec.msgs))
	}
	if vu, ok := rec.msgs[1].(ViewUpdated); !ok || vu.Type != controller.EventCompleted {
		t.Errorf("second message = %#v", rec.msgs[1])
	}
	if _, ok := rec.msgs[2].(ControllerClosed); !ok {
		t.Errorf("last message should be ControllerClosed, got %#v", rec.msgs[2])
	}
}

func TestForwardStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Forward(ctx, &sendRecorder{}, make(chan controller.Event))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}
