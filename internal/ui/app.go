package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/fmconsole/internal/controller"
	"github.com/abelbrown/fmconsole/internal/debounce"
	"github.com/abelbrown/fmconsole/internal/model"
)

const (
	perPageStep  = 5
	maxPerPage   = 100
	autoColWidth = 18
	// title, search, pager, status and help lines
	chromeLines = 5
)

// List is the part of a list controller the screen drives.
// *controller.ListController implements it.
type List interface {
	View() controller.View
	Refresh()
	SetSearchTerm(term string)
	NextPage()
	PrevPage()
	SetPerPage(n int)
	SetSort(key string, dir model.SortDirection)
	ToggleSort(key string)
	ClearFilters()
}

// App is the root Bubble Tea model for one list screen.
// IMPORTANT: App does not own the controller's state. It renders the last
// View it was sent and calls List for every change.
type App struct {
	list   List
	res    controller.Resource
	search *debounce.Func[string]

	columns []controller.Column
	input   textinput.Model
	table   table.Model
	pager   paginator.Model
	spinner spinner.Model
	help    help.Model

	view      controller.View
	width     int
	height    int
	ready     bool
	searching bool
	spinning  bool
}

// NewApp creates the screen for res. Search keystrokes reach
// list.SetSearchTerm after wait of typing silence.
func NewApp(list List, res controller.Resource, wait time.Duration) App {
	ti := textinput.New()
	ti.Placeholder = "search " + strings.ToLower(title(res))
	ti.Prompt = "/ "
	ti.PromptStyle = SearchBarPrompt
	ti.CharLimit = 128

	p := paginator.New()
	p.Type = paginator.Dots
	p.ActiveDot = SearchBarPrompt.Render("•")
	p.InactiveDot = StatusBarText.Render("•")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusBarKey

	t := table.New(table.WithFocused(true))
	t.SetStyles(tableStyles())

	a := App{
		list:    list,
		res:     res,
		search:  debounce.New(wait, list.SetSearchTerm),
		input:   ti,
		table:   t,
		pager:   p,
		spinner: sp,
		help:    help.New(),
		view:    list.View(),
	}
	if len(res.Columns) > 0 {
		a.setColumns(res.Columns)
	}
	a.sync()
	return a
}

// Init starts the first fetch.
func (a App) Init() tea.Cmd {
	list := a.list
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		list.Refresh()
		return nil
	})
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.resize()
		return a, nil

	case ViewUpdated:
		a.view = msg.View
		a.sync()
		return a, a.startSpinner()

	case ControllerClosed:
		return a, tea.Quit

	case spinner.TickMsg:
		if a.view.State != controller.StateLoading {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.searching {
		return a.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		a.search.Stop()
		return a, tea.Quit

	case key.Matches(msg, keys.Search):
		a.searching = true
		a.input.Focus()
		return a, textinput.Blink

	case key.Matches(msg, keys.Escape):
		if a.input.Value() != "" {
			a.clearSearch()
		}

	case key.Matches(msg, keys.Up), key.Matches(msg, keys.Down):
		var cmd tea.Cmd
		a.table, cmd = a.table.Update(msg)
		return a, cmd

	case key.Matches(msg, keys.NextPage):
		a.list.NextPage()

	case key.Matches(msg, keys.PrevPage):
		a.list.PrevPage()

	case key.Matches(msg, keys.MorePerPage):
		if n := a.view.Query.PerPage + perPageStep; n <= maxPerPage {
			a.list.SetPerPage(n)
		}

	case key.Matches(msg, keys.LessPerPage):
		if n := a.view.Query.PerPage - perPageStep; n >= perPageStep {
			a.list.SetPerPage(n)
		}

	case key.Matches(msg, keys.SortColumn):
		if next := a.nextSortColumn(); next != "" {
			a.list.SetSort(next, model.Asc)
		}

	case key.Matches(msg, keys.SortFlip):
		if k := a.view.Query.SortKey; k != "" {
			a.list.ToggleSort(k)
		}

	case key.Matches(msg, keys.Clear):
		a.list.ClearFilters()
		a.clearSearch()

	case key.Matches(msg, keys.Refresh):
		a.list.Refresh()

	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.resize()
		return a, nil

	default:
		return a, nil
	}

	a.view = a.list.View()
	a.sync()
	return a, a.startSpinner()
}

// handleSearchKey routes keys to the search box while it has focus.
func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		a.searching = false
		a.input.Blur()
		a.clearSearch()
		a.view = a.list.View()
		a.sync()
		return a, nil

	case key.Matches(msg, keys.Enter):
		a.searching = false
		a.input.Blur()
		a.search.Flush()
		a.view = a.list.View()
		a.sync()
		return a, a.startSpinner()
	}

	old := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if v := a.input.Value(); v != old {
		a.search.Call(v)
	}
	return a, cmd
}

// clearSearch empties the box and applies the empty term now, replacing
// any pending keystroke.
func (a *App) clearSearch() {
	a.input.SetValue("")
	a.search.Call("")
	a.search.Flush()
}

func (a *App) startSpinner() tea.Cmd {
	if a.view.State != controller.StateLoading || a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a App) nextSortColumn() string {
	if len(a.columns) == 0 {
		return ""
	}
	next := 0
	for i, c := range a.columns {
		if c.Key == a.view.Query.SortKey {
			next = (i + 1) % len(a.columns)
			break
		}
	}
	return a.columns[next].Key
}

func (a *App) setColumns(cols []controller.Column) {
	a.columns = cols
	tc := make([]table.Column, len(cols))
	for i, c := range cols {
		name := c.Title
		if name == "" {
			name = c.Key
		}
		width := c.Width
		if width <= 0 {
			width = autoColWidth
		}
		tc[i] = table.Column{Title: name, Width: width}
	}
	a.table.SetRows(nil)
	a.table.SetColumns(tc)
}

// sync copies the current view into the widgets.
func (a *App) sync() {
	items := a.view.Page.Items
	if len(a.columns) == 0 && len(items) > 0 {
		a.setColumns(a.res.ColumnsFor(items[0]))
	}

	rows := make([]table.Row, len(items))
	for i, r := range items {
		row := make(table.Row, len(a.columns))
		for j, c := range a.columns {
			row[j] = cell(r.Get(c.Key))
		}
		rows[i] = row
	}
	a.table.SetRows(rows)
	if a.table.Cursor() >= len(rows) {
		a.table.SetCursor(max(0, len(rows)-1))
	}

	a.pager.SetTotalPages(max(1, a.view.Page.TotalPages))
	a.pager.Page = max(0, a.view.Page.CurrentPage-1)
}

func (a *App) resize() {
	a.table.SetWidth(a.width)
	a.table.SetHeight(max(3, a.height-chromeLines-a.helpHeight()+1))
	a.input.Width = max(10, a.width-30)
	a.help.Width = a.width
}

func (a App) helpHeight() int {
	return lipgloss.Height(a.help.View(keys))
}

func cell(v any) string {
	s := model.Text(v)
	return strings.Join(strings.Fields(s), " ")
}

func title(res controller.Resource) string {
	if res.Title != "" {
		return res.Title
	}
	return res.Name
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTitle(),
		a.renderSearch(),
		a.renderBody(),
		a.renderPager(),
		a.renderStatus(),
		HelpStyle.Render(a.help.View(keys)),
	)
}

func (a App) renderTitle() string {
	var meta []string
	q := a.view.Query
	if q.SortKey != "" {
		meta = append(meta, fmt.Sprintf("sorted by %s %s", q.SortKey, q.SortDirection))
	}
	if len(q.Filters) > 0 {
		fields := make([]string, 0, len(q.Filters))
		for f, p := range q.Filters {
			fields = append(fields, f+" "+p.String())
		}
		sort.Strings(fields)
		meta = append(meta, "filters: "+strings.Join(fields, ", "))
	}
	if a.res.ServerPaginated {
		meta = append(meta, "server paging")
	}
	return TitleBar.Render(title(a.res)) + TitleBarMeta.Render(strings.Join(meta, " · "))
}

func (a App) renderSearch() string {
	if !a.searching && a.input.Value() == "" {
		return HelpStyle.Render("press / to search")
	}
	count := SearchBarCount.Render(fmt.Sprintf("%s matches", humanize.Comma(int64(a.view.Page.TotalCount))))
	if a.search.Pending() {
		count = SearchBarCount.Render("…")
	}
	return SearchBar.Render(a.input.View()) + " " + count
}

func (a App) renderBody() string {
	if len(a.view.Page.Items) > 0 {
		return a.table.View()
	}
	switch {
	case a.view.State == controller.StateLoading || a.view.State == controller.StateIdle:
		return EmptyStyle.Render("Loading " + strings.ToLower(title(a.res)) + "...")
	case a.view.State == controller.StateError:
		return EmptyStyle.Render("Nothing to show.")
	default:
		return EmptyStyle.Render("No records match.")
	}
}

func (a App) renderPager() string {
	p := a.view.Page
	text := fmt.Sprintf("page %d of %d · %s records · %d per page",
		p.CurrentPage, p.TotalPages, humanize.Comma(int64(p.TotalCount)), p.PerPage)
	return SearchBar.Render(a.pager.View()) + StatusBarText.Render(text)
}

func (a App) renderStatus() string {
	var parts []string

	switch a.view.State {
	case controller.StateLoading:
		parts = append(parts, a.spinner.View()+StatusBarKey.Render(" loading"))
	default:
		parts = append(parts, StatusBarKey.Render(string(a.view.State)))
	}

	if a.view.Stale {
		parts = append(parts, StaleStyle.Render("saved data"))
	}
	if !a.view.FetchedAt.IsZero() {
		parts = append(parts, StatusBarText.Render("updated "+humanize.Time(a.view.FetchedAt)))
	}

	bar := StatusBar.Width(max(0, a.width)).Render(strings.Join(parts, "  "))
	if a.view.Message != "" {
		return lipgloss.JoinVertical(lipgloss.Left, ErrorStyle.Render(a.view.Message), bar)
	}
	return bar
}

// Current returns the last view the screen rendered from (for testing).
func (a App) Current() controller.View {
	return a.view
}

// Searching reports whether the search box has focus (for testing).
func (a App) Searching() bool {
	return a.searching
}

// Rows returns the table rows (for testing).
func (a App) Rows() []table.Row {
	return a.table.Rows()
}
