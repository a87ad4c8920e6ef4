package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/fmconsole/internal/controller"
	"github.com/abelbrown/fmconsole/internal/export"
	"github.com/abelbrown/fmconsole/internal/fetch"
	"github.com/abelbrown/fmconsole/internal/filter"
	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/model"
)

type listOptions struct {
	search  string
	page    int
	perPage int
	sort    string
	eq      []string
	cont    []string
	ranges  []string
	json    bool
	offline bool
	export  string
}

func (c *cli) listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print one page of a list",
		Example: `  fmconsole list countries --search can
  fmconsole list sites --filter active=true --sort -name --page 2
  fmconsole list sites --range floor_area=1000..5000 --json
  fmconsole list home-loans --search approved --export loans.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.search, "search", "s", "", "free-text search")
	fs.IntVarP(&opts.page, "page", "p", 1, "page number")
	fs.IntVar(&opts.perPage, "per-page", 0, "records per page (default from config)")
	fs.StringVar(&opts.sort, "sort", "", `sort field, "-field" for descending`)
	fs.StringArrayVar(&opts.eq, "filter", nil, "field=value equality filter (repeatable)")
	fs.StringArrayVar(&opts.cont, "filter-cont", nil, "field=text contains filter (repeatable)")
	fs.StringArrayVar(&opts.ranges, "range", nil, "field=min..max numeric filter, either bound optional (repeatable)")
	fs.BoolVar(&opts.json, "json", false, "print the page's records as JSON")
	fs.BoolVar(&opts.offline, "offline", false, "show the saved snapshot without fetching")
	fs.StringVar(&opts.export, "export", "", "write every matching record (all pages) to a .csv, .json or .xlsx file")
	return cmd
}

func (c *cli) runList(ctx context.Context, out io.Writer, name string, opts listOptions) error {
	res, err := c.resource(name)
	if err != nil {
		return err
	}
	preds, err := parseFilters(opts.eq, opts.cont, opts.ranges)
	if err != nil {
		return err
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var lister controller.Lister = c.newFetcher()
	if opts.offline {
		lister = offlineLister{}
	}
	lc, err := controller.New(ctx, res, c.cfg.RequestContext(), lister, controller.WithSnapshots(st))
	if err != nil {
		return err
	}
	defer lc.Close()

	// Query first: in server mode nothing is fetched until Refresh.
	if opts.perPage > 0 {
		lc.SetPerPage(opts.perPage)
	}
	if opts.sort != "" {
		lc.SetSort(filter.ParseSort(opts.sort))
	}
	for field, p := range preds {
		lc.SetFilter(field, p)
	}
	lc.SetSearchTerm(opts.search)
	lc.SetPage(opts.page)

	v, err := load(ctx, lc)
	if err != nil && !v.HasData() {
		return err
	}

	if opts.export != "" {
		return exportList(ctx, out, lc, v, opts.export)
	}

	if opts.json {
		data, err := json.MarshalIndent(v.Page.Items, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, renderTable(lc.Resource(), v))
	fmt.Fprintln(out, footer(v))
	return nil
}

// offlineLister fails every fetch so the controller falls back to the
// saved snapshot.
type offlineLister struct{}

func (offlineLister) FetchList(_ context.Context, _ fetch.RequestContext, ep fetch.Endpoint, _ url.Values) (*fetch.RecordSet, error) {
	return nil, &fetch.Error{Kind: fetch.KindNetwork, URL: ep.Path, Err: errors.New("offline mode")}
}

// load refreshes lc and waits for the outcome. On failure the returned view
// may still hold saved data.
func load(ctx context.Context, lc *controller.ListController) (controller.View, error) {
	return await(ctx, lc, lc.Refresh)
}

// await runs start, which must begin a fetch, and waits for that fetch to
// finish. Events queued by earlier query changes are drained first so they
// cannot fill the buffer and push out the outcome.
func await(ctx context.Context, lc *controller.ListController, start func()) (controller.View, error) {
	events := lc.Subscribe()
	drain(events)
	start()
	for {
		select {
		case <-ctx.Done():
			return lc.View(), ctx.Err()
		case e, ok := <-events:
			if !ok {
				return lc.View(), errors.New("controller closed")
			}
			switch e.Type {
			case controller.EventCompleted:
				return e.View, nil
			case controller.EventError:
				return e.View, errors.New(e.View.Message)
			}
		}
	}
}

func drain(events <-chan controller.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// exportList writes every record matching the query to path. Server-paginated
// lists are fetched page by page from page 1.
func exportList(ctx context.Context, out io.Writer, lc *controller.ListController, v controller.View, path string) error {
	if _, err := export.FormatFor(path); err != nil {
		return err
	}
	records, err := allRecords(ctx, lc, v)
	if err != nil {
		return err
	}

	res := lc.Resource()
	var sample model.Record
	if len(records) > 0 {
		sample = records[0]
	}
	cols := res.ColumnsFor(sample)
	ecols := make([]export.Column, len(cols))
	for i, c := range cols {
		ecols[i] = export.Column{Key: c.Key, Title: c.Title}
	}

	if err := export.WriteFile(path, res.Title, ecols, records); err != nil {
		return err
	}
	logging.Info("list: exported", "resource", res.Name, "records", len(records), "path", path)

	line := fmt.Sprintf("exported %s records to %s", humanize.Comma(int64(len(records))), path)
	if v.Stale {
		line += " (saved " + humanize.Time(v.FetchedAt) + ")"
	}
	fmt.Fprintln(out, line)
	return nil
}

func allRecords(ctx context.Context, lc *controller.ListController, v controller.View) ([]model.Record, error) {
	records := lc.Visible()
	// Client mode, saved data, or a backend that ignored paging: the whole
	// set is already here.
	if !lc.Resource().ServerPaginated || v.Stale || len(records) >= v.Page.TotalCount {
		return records, nil
	}

	if lc.Query().Page != 1 {
		first, err := await(ctx, lc, func() { lc.SetPage(1) })
		if err != nil {
			return nil, fmt.Errorf("fetch page 1: %w", err)
		}
		v = first
		records = lc.Visible()
	}
	for p := 2; p <= v.Page.TotalPages; p++ {
		if _, err := await(ctx, lc, func() { lc.SetPage(p) }); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", p, err)
		}
		records = append(records, lc.Visible()...)
	}
	return records, nil
}

func renderTable(res controller.Resource, v controller.View) string {
	if len(v.Page.Items) == 0 {
		return "No records."
	}

	cols := res.ColumnsFor(v.Page.Items[0])
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Title
		if headers[i] == "" {
			headers[i] = c.Key
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range v.Page.Items {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = truncate(strings.Join(strings.Fields(model.Text(r.Get(c.Key))), " "), cellWidth(c))
		}
		t.Row(row...)
	}
	return t.Render()
}

// plainTable renders rows under headers without borders.
func plainTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().PaddingRight(2)
		}).
		Render()
}

func cellWidth(c controller.Column) int {
	if c.Width > 0 {
		return c.Width
	}
	return 30
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func footer(v controller.View) string {
	p := v.Page
	line := fmt.Sprintf("page %d of %d · %s records · %d per page",
		p.CurrentPage, p.TotalPages, humanize.Comma(int64(p.TotalCount)), p.PerPage)
	if v.Stale {
		line += " · saved " + humanize.Time(v.FetchedAt)
	}
	if v.Message != "" {
		line += "\n" + v.Message
	}
	return line
}

// parseFilters turns field=value flags into predicates.
func parseFilters(eq, cont, ranges []string) (map[string]filter.Predicate, error) {
	preds := make(map[string]filter.Predicate)

	for _, s := range eq {
		field, val, err := splitFilter(s)
		if err != nil {
			return nil, err
		}
		preds[field] = filter.Eq(val)
	}
	for _, s := range cont {
		field, val, err := splitFilter(s)
		if err != nil {
			return nil, err
		}
		preds[field] = filter.Cont(val)
	}
	for _, s := range ranges {
		field, val, err := splitFilter(s)
		if err != nil {
			return nil, err
		}
		r, err := parseRange(val)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		preds[field] = r
	}
	return preds, nil
}

func splitFilter(s string) (string, string, error) {
	field, val, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("filter %q: want field=value", s)
	}
	return field, val, nil
}

// parseRange reads "lo..hi", "lo.." or "..hi".
func parseRange(s string) (filter.Range, error) {
	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		return filter.Range{}, errors.New("want min..max")
	}
	var r filter.Range
	if lo = strings.TrimSpace(lo); lo != "" {
		f, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return filter.Range{}, fmt.Errorf("bad minimum: %w", err)
		}
		r.Min = &f
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		f, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return filter.Range{}, fmt.Errorf("bad maximum: %w", err)
		}
		r.Max = &f
	}
	if r.Min == nil && r.Max == nil {
		return filter.Range{}, errors.New("need at least one bound")
	}
	return r, nil
}
