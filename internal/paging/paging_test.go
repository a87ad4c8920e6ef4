package paging

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate25By10(t *testing.T) {
	items := seq(25)

	p1 := Paginate(items, 1, 10)
	if len(p1.Items) != 10 {
		t.Errorf("page 1: expected 10 items, got %d", len(p1.Items))
	}
	if p1.TotalPages != 3 {
		t.Errorf("expected 3 total pages, got %d", p1.TotalPages)
	}
	if p1.HasPrev || !p1.HasNext {
		t.Errorf("page 1: unexpected HasPrev=%v HasNext=%v", p1.HasPrev, p1.HasNext)
	}

	p3 := Paginate(items, 3, 10)
	if len(p3.Items) != 5 {
		t.Errorf("page 3: expected 5 items, got %d", len(p3.Items))
	}
	if p3.Items[0] != 21 || p3.Items[4] != 25 {
		t.Errorf("page 3: unexpected items %v", p3.Items)
	}
	if !p3.HasPrev || p3.HasNext {
		t.Errorf("page 3: unexpected HasPrev=%v HasNext=%v", p3.HasPrev, p3.HasNext)
	}

	p5 := Paginate(items, 5, 10)
	if p5.CurrentPage != 3 {
		t.Errorf("page 5 should clamp to 3, got %d", p5.CurrentPage)
	}
	if diff := cmp.Diff(p3.Items, p5.Items); diff != "" {
		t.Errorf("clamped page differs from page 3 (-want +got):\n%s", diff)
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]string{}, 4, 10)
	if p.TotalPages != 1 {
		t.Errorf("expected 1 total page for empty input, got %d", p.TotalPages)
	}
	if p.CurrentPage != 1 {
		t.Errorf("expected current page 1, got %d", p.CurrentPage)
	}
	if len(p.Items) != 0 {
		t.Errorf("expected no items, got %d", len(p.Items))
	}
	if p.HasNext || p.HasPrev {
		t.Error("empty page should have neither next nor prev")
	}
}

func TestPaginatePartitions(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 25, 100, 101} {
		for _, perPage := range []int{1, 3, 10, 50} {
			items := seq(n)
			first := Paginate(items, 1, perPage)
			if first.TotalPages < 1 {
				t.Fatalf("n=%d perPage=%d: TotalPages < 1", n, perPage)
			}

			var joined []int
			for page := 1; page <= first.TotalPages; page++ {
				joined = append(joined, Paginate(items, page, perPage).Items...)
			}
			if len(joined) == 0 {
				joined = []int{}
			}
			if diff := cmp.Diff(items, joined); diff != "" {
				t.Errorf("n=%d perPage=%d: concatenated pages differ (-want +got):\n%s", n, perPage, diff)
			}
		}
	}
}

func TestPaginateNonPositivePerPage(t *testing.T) {
	p := Paginate(seq(25), 1, 0)
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per page %d, got %d", DefaultPerPage, p.PerPage)
	}
	if len(p.Items) != DefaultPerPage {
		t.Errorf("expected %d items, got %d", DefaultPerPage, len(p.Items))
	}
}

func TestPaginateNegativePage(t *testing.T) {
	p := Paginate(seq(5), -3, 2)
	if p.CurrentPage != 1 {
		t.Errorf("expected clamp to 1, got %d", p.CurrentPage)
	}
}

func TestFromMeta(t *testing.T) {
	tests := []struct {
		name      string
		items     []int
		meta      Meta
		page      int
		perPage   int
		wantPage  int
		wantPages int
		wantCount int
		wantNext  bool
	}{
		{
			name:      "full metadata",
			items:     seq(10),
			meta:      Meta{CurrentPage: 2, PerPage: 10, TotalPages: 4, TotalCount: 37},
			page:      2,
			perPage:   10,
			wantPage:  2,
			wantPages: 4,
			wantCount: 37,
			wantNext:  true,
		},
		{
			name:      "count only",
			items:     seq(5),
			meta:      Meta{TotalCount: 25},
			page:      3,
			perPage:   10,
			wantPage:  3,
			wantPages: 3,
			wantCount: 25,
		},
		{
			name:      "no metadata",
			items:     seq(4),
			page:      1,
			perPage:   10,
			wantPage:  1,
			wantPages: 1,
			wantCount: 4,
		},
		{
			name:      "backend page beyond total clamps",
			items:     nil,
			meta:      Meta{CurrentPage: 9, PerPage: 10, TotalPages: 2, TotalCount: 15},
			page:      9,
			perPage:   10,
			wantPage:  2,
			wantPages: 2,
			wantCount: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromMeta(tt.items, tt.meta, tt.page, tt.perPage)
			if p.CurrentPage != tt.wantPage {
				t.Errorf("CurrentPage = %d, want %d", p.CurrentPage, tt.wantPage)
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.TotalCount != tt.wantCount {
				t.Errorf("TotalCount = %d, want %d", p.TotalCount, tt.wantCount)
			}
			if p.HasNext != tt.wantNext {
				t.Errorf("HasNext = %v, want %v", p.HasNext, tt.wantNext)
			}
			if p.Items == nil {
				t.Error("Items should never be nil")
			}
		})
	}
}

func TestTotalPagesLargePerPage(t *testing.T) {
	tests := []struct {
		count, perPage, want int
	}{
		{5, math.MaxInt, 1},
		{math.MaxInt, math.MaxInt, 1},
		{math.MaxInt, math.MaxInt - 1, 2},
		{math.MaxInt, 1, math.MaxInt},
		{0, math.MaxInt, 1},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.count, tt.perPage); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.count, tt.perPage, got, tt.want)
		}
	}

	p := Paginate(seq(5), 1, math.MaxInt)
	if p.TotalPages != 1 || p.CurrentPage != 1 || len(p.Items) != 5 || p.HasNext {
		t.Errorf("huge per page: got TotalPages=%d CurrentPage=%d items=%d HasNext=%v",
			p.TotalPages, p.CurrentPage, len(p.Items), p.HasNext)
	}
	p = Paginate(seq(5), math.MaxInt, math.MaxInt)
	if p.CurrentPage != 1 || len(p.Items) != 5 {
		t.Errorf("huge page and per page: got CurrentPage=%d items=%d", p.CurrentPage, len(p.Items))
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ page, total, want int }{
		{0, 3, 1},
		{1, 3, 1},
		{3, 3, 3},
		{4, 3, 3},
		{2, 0, 1},
	}
	for _, c := range cases {
		if got := Clamp(c.page, c.total); got != c.want {
			t.Errorf("Clamp(%d, %d) = %d, want %d", c.page, c.total, got, c.want)
		}
	}
}
