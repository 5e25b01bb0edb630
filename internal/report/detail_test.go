package report

import (
	"testing"

	"billview/internal/core"
)

func rows(n int) []core.Record {
	out := make([]core.Record, n)
	for i := range out {
		out[i] = core.Record{CenterName: "A", Allocated: float64(i + 1), Rate: 1}
	}
	return out
}

func TestPaginate_Boundaries(t *testing.T) {
	data := rows(23)
	tests := []struct {
		page, wantPage, wantRows, wantOffset int
	}{
		{1, 1, 10, 0},
		{2, 2, 10, 10},
		{3, 3, 3, 20},
		{4, 3, 3, 20},
		{100, 3, 3, 20},
		{0, 1, 10, 0},
		{-2, 1, 10, 0},
	}
	for _, tt := range tests {
		p := Paginate(data, tt.page, PageSize)
		if p.Number != tt.wantPage || len(p.Rows) != tt.wantRows || p.Offset != tt.wantOffset {
			t.Errorf("page %d: got number=%d rows=%d offset=%d", tt.page, p.Number, len(p.Rows), p.Offset)
		}
		if p.TotalPages != 3 || p.TotalRows != 23 {
			t.Errorf("page %d: totals %d/%d", tt.page, p.TotalPages, p.TotalRows)
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate(nil, 5, PageSize)
	if p.Number != 1 || p.TotalPages != 1 || len(p.Rows) != 0 {
		t.Fatalf("empty page = %+v", p)
	}
}

func TestPaginate_RowsCannotGrowIntoNextPage(t *testing.T) {
	data := rows(15)
	p := Paginate(data, 1, PageSize)
	p.Rows = append(p.Rows, core.Record{CenterName: "extra"})
	if data[10].CenterName == "extra" {
		t.Fatal("append on a page overwrote the following row")
	}
}

func TestDetailRows(t *testing.T) {
	items := []core.Record{
		{Allocated: 10, Sold: 0},
		{Allocated: 10, Sold: 10},
		{Allocated: 10, Sold: 12},
		{Allocated: 10, Sold: 3},
	}
	tests := []struct {
		filter DetailFilter
		want   int
	}{
		{DetailAllocated, 4},
		{DetailSold, 3},
		{DetailRemaining, 2},
		{ParseDetailFilter("bogus"), 4},
	}
	for _, tt := range tests {
		if got := len(DetailRows(items, tt.filter)); got != tt.want {
			t.Errorf("%s: %d rows, want %d", tt.filter, got, tt.want)
		}
	}
}

func TestBuildDetail_TotalsCoverFilteredRowsNotPage(t *testing.T) {
	items := rows(23)
	items[0].Sold = 1
	d := BuildDetail("A", items, DetailAllocated, 3)
	if d.Totals.Rows != 23 {
		t.Fatalf("totals rows = %d", d.Totals.Rows)
	}
	if d.Totals.Allocated != 276 {
		t.Fatalf("allocated total = %v", d.Totals.Allocated)
	}
	if len(d.Page.Rows) != 3 {
		t.Fatalf("page rows = %d", len(d.Page.Rows))
	}

	sold := BuildDetail("A", items, DetailSold, 1)
	if sold.Totals.Rows != 1 || sold.Totals.Sold != 1 || sold.Totals.Allocated != 1 {
		t.Fatalf("sold totals = %+v", sold.Totals)
	}
}
