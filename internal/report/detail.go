package report

import (
	"strings"

	"billview/internal/core"
)

// PageSize is the number of rows on a drill-down page.
const PageSize = 10

// DetailFilter narrows a group's rows in the drill-down table.
type DetailFilter string

const (
	DetailAllocated DetailFilter = "allocated"
	DetailSold      DetailFilter = "sold"
	DetailRemaining DetailFilter = "remaining"
)

// ParseDetailFilter never fails: unknown values keep every row.
func ParseDetailFilter(s string) DetailFilter {
	switch f := DetailFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case DetailSold, DetailRemaining:
		return f
	}
	return DetailAllocated
}

// DetailFilterFor is the drill-down filter matching a chart view.
func DetailFilterFor(v View) DetailFilter {
	switch v {
	case ViewSold:
		return DetailSold
	case ViewRemaining:
		return DetailRemaining
	}
	return DetailAllocated
}

// DetailRows applies the drill-down filter to a group's items.
func DetailRows(items []core.Record, f DetailFilter) []core.Record {
	switch f {
	case DetailSold:
		return Apply(items, FilterSet{}, HasSold)
	case DetailRemaining:
		return Apply(items, FilterSet{}, HasRemaining)
	}
	return Apply(items, FilterSet{})
}

// Totals sums quantities and values over a row set.
type Totals struct {
	Rows           int     `json:"rows"`
	Allocated      float64 `json:"allocated"`
	Sold           float64 `json:"sold"`
	Remaining      float64 `json:"remaining"`
	AllocatedValue float64 `json:"allocated_value"`
	SoldValue      float64 `json:"sold_value"`
	RemainingValue float64 `json:"remaining_value"`
}

func Total(rows []core.Record) Totals {
	t := Totals{Rows: len(rows)}
	for _, r := range rows {
		t.Allocated += r.Allocated
		t.Sold += r.Sold
		t.Remaining += r.Remaining()
		t.AllocatedValue += r.AllocatedValue()
		t.SoldValue += r.SoldValue()
		t.RemainingValue += r.RemainingValue()
	}
	return t
}

type Page struct {
	Number     int           `json:"page"`
	Size       int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	TotalRows  int           `json:"total_rows"`
	Offset     int           `json:"offset"`
	Rows       []core.Record `json:"rows"`
}

// Paginate returns page number of rows. Out of range page numbers clamp to
// the first or last page; an empty row set has a single empty page.
func Paginate(rows []core.Record, number, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	pages := (len(rows) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	start := (number - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return Page{
		Number:     number,
		Size:       size,
		TotalPages: pages,
		TotalRows:  len(rows),
		Offset:     start,
		Rows:       rows[start:end:end],
	}
}

// Detail is one rendered drill-down table.
type Detail struct {
	Group  string       `json:"group"`
	Filter DetailFilter `json:"filter"`
	Totals Totals       `json:"totals"`
	Page   Page         `json:"page"`
}

// BuildDetail filters the group's rows, totals the filtered set and cuts
// out the requested page.
func BuildDetail(group string, items []core.Record, f DetailFilter, page int) Detail {
	rows := DetailRows(items, f)
	return Detail{
		Group:  group,
		Filter: f,
		Totals: Total(rows),
		Page:   Paginate(rows, page, PageSize),
	}
}
