// Package export renders drill-down rows as an Excel workbook or a
// printable HTML document.
package export

import (
	"fmt"
	"strings"

	"billview/internal/core"
	"billview/internal/report"
)

// Column is one exportable table column. Header matches the label shown in
// the detail table.
type Column struct {
	Key     string
	Header  string
	Width   float64
	Numeric bool

	value func(serial int, r core.Record) any
	total func(t report.Totals) (float64, bool)
}

// Value returns the cell value for r printed at the given serial number.
func (c Column) Value(serial int, r core.Record) any { return c.value(serial, r) }

// Total returns the footer value for the column, if it has one.
func (c Column) Total(t report.Totals) (float64, bool) {
	if c.total == nil {
		return 0, false
	}
	return c.total(t)
}

func textColumn(f core.Field, width float64) Column {
	return Column{
		Key:    string(f),
		Header: f.Label(),
		Width:  width,
		value:  func(_ int, r core.Record) any { return r.Value(f) },
	}
}

func numberColumn(key, header string, width float64, v func(core.Record) float64, t func(report.Totals) float64) Column {
	c := Column{
		Key:     key,
		Header:  header,
		Width:   width,
		Numeric: true,
		value:   func(_ int, r core.Record) any { return v(r) },
	}
	if t != nil {
		c.total = func(tt report.Totals) (float64, bool) { return t(tt), true }
	}
	return c
}

var columns = []Column{
	{
		Key:    "serial",
		Header: "S.No.",
		Width:  8,
		value:  func(serial int, _ core.Record) any { return serial },
	},
	textColumn(core.FieldCenter, 25),
	textColumn(core.FieldSource, 20),
	textColumn(core.FieldScheme, 25),
	textColumn(core.FieldComponent, 20),
	textColumn(core.FieldInvestment, 30),
	textColumn(core.FieldUnit, 10),
	numberColumn("rate", "Rate", 12, func(r core.Record) float64 { return r.Rate }, nil),
	numberColumn("allocated_quantity", "Allocated Quantity", 18,
		func(r core.Record) float64 { return r.Allocated },
		func(t report.Totals) float64 { return t.Allocated }),
	numberColumn("sold_quantity", "Sold Quantity", 15,
		func(r core.Record) float64 { return r.Sold },
		func(t report.Totals) float64 { return t.Sold }),
	numberColumn("remaining_quantity", "Remaining Quantity", 18,
		func(r core.Record) float64 { return r.Remaining() },
		func(t report.Totals) float64 { return t.Remaining }),
	numberColumn("allocated_value", "Allocated Value", 18,
		func(r core.Record) float64 { return r.AllocatedValue() },
		func(t report.Totals) float64 { return t.AllocatedValue }),
	numberColumn("sold_value", "Sold Value", 15,
		func(r core.Record) float64 { return r.SoldValue() },
		func(t report.Totals) float64 { return t.SoldValue }),
	numberColumn("remaining_value", "Remaining Value", 18,
		func(r core.Record) float64 { return r.RemainingValue() },
		func(t report.Totals) float64 { return t.RemainingValue }),
}

// Columns returns every exportable column in table order.
func Columns() []Column {
	return append([]Column(nil), columns...)
}

// ParseColumns resolves selected column keys. The result keeps table order
// regardless of the order of keys; an empty selection means all columns.
func ParseColumns(keys []string) ([]Column, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		for _, part := range strings.Split(k, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if f, err := core.ParseField(part); err == nil {
				part = string(f)
			}
			if !known(part) {
				return nil, fmt.Errorf("unknown column %q", part)
			}
			want[part] = true
		}
	}
	if len(want) == 0 {
		return Columns(), nil
	}
	out := make([]Column, 0, len(want))
	for _, c := range columns {
		if want[c.Key] {
			out = append(out, c)
		}
	}
	return out, nil
}

func known(key string) bool {
	for _, c := range columns {
		if c.Key == key {
			return true
		}
	}
	return false
}
