package export

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"billview/internal/core"
	"billview/internal/report"
	"billview/web"
)

var printTemplate = template.Must(template.ParseFS(web.TemplatesFS, "templates/print_report.html"))

type htmlCell struct {
	Text    string
	Numeric bool
}

type htmlHeader struct {
	Label   string
	Numeric bool
}

type htmlDoc struct {
	Title    string
	Subtitle string
	Headers  []htmlHeader
	Rows     [][]htmlCell
	Footer   []htmlCell
}

// WriteHTML renders a standalone document that opens the print dialog on
// load. The footer totals the exported rows only.
func WriteHTML(w io.Writer, title string, rows []core.Record, cols []Column, firstSerial int) error {
	if len(cols) == 0 {
		return fmt.Errorf("export: no columns selected")
	}

	doc := htmlDoc{
		Title:    title,
		Subtitle: fmt.Sprintf("%d rows", len(rows)),
		Headers:  make([]htmlHeader, len(cols)),
		Rows:     make([][]htmlCell, 0, len(rows)),
		Footer:   make([]htmlCell, len(cols)),
	}
	for i, c := range cols {
		doc.Headers[i] = htmlHeader{Label: c.Header, Numeric: c.Numeric}
	}
	for i, r := range rows {
		line := make([]htmlCell, len(cols))
		for j, c := range cols {
			line[j] = htmlCell{Text: formatCell(c.Value(firstSerial+i, r)), Numeric: c.Numeric}
		}
		doc.Rows = append(doc.Rows, line)
	}

	totals := report.Total(rows)
	for i, c := range cols {
		if v, ok := c.Total(totals); ok {
			doc.Footer[i] = htmlCell{Text: formatNumber(v), Numeric: true}
		}
	}
	if doc.Footer[0].Text == "" {
		doc.Footer[0].Text = "Total"
	} else {
		doc.Footer[0].Text = "Total: " + doc.Footer[0].Text
	}

	if err := printTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render print document: %w", err)
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return formatNumber(x)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func formatNumber(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}
