package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"billview/internal/core"
)

type column int

const (
	colCenter column = iota
	colSource
	colScheme
	colComponent
	colInvestment
	colUnit
	colAllocated
	colSold
	colRate
	numColumns
)

// headerNames maps normalized header text to a column. Both the API keys
// and the labels people type into the sheet are accepted.
var headerNames = map[string]column{
	"center_name":        colCenter,
	"center":             colCenter,
	"source_of_receipt":  colSource,
	"source":             colSource,
	"scheme_name":        colScheme,
	"scheme":             colScheme,
	"component":          colComponent,
	"investment_name":    colInvestment,
	"investment":         colInvestment,
	"unit":               colUnit,
	"allocated_quantity": colAllocated,
	"allocated":          colAllocated,
	"updated_quantity":   colSold,
	"sold_quantity":      colSold,
	"sold":               colSold,
	"rate":               colRate,
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func parseRecords(values [][]interface{}) ([]core.Record, error) {
	if len(values) == 0 {
		return []core.Record{}, nil
	}
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, cell := range values[0] {
		if col, ok := headerNames[normalizeHeader(cellString(cell))]; ok && idx[col] < 0 {
			idx[col] = i
		}
	}
	if idx[colAllocated] < 0 || idx[colCenter] < 0 {
		return nil, errors.New("header row must name at least center and allocated quantity")
	}

	out := make([]core.Record, 0, len(values)-1)
	for _, row := range values[1:] {
		if blankRow(row) {
			continue
		}
		r := core.Record{
			CenterName:      textAt(row, idx[colCenter]),
			SourceOfReceipt: textAt(row, idx[colSource]),
			SchemeName:      textAt(row, idx[colScheme]),
			Component:       textAt(row, idx[colComponent]),
			InvestmentName:  textAt(row, idx[colInvestment]),
			Unit:            textAt(row, idx[colUnit]),
		}
		var ok bool
		if r.Allocated, ok = numberAt(row, idx[colAllocated]); !ok {
			r.CoercionFailures++
		}
		if r.Sold, ok = numberAt(row, idx[colSold]); !ok {
			r.CoercionFailures++
		}
		if r.Rate, ok = numberAt(row, idx[colRate]); !ok {
			r.CoercionFailures++
		}
		out = append(out, r)
	}
	return out, nil
}

func blankRow(row []interface{}) bool {
	for _, c := range row {
		if strings.TrimSpace(cellString(c)) != "" {
			return false
		}
	}
	return true
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func textAt(row []interface{}, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(cellString(row[i]))
}

// numberAt is 0 for missing cells; ok is false for unparseable text and
// non-finite numbers.
func numberAt(row []interface{}, i int) (float64, bool) {
	if i < 0 || i >= len(row) {
		return 0, true
	}
	if f, isNum := row[i].(float64); isNum {
		return core.Finite(f)
	}
	return core.ParseQuantity(cellString(row[i]))
}
