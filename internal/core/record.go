package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one billing line as served by the billing-items endpoint.
// Quantities and rate are coerced on decode; unparseable values become 0.
type Record struct {
	CenterName      string
	SourceOfReceipt string
	SchemeName      string
	Component       string
	InvestmentName  string
	Unit            string

	Allocated float64 // allocated_quantity
	Sold      float64 // updated_quantity
	Rate      float64

	// CoercionFailures counts numeric fields that fell back to 0 on decode.
	CoercionFailures int
}

// Value returns the record's value for a categorical field.
func (r Record) Value(f Field) string {
	if get, ok := fieldAccessors[f]; ok {
		return get(r)
	}
	return ""
}

// Remaining may be negative when more was sold than allocated.
func (r Record) Remaining() float64 { return r.Allocated - r.Sold }

func (r Record) AllocatedValue() float64 { return r.Allocated * r.Rate }

func (r Record) SoldValue() float64 { return r.Sold * r.Rate }

func (r Record) RemainingValue() float64 { return r.AllocatedValue() - r.SoldValue() }

type recordJSON struct {
	CenterName      flexString `json:"center_name"`
	SourceOfReceipt flexString `json:"source_of_receipt"`
	SchemeName      flexString `json:"scheme_name"`
	Component       flexString `json:"component"`
	InvestmentName  flexString `json:"investment_name"`
	Unit            flexString `json:"unit"`
	Allocated       flexNumber `json:"allocated_quantity"`
	Sold            flexNumber `json:"updated_quantity"`
	Rate            flexNumber `json:"rate"`
}

// UnmarshalJSON decodes a flat billing row, tolerating string numerics.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		CenterName:      string(raw.CenterName),
		SourceOfReceipt: string(raw.SourceOfReceipt),
		SchemeName:      string(raw.SchemeName),
		Component:       string(raw.Component),
		InvestmentName:  string(raw.InvestmentName),
		Unit:            string(raw.Unit),
		Allocated:       raw.Allocated.value,
		Sold:            raw.Sold.value,
		Rate:            raw.Rate.value,
	}
	for _, n := range []flexNumber{raw.Allocated, raw.Sold, raw.Rate} {
		if n.failed {
			r.CoercionFailures++
		}
	}
	return nil
}

// MarshalJSON writes the record back in the upstream shape plus derived values.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CenterName      string  `json:"center_name"`
		SourceOfReceipt string  `json:"source_of_receipt"`
		SchemeName      string  `json:"scheme_name"`
		Component       string  `json:"component"`
		InvestmentName  string  `json:"investment_name"`
		Unit            string  `json:"unit"`
		Allocated       float64 `json:"allocated_quantity"`
		Sold            float64 `json:"updated_quantity"`
		Rate            float64 `json:"rate"`
		Remaining       float64 `json:"remaining_quantity"`
		AllocatedValue  float64 `json:"allocated_value"`
		SoldValue       float64 `json:"sold_value"`
		RemainingValue  float64 `json:"remaining_value"`
	}{
		r.CenterName, r.SourceOfReceipt, r.SchemeName, r.Component, r.InvestmentName, r.Unit,
		r.Allocated, r.Sold, r.Rate,
		r.Remaining(), r.AllocatedValue(), r.SoldValue(), r.RemainingValue(),
	})
}

// ParseQuantity coerces a loosely formatted number. The boolean reports
// whether parsing succeeded; on failure, including values outside the
// float64 range, the value is 0.
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return Finite(d.InexactFloat64())
}

// Finite reports whether v is usable in totals; Inf and NaN become 0.
func Finite(v float64) (float64, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

type flexNumber struct {
	value  float64
	failed bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = flexNumber{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = flexNumber{failed: true}
			return nil
		}
		v, ok := ParseQuantity(s)
		*n = flexNumber{value: v, failed: !ok}
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		*n = flexNumber{value: v, failed: err != nil}
		if err != nil {
			n.value = 0
		}
	}
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	// numbers and booleans are kept in their literal form
	*s = flexString(string(data))
	return nil
}

// CountCoercionFailures sums the decode failures of a batch.
func CountCoercionFailures(records []Record) int {
	n := 0
	for _, r := range records {
		n += r.CoercionFailures
	}
	return n
}
