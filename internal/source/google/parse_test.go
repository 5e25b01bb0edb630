package google

import (
	"math"
	"testing"
)

func TestParseRecords(t *testing.T) {
	values := [][]interface{}{
		{"Center Name", "Scheme", "Unit", "Allocated Quantity", "Updated Quantity", "Rate", "Notes"},
		{"Sahaspur", "Kisan", "kg", 100.0, "40", 2.0, "ok"},
		{"", "", "", "", "", ""},
		{"Raipur", "Kisan", "kg", "1,200", "abc"},
		{"Doiwala"},
	}
	recs, err := parseRecords(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if r := recs[0]; r.CenterName != "Sahaspur" || r.Allocated != 100 || r.Sold != 40 || r.Rate != 2 || r.SchemeName != "Kisan" {
		t.Fatalf("first = %+v", r)
	}
	if r := recs[1]; r.Allocated != 1200 || r.Sold != 0 || r.Rate != 0 || r.CoercionFailures != 1 {
		t.Fatalf("second = %+v", r)
	}
	if r := recs[2]; r.CenterName != "Doiwala" || r.Allocated != 0 || r.CoercionFailures != 0 {
		t.Fatalf("third = %+v", r)
	}
}

func TestParseRecords_NonFiniteNumbers(t *testing.T) {
	values := [][]interface{}{
		{"Center Name", "Allocated Quantity", "Updated Quantity", "Rate"},
		{"Sahaspur", math.Inf(1), "1e400", 2.0},
	}
	recs, err := parseRecords(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r := recs[0]; r.Allocated != 0 || r.Sold != 0 || r.Rate != 2 || r.CoercionFailures != 2 {
		t.Fatalf("record = %+v", r)
	}
}

func TestParseRecords_ApiKeyHeaders(t *testing.T) {
	values := [][]interface{}{
		{"center_name", "source_of_receipt", "component", "investment_name", "allocated_quantity", "updated_quantity", "rate"},
		{"A", "State", "Seeds", "Capex", 5.0, 1.0, 3.0},
	}
	recs, err := parseRecords(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r := recs[0]; r.SourceOfReceipt != "State" || r.Component != "Seeds" || r.InvestmentName != "Capex" || r.RemainingValue() != 12 {
		t.Fatalf("record = %+v", r)
	}
}

func TestParseRecords_BadHeader(t *testing.T) {
	if _, err := parseRecords([][]interface{}{{"foo", "bar"}, {1.0, 2.0}}); err == nil {
		t.Fatal("expected header error")
	}
	recs, err := parseRecords(nil)
	if err != nil || len(recs) != 0 {
		t.Fatalf("empty sheet: %v %v", recs, err)
	}
}
