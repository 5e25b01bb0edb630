package report

import (
	"math"
	"testing"

	"billview/internal/core"
)

func TestScaleFor(t *testing.T) {
	tests := []struct {
		max     float64
		mode    Mode
		divisor float64
		label   string
	}{
		{25_000_000, ModeQuantity, 1e7, "Crore"},
		{10_000_000, ModeValue, 1e7, "₹ Crore"},
		{9_999_999, ModeQuantity, 1e5, "Lakh"},
		{100_000, ModeValue, 1e5, "₹ Lakh"},
		{1_000, ModeQuantity, 1e3, "Thousand"},
		{999, ModeQuantity, 1, "Units"},
		{999, ModeValue, 1, "₹"},
		{-250_000, ModeValue, 1e5, "₹ Lakh"},
		{0, ModeQuantity, 1, "Units"},
	}
	for _, tt := range tests {
		s := ScaleFor(tt.max, tt.mode)
		if s.Divisor != tt.divisor || s.Label != tt.label {
			t.Errorf("ScaleFor(%v,%s) = %+v", tt.max, tt.mode, s)
		}
	}
}

func TestToSeries_PercentagesSumTo100(t *testing.T) {
	slices := []Slice{{Name: "a", Value: 1}, {Name: "b", Value: 1}, {Name: "c", Value: 1}, {Name: "d", Value: 7.25}}
	s := ToSeries(slices, ViewAllocated, ModeQuantity)
	var sum float64
	for _, p := range s.Points {
		sum += p.Percent
	}
	if math.Abs(sum-100) > 0.005*float64(len(slices)) {
		t.Fatalf("sum of percentages = %v", sum)
	}
	if s.SingleGroup || !s.ShowLegend {
		t.Fatal("multi-group series should show a legend")
	}
}

func TestToSeries_ZeroTotal(t *testing.T) {
	s := ToSeries([]Slice{{Name: "a", Value: 0}, {Name: "b", Value: 0}}, ViewSold, ModeValue)
	for _, p := range s.Points {
		if p.Percent != 0 || math.IsNaN(p.Percent) {
			t.Fatalf("percent = %v", p.Percent)
		}
	}
	if Percent(5, 0) != 0 {
		t.Fatal("Percent should guard a zero total")
	}
}

func TestToSeries_SharedScale(t *testing.T) {
	s := ToSeries([]Slice{{Name: "big", Value: 2_500_000}, {Name: "small", Value: 500}}, ViewAllocated, ModeValue)
	if s.Scale.Divisor != 1e5 {
		t.Fatalf("divisor = %v", s.Scale.Divisor)
	}
	if s.Points[0].Scaled != 25 || s.Points[1].Scaled != 0.005 {
		t.Fatalf("scaled = %v, %v", s.Points[0].Scaled, s.Points[1].Scaled)
	}
}

func TestToSeries_SingleGroup(t *testing.T) {
	recs := []core.Record{
		{CenterName: "Only", Allocated: 3, Rate: 1},
		{CenterName: "Only", Allocated: 4, Rate: 1},
	}
	groups := Aggregate(recs, core.FieldCenter)
	if len(groups) != 1 {
		t.Fatalf("groups = %d", len(groups))
	}
	s := ToSeries(Rank(groups, MetricSelector(ViewAllocated, ModeQuantity)), ViewAllocated, ModeQuantity)
	if !s.SingleGroup || s.ShowLegend {
		t.Fatalf("single group flags = %v/%v", s.SingleGroup, s.ShowLegend)
	}
	if s.Points[0].Percent != 100 || s.Points[0].Count != 2 {
		t.Fatalf("point = %+v", s.Points[0])
	}
}

func TestToComparison(t *testing.T) {
	triplets := Compare(Aggregate(sampleRecords(), core.FieldCenter), ModeValue)
	c := ToComparison(triplets, ModeValue)
	if c.Scale.Divisor != 1 {
		t.Fatalf("divisor = %v", c.Scale.Divisor)
	}
	if c.Points[0].Name != "A" {
		t.Fatalf("first = %s", c.Points[0].Name)
	}
	for _, p := range c.Points {
		if !approx(p.Remaining, p.Allocated-p.Sold) {
			t.Fatalf("%s: remaining %v", p.Name, p.Remaining)
		}
	}
}
