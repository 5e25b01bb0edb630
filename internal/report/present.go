package report

import (
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the shared display divisor of one chart.
type Scale struct {
	Divisor float64 `json:"divisor"`
	Label   string  `json:"label"`
}

type scaleStep struct {
	threshold float64
	quantity  string
	currency  string
}

var scaleSteps = []scaleStep{
	{1e7, "Crore", "₹ Crore"},
	{1e5, "Lakh", "₹ Lakh"},
	{1e3, "Thousand", "₹ Thousand"},
}

// ScaleFor picks the largest magnitude step the absolute max reaches.
func ScaleFor(max float64, mode Mode) Scale {
	abs := math.Abs(max)
	for _, s := range scaleSteps {
		if abs >= s.threshold {
			return Scale{Divisor: s.threshold, Label: s.label(mode)}
		}
	}
	if mode == ModeValue {
		return Scale{Divisor: 1, Label: "₹"}
	}
	return Scale{Divisor: 1, Label: "Units"}
}

func (s scaleStep) label(mode Mode) string {
	if mode == ModeValue {
		return s.currency
	}
	return s.quantity
}

// Apply divides v by the scale's divisor.
func (s Scale) Apply(v float64) float64 {
	if s.Divisor == 0 {
		return v
	}
	return v / s.Divisor
}

// Percent returns v as a share of total, rounded to two places. A zero
// total yields 0.
func Percent(v, total float64) float64 {
	if total == 0 {
		return 0
	}
	pct, _ := decimal.NewFromFloat(v).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(total)).
		Round(2).
		Float64()
	return pct
}

type Point struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Scaled  float64 `json:"scaled"`
	Percent float64 `json:"percent"`
	Count   int     `json:"count"`
}

// Series is a pie or bar chart. SingleGroup marks the one-category case,
// where the legend is suppressed and the only point is 100%.
type Series struct {
	View        View    `json:"view"`
	Mode        Mode    `json:"mode"`
	Scale       Scale   `json:"scale"`
	Total       float64 `json:"total"`
	Points      []Point `json:"points"`
	SingleGroup bool    `json:"single_group"`
	ShowLegend  bool    `json:"show_legend"`
}

// ToSeries converts a ranking into chart points with percentages and a
// scale taken from the largest absolute value.
func ToSeries(slices []Slice, view View, mode Mode) Series {
	s := Series{View: view, Mode: mode, Points: make([]Point, len(slices))}
	var max float64
	for _, sl := range slices {
		s.Total += sl.Value
		if math.Abs(sl.Value) > math.Abs(max) {
			max = sl.Value
		}
	}
	s.Scale = ScaleFor(max, mode)
	for i, sl := range slices {
		s.Points[i] = Point{
			Name:    sl.Name,
			Value:   sl.Value,
			Scaled:  s.Scale.Apply(sl.Value),
			Percent: Percent(sl.Value, s.Total),
			Count:   len(sl.Items),
		}
	}
	s.SingleGroup = len(slices) == 1
	s.ShowLegend = len(slices) > 1
	if s.SingleGroup && s.Total != 0 {
		s.Points[0].Percent = 100
	}
	return s
}

type ComparisonPoint struct {
	Name            string  `json:"name"`
	Allocated       float64 `json:"allocated"`
	Sold            float64 `json:"sold"`
	Remaining       float64 `json:"remaining"`
	ScaledAllocated float64 `json:"scaled_allocated"`
	ScaledSold      float64 `json:"scaled_sold"`
	ScaledRemaining float64 `json:"scaled_remaining"`
	Count           int     `json:"count"`
}

// ComparisonSeries is the grouped bar chart of allocated, sold and remaining.
type ComparisonSeries struct {
	Mode        Mode              `json:"mode"`
	Scale       Scale             `json:"scale"`
	Points      []ComparisonPoint `json:"points"`
	SingleGroup bool              `json:"single_group"`
	ShowLegend  bool              `json:"show_legend"`
}

// ToComparison scales every bar of every group by one shared divisor.
func ToComparison(triplets []Triplet, mode Mode) ComparisonSeries {
	c := ComparisonSeries{Mode: mode, Points: make([]ComparisonPoint, len(triplets))}
	var max float64
	for _, t := range triplets {
		for _, v := range []float64{t.Allocated, t.Sold, t.Remaining} {
			if math.Abs(v) > max {
				max = math.Abs(v)
			}
		}
	}
	c.Scale = ScaleFor(max, mode)
	for i, t := range triplets {
		c.Points[i] = ComparisonPoint{
			Name:            t.Name,
			Allocated:       t.Allocated,
			Sold:            t.Sold,
			Remaining:       t.Remaining,
			ScaledAllocated: c.Scale.Apply(t.Allocated),
			ScaledSold:      c.Scale.Apply(t.Sold),
			ScaledRemaining: c.Scale.Apply(t.Remaining),
			Count:           len(t.Items),
		}
	}
	c.SingleGroup = len(triplets) == 1
	// the three bars always carry a legend
	c.ShowLegend = len(triplets) > 0
	return c
}
