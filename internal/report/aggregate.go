package report

import (
	"fmt"
	"sort"
	"strings"

	"billview/internal/core"
)

// Unknown labels the group of records whose group-by field is blank.
const Unknown = "Unknown"

// View selects which quantity a chart shows.
type View string

const (
	ViewAllocated  View = "allocated"
	ViewSold       View = "sold"
	ViewRemaining  View = "remaining"
	ViewComparison View = "comparison"
)

// Mode selects between physical quantity and currency value.
type Mode string

const (
	ModeQuantity Mode = "quantity"
	ModeValue    Mode = "value"
)

func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewAllocated, ViewSold, ViewRemaining, ViewComparison:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuantity, ModeValue:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Group accumulates the records sharing one group-by value.
type Group struct {
	Name string

	Allocated float64
	Sold      float64
	Remaining float64

	AllocatedValue float64
	SoldValue      float64
	RemainingValue float64

	// Items keeps the contributing records in encounter order.
	Items []core.Record
}

// Selector picks the metric a ranking sorts on.
type Selector func(Group) float64

// Aggregate groups records by field. Groups are returned in the order their
// first record was seen; blank values pool under Unknown.
func Aggregate(records []core.Record, field core.Field) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range records {
		name := strings.TrimSpace(r.Value(field))
		if name == "" {
			name = Unknown
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		g := &groups[i]
		g.Allocated += r.Allocated
		g.Sold += r.Sold
		g.Remaining += r.Remaining()
		g.AllocatedValue += r.AllocatedValue()
		g.SoldValue += r.SoldValue()
		g.RemainingValue += r.RemainingValue()
		g.Items = append(g.Items, r)
	}
	return groups
}

// RemainingFromTotals derives remaining from the summed allocated and sold.
// It agrees with the accumulated Remaining up to float rounding.
func (g Group) RemainingFromTotals() float64 { return g.Allocated - g.Sold }

// RemainingValueFromTotals is the value counterpart of RemainingFromTotals.
func (g Group) RemainingValueFromTotals() float64 { return g.AllocatedValue - g.SoldValue }

// Metric returns one of the six accumulated figures.
func (g Group) Metric(view View, mode Mode) float64 {
	value := mode == ModeValue
	switch view {
	case ViewSold:
		if value {
			return g.SoldValue
		}
		return g.Sold
	case ViewRemaining:
		if value {
			return g.RemainingValue
		}
		return g.Remaining
	default:
		if value {
			return g.AllocatedValue
		}
		return g.Allocated
	}
}

// MetricSelector adapts Metric to a Selector.
func MetricSelector(view View, mode Mode) Selector {
	return func(g Group) float64 { return g.Metric(view, mode) }
}

// Slice is one entry of a single-metric ranking.
type Slice struct {
	Name  string
	Value float64
	Items []core.Record
}

// Rank orders groups by sel, largest first. Ties keep encounter order.
func Rank(groups []Group, sel Selector) []Slice {
	out := make([]Slice, len(groups))
	for i, g := range groups {
		out[i] = Slice{Name: g.Name, Value: sel(g), Items: g.Items}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Triplet is one entry of the allocated/sold/remaining comparison.
type Triplet struct {
	Name      string
	Allocated float64
	Sold      float64
	Remaining float64
	Items     []core.Record
}

// Compare orders groups by allocated, largest first, ties in encounter order.
func Compare(groups []Group, mode Mode) []Triplet {
	out := make([]Triplet, len(groups))
	for i, g := range groups {
		out[i] = Triplet{
			Name:      g.Name,
			Allocated: g.Metric(ViewAllocated, mode),
			Sold:      g.Metric(ViewSold, mode),
			Remaining: g.Metric(ViewRemaining, mode),
			Items:     g.Items,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Allocated > out[j].Allocated })
	return out
}

// FindGroup returns the group called name.
func FindGroup(groups []Group, name string) (Group, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}
