package report

import (
	"billview/internal/core"
)

// ChartType is the visual form of single-metric views.
type ChartType string

const (
	ChartPie ChartType = "pie"
	ChartBar ChartType = "bar"
)

// DetailState tracks the open drill-down table.
type DetailState struct {
	Open    bool
	Group   string
	Filter  DetailFilter
	Page    int
	Columns []string
}

// State is the complete dashboard view selection. Values are replaced,
// never modified in place, by Reduce.
type State struct {
	Filters       FilterSet
	GroupBy       core.Field
	View          View
	Mode          Mode
	Chart         ChartType
	OnlyRemaining bool
	Detail        DetailState
}

func DefaultState() State {
	return State{
		GroupBy: core.FieldCenter,
		View:    ViewAllocated,
		Mode:    ModeQuantity,
		Chart:   ChartPie,
		Detail:  DetailState{Filter: DetailAllocated, Page: 1},
	}
}

// Predicates returns the extra record constraints implied by the state.
func (s State) Predicates() []Predicate {
	if s.OnlyRemaining {
		return []Predicate{HasRemaining}
	}
	return nil
}

// Action is a state transition.
type Action interface {
	apply(State) State
}

// Reduce folds actions over s, left to right.
func Reduce(s State, actions ...Action) State {
	for _, a := range actions {
		s = a.apply(s)
	}
	return s
}

type (
	ToggleFilter struct {
		Field core.Field
		Value string
	}
	// ClearFilters with an empty Field clears every category.
	ClearFilters     struct{ Field core.Field }
	SetGroupBy       struct{ Field core.Field }
	SetView          struct{ View View }
	SetMode          struct{ Mode Mode }
	SetChart         struct{ Chart ChartType }
	SetOnlyRemaining struct{ On bool }
	OpenDetail       struct{ Group string }
	SetDetailFilter  struct{ Filter DetailFilter }
	SetPage          struct{ Page int }
	SetColumns       struct{ Columns []string }
	CloseDetail      struct{}
)

// Changing which records reach the groups invalidates the open drill-down.
func closeDetail(s State) State {
	s.Detail = DetailState{Filter: DetailFilterFor(s.View), Page: 1, Columns: s.Detail.Columns}
	return s
}

func (a ToggleFilter) apply(s State) State {
	if !a.Field.Valid() {
		return s
	}
	s.Filters = s.Filters.Toggle(a.Field, a.Value)
	return closeDetail(s)
}

func (a ClearFilters) apply(s State) State {
	s.Filters = s.Filters.Clear(a.Field)
	return closeDetail(s)
}

func (a SetGroupBy) apply(s State) State {
	if !a.Field.Valid() || a.Field == s.GroupBy {
		return s
	}
	s.GroupBy = a.Field
	return closeDetail(s)
}

func (a SetView) apply(s State) State {
	switch a.View {
	case ViewAllocated, ViewSold, ViewRemaining, ViewComparison:
		s.View = a.View
	}
	return s
}

func (a SetMode) apply(s State) State {
	switch a.Mode {
	case ModeQuantity, ModeValue:
		s.Mode = a.Mode
	}
	return s
}

func (a SetChart) apply(s State) State {
	switch a.Chart {
	case ChartPie, ChartBar:
		s.Chart = a.Chart
	}
	return s
}

func (a SetOnlyRemaining) apply(s State) State {
	if s.OnlyRemaining == a.On {
		return s
	}
	s.OnlyRemaining = a.On
	return closeDetail(s)
}

// OpenDetail starts on page 1 with the filter matching the current view.
func (a OpenDetail) apply(s State) State {
	s.Detail = DetailState{
		Open:    true,
		Group:   a.Group,
		Filter:  DetailFilterFor(s.View),
		Page:    1,
		Columns: s.Detail.Columns,
	}
	return s
}

func (a SetDetailFilter) apply(s State) State {
	s.Detail.Filter = ParseDetailFilter(string(a.Filter))
	s.Detail.Page = 1
	return s
}

// SetPage stores the request; clamping to the last page happens when the
// rows are known.
func (a SetPage) apply(s State) State {
	s.Detail.Page = a.Page
	if s.Detail.Page < 1 {
		s.Detail.Page = 1
	}
	return s
}

func (a SetColumns) apply(s State) State {
	s.Detail.Columns = append([]string(nil), a.Columns...)
	return s
}

func (CloseDetail) apply(s State) State { return closeDetail(s) }
