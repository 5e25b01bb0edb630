package report

import (
	"fmt"

	"billview/internal/cache"
	"billview/internal/core"
)

// Chart is the rendered result of a State: Series for single-metric views,
// Comparison for the comparison view.
type Chart struct {
	GroupBy    core.Field        `json:"group_by"`
	View       View              `json:"view"`
	Mode       Mode              `json:"mode"`
	Chart      ChartType         `json:"chart"`
	Records    int               `json:"records"`
	Series     *Series           `json:"series,omitempty"`
	Comparison *ComparisonSeries `json:"comparison,omitempty"`
}

// Engine memoizes grouping per snapshot version. Groups carry every metric,
// so view and mode changes reuse the same entry.
type Engine struct {
	memo cache.Cache[[]Group]
}

func NewEngine(memo cache.Cache[[]Group]) *Engine {
	return &Engine{memo: memo}
}

// Groups filters and aggregates records for s. version identifies the
// snapshot records came from; a new version never hits an older entry.
func (e *Engine) Groups(version uint64, records []core.Record, s State) []Group {
	key := fmt.Sprintf("%d|%s|%s|%t", version, s.GroupBy, s.Filters.Key(), s.OnlyRemaining)
	if e.memo != nil {
		if g, ok := e.memo.Get(key); ok {
			return g
		}
	}
	groups := Aggregate(Apply(records, s.Filters, s.Predicates()...), s.GroupBy)
	if e.memo != nil {
		e.memo.Set(key, groups)
	}
	return groups
}

// Chart renders the chart selected by s.
func (e *Engine) Chart(version uint64, records []core.Record, s State) Chart {
	groups := e.Groups(version, records, s)
	c := Chart{GroupBy: s.GroupBy, View: s.View, Mode: s.Mode, Chart: s.Chart}
	for _, g := range groups {
		c.Records += len(g.Items)
	}
	if s.View == ViewComparison {
		cmp := ToComparison(Compare(groups, s.Mode), s.Mode)
		c.Comparison = &cmp
		return c
	}
	series := ToSeries(Rank(groups, MetricSelector(s.View, s.Mode)), s.View, s.Mode)
	c.Series = &series
	return c
}

// Detail renders the drill-down for s.Detail.Group. It reports false when
// the group does not exist under the current filters.
func (e *Engine) Detail(version uint64, records []core.Record, s State) (Detail, bool) {
	g, ok := FindGroup(e.Groups(version, records, s), s.Detail.Group)
	if !ok {
		return Detail{}, false
	}
	return BuildDetail(g.Name, g.Items, s.Detail.Filter, s.Detail.Page), true
}

// Invalidate drops all memoized groups.
func (e *Engine) Invalidate() {
	if e.memo != nil {
		e.memo.Purge()
	}
}
