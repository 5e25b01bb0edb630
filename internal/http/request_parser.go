package http

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"billview/internal/core"
	"billview/internal/report"
)

// filterPrefix marks filter parameters: f.center_name=Almora&f.center_name=Bageshwar.
const filterPrefix = "f."

// parseState folds the query string into a dashboard state. Unlike the
// reducer, which ignores invalid input, unknown values are reported so the
// caller gets a 400.
func parseState(q url.Values) (report.State, error) {
	var actions []report.Action

	filterKeys := make([]string, 0)
	for key := range q {
		if strings.HasPrefix(key, filterPrefix) {
			filterKeys = append(filterKeys, key)
		}
	}
	sort.Strings(filterKeys)
	for _, key := range filterKeys {
		field, err := core.ParseField(strings.TrimPrefix(key, filterPrefix))
		if err != nil {
			return report.State{}, fmt.Errorf("filter %q: %w", key, err)
		}
		seen := make(map[string]bool, len(q[key]))
		for _, v := range q[key] {
			// Toggle twice would deselect, so repeated values count once.
			if v = strings.TrimSpace(v); v != "" && !seen[v] {
				seen[v] = true
				actions = append(actions, report.ToggleFilter{Field: field, Value: v})
			}
		}
	}

	if v := strings.TrimSpace(q.Get("group_by")); v != "" {
		field, err := core.ParseField(v)
		if err != nil {
			return report.State{}, fmt.Errorf("group_by: %w", err)
		}
		actions = append(actions, report.SetGroupBy{Field: field})
	}
	if v := strings.TrimSpace(q.Get("only_remaining")); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return report.State{}, fmt.Errorf("only_remaining: invalid boolean %q", v)
		}
		actions = append(actions, report.SetOnlyRemaining{On: on})
	}
	if v := strings.TrimSpace(q.Get("view")); v != "" {
		view, err := report.ParseView(v)
		if err != nil {
			return report.State{}, err
		}
		actions = append(actions, report.SetView{View: view})
	}
	if v := strings.TrimSpace(q.Get("mode")); v != "" {
		mode, err := report.ParseMode(v)
		if err != nil {
			return report.State{}, err
		}
		actions = append(actions, report.SetMode{Mode: mode})
	}
	if v := strings.ToLower(strings.TrimSpace(q.Get("chart"))); v != "" {
		chart := report.ChartType(v)
		if chart != report.ChartPie && chart != report.ChartBar {
			return report.State{}, fmt.Errorf("unknown chart %q", v)
		}
		actions = append(actions, report.SetChart{Chart: chart})
	}

	if q.Has("group") {
		actions = append(actions, report.OpenDetail{Group: q.Get("group")})
	}
	if v := strings.TrimSpace(q.Get("detail")); v != "" {
		actions = append(actions, report.SetDetailFilter{Filter: report.ParseDetailFilter(v)})
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return report.State{}, fmt.Errorf("page: invalid number %q", v)
		}
		actions = append(actions, report.SetPage{Page: page})
	}
	if cols := q["columns"]; len(cols) > 0 {
		actions = append(actions, report.SetColumns{Columns: cols})
	}

	return report.Reduce(report.DefaultState(), actions...), nil
}
