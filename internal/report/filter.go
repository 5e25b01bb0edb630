// Package report turns a snapshot of billing records into filtered,
// grouped and chart-ready views, plus paginated drill-down pages.
package report

import (
	"sort"
	"strconv"
	"strings"

	"billview/internal/core"
)

// FilterSet holds the selected values per category. A category that is
// absent places no constraint on records. Methods never modify the
// receiver; the zero value is an empty set.
type FilterSet struct {
	sel map[core.Field]map[string]struct{}
}

// Predicate is an extra record constraint combined with the category filters.
type Predicate func(core.Record) bool

// HasSold keeps rows with a positive sold quantity.
func HasSold(r core.Record) bool { return r.Sold > 0 }

// HasRemaining keeps rows with a positive remaining quantity.
func HasRemaining(r core.Record) bool { return r.Remaining() > 0 }

// Toggle selects value in field, or deselects it if already selected.
// Deselecting the last value removes the category entirely.
func (fs FilterSet) Toggle(field core.Field, value string) FilterSet {
	out := fs.clone()
	vals, ok := out.sel[field]
	if ok {
		if _, selected := vals[value]; selected {
			delete(vals, value)
			if len(vals) == 0 {
				delete(out.sel, field)
			}
			return out
		}
	} else {
		vals = make(map[string]struct{})
		out.sel[field] = vals
	}
	vals[value] = struct{}{}
	return out
}

// Clear drops the selection for field, or every selection when field is empty.
func (fs FilterSet) Clear(field core.Field) FilterSet {
	if field == "" {
		return FilterSet{}
	}
	out := fs.clone()
	delete(out.sel, field)
	return out
}

func (fs FilterSet) Has(field core.Field, value string) bool {
	_, ok := fs.sel[field][value]
	return ok
}

// Selected returns the chosen values for field in sorted order.
func (fs FilterSet) Selected(field core.Field) []string {
	vals := fs.sel[field]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, 0, len(vals))
	for v := range vals {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether no category is constrained.
func (fs FilterSet) Empty() bool { return len(fs.sel) == 0 }

// Key is a canonical encoding, equal only for equal selections. Values are
// quoted so separators inside them cannot alias another selection.
func (fs FilterSet) Key() string {
	var b strings.Builder
	for _, f := range core.Fields {
		vals := fs.Selected(f)
		if len(vals) == 0 {
			continue
		}
		b.WriteString(string(f))
		b.WriteByte('=')
		for i, v := range vals {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
		b.WriteByte(';')
	}
	return b.String()
}

// Match reports whether r satisfies every active category.
func (fs FilterSet) Match(r core.Record) bool {
	for field, vals := range fs.sel {
		if _, ok := vals[r.Value(field)]; !ok {
			return false
		}
	}
	return true
}

func (fs FilterSet) clone() FilterSet {
	out := FilterSet{sel: make(map[core.Field]map[string]struct{}, len(fs.sel)+1)}
	for f, vals := range fs.sel {
		cp := make(map[string]struct{}, len(vals))
		for v := range vals {
			cp[v] = struct{}{}
		}
		out.sel[f] = cp
	}
	return out
}

// Apply returns the records passing fs and every predicate, in input order.
// The input slice is not modified.
func Apply(records []core.Record, fs FilterSet, preds ...Predicate) []core.Record {
	out := make([]core.Record, 0, len(records))
next:
	for _, r := range records {
		if !fs.Match(r) {
			continue
		}
		for _, p := range preds {
			if p != nil && !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// Options lists the distinct non-blank values of each field, sorted, for
// building filter dropdowns.
func Options(records []core.Record) map[core.Field][]string {
	seen := make(map[core.Field]map[string]struct{}, len(core.Fields))
	for _, f := range core.Fields {
		seen[f] = make(map[string]struct{})
	}
	for _, r := range records {
		for _, f := range core.Fields {
			if v := r.Value(f); strings.TrimSpace(v) != "" {
				seen[f][v] = struct{}{}
			}
		}
	}
	out := make(map[core.Field][]string, len(seen))
	for f, vals := range seen {
		list := make([]string, 0, len(vals))
		for v := range vals {
			list = append(list, v)
		}
		sort.Strings(list)
		out[f] = list
	}
	return out
}
