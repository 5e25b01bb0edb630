package report

import (
	"testing"

	"billview/internal/cache"
	"billview/internal/core"
)

func TestReduce_FilterChangesCloseDetail(t *testing.T) {
	s := Reduce(DefaultState(),
		SetView{View: ViewSold},
		OpenDetail{Group: "A"},
		SetPage{Page: 3},
	)
	if !s.Detail.Open || s.Detail.Filter != DetailSold || s.Detail.Page != 3 {
		t.Fatalf("detail = %+v", s.Detail)
	}

	next := Reduce(s, ToggleFilter{Field: core.FieldUnit, Value: "kg"})
	if next.Detail.Open || next.Detail.Page != 1 {
		t.Fatalf("filter change kept detail open: %+v", next.Detail)
	}
	if !s.Detail.Open || s.Filters.Has(core.FieldUnit, "kg") {
		t.Fatal("Reduce modified the previous state")
	}
}

func TestReduce_IgnoresInvalidValues(t *testing.T) {
	s := DefaultState()
	got := Reduce(s,
		SetView{View: "pie-chart"},
		SetMode{Mode: "weight"},
		SetChart{Chart: "radar"},
		SetGroupBy{Field: "rate"},
		ToggleFilter{Field: "rate", Value: "1"},
	)
	if got.View != s.View || got.Mode != s.Mode || got.Chart != s.Chart || got.GroupBy != s.GroupBy || !got.Filters.Empty() {
		t.Fatalf("invalid actions changed state: %+v", got)
	}
}

func TestReduce_DetailTransitions(t *testing.T) {
	s := Reduce(DefaultState(),
		SetColumns{Columns: []string{"center_name", "rate"}},
		OpenDetail{Group: "B"},
		SetPage{Page: 2},
		SetDetailFilter{Filter: DetailRemaining},
	)
	if s.Detail.Page != 1 || s.Detail.Filter != DetailRemaining {
		t.Fatalf("detail = %+v", s.Detail)
	}
	if len(s.Detail.Columns) != 2 {
		t.Fatalf("columns lost: %v", s.Detail.Columns)
	}
	s = Reduce(s, SetPage{Page: -1}, CloseDetail{})
	if s.Detail.Open || s.Detail.Page != 1 {
		t.Fatalf("closed detail = %+v", s.Detail)
	}
}

func TestEngine_ChartAndMemo(t *testing.T) {
	memo := cache.NewLRUCache[[]Group](8, 0)
	e := NewEngine(memo)
	recs := scenarioRecords(t)
	s := DefaultState()

	c := e.Chart(1, recs, s)
	if c.Series == nil || c.Records != 3 || c.Series.Points[0].Name != "A" {
		t.Fatalf("chart = %+v", c)
	}
	c = e.Chart(1, recs, Reduce(s, SetView{View: ViewComparison}, SetMode{Mode: ModeValue}))
	if c.Comparison == nil || c.Comparison.Points[0].Allocated != 300 {
		t.Fatalf("comparison = %+v", c.Comparison)
	}
	if st := memo.Stats(); st.Size != 1 || st.Hits != 1 {
		t.Fatalf("memo stats = %+v", st)
	}

	e.Chart(2, recs, s)
	if memo.Size() != 2 {
		t.Fatalf("new snapshot version should miss, size = %d", memo.Size())
	}
	e.Invalidate()
	if memo.Size() != 0 {
		t.Fatal("Invalidate left entries")
	}
}

func TestEngine_DetailAndOnlyRemaining(t *testing.T) {
	e := NewEngine(nil)
	recs := scenarioRecords(t)

	s := Reduce(DefaultState(), SetView{View: ViewRemaining}, OpenDetail{Group: "A"})
	d, ok := e.Detail(1, recs, s)
	if !ok || d.Totals.Remaining != 60 || d.Totals.RemainingValue != 120 {
		t.Fatalf("detail = %+v, %v", d, ok)
	}

	s = Reduce(DefaultState(), SetOnlyRemaining{On: true})
	c := e.Chart(1, recs, s)
	if c.Records != 2 {
		t.Fatalf("records with remaining = %d", c.Records)
	}
	if _, ok := e.Detail(1, recs, Reduce(s, OpenDetail{Group: "nope"})); ok {
		t.Fatal("unknown group should not render")
	}
}

func TestFilterSet_KeyDistinguishesSeparatorsInValues(t *testing.T) {
	tests := []struct {
		name string
		a, b FilterSet
	}{
		{
			"field separator inside a value",
			FilterSet{}.Toggle(core.FieldCenter, "a;scheme_name=b"),
			FilterSet{}.Toggle(core.FieldCenter, "a").Toggle(core.FieldScheme, "b"),
		},
		{
			"value separator inside a value",
			FilterSet{}.Toggle(core.FieldCenter, "a\x1fb"),
			FilterSet{}.Toggle(core.FieldCenter, "a").Toggle(core.FieldCenter, "b"),
		},
		{
			"quote and comma inside a value",
			FilterSet{}.Toggle(core.FieldUnit, `a","b`),
			FilterSet{}.Toggle(core.FieldUnit, "a").Toggle(core.FieldUnit, "b"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Key() == tt.b.Key() {
				t.Fatalf("distinct selections share key %q", tt.a.Key())
			}
		})
	}

	same := FilterSet{}.Toggle(core.FieldCenter, "b").Toggle(core.FieldCenter, "a")
	if same.Key() != (FilterSet{}).Toggle(core.FieldCenter, "a").Toggle(core.FieldCenter, "b").Key() {
		t.Fatal("selection order should not change the key")
	}
}

func TestEngine_MemoKeepsLookalikeFiltersApart(t *testing.T) {
	memo := cache.NewLRUCache[[]Group](8, 0)
	e := NewEngine(memo)
	recs := []core.Record{
		{CenterName: "a;scheme_name=b", SchemeName: "x", Allocated: 5},
		{CenterName: "a", SchemeName: "b", Allocated: 7},
	}

	first := e.Groups(1, recs, Reduce(DefaultState(),
		ToggleFilter{Field: core.FieldCenter, Value: "a;scheme_name=b"}))
	second := e.Groups(1, recs, Reduce(DefaultState(),
		ToggleFilter{Field: core.FieldCenter, Value: "a"},
		ToggleFilter{Field: core.FieldScheme, Value: "b"}))

	if len(first) != 1 || first[0].Allocated != 5 {
		t.Fatalf("first = %+v", first)
	}
	if len(second) != 1 || second[0].Allocated != 7 {
		t.Fatalf("second = %+v, served from the wrong memo entry", second)
	}
	if memo.Size() != 2 {
		t.Fatalf("memo size = %d, want 2", memo.Size())
	}
}
