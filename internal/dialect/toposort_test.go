package dialect

import "testing"

func indexOf(views []ViewInfo, name string) int {
	for i, v := range views {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func TestTopoSortViewsOrdersDependenciesFirst(t *testing.T) {
	views := []ViewInfo{
		{Name: "v_top", Dependencies: []ViewDependency{{Kind: "view", Name: "v_mid"}}},
		{Name: "v_mid", Dependencies: []ViewDependency{{Kind: "view", Name: "v_base"}}},
		{Name: "v_base", Dependencies: []ViewDependency{{Kind: "table", Name: "t1"}}},
	}
	ordered := topoSortViews(views)
	if len(ordered) != 3 {
		t.Fatalf("expected 3 views, got %d", len(ordered))
	}
	if indexOf(ordered, "v_base") > indexOf(ordered, "v_mid") {
		t.Error("v_base should come before v_mid")
	}
	if indexOf(ordered, "v_mid") > indexOf(ordered, "v_top") {
		t.Error("v_mid should come before v_top")
	}
}

func TestTopoSortViewsBreaksCyclesDeterministically(t *testing.T) {
	views := []ViewInfo{
		{Name: "v_b", Dependencies: []ViewDependency{{Kind: "view", Name: "v_a"}}},
		{Name: "v_a", Dependencies: []ViewDependency{{Kind: "view", Name: "v_b"}}},
	}
	ordered1 := topoSortViews(views)
	ordered2 := topoSortViews(views)
	if len(ordered1) != 2 || len(ordered2) != 2 {
		t.Fatalf("expected both views even with a cycle, got %d and %d", len(ordered1), len(ordered2))
	}
	if ordered1[0].Name != ordered2[0].Name {
		t.Error("cycle tie-break must be deterministic across runs")
	}
	if ordered1[0].Name != "v_a" {
		t.Errorf("cycle tie-break should pick the lexically smallest name first, got %s", ordered1[0].Name)
	}
	if !ordered1[0].CycleBroken {
		t.Error("the view forced out of the cycle should have CycleBroken set so callers can surface it")
	}
	if ordered1[1].CycleBroken {
		t.Error("only the view that broke the cycle should have CycleBroken set")
	}
}

func TestTopoSortViewsNoCycleLeavesCycleBrokenFalse(t *testing.T) {
	views := []ViewInfo{
		{Name: "v_base", Dependencies: nil},
		{Name: "v_top", Dependencies: []ViewDependency{{Kind: "view", Name: "v_base"}}},
	}
	ordered := topoSortViews(views)
	for _, v := range ordered {
		if v.CycleBroken {
			t.Errorf("view %s should not be marked CycleBroken when there is no cycle", v.Name)
		}
	}
}

func TestTopoSortViewsIgnoresTableDependencies(t *testing.T) {
	views := []ViewInfo{
		{Name: "v1", Dependencies: []ViewDependency{{Kind: "table", Name: "does_not_exist_as_view"}}},
	}
	ordered := topoSortViews(views)
	if len(ordered) != 1 {
		t.Fatalf("expected 1 view, got %d", len(ordered))
	}
}
