package runner

import "testing"

func TestIncludedWithNoFiltersAllowsEverything(t *testing.T) {
	if !included(nil, "anything") {
		t.Error("an empty filter set should admit every object name")
	}
	if !included([]string{}, "anything") {
		t.Error("an empty filter set should admit every object name")
	}
}

func TestIncludedRestrictsToExactNameMatches(t *testing.T) {
	filters := []string{"orders", "order_items"}
	if !included(filters, "orders") {
		t.Error("expected orders to be included")
	}
	if included(filters, "customers") {
		t.Error("customers was not in the filter list and should be excluded")
	}
}

func TestIncludedIsCaseSensitive(t *testing.T) {
	filters := []string{"Orders"}
	if included(filters, "orders") {
		t.Error("object filters should match exactly, not case-insensitively")
	}
}
