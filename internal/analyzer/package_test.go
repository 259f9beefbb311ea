package analyzer

import "testing"

const samplePackage = `
CREATE OR REPLACE PACKAGE order_mgmt IS
	PROCEDURE place_order(p_id IN NUMBER, p_qty IN NUMBER);
	FUNCTION get_total(p_id IN NUMBER) RETURN NUMBER;
END order_mgmt;

CREATE OR REPLACE PACKAGE BODY order_mgmt IS
	PROCEDURE place_order(p_id IN NUMBER, p_qty IN NUMBER) IS
	BEGIN
		INSERT INTO orders (id, qty) VALUES (p_id, p_qty);
		UPDATE inventory SET qty = qty - p_qty WHERE item_id = p_id;
	END;

	FUNCTION get_total(p_id IN NUMBER) RETURN NUMBER IS
		v_total NUMBER;
	BEGIN
		SELECT SUM(qty) INTO v_total FROM orders JOIN items ON orders.id = items.order_id WHERE orders.id = p_id;
		RETURN v_total;
	END;
END order_mgmt;
`

func TestAnalyzeExtractsSpecBodyAndMembers(t *testing.T) {
	a := NewPackageAnalyzer("oracle", "postgres")
	res := a.Analyze(samplePackage, "order_mgmt")

	if !res.HasSpec || !res.HasBody {
		t.Fatalf("expected both spec and body detected, got spec=%v body=%v", res.HasSpec, res.HasBody)
	}
	if len(res.Procedures) != 1 || res.Procedures[0].Name != "place_order" {
		t.Errorf("procedures = %+v, want one named place_order", res.Procedures)
	}
	if len(res.Functions) != 1 || res.Functions[0].Name != "get_total" {
		t.Errorf("functions = %+v, want one named get_total", res.Functions)
	}
}

func TestAnalyzeDependenciesAreSortedAndDeduplicated(t *testing.T) {
	a := NewPackageAnalyzer("oracle", "postgres")
	res := a.Analyze(samplePackage, "order_mgmt")

	want := []string{"inventory", "items", "orders"}
	if len(res.Dependencies) != len(want) {
		t.Fatalf("dependencies = %v, want %v", res.Dependencies, want)
	}
	for i, d := range want {
		if res.Dependencies[i] != d {
			t.Errorf("dependencies[%d] = %q, want %q", i, res.Dependencies[i], d)
		}
	}
}

func TestComplexityScoreIsCapped(t *testing.T) {
	a := NewPackageAnalyzer("oracle", "postgres")
	res := a.Analyze(samplePackage, "order_mgmt")
	if res.ComplexityScore < 0 || res.ComplexityScore > 100 {
		t.Errorf("complexity score %d out of [0,100] range", res.ComplexityScore)
	}
}

func TestGenerateWarningsFlagsDML(t *testing.T) {
	a := NewPackageAnalyzer("oracle", "postgres")
	res := a.Analyze(samplePackage, "order_mgmt")
	found := false
	for _, w := range res.Warnings {
		if w == "Package contains DML operations (review for side effects)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DML warning, got %v", res.Warnings)
	}
}

func TestGenerateManualStepsCountsMembers(t *testing.T) {
	a := NewPackageAnalyzer("oracle", "postgres")
	res := a.Analyze(samplePackage, "order_mgmt")
	if len(res.ManualSteps) < 4 {
		t.Fatalf("expected at least 4 manual steps, got %v", res.ManualSteps)
	}
}

func TestNewPackageAnalyzerDefaultsDialects(t *testing.T) {
	a := NewPackageAnalyzer("", "")
	if a.SourceDialect != "oracle" || a.TargetDialect != "postgres" {
		t.Errorf("expected default dialects oracle/postgres, got %s/%s", a.SourceDialect, a.TargetDialect)
	}
}
