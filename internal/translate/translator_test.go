package translate

import (
	"strings"
	"testing"
)

func TestAnalyzeModeNeverEmitsSQL(t *testing.T) {
	tr := New(ModeAnalyze, "oracle", "postgres")
	res := tr.TranslateObject(ObjectView, "v_orders", "SELECT * FROM orders", nil)
	if res.SQLOutput != nil {
		t.Fatalf("analyze mode must never emit SQL, got %q", *res.SQLOutput)
	}
	if len(res.ManualSteps) == 0 {
		t.Error("expected a manual review step in analyze mode")
	}
}

func TestAnalyzeModePackageIncludesAnalysis(t *testing.T) {
	tr := New(ModeAnalyze, "oracle", "postgres")
	res := tr.TranslateObject(ObjectPackage, "pkg", "CREATE OR REPLACE PACKAGE pkg IS PROCEDURE p; END pkg;", nil)
	if _, ok := res.Metadata["package_analysis"]; !ok {
		t.Fatal("expected package_analysis key in metadata for a package object")
	}
}

func TestStubModeAlwaysEmitsSQLAndCriticalRisk(t *testing.T) {
	tr := New(ModeStub, "oracle", "postgres")
	res := tr.TranslateObject(ObjectView, "v_orders", "SELECT * FROM orders", nil)
	if res.SQLOutput == nil {
		t.Fatal("stub mode must always emit SQL")
	}
	if res.RiskLevel != RiskCritical {
		t.Errorf("risk = %v, want RiskCritical", res.RiskLevel)
	}
	if !strings.Contains(*res.SQLOutput, "RAISE EXCEPTION") {
		t.Errorf("postgres view stub should fail loudly, got: %s", *res.SQLOutput)
	}
}

func TestStubModeSQLiteCarriesDocumentedLimitation(t *testing.T) {
	tr := New(ModeStub, "oracle", "sqlite")
	res := tr.TranslateObject(ObjectView, "v", "SELECT * FROM t", nil)
	if !strings.Contains(*res.SQLOutput, "LIMITATION") {
		t.Errorf("sqlite stub should document its limitation, got: %s", *res.SQLOutput)
	}
}

func TestSubsetTranslateSupportedViewProducesSQL(t *testing.T) {
	tr := New(ModeSubsetTranslate, "postgres", "postgres")
	res := tr.TranslateObject(ObjectView, "active_users", "SELECT id, name FROM users WHERE active = true", nil)
	if res.Mode != ModeSubsetTranslate {
		t.Errorf("mode = %v, want subset_translate", res.Mode)
	}
	if res.SQLOutput == nil || !strings.Contains(*res.SQLOutput, "CREATE VIEW") {
		t.Fatalf("expected real translated SQL, got %v", res.SQLOutput)
	}
}

func TestSubsetTranslateFallsBackToStubButPreservesMode(t *testing.T) {
	tr := New(ModeSubsetTranslate, "postgres", "postgres")
	res := tr.TranslateObject(ObjectView, "complex_view", "SELECT a FROM x UNION SELECT b FROM y", nil)
	if res.Mode != ModeSubsetTranslate {
		t.Errorf("mode must stay subset_translate even on stub fallback, got %v", res.Mode)
	}
	if res.RiskLevel != RiskCritical {
		t.Errorf("fallback stub should carry critical risk, got %v", res.RiskLevel)
	}
}

func TestTranslateObjectAccumulatesResults(t *testing.T) {
	tr := New(ModeAnalyze, "postgres", "postgres")
	tr.TranslateObject(ObjectView, "v1", "SELECT 1", nil)
	tr.TranslateObject(ObjectView, "v2", "SELECT 2", nil)
	if len(tr.Results) != 2 {
		t.Fatalf("expected 2 accumulated results, got %d", len(tr.Results))
	}
}
