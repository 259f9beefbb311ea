package report

import (
	"strings"
	"testing"

	"github.com/saiql/harness/internal/translate"
)

func strp(s string) *string { return &s }

func TestGenerateCountsClassifyByStubVsTranslated(t *testing.T) {
	results := []translate.Result{
		{ObjectType: translate.ObjectView, ObjectName: "v1", SQLOutput: nil, RiskLevel: translate.RiskHigh},
		{ObjectType: translate.ObjectView, ObjectName: "v2", SQLOutput: strp("-- STUB: v2\n..."), RiskLevel: translate.RiskCritical},
		{ObjectType: translate.ObjectView, ObjectName: "v3", SQLOutput: strp("CREATE VIEW v3 AS SELECT 1"), RiskLevel: translate.RiskSafe},
	}
	rep := Generate(results, translate.ModeSubsetTranslate, "postgres", "postgres")

	if rep.Counts.Detected != 3 {
		t.Errorf("Detected = %d, want 3", rep.Counts.Detected)
	}
	if rep.Counts.AnalyzedOnly != 1 {
		t.Errorf("AnalyzedOnly = %d, want 1", rep.Counts.AnalyzedOnly)
	}
	if rep.Counts.Stubbed != 1 {
		t.Errorf("Stubbed = %d, want 1", rep.Counts.Stubbed)
	}
	if rep.Counts.Translated != 1 {
		t.Errorf("Translated = %d, want 1", rep.Counts.Translated)
	}
	wantBytes := int64(len("-- STUB: v2\n...") + len("CREATE VIEW v3 AS SELECT 1"))
	if rep.Counts.SQLOutputSize != wantBytes {
		t.Errorf("SQLOutputSize = %d, want %d", rep.Counts.SQLOutputSize, wantBytes)
	}
}

func TestCollectWarningsSortedBySeverityThenObjectThenMessage(t *testing.T) {
	results := []translate.Result{
		{ObjectName: "b", Warnings: []translate.Warning{{Severity: translate.RiskLow, ObjectName: "b", Message: "m1"}}},
		{ObjectName: "a", Warnings: []translate.Warning{{Severity: translate.RiskCritical, ObjectName: "a", Message: "m2"}}},
		{ObjectName: "a", Warnings: []translate.Warning{{Severity: translate.RiskCritical, ObjectName: "a", Message: "m1"}}},
	}
	rep := Generate(results, translate.ModeAnalyze, "postgres", "postgres")
	if len(rep.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(rep.Warnings))
	}
	if rep.Warnings[0].Severity != "critical" || rep.Warnings[0].Message != "m1" {
		t.Errorf("first warning = %+v, want critical/a/m1", rep.Warnings[0])
	}
	if rep.Warnings[1].Severity != "critical" || rep.Warnings[1].Message != "m2" {
		t.Errorf("second warning = %+v, want critical/a/m2", rep.Warnings[1])
	}
	if rep.Warnings[2].Severity != "low" {
		t.Errorf("third warning severity = %s, want low (sorted last)", rep.Warnings[2].Severity)
	}
}

func TestCollectManualStepsDeduplicatesByObjectAndAction(t *testing.T) {
	results := []translate.Result{
		{ObjectName: "v1", ManualSteps: []translate.ManualStep{{ObjectName: "v1", Action: "review"}}},
		{ObjectName: "v1", ManualSteps: []translate.ManualStep{{ObjectName: "v1", Action: "review"}}},
		{ObjectName: "v1", ManualSteps: []translate.ManualStep{{ObjectName: "v1", Action: "rewrite"}}},
	}
	rep := Generate(results, translate.ModeAnalyze, "postgres", "postgres")
	if len(rep.ManualSteps) != 2 {
		t.Fatalf("expected dedup to 2 manual steps, got %d: %+v", len(rep.ManualSteps), rep.ManualSteps)
	}
	if rep.ManualSteps[0].Action != "review" || rep.ManualSteps[1].Action != "rewrite" {
		t.Errorf("manual steps not sorted by action: %+v", rep.ManualSteps)
	}
}

func TestToTextIncludesModeAndCounts(t *testing.T) {
	rep := Generate(nil, translate.ModeAnalyze, "postgres", "postgres")
	text := rep.ToText()
	if text == "" {
		t.Fatal("ToText returned empty string")
	}
	if !strings.Contains(text, "Mode: analyze") {
		t.Errorf("ToText missing mode line, got:\n%s", text)
	}
	if !strings.Contains(text, "Detected:") {
		t.Errorf("ToText missing object counts, got:\n%s", text)
	}
}

func TestToMapCarriesLegacyAliases(t *testing.T) {
	rep := Generate(nil, translate.ModeAnalyze, "postgres", "postgres")
	m := rep.ToMap()
	if _, ok := m["total_objects"]; !ok {
		t.Error("expected legacy total_objects alias in ToMap output")
	}
	if _, ok := m["objects_by_type"]; !ok {
		t.Error("expected legacy objects_by_type alias in ToMap output")
	}
}
