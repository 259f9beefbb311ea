package dialect

import "testing"

func TestClassifyPostgresRoutineAllowsSQLAndPLPGSQLNonVolatileInvoker(t *testing.T) {
	r := &RoutineInfo{Language: "plpgsql", Volatility: "stable", Security: "invoker"}
	classifyPostgresRoutine(r)
	if !r.Classification.Allowed {
		t.Errorf("expected allowed, got reasons: %v", r.Classification.ReasonCodes)
	}
}

func TestClassifyPostgresRoutineRejectsUnsupportedLanguage(t *testing.T) {
	r := &RoutineInfo{Language: "c", Volatility: "stable", Security: "invoker"}
	classifyPostgresRoutine(r)
	if r.Classification.Allowed {
		t.Error("a C-language function should be rejected")
	}
}

func TestClassifyPostgresRoutineRejectsVolatileAndDefiner(t *testing.T) {
	r := &RoutineInfo{Language: "sql", Volatility: "volatile", Security: "definer"}
	classifyPostgresRoutine(r)
	if r.Classification.Allowed {
		t.Fatal("volatile + security definer routine should be rejected")
	}
	if len(r.Classification.ReasonCodes) != 2 {
		t.Errorf("expected 2 reasons, got %v", r.Classification.ReasonCodes)
	}
}

func TestClassifyPostgresTriggerIgnoresVolatilityButRejectsInsteadOf(t *testing.T) {
	tg := &TriggerInfo{Scope: "row", Timing: "instead_of"}
	classifyPostgresTrigger(tg)
	if tg.Classification.Allowed {
		t.Error("instead of trigger should be rejected regardless of volatility")
	}
}

func TestClassifyPostgresTriggerRejectsStatementLevel(t *testing.T) {
	tg := &TriggerInfo{Scope: "statement", Timing: "before"}
	classifyPostgresTrigger(tg)
	if tg.Classification.Allowed {
		t.Error("statement-level trigger should be rejected")
	}
}

func TestClassifyPostgresTriggerAllowsRowLevelBeforeOrAfter(t *testing.T) {
	before := &TriggerInfo{Scope: "row", Timing: "before"}
	classifyPostgresTrigger(before)
	if !before.Classification.Allowed {
		t.Errorf("row-level before trigger should be allowed, got: %v", before.Classification.ReasonCodes)
	}
	after := &TriggerInfo{Scope: "row", Timing: "after"}
	classifyPostgresTrigger(after)
	if !after.Classification.Allowed {
		t.Errorf("row-level after trigger should be allowed, got: %v", after.Classification.ReasonCodes)
	}
}
