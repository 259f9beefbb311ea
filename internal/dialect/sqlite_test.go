package dialect

import "testing"

func TestReferencesIdentifierMatchesWholeWordOnly(t *testing.T) {
	if !referencesIdentifier("SELECT * FROM orders WHERE id = 1", "orders") {
		t.Error("expected orders to be referenced")
	}
	if referencesIdentifier("SELECT * FROM order_items", "orders") {
		t.Error("order_items should not match the whole word orders")
	}
}

func TestClassifySQLiteDependenciesBucketsBuiltinJSONFTSAndUnknown(t *testing.T) {
	needsJSON, needsFTS, unknown := classifySQLiteDependencies(
		"SELECT upper(name), json_extract(data, '$.x'), highlight(docs, 0, '<b>', '</b>'), custom_fn(a) FROM t")
	if !needsJSON {
		t.Error("expected needsJSON to be true for json_extract")
	}
	if !needsFTS {
		t.Error("expected needsFTS to be true for highlight")
	}
	if len(unknown) != 1 || unknown[0] != "custom_fn" {
		t.Errorf("unknown = %v, want [custom_fn]", unknown)
	}
}

func TestClassifySQLiteDependenciesAllBuiltinIsClean(t *testing.T) {
	needsJSON, needsFTS, unknown := classifySQLiteDependencies("SELECT upper(name), lower(email) FROM t")
	if needsJSON || needsFTS || len(unknown) != 0 {
		t.Errorf("expected no extension needs for pure builtins, got json=%v fts=%v unknown=%v", needsJSON, needsFTS, unknown)
	}
}

func TestParseSQLiteTriggerHeaderExtractsTimingAndAlwaysRowScope(t *testing.T) {
	timing, scope := parseSQLiteTriggerHeader("CREATE TRIGGER t1 INSTEAD OF UPDATE ON v1 BEGIN SELECT 1; END;")
	if timing != "instead_of" {
		t.Errorf("timing = %q, want instead_of", timing)
	}
	if scope != "row" {
		t.Errorf("scope = %q, want row (sqlite triggers are always row-level)", scope)
	}

	timing, _ = parseSQLiteTriggerHeader("CREATE TRIGGER t2 AFTER INSERT ON t BEGIN SELECT 1; END;")
	if timing != "after" {
		t.Errorf("timing = %q, want after", timing)
	}
}

func TestClassifySQLiteTriggerExcludesInsteadOf(t *testing.T) {
	tg := &TriggerInfo{Timing: "instead_of", Body: "SELECT 1"}
	classifySQLiteTrigger(tg)
	if tg.Classification.Allowed {
		t.Error("instead of trigger should not be allowed")
	}
}

func TestClassifySQLiteTriggerAllowsPlainBeforeInsert(t *testing.T) {
	tg := &TriggerInfo{Timing: "before", Body: "UPDATE t SET x = upper(new.x)"}
	classifySQLiteTrigger(tg)
	if !tg.Classification.Allowed {
		t.Errorf("plain before trigger using only builtins should be allowed, reasons: %v", tg.Classification.ReasonCodes)
	}
}
