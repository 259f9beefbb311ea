package dialect

import "testing"

func TestClassifyMySQLRoutineAllowsDeterministicInvokerRoutine(t *testing.T) {
	r := &RoutineInfo{
		Kind:       RoutineFunction,
		Volatility: "immutable",
		DataAccess: "READS SQL DATA",
		Security:   "invoker",
		Body:       "SELECT 1",
	}
	classifyMySQLRoutine(r)
	if !r.Classification.Allowed {
		t.Errorf("expected allowed, got reasons: %v", r.Classification.ReasonCodes)
	}
}

func TestClassifyMySQLRoutineRejectsDefinerAndModifies(t *testing.T) {
	r := &RoutineInfo{
		Kind:       RoutineProcedure,
		Volatility: "volatile",
		DataAccess: "MODIFIES SQL DATA",
		Security:   "definer",
		Body:       "UPDATE t SET x = 1",
	}
	classifyMySQLRoutine(r)
	if r.Classification.Allowed {
		t.Fatal("expected routine to be rejected")
	}
	if len(r.Classification.ReasonCodes) < 2 {
		t.Errorf("expected multiple reasons (modifies + definer), got %v", r.Classification.ReasonCodes)
	}
}

func TestClassifyMySQLRoutineAllowsNonDeterministicReadOnlyProcedure(t *testing.T) {
	r := &RoutineInfo{
		Kind:       RoutineProcedure,
		Volatility: "volatile",
		DataAccess: "READS SQL DATA",
		Security:   "invoker",
		Body:       "SELECT NOW()",
	}
	classifyMySQLRoutine(r)
	if !r.Classification.Allowed {
		t.Errorf("a non-deterministic but read-only procedure should be allowed, got: %v", r.Classification.ReasonCodes)
	}
}

func TestClassifyMySQLRoutineRejectsDynamicSQL(t *testing.T) {
	r := &RoutineInfo{
		Kind:       RoutineProcedure,
		Volatility: "immutable",
		DataAccess: "READS SQL DATA",
		Security:   "invoker",
		Body:       "PREPARE stmt FROM @sql; EXECUTE stmt;",
	}
	classifyMySQLRoutine(r)
	if r.Classification.Allowed {
		t.Error("dynamic sql via PREPARE/EXECUTE should be rejected")
	}
}

func TestClassifyMySQLTriggerRejectsAfterAndStatementLevel(t *testing.T) {
	afterTrigger := &TriggerInfo{Timing: "after", Scope: "row", Body: "SET NEW.x = 1"}
	classifyMySQLTrigger(afterTrigger)
	if afterTrigger.Classification.Allowed {
		t.Error("AFTER trigger should be rejected")
	}

	statementTrigger := &TriggerInfo{Timing: "before", Scope: "statement", Body: "SET NEW.x = 1"}
	classifyMySQLTrigger(statementTrigger)
	if statementTrigger.Classification.Allowed {
		t.Error("statement-level trigger should be rejected")
	}
}

func TestClassifyMySQLTriggerRejectsUnsafeFunctionCalls(t *testing.T) {
	tg := &TriggerInfo{Timing: "before", Scope: "row", Body: "DO SLEEP(5)"}
	classifyMySQLTrigger(tg)
	if tg.Classification.Allowed {
		t.Error("a trigger calling SLEEP() should be rejected")
	}
}

func TestClassifyMySQLTriggerAllowsPlainRowLevelBefore(t *testing.T) {
	tg := &TriggerInfo{Timing: "before", Scope: "row", Body: "SET NEW.email = LOWER(NEW.email)"}
	classifyMySQLTrigger(tg)
	if !tg.Classification.Allowed {
		t.Errorf("plain before-row trigger should be allowed, got: %v", tg.Classification.ReasonCodes)
	}
}

func TestMysqlDeterministicToVolatility(t *testing.T) {
	if mysqlDeterministicToVolatility(true) != "immutable" {
		t.Error("deterministic=true should map to immutable")
	}
	if mysqlDeterministicToVolatility(false) != "volatile" {
		t.Error("deterministic=false should map to volatile")
	}
}
