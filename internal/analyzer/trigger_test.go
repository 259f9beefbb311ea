package analyzer

import (
	"strings"
	"testing"

	"github.com/saiql/harness/internal/translate"
)

func TestIdentifyTriggerPatternNormalization(t *testing.T) {
	tt := NewTriggerTranslator("postgres", "postgres")
	beforeInsert := `CREATE TRIGGER norm BEFORE INSERT ON users FOR EACH ROW BEGIN :NEW.email := LOWER(:NEW.email); END;`
	if got := tt.identifyPattern(beforeInsert); got != TriggerBeforeInsertNormalize {
		t.Errorf("identifyPattern(simple before insert) = %v, want TriggerBeforeInsertNormalize", got)
	}
}

func TestIdentifyTriggerPatternRejectsAfterAndDML(t *testing.T) {
	tt := NewTriggerTranslator("postgres", "postgres")
	after := `CREATE TRIGGER t AFTER INSERT ON users FOR EACH ROW BEGIN NULL; END;`
	if got := tt.identifyPattern(after); got != TriggerUnsupported {
		t.Errorf("AFTER trigger should be unsupported, got %v", got)
	}
	dml := `CREATE TRIGGER t BEFORE INSERT ON users FOR EACH ROW BEGIN INSERT INTO audit VALUES (1); END;`
	if got := tt.identifyPattern(dml); got != TriggerUnsupported {
		t.Errorf("trigger containing DML should be unsupported, got %v", got)
	}
}

func TestIsSimpleNormalizationRejectsDisallowedFunctions(t *testing.T) {
	tt := NewTriggerTranslator("postgres", "postgres")
	def := `CREATE TRIGGER t BEFORE INSERT ON users FOR EACH ROW BEGIN :NEW.total := CALC_TOTAL(:NEW.qty); END;`
	if tt.isSimpleNormalization(def) {
		t.Error("a call to a non-whitelisted function should not be a simple normalization")
	}
}

func TestTranslateBeforeInsertLowRisk(t *testing.T) {
	tt := NewTriggerTranslator("postgres", "postgres")
	def := `CREATE TRIGGER norm BEFORE INSERT ON users FOR EACH ROW BEGIN :NEW.email := LOWER(:NEW.email); END;`
	sql, risk, err := tt.Translate("norm", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if risk != translate.RiskLow {
		t.Errorf("risk = %v, want RiskLow", risk)
	}
	if !strings.Contains(sql, "LOWER") {
		t.Errorf("translated sql lost the normalization call: %q", sql)
	}
}

func TestCalculateRiskCriticalForCursorsAndDML(t *testing.T) {
	tt := NewTriggerTranslator("postgres", "postgres")
	risk := tt.CalculateRisk(`CREATE TRIGGER t AFTER UPDATE ON x FOR EACH ROW BEGIN DECLARE c CURSOR FOR SELECT 1; END;`)
	if risk != translate.RiskCritical {
		t.Errorf("risk = %v, want RiskCritical for cursor-bearing trigger", risk)
	}
}
