package analyzer

import (
	"strings"
	"testing"

	"github.com/saiql/harness/internal/translate"
)

func TestIdentifyPatternClassification(t *testing.T) {
	v := NewViewTranslator("postgres", "postgres")
	cases := []struct {
		def  string
		want ViewPattern
	}{
		{"SELECT id, name FROM users", ViewSimpleSelect},
		{"SELECT id, name FROM users WHERE active = true", ViewSelectWhere},
		{"SELECT u.id, o.total FROM users u INNER JOIN orders o ON u.id = o.user_id", ViewBasicJoin},
		{"SELECT id, COUNT(*) FROM users GROUP BY id", ViewUnsupported},
		{"SELECT id FROM a UNION SELECT id FROM b", ViewUnsupported},
		{"SELECT id, RANK() OVER (PARTITION BY dept ORDER BY sal) FROM emp", ViewUnsupported},
	}
	for _, c := range cases {
		if got := v.identifyPattern(c.def); got != c.want {
			t.Errorf("identifyPattern(%q) = %v, want %v", c.def, got, c.want)
		}
	}
}

func TestIsSupportedPatternAndTranslate(t *testing.T) {
	v := NewViewTranslator("postgres", "postgres")
	def := "SELECT id, name FROM users WHERE active = true"
	if !v.IsSupportedPattern(def) {
		t.Fatal("expected select_where to be supported")
	}
	sql, risk, err := v.Translate("active_users", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if risk != translate.RiskLow {
		t.Errorf("risk = %v, want RiskLow", risk)
	}
	if !strings.HasPrefix(sql, "CREATE VIEW active_users") {
		t.Errorf("translated sql missing CREATE VIEW wrapper: %q", sql)
	}
}

func TestTranslateUnsupportedReturnsError(t *testing.T) {
	v := NewViewTranslator("postgres", "postgres")
	_, _, err := v.Translate("v", "SELECT a FROM x UNION SELECT b FROM y")
	if err == nil {
		t.Fatal("expected error translating an unsupported pattern")
	}
}

func TestCalculateRiskCriticalForWindowFunctions(t *testing.T) {
	v := NewViewTranslator("postgres", "postgres")
	risk := v.CalculateRisk("SELECT id, ROW_NUMBER() OVER (ORDER BY id) FROM t")
	if risk != translate.RiskCritical {
		t.Errorf("risk = %v, want RiskCritical", risk)
	}
}

func TestOracleOuterJoinSyntaxRejected(t *testing.T) {
	v := NewViewTranslator("oracle", "postgres")
	_, err := v.translateBasicJoin("v", "SELECT a.x, b.y FROM a, b WHERE a.id = b.id(+)")
	if err == nil {
		t.Fatal("expected oracle (+) outer join syntax to be rejected")
	}
}

func TestHasEqualityOnlyOnClauseRejectsRangeOperators(t *testing.T) {
	v := NewViewTranslator("postgres", "postgres")
	if v.hasEqualityOnlyOnClause("SELECT * FROM a JOIN b ON a.id > b.id") {
		t.Error("a range comparison in the ON clause should not count as equality-only")
	}
	if !v.hasEqualityOnlyOnClause("SELECT * FROM a JOIN b ON a.id = b.id") {
		t.Error("a plain equality ON clause should count as equality-only")
	}
}
