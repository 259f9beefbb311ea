package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/saiql/harness/internal/translate"
)

// TriggerPattern is a recognized trigger shape.
type TriggerPattern string

const (
	TriggerBeforeInsertNormalize TriggerPattern = "before_insert_normalize"
	TriggerBeforeUpdateNormalize TriggerPattern = "before_update_normalize"
	TriggerUnsupported           TriggerPattern = "unsupported"
)

// TriggerTranslator is a conservative, whitelist-only trigger classifier and
// subset translator, restricted to BEFORE INSERT/UPDATE single-statement
// column normalization using only UPPER/LOWER/TRIM/LTRIM/RTRIM.
type TriggerTranslator struct {
	SourceDialect string
	TargetDialect string
}

func NewTriggerTranslator(sourceDialect, targetDialect string) *TriggerTranslator {
	return &TriggerTranslator{
		SourceDialect: strings.ToLower(sourceDialect),
		TargetDialect: strings.ToLower(targetDialect),
	}
}

func (t *TriggerTranslator) IsSupportedPattern(triggerDef string) bool {
	switch t.identifyPattern(triggerDef) {
	case TriggerBeforeInsertNormalize, TriggerBeforeUpdateNormalize:
		return true
	default:
		return false
	}
}

func (t *TriggerTranslator) Translate(triggerName, triggerDef string) (string, translate.RiskLevel, error) {
	switch t.identifyPattern(triggerDef) {
	case TriggerBeforeInsertNormalize:
		return t.translateBeforeInsert(triggerName, triggerDef), translate.RiskLow, nil
	case TriggerBeforeUpdateNormalize:
		return t.translateBeforeUpdate(triggerName, triggerDef), translate.RiskLow, nil
	default:
		return "", "", fmt.Errorf("unsupported trigger pattern: call IsSupportedPattern first")
	}
}

func (t *TriggerTranslator) CalculateRisk(triggerDef string) translate.RiskLevel {
	switch t.identifyPattern(triggerDef) {
	case TriggerBeforeInsertNormalize, TriggerBeforeUpdateNormalize:
		return translate.RiskLow
	default:
		lower := strings.ToLower(triggerDef)
		if containsAny(lower, "cursor", "loop", "while", "for") {
			return translate.RiskCritical
		}
		if containsAny(lower, "select", "insert", "update", "delete", "merge") {
			return translate.RiskCritical
		}
		if containsAny(lower, "exception", "raise", "rollback") {
			return translate.RiskCritical
		}
		if strings.Contains(lower, "if") || strings.Contains(lower, "case") {
			return translate.RiskHigh
		}
		return translate.RiskCritical
	}
}

func (t *TriggerTranslator) GetUnsupportedReason(triggerDef string) string {
	lower := strings.ToLower(triggerDef)
	switch {
	case containsAny(lower, "cursor", "loop", "while", "for"):
		return "Contains loops or cursors (not in supported subset)"
	case strings.Contains(lower, "select") && strings.Contains(lower, "into"):
		return "Contains SELECT INTO (not in supported subset)"
	case containsAny(lower, "insert", "update", "delete", "merge"):
		return "Contains DML operations (not in supported subset)"
	case containsAny(lower, "exception", "raise", "rollback"):
		return "Contains exception handling (not in supported subset)"
	case strings.Contains(lower, "after") && containsAny(lower, "insert", "update", "delete"):
		return "AFTER triggers not in supported subset (only BEFORE INSERT/UPDATE normalization)"
	case strings.Contains(lower, "instead of"):
		return "INSTEAD OF triggers not in supported subset"
	case strings.Contains(lower, "for each statement") || strings.Contains(lower, "statement level"):
		return "Statement-level triggers not in supported subset (only row-level)"
	case strings.Contains(lower, "if") || strings.Contains(lower, "case"):
		return "Contains conditional logic (not in supported subset)"
	default:
		return "Complex trigger pattern not in supported subset"
	}
}

var (
	ifWordRe   = regexp.MustCompile(`\bif\b`)
	caseWordRe = regexp.MustCompile(`\bcase\b`)
	updateSetRe = regexp.MustCompile(`update\s+\w+\s+set`)
)

func (t *TriggerTranslator) identifyPattern(triggerDef string) TriggerPattern {
	lower := strings.ToLower(triggerDef)

	if strings.Contains(lower, "after") && containsAny(lower, "insert", "update", "delete") {
		return TriggerUnsupported
	}
	if strings.Contains(lower, "instead of") {
		return TriggerUnsupported
	}
	if strings.Contains(lower, "for each statement") || strings.Contains(lower, "statement level") {
		return TriggerUnsupported
	}

	body := t.extractTriggerBody(triggerDef)
	if body != "" {
		bodyLower := strings.ToLower(body)
		if containsAny(bodyLower, "cursor", "loop", "while", "for ", " for(") {
			return TriggerUnsupported
		}
		if containsAny(bodyLower, "exception", "raise", "rollback") {
			return TriggerUnsupported
		}
		if containsAny(bodyLower, "select", "delete", "merge") {
			return TriggerUnsupported
		}
	}

	if ifWordRe.MatchString(lower) || caseWordRe.MatchString(lower) {
		return TriggerUnsupported
	}

	if strings.Contains(lower, "insert into") {
		return TriggerUnsupported
	}

	if updateSetRe.MatchString(lower) {
		return TriggerUnsupported
	}

	if strings.Contains(lower, "before insert") {
		if t.isSimpleNormalization(triggerDef) {
			return TriggerBeforeInsertNormalize
		}
		return TriggerUnsupported
	}

	if strings.Contains(lower, "before update") {
		if t.isSimpleNormalization(triggerDef) {
			return TriggerBeforeUpdateNormalize
		}
		return TriggerUnsupported
	}

	return TriggerUnsupported
}

var allowedNormalizationFunctions = map[string]bool{
	"upper": true, "lower": true, "trim": true, "ltrim": true, "rtrim": true,
}

var functionCallRe = regexp.MustCompile(`\b(\w+)\s*\(`)

func (t *TriggerTranslator) isSimpleNormalization(triggerDef string) bool {
	body := t.extractTriggerBody(triggerDef)
	if body == "" {
		return false
	}
	bodyLower := strings.ToLower(body)

	var statements []string
	for _, s := range strings.Split(bodyLower, ";") {
		s = strings.TrimSpace(s)
		if s != "" && s != "end" {
			statements = append(statements, s)
		}
	}
	if len(statements) > 1 {
		return false
	}

	if ifWordRe.MatchString(bodyLower) || caseWordRe.MatchString(bodyLower) || regexp.MustCompile(`\bwhen\b`).MatchString(bodyLower) {
		return false
	}

	if containsAny(bodyLower, "select", "insert", "delete", "merge") {
		return false
	}

	if containsAny(bodyLower, "loop", "while", "for ") {
		return false
	}

	if !strings.Contains(bodyLower, ":new.") && !strings.Contains(bodyLower, "new.") {
		return false
	}

	calls := functionCallRe.FindAllStringSubmatch(bodyLower, -1)
	for _, m := range calls {
		if !allowedNormalizationFunctions[m[1]] {
			return false
		}
	}

	if !strings.Contains(body, ":=") && !strings.Contains(body, "=") {
		return false
	}

	return len(calls) > 0
}

var (
	beginEndRe  = regexp.MustCompile(`(?is)\bbegin\b(.+?)\bend\b`)
	dollarRe    = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	asBlockRe   = regexp.MustCompile(`(?is)\bas\s+(.+?)(?:;|$)`)
	trailingEnd = regexp.MustCompile(`(?i)\bend\s*;?\s*$`)
)

func (t *TriggerTranslator) extractTriggerBody(triggerDef string) string {
	if m := beginEndRe.FindStringSubmatch(triggerDef); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := dollarRe.FindStringSubmatch(triggerDef); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := asBlockRe.FindStringSubmatch(triggerDef); m != nil {
		body := strings.TrimSpace(m[1])
		body = trailingEnd.ReplaceAllString(body, "")
		return body
	}
	return ""
}

var (
	newRefRe  = regexp.MustCompile(`(?i):NEW\.`)
	oldRefRe  = regexp.MustCompile(`(?i):OLD\.`)
	assignRe  = regexp.MustCompile(`:=`)
	execFnRe  = regexp.MustCompile(`(?i)(EXECUTE\s+(?:PROCEDURE|FUNCTION))`)
	tableOnRe = regexp.MustCompile(`(?i)\bon\s+(\w+)`)
)

func (t *TriggerTranslator) translateBeforeInsert(triggerName, triggerDef string) string {
	return t.translateNormalize(triggerName, triggerDef, "INSERT")
}

func (t *TriggerTranslator) translateBeforeUpdate(triggerName, triggerDef string) string {
	return t.translateNormalize(triggerName, triggerDef, "UPDATE")
}

func (t *TriggerTranslator) translateNormalize(triggerName, triggerDef, event string) string {
	sql := strings.TrimSpace(triggerDef)

	if t.SourceDialect == "oracle" && t.TargetDialect == "postgres" {
		sql = forceKeywordRe.ReplaceAllString(sql, "")
		sql = editionableKeywordRe.ReplaceAllString(sql, "")
		sql = newRefRe.ReplaceAllString(sql, "NEW.")
		sql = oldRefRe.ReplaceAllString(sql, "OLD.")
		sql = assignRe.ReplaceAllString(sql, "=")

		if !strings.Contains(strings.ToLower(sql), "for each row") {
			sql = execFnRe.ReplaceAllString(sql, "FOR EACH ROW $1")
		}

		lower := strings.ToLower(sql)
		if strings.Contains(lower, "begin") && !strings.Contains(lower, "execute function") {
			sql = t.convertToPostgresFunctionTrigger(triggerName, sql, event)
		}
	}

	return strings.TrimSpace(sql)
}

func (t *TriggerTranslator) convertToPostgresFunctionTrigger(triggerName, triggerDef, event string) string {
	body := t.extractTriggerBody(triggerDef)
	body = newRefRe.ReplaceAllString(body, "NEW.")
	body = oldRefRe.ReplaceAllString(body, "OLD.")
	body = assignRe.ReplaceAllString(body, "=")

	tableName := "unknown_table"
	if m := tableOnRe.FindStringSubmatch(triggerDef); m != nil {
		tableName = m[1]
	}

	funcName := triggerName + "_func"
	body = strings.TrimRight(strings.TrimRight(strings.TrimSpace(body), ";"), " ")

	return fmt.Sprintf(`-- Trigger function for %s
CREATE OR REPLACE FUNCTION %s()
RETURNS trigger AS $$
BEGIN
    %s;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

-- Trigger
CREATE TRIGGER %s
BEFORE %s ON %s
FOR EACH ROW
EXECUTE FUNCTION %s();
`, triggerName, funcName, body, triggerName, event, tableName, funcName)
}
