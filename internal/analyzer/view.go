// Package analyzer implements the conservative whitelist classifiers and
// subset translators for views, triggers, and packages/routines (L2-L4).
package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/saiql/harness/internal/translate"
)

// ViewPattern is a recognized view shape.
type ViewPattern string

const (
	ViewSimpleSelect ViewPattern = "simple_select"
	ViewSelectWhere  ViewPattern = "select_where"
	ViewBasicJoin    ViewPattern = "basic_join"
	ViewUnsupported  ViewPattern = "unsupported"
)

// ViewTranslator is a conservative, whitelist-only view classifier and
// subset translator. Anything not explicitly recognized is UNSUPPORTED.
type ViewTranslator struct {
	SourceDialect string
	TargetDialect string
}

func NewViewTranslator(sourceDialect, targetDialect string) *ViewTranslator {
	return &ViewTranslator{
		SourceDialect: strings.ToLower(sourceDialect),
		TargetDialect: strings.ToLower(targetDialect),
	}
}

// IsSupportedPattern reports whether viewDef matches a supported pattern.
func (v *ViewTranslator) IsSupportedPattern(viewDef string) bool {
	switch v.identifyPattern(viewDef) {
	case ViewSimpleSelect, ViewSelectWhere, ViewBasicJoin:
		return true
	default:
		return false
	}
}

// Translate renders viewDef in the target dialect, returning its risk level.
// Callers must check IsSupportedPattern first; an unsupported pattern
// returns a non-nil error with an empty SQL string and risk level.
func (v *ViewTranslator) Translate(viewName, viewDef string) (string, translate.RiskLevel, error) {
	switch v.identifyPattern(viewDef) {
	case ViewSimpleSelect:
		return v.translateSimpleSelect(viewName, viewDef), translate.RiskSafe, nil
	case ViewSelectWhere:
		return v.translateSelectWhere(viewName, viewDef), translate.RiskLow, nil
	case ViewBasicJoin:
		sql, err := v.translateBasicJoin(viewName, viewDef)
		if err != nil {
			return "", "", err
		}
		return sql, translate.RiskMedium, nil
	default:
		return "", "", fmt.Errorf("unsupported view pattern: call IsSupportedPattern first")
	}
}

// CalculateRisk returns the risk level of translating viewDef, using
// keyword heuristics for unsupported patterns (window functions, set
// operations and CTE/WITH clauses are CRITICAL; anything else unsupported
// is HIGH).
func (v *ViewTranslator) CalculateRisk(viewDef string) translate.RiskLevel {
	switch v.identifyPattern(viewDef) {
	case ViewSimpleSelect:
		return translate.RiskSafe
	case ViewSelectWhere:
		return translate.RiskLow
	case ViewBasicJoin:
		return translate.RiskMedium
	default:
		lower := strings.ToLower(viewDef)
		if containsAny(lower, "window", "partition by") || overPattern.MatchString(lower) {
			return translate.RiskCritical
		}
		if containsAny(lower, "union", "intersect", "except", "cte", "with") {
			return translate.RiskCritical
		}
		if strings.Contains(lower, "subquery") || strings.Count(lower, "select") > 1 {
			return translate.RiskHigh
		}
		return translate.RiskHigh
	}
}

var overPattern = regexp.MustCompile(`\bover\s*\(`)

// GetUnsupportedReason returns a human-readable reason why viewDef is
// unsupported.
func (v *ViewTranslator) GetUnsupportedReason(viewDef string) string {
	lower := strings.ToLower(viewDef)
	switch {
	case containsAny(lower, "window", "partition by") || overPattern.MatchString(lower):
		return "Contains window functions (not in supported subset)"
	case strings.Contains(lower, "union"):
		return "Contains UNION (not in supported subset)"
	case strings.Contains(lower, "intersect") || strings.Contains(lower, "except"):
		return "Contains set operations (not in supported subset)"
	case strings.Contains(lower, "with") && !strings.Contains(lower, "recursive"):
		return "Contains CTE/WITH clause (not in supported subset)"
	case strings.Count(lower, "select") > 1:
		return "Contains subqueries (not in supported subset)"
	case strings.Contains(lower, "left join") || strings.Contains(lower, "right join") || strings.Contains(lower, "full join"):
		return "Contains outer joins (not in supported subset)"
	case strings.Contains(lower, "cross join"):
		return "Contains cross join (not in supported subset)"
	default:
		return "Complex pattern not in supported subset"
	}
}

var unsupportedViewKeywords = []string{
	"union", "intersect", "except", "window", "partition by",
	"left join", "right join", "full join", "cross join",
	"with", "materialized", "distinct on",
}

var aggregateKeywords = []string{"count(", "sum(", "avg(", "max(", "min("}

func (v *ViewTranslator) identifyPattern(viewDef string) ViewPattern {
	lower := strings.ToLower(viewDef)

	if containsAny(lower, unsupportedViewKeywords...) {
		return ViewUnsupported
	}
	if overPattern.MatchString(lower) {
		return ViewUnsupported
	}
	if strings.Count(lower, "select") > 1 {
		return ViewUnsupported
	}
	if strings.Contains(lower, "group by") || strings.Contains(lower, "having") || strings.Contains(lower, "order by") {
		return ViewUnsupported
	}
	if containsAny(lower, aggregateKeywords...) {
		return ViewUnsupported
	}
	if strings.Contains(lower, "distinct") {
		return ViewUnsupported
	}

	if strings.Contains(lower, "join") {
		if strings.Contains(lower, "inner join") {
			fromCount := strings.Count(lower, "from")
			joinCount := strings.Count(lower, "join")
			if fromCount == 1 && joinCount == 1 {
				if !v.hasEqualityOnlyOnClause(viewDef) {
					return ViewUnsupported
				}
				return ViewBasicJoin
			}
		}
		return ViewUnsupported
	}

	if strings.Contains(lower, "where") {
		if strings.Contains(lower, "from") {
			whereSection := ""
			if idx := strings.Index(lower, "where"); idx != -1 {
				whereSection = lower[idx+len("where"):]
			}
			if !strings.Contains(whereSection, "select") {
				return ViewSelectWhere
			}
		}
		return ViewUnsupported
	}

	if strings.Contains(lower, "select") && strings.Contains(lower, "from") {
		if v.hasComputedColumns(viewDef) {
			return ViewUnsupported
		}
		return ViewSimpleSelect
	}

	return ViewUnsupported
}

var (
	wildcardLeading  = regexp.MustCompile(`(?:^|,\s*)(?:\w+\.)*\*(?:\s*,|\s*$)`)
	wildcardBare     = regexp.MustCompile(`(?:^|,\s*)\*(?:\s*,|\s*$)`)
	arithmeticOpsRe  = regexp.MustCompile(`[+\-*/]`)
	caseWhenRe       = regexp.MustCompile(`\bcase\s+when\b`)
)

var computedFunctions = []string{
	"cast", "concat", "coalesce", "nvl", "ifnull",
	"substr", "substring", "trim", "ltrim", "rtrim",
	"upper", "lower", "initcap",
	"extract", "date_part", "to_char", "to_date",
	"round", "trunc", "floor", "ceil",
	"length", "char_length",
	"replace", "translate",
}

func (v *ViewTranslator) hasComputedColumns(viewDef string) bool {
	lower := strings.ToLower(viewDef)
	if !strings.Contains(lower, "select") || !strings.Contains(lower, "from") {
		return false
	}
	selectStart := strings.Index(lower, "select") + len("select")
	fromPos := strings.Index(lower, "from")
	if fromPos < selectStart {
		return false
	}
	selectClause := strings.TrimSpace(lower[selectStart:fromPos])

	noWildcards := wildcardLeading.ReplaceAllString(selectClause, " ")
	noWildcards = wildcardBare.ReplaceAllString(noWildcards, " ")

	if arithmeticOpsRe.MatchString(noWildcards) {
		return true
	}
	if strings.Contains(selectClause, "||") {
		return true
	}
	if caseWhenRe.MatchString(selectClause) {
		return true
	}
	for _, fn := range computedFunctions {
		if regexp.MustCompile(`\b` + fn + `\s*\(`).MatchString(selectClause) {
			return true
		}
	}
	return false
}

func (v *ViewTranslator) hasEqualityOnlyOnClause(viewDef string) bool {
	lower := strings.ToLower(viewDef)
	onPos := strings.Index(lower, " on ")
	if onPos == -1 {
		return false
	}
	afterOn := lower[onPos+4:]

	endKeywords := []string{"where", "group by", "having", "order by", "union", "limit"}
	endPos := len(afterOn)
	for _, kw := range endKeywords {
		if pos := strings.Index(afterOn, kw); pos != -1 && pos < endPos {
			endPos = pos
		}
	}
	onClause := strings.TrimSpace(afterOn[:endPos])

	for _, op := range []string{">", "<", ">=", "<=", "!=", "<>"} {
		if strings.Contains(onClause, op) {
			return false
		}
	}
	if regexp.MustCompile(`\bbetween\b`).MatchString(onClause) {
		return false
	}
	if regexp.MustCompile(`\blike\b`).MatchString(onClause) {
		return false
	}
	if regexp.MustCompile(`\bnot\s+in\b`).MatchString(onClause) {
		return false
	}
	if regexp.MustCompile(`\bin\s*\(`).MatchString(onClause) {
		return false
	}
	return strings.Contains(onClause, "=")
}

var (
	forceKeywordRe       = regexp.MustCompile(`(?i)\bFORCE\b`)
	editionableKeywordRe = regexp.MustCompile(`(?i)\bEDITIONABLE\b`)
)

func (v *ViewTranslator) stripOracleKeywords(sql string) string {
	sql = forceKeywordRe.ReplaceAllString(sql, "")
	sql = editionableKeywordRe.ReplaceAllString(sql, "")
	return sql
}

func ensureCreateView(sql, viewName string) string {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "CREATE") {
		return fmt.Sprintf("CREATE VIEW %s AS\n%s", viewName, sql)
	}
	return sql
}

func (v *ViewTranslator) translateSimpleSelect(viewName, viewDef string) string {
	sql := strings.TrimSpace(viewDef)
	sql = v.stripOracleKeywords(sql)
	sql = ensureCreateView(sql, viewName)
	return strings.TrimSpace(sql)
}

var eqOneRe = regexp.MustCompile(`=\s*1\b`)
var eqZeroRe = regexp.MustCompile(`=\s*0\b`)

func (v *ViewTranslator) translateSelectWhere(viewName, viewDef string) string {
	sql := strings.TrimSpace(viewDef)
	sql = v.stripOracleKeywords(sql)

	if v.SourceDialect == "oracle" && v.TargetDialect == "postgres" {
		sql = eqOneRe.ReplaceAllString(sql, "= true")
		sql = eqZeroRe.ReplaceAllString(sql, "= false")
	}

	sql = ensureCreateView(sql, viewName)
	return strings.TrimSpace(sql)
}

func (v *ViewTranslator) translateBasicJoin(viewName, viewDef string) (string, error) {
	sql := strings.TrimSpace(viewDef)
	sql = v.stripOracleKeywords(sql)

	if strings.Contains(sql, "(+)") {
		return "", fmt.Errorf("oracle outer join syntax (+) detected - not supported")
	}

	sql = ensureCreateView(sql, viewName)
	return strings.TrimSpace(sql), nil
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
