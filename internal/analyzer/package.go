package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PackageMember is a procedure or function declared within a package/routine.
type PackageMember struct {
	MemberType string // "procedure" or "function"
	Name       string
	Parameters []string
	ReturnType string // empty for procedures
}

// PackageAnalysis is the analysis result for an Oracle-style package (or any
// routine collection treated the same conservative way).
type PackageAnalysis struct {
	PackageName      string
	HasSpec          bool
	HasBody          bool
	Procedures       []PackageMember
	Functions        []PackageMember
	Dependencies     []string // advisory only, never used for ordering
	ComplexityScore  int      // 0-100
	Warnings         []string
	ManualSteps      []string
}

// PackageAnalyzer conservatively analyzes package structure: spec/body
// detection, member extraction, advisory dependency extraction, complexity
// scoring, and warning/checklist generation. It never attempts translation.
type PackageAnalyzer struct {
	SourceDialect string
	TargetDialect string
}

func NewPackageAnalyzer(sourceDialect, targetDialect string) *PackageAnalyzer {
	if sourceDialect == "" {
		sourceDialect = "oracle"
	}
	if targetDialect == "" {
		targetDialect = "postgres"
	}
	return &PackageAnalyzer{SourceDialect: sourceDialect, TargetDialect: targetDialect}
}

var packageSpecRe = regexp.MustCompile(`(?i)CREATE\s+(OR\s+REPLACE\s+)?PACKAGE\s+\w+`)
var packageBodyRe = regexp.MustCompile(`(?i)CREATE\s+(OR\s+REPLACE\s+)?PACKAGE\s+BODY\s+\w+`)

func (p *PackageAnalyzer) Analyze(packageDef, packageName string) PackageAnalysis {
	hasSpec := packageSpecRe.MatchString(packageDef)
	hasBody := packageBodyRe.MatchString(packageDef)

	procedures := p.extractProcedures(packageDef)
	functions := p.extractFunctions(packageDef)
	dependencies := p.extractDependencies(packageDef)
	complexity := p.calculateComplexity(packageDef, procedures, functions)
	warnings := p.generateWarnings(packageDef, procedures, functions)
	manualSteps := p.generateManualSteps(packageName, procedures, functions)

	return PackageAnalysis{
		PackageName:     packageName,
		HasSpec:         hasSpec,
		HasBody:         hasBody,
		Procedures:      procedures,
		Functions:       functions,
		Dependencies:    dependencies,
		ComplexityScore: complexity,
		Warnings:        warnings,
		ManualSteps:     manualSteps,
	}
}

var (
	procWithParamsRe = regexp.MustCompile(`(?is)PROCEDURE\s+(\w+)\s*\((.*?)\)`)
	procNoParamsRe   = regexp.MustCompile(`(?i)PROCEDURE\s+(\w+)\s*(?:;|IS|AS)`)
)

func (p *PackageAnalyzer) extractProcedures(packageDef string) []PackageMember {
	var procedures []PackageMember
	seen := map[string]bool{}

	for _, m := range procWithParamsRe.FindAllStringSubmatch(packageDef, -1) {
		name := m[1]
		upper := strings.ToUpper(name)
		if !seen[upper] {
			seen[upper] = true
			procedures = append(procedures, PackageMember{
				MemberType: "procedure",
				Name:       name,
				Parameters: parseParameters(m[2]),
			})
		}
	}
	for _, m := range procNoParamsRe.FindAllStringSubmatch(packageDef, -1) {
		name := m[1]
		upper := strings.ToUpper(name)
		if !seen[upper] {
			seen[upper] = true
			procedures = append(procedures, PackageMember{MemberType: "procedure", Name: name})
		}
	}
	return procedures
}

const returnTypeFragment = `[\w.]+(?:\s*\(\s*\d+(?:\s*,\s*\d+)?\s*\))?(?:%TYPE|%ROWTYPE)?`

var (
	funcWithParamsRe = regexp.MustCompile(`(?is)FUNCTION\s+(\w+)\s*\((.*?)\)\s+RETURN\s+(` + returnTypeFragment + `)`)
	funcNoParamsRe   = regexp.MustCompile(`(?i)FUNCTION\s+(\w+)\s+RETURN\s+(` + returnTypeFragment + `)`)
)

func (p *PackageAnalyzer) extractFunctions(packageDef string) []PackageMember {
	var functions []PackageMember
	seen := map[string]bool{}

	for _, m := range funcWithParamsRe.FindAllStringSubmatch(packageDef, -1) {
		name := m[1]
		upper := strings.ToUpper(name)
		if !seen[upper] {
			seen[upper] = true
			functions = append(functions, PackageMember{
				MemberType: "function",
				Name:       name,
				Parameters: parseParameters(m[2]),
				ReturnType: strings.TrimSpace(m[3]),
			})
		}
	}
	for _, m := range funcNoParamsRe.FindAllStringSubmatch(packageDef, -1) {
		name := m[1]
		upper := strings.ToUpper(name)
		if !seen[upper] {
			seen[upper] = true
			functions = append(functions, PackageMember{
				MemberType: "function",
				Name:       name,
				ReturnType: strings.TrimSpace(m[2]),
			})
		}
	}
	return functions
}

func parseParameters(paramsStr string) []string {
	if strings.TrimSpace(paramsStr) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(paramsStr, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	fromClauseRe   = regexp.MustCompile(`(?i)FROM\s+(\w+)`)
	joinClauseRe   = regexp.MustCompile(`(?i)JOIN\s+(\w+)`)
	insertClauseRe = regexp.MustCompile(`(?i)INSERT\s+INTO\s+(\w+)`)
	updateClauseRe = regexp.MustCompile(`(?i)UPDATE\s+(\w+)`)
)

// extractDependencies returns a sorted, deduplicated set of table/view/other
// package names referenced in packageDef. Advisory only: never used for
// topological ordering anywhere in this harness.
func (p *PackageAnalyzer) extractDependencies(packageDef string) []string {
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{fromClauseRe, joinClauseRe, insertClauseRe, updateClauseRe} {
		for _, m := range re.FindAllStringSubmatch(packageDef, -1) {
			seen[m[1]] = true
		}
	}
	deps := make([]string, 0, len(seen))
	for d := range seen {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

var controlFlowRe = regexp.MustCompile(`(?i)\b(IF|LOOP|CASE|FOR|WHILE)\b`)
var dmlOpsRe = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE)\b`)
var cursorRe = regexp.MustCompile(`(?i)\bCURSOR\b`)

func capAt(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func (p *PackageAnalyzer) calculateComplexity(packageDef string, procedures, functions []PackageMember) int {
	score := 0

	memberCount := len(procedures) + len(functions)
	score += capAt(memberCount*5, 20)

	lineCount := 0
	for _, line := range strings.Split(packageDef, "\n") {
		if strings.TrimSpace(line) != "" {
			lineCount++
		}
	}
	score += capAt(lineCount/10, 30)

	score += capAt(len(controlFlowRe.FindAllString(packageDef, -1))*2, 20)
	score += capAt(len(dmlOpsRe.FindAllString(packageDef, -1))*3, 15)
	score += capAt(len(cursorRe.FindAllString(packageDef, -1))*5, 15)

	return capAt(score, 100)
}

func (p *PackageAnalyzer) generateWarnings(packageDef string, procedures, functions []PackageMember) []string {
	var warnings []string
	upper := strings.ToUpper(packageDef)

	if len(procedures)+len(functions) > 10 {
		warnings = append(warnings, fmt.Sprintf("High member count: %d procedures, %d functions", len(procedures), len(functions)))
	}
	if strings.Contains(upper, "CURSOR") {
		warnings = append(warnings, "Package uses cursors (requires manual rewrite)")
	}
	if strings.Contains(upper, "INSERT") || strings.Contains(upper, "UPDATE") || strings.Contains(upper, "DELETE") {
		warnings = append(warnings, "Package contains DML operations (review for side effects)")
	}
	if strings.Contains(upper, "PRAGMA AUTONOMOUS_TRANSACTION") {
		warnings = append(warnings, "Package uses autonomous transactions (not portable)")
	}
	if strings.Contains(upper, "ROWNUM") {
		warnings = append(warnings, "Package uses ROWNUM (Oracle-specific)")
	}
	if strings.Contains(upper, "CONNECT BY") {
		warnings = append(warnings, "Package uses hierarchical queries (CONNECT BY)")
	}
	return warnings
}

func (p *PackageAnalyzer) generateManualSteps(packageName string, procedures, functions []PackageMember) []string {
	steps := []string{
		fmt.Sprintf("Review %s package specification and body", packageName),
		"Identify dependencies on other packages or schemas",
	}
	if len(procedures) > 0 {
		steps = append(steps, fmt.Sprintf("Manually rewrite %d procedures in target dialect", len(procedures)))
	}
	if len(functions) > 0 {
		steps = append(steps, fmt.Sprintf("Manually rewrite %d functions in target dialect", len(functions)))
	}
	steps = append(steps,
		fmt.Sprintf("Consider refactoring package into separate modules for %s", p.TargetDialect),
		"Create comprehensive test suite for package behavior",
		"Validate business logic equivalence after rewrite",
	)
	return steps
}
