// Package translate implements the Translator Engine (L2-L4 higher-order
// object translation): conservative, deterministic, explicitly-flagged
// translation of views, routines, triggers, and packages across dialects.
package translate

// Mode is an explicit translation capability mode.
type Mode string

const (
	// ModeAnalyze parses and reports only; it never emits SQL.
	ModeAnalyze Mode = "analyze"
	// ModeStub generates dialect-aware stubs: view stubs fail loudly on
	// Postgres/Oracle targets and carry documented limitations on
	// MSSQL/MySQL/SQLite targets; routine and trigger stubs fail loudly only
	// on a Postgres target and are comment-only elsewhere.
	ModeStub Mode = "stub"
	// ModeSubsetTranslate translates only proven-safe patterns, falling back
	// to a stub (with mode preserved as subset_translate) for everything else.
	ModeSubsetTranslate Mode = "subset_translate"
)

// ObjectType is a higher-order database object kind.
type ObjectType string

const (
	ObjectView             ObjectType = "view"
	ObjectMaterializedView ObjectType = "materialized_view"
	ObjectProcedure        ObjectType = "procedure"
	ObjectFunction         ObjectType = "function"
	ObjectTrigger          ObjectType = "trigger"
	ObjectPackage          ObjectType = "package"
)

// RiskLevel is the risk assessment for a translation operation.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// SeverityRank is the single canonical severity ordinal table used
// everywhere a deterministic severity sort is required. This resolves the
// ambiguity between two inconsistent orderings upstream: only this ordinal
// table is used, never a lexical comparison of RiskLevel strings.
var SeverityRank = map[RiskLevel]int{
	RiskCritical: 0,
	RiskHigh:     1,
	RiskMedium:   2,
	RiskLow:      3,
}

// Warning is a translation warning. Deterministic ordering is provided by
// report.Generate (severity, object_name, message), not by this type.
type Warning struct {
	Severity   RiskLevel
	ObjectName string
	Message    string
	Reason     string
}

// ManualStep is a manual action required for translation. Deterministic
// ordering is provided by report.Generate (object_name, action).
type ManualStep struct {
	ObjectName string
	Action     string
	Reason     string
}

// Result is the outcome of translating one object.
type Result struct {
	ObjectType ObjectType
	ObjectName string
	Mode       Mode
	SQLOutput  *string // nil for analyze mode
	RiskLevel  RiskLevel
	Warnings   []Warning
	ManualSteps []ManualStep
	Metadata   map[string]any
}
