// Package report implements the deterministic Report Generator: object
// counts, risk summary, deduplicated manual-steps checklist, and sorted
// warnings, rendered as text or as a machine-readable map for JSON export.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/saiql/harness/internal/translate"
)

// WarningEntry and StepEntry are the report's flattened, JSON-friendly
// projections of translate.Warning / translate.ManualStep — each carries
// both "object" (legacy alias) and "object_name" keys for compatibility with
// the machine report schema in the specification.
type WarningEntry struct {
	Severity   string `json:"severity"`
	Object     string `json:"object"`
	ObjectName string `json:"object_name"`
	Message    string `json:"message"`
	Reason     string `json:"reason"`
}

type StepEntry struct {
	Object     string `json:"object"`
	ObjectName string `json:"object_name"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

// Counts is the object-count breakdown.
type Counts struct {
	Detected      int            `json:"detected"`
	Translated    int            `json:"translated"`
	Stubbed       int            `json:"stubbed"`
	AnalyzedOnly  int            `json:"analyzed_only"`
	ByType        map[string]int `json:"by_type"`
	SQLOutputSize int64          `json:"sql_output_bytes"`
}

// RiskSummary is the fixed, always-five-keys risk level breakdown.
type RiskSummary struct {
	Safe     int `json:"safe"`
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Report is a deterministic translation report built from a run's results.
type Report struct {
	Results       []translate.Result
	Mode          translate.Mode
	SourceDialect string
	TargetDialect string

	Counts      Counts
	RiskSummary RiskSummary
	ManualSteps []StepEntry
	Warnings    []WarningEntry
}

// Generate builds a Report from a run's accumulated translation results.
func Generate(results []translate.Result, mode translate.Mode, sourceDialect, targetDialect string) *Report {
	r := &Report{
		Results:       results,
		Mode:          mode,
		SourceDialect: sourceDialect,
		TargetDialect: targetDialect,
	}
	r.Counts = calculateCounts(results)
	r.RiskSummary = calculateRiskSummary(results)
	r.ManualSteps = collectManualSteps(results)
	r.Warnings = collectWarnings(results)
	return r
}

func calculateCounts(results []translate.Result) Counts {
	c := Counts{Detected: len(results), ByType: map[string]int{}}
	for _, res := range results {
		c.ByType[string(res.ObjectType)]++
	}
	for _, res := range results {
		switch {
		case res.SQLOutput == nil:
			c.AnalyzedOnly++
		case strings.Contains(*res.SQLOutput, "STUB"):
			c.Stubbed++
			c.SQLOutputSize += int64(len(*res.SQLOutput))
		default:
			c.Translated++
			c.SQLOutputSize += int64(len(*res.SQLOutput))
		}
	}
	return c
}

func calculateRiskSummary(results []translate.Result) RiskSummary {
	var s RiskSummary
	for _, res := range results {
		switch res.RiskLevel {
		case translate.RiskSafe:
			s.Safe++
		case translate.RiskLow:
			s.Low++
		case translate.RiskMedium:
			s.Medium++
		case translate.RiskHigh:
			s.High++
		case translate.RiskCritical:
			s.Critical++
		}
	}
	return s
}

// collectManualSteps dedups by (object_name, action) and sorts by the same tuple.
func collectManualSteps(results []translate.Result) []StepEntry {
	seen := map[string]bool{}
	var steps []StepEntry
	for _, res := range results {
		for _, step := range res.ManualSteps {
			key := step.ObjectName + "|" + step.Action
			if seen[key] {
				continue
			}
			seen[key] = true
			steps = append(steps, StepEntry{
				Object:     step.ObjectName,
				ObjectName: step.ObjectName,
				Action:     step.Action,
				Reason:     step.Reason,
			})
		}
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].ObjectName != steps[j].ObjectName {
			return steps[i].ObjectName < steps[j].ObjectName
		}
		return steps[i].Action < steps[j].Action
	})
	return steps
}

// collectWarnings sorts by the canonical (severity, object_name, message) tuple.
func collectWarnings(results []translate.Result) []WarningEntry {
	var warnings []WarningEntry
	for _, res := range results {
		for _, w := range res.Warnings {
			warnings = append(warnings, WarningEntry{
				Severity:   string(w.Severity),
				Object:     w.ObjectName,
				ObjectName: w.ObjectName,
				Message:    w.Message,
				Reason:     w.Reason,
			})
		}
	}
	sort.SliceStable(warnings, func(i, j int) bool {
		ri := translate.SeverityRank[translate.RiskLevel(warnings[i].Severity)]
		rj := translate.SeverityRank[translate.RiskLevel(warnings[j].Severity)]
		if ri != rj {
			return ri < rj
		}
		if warnings[i].ObjectName != warnings[j].ObjectName {
			return warnings[i].ObjectName < warnings[j].ObjectName
		}
		return warnings[i].Message < warnings[j].Message
	})
	return warnings
}

// ToText renders the deterministic human-readable report.
func (r *Report) ToText() string {
	var b strings.Builder
	bar := strings.Repeat("=", 80)

	b.WriteString(bar + "\n")
	b.WriteString("SAIQL Translation Report\n")
	b.WriteString(bar + "\n")
	fmt.Fprintf(&b, "Mode: %s\n\n", r.Mode)

	b.WriteString("Object Counts\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "  Detected:      %s\n", humanize.Comma(int64(r.Counts.Detected)))
	switch r.Mode {
	case translate.ModeSubsetTranslate:
		fmt.Fprintf(&b, "  Translated:    %s\n", humanize.Comma(int64(r.Counts.Translated)))
		fmt.Fprintf(&b, "  Stubbed:       %s\n", humanize.Comma(int64(r.Counts.Stubbed)))
	case translate.ModeStub:
		fmt.Fprintf(&b, "  Stubbed:       %s\n", humanize.Comma(int64(r.Counts.Stubbed)))
	case translate.ModeAnalyze:
		fmt.Fprintf(&b, "  Analyzed Only: %s\n", humanize.Comma(int64(r.Counts.AnalyzedOnly)))
	}
	if r.Counts.SQLOutputSize > 0 {
		fmt.Fprintf(&b, "  SQL Generated: %s\n", humanize.Bytes(uint64(r.Counts.SQLOutputSize)))
	}
	b.WriteString("\n")

	if len(r.Counts.ByType) > 0 {
		b.WriteString("  By Type:\n")
		types := make([]string, 0, len(r.Counts.ByType))
		for t := range r.Counts.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "    %-15s %d\n", t, r.Counts.ByType[t])
		}
		b.WriteString("\n")
	}

	b.WriteString("Risk Summary\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, kv := range []struct {
		name  string
		count int
	}{
		{"safe", r.RiskSummary.Safe},
		{"low", r.RiskSummary.Low},
		{"medium", r.RiskSummary.Medium},
		{"high", r.RiskSummary.High},
		{"critical", r.RiskSummary.Critical},
	} {
		if kv.count > 0 {
			fmt.Fprintf(&b, "  %-10s %d\n", strings.ToUpper(kv.name), kv.count)
		}
	}
	b.WriteString("\n")

	if len(r.Warnings) > 0 {
		b.WriteString("Warnings\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, w := range r.Warnings {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, strings.ToUpper(w.Severity), w.ObjectName)
			fmt.Fprintf(&b, "     %s\n", w.Message)
			if w.Reason != "" {
				fmt.Fprintf(&b, "     Reason: %s\n", w.Reason)
			}
			b.WriteString("\n")
		}
	}

	if len(r.ManualSteps) > 0 {
		b.WriteString("Manual Steps Checklist\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, s := range r.ManualSteps {
			fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, s.ObjectName, s.Action)
			if s.Reason != "" {
				fmt.Fprintf(&b, "     Reason: %s\n", s.Reason)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(bar + "\n")
	b.WriteString("End of Report\n")
	b.WriteString(bar)
	return b.String()
}

// ToMap renders the machine-readable report, matching the external machine
// report schema (plus legacy total_objects/objects_by_type aliases).
func (r *Report) ToMap() map[string]any {
	out := map[string]any{
		"mode":           string(r.Mode),
		"counts":         r.Counts,
		"risk_summary":   r.RiskSummary,
		"warnings":       r.Warnings,
		"manual_steps":   r.ManualSteps,
		"total_objects":  r.Counts.Detected,
		"objects_by_type": r.Counts.ByType,
	}
	if r.SourceDialect != "" {
		out["source_dialect"] = r.SourceDialect
	}
	if r.TargetDialect != "" {
		out["target_dialect"] = r.TargetDialect
	}
	return out
}
