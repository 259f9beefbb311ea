// Package harness implements the Run Harness / Bundle Writer: it walks
// L0-L4 against a paired source/target dialect.Adapter, accumulates
// translate.Result values, and flushes a deterministic, secret-redacted
// evidence bundle to disk. Lock handling generalizes the teacher's bare
// os.Stat/os.Create lock file in migration.go's acquireLock/releaseLock to
// github.com/gofrs/flock, and checksums follow the teacher's
// computeChecksum (sha256 + hex).
package harness

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	oj "github.com/oarkflow/json"

	"github.com/saiql/harness/internal/dialect"
	"github.com/saiql/harness/internal/harnesserr"
	"github.com/saiql/harness/internal/harnesslog"
	"github.com/saiql/harness/internal/report"
	"github.com/saiql/harness/internal/translate"
)

// Status is the run's terminal disposition.
type Status string

const (
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusIncomplete Status = "INCOMPLETE"
)

// EndpointInfo is the redacted connection summary recorded in the manifest:
// host, port, service, and user only — never password, token, or full DSN.
type EndpointInfo struct {
	Engine  string `json:"engine"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Service string `json:"service"`
	User    string `json:"user"`
}

func redactEndpoint(engine string, c dialect.Config) EndpointInfo {
	return EndpointInfo{Engine: engine, Host: c.Host, Port: c.Port, Service: c.Database, User: c.User}
}

// LevelResult summarizes one L0-L4 pass for the manifest's per_level_results.
type LevelResult struct {
	Level     string `json:"level"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Errored   int    `json:"errored"`
}

// Manifest is run_manifest.json's shape.
type Manifest struct {
	RunID               string                 `json:"run_id"`
	StartedAt           time.Time              `json:"started_at"`
	FinishedAt          time.Time              `json:"finished_at"`
	Source              EndpointInfo           `json:"source"`
	Target              EndpointInfo           `json:"target"`
	SourceVersion       string                 `json:"source_db_version,omitempty"`
	TargetVersion       string                 `json:"target_db_version,omitempty"`
	SeedHash            string                 `json:"seed_hash"`
	PerLevelResults     map[string]LevelResult `json:"per_level_results"`
	OverallStatus       Status                 `json:"overall_status"`
	Errors              []string               `json:"errors,omitempty"`
}

// Run is one harness orchestration in progress: it owns the lock, the
// accumulated translate.Result values, per-level bookkeeping, and the
// output directory the bundle is eventually flushed to.
type Run struct {
	RunID     string
	OutputDir string
	Source    EndpointInfo
	Target    EndpointInfo

	startedAt    time.Time
	lock         *flock.Flock
	lockAcquired bool

	results    []translate.Result
	perLevel   map[dialect.Level]*LevelResult
	errors     []string
	ddlFiles   map[string]string // filename -> content, for ddl/ artifacts
}

// New starts a run: generates a fresh run_id and prepares the output
// directory (spec.md §4.6 step 1-2).
func New(outputDir string, sourceEngine string, sourceCfg dialect.Config, targetEngine string, targetCfg dialect.Config) (*Run, error) {
	id := uuid.NewString()
	dir := filepath.Join(outputDir, "run_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create run dir: %v", harnesserr.ErrConfiguration, err)
	}
	r := &Run{
		RunID:     id,
		OutputDir: dir,
		Source:    redactEndpoint(sourceEngine, sourceCfg),
		Target:    redactEndpoint(targetEngine, targetCfg),
		startedAt: time.Now(),
		perLevel:  map[dialect.Level]*LevelResult{},
		ddlFiles:  map[string]string{},
	}
	return r, nil
}

// AcquireLock takes an advisory file lock scoped to the run's output
// directory tree, refusing to proceed if another run holds it.
func (r *Run) AcquireLock() error {
	lockPath := filepath.Join(filepath.Dir(r.OutputDir), ".saiql.lock")
	r.lock = flock.New(lockPath)
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: acquire lock: %v", harnesserr.ErrConfiguration, err)
	}
	if !ok {
		return fmt.Errorf("%w: migration lock already held at %s", harnesserr.ErrConfiguration, lockPath)
	}
	r.lockAcquired = true
	return nil
}

// ReleaseLock releases the advisory lock if held. Safe to call multiple
// times or without a prior successful AcquireLock.
func (r *Run) ReleaseLock() error {
	if !r.lockAcquired {
		return nil
	}
	if err := r.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	r.lockAcquired = false
	return nil
}

// RecordLevel accumulates one level's attempted/succeeded/skipped/errored
// tallies, called once per L0-L4 pass as the harness walks levels in order.
func (r *Run) RecordLevel(level dialect.Level, attempted, succeeded, skipped, errored int) {
	r.perLevel[level] = &LevelResult{
		Level:     level.String(),
		Attempted: attempted,
		Succeeded: succeeded,
		Skipped:   skipped,
		Errored:   errored,
	}
}

// RecordResults appends translate.Results from one level's translation pass
// and materializes one ddl/ artifact per result that produced SQL output.
func (r *Run) RecordResults(results []translate.Result) {
	r.results = append(r.results, results...)
	for _, res := range results {
		if res.SQLOutput == nil {
			continue
		}
		name := fmt.Sprintf("%s_%s.sql", res.ObjectType, res.ObjectName)
		r.ddlFiles[name] = *res.SQLOutput
	}
}

// RecordError appends a harness-level error (an object that failed outside
// the translator's own error-as-data handling) to the manifest's errors[].
func (r *Run) RecordError(err error) {
	r.errors = append(r.errors, err.Error())
}

// overallStatus derives PASS/FAIL/INCOMPLETE from accumulated level results
// and harness errors.
func (r *Run) overallStatus() Status {
	if len(r.errors) > 0 {
		for _, lr := range r.perLevel {
			if lr.Succeeded > 0 {
				return StatusIncomplete
			}
		}
		return StatusFail
	}
	for _, lr := range r.perLevel {
		if lr.Errored > 0 {
			return StatusIncomplete
		}
	}
	return StatusPass
}

func seedHash(results []translate.Result) string {
	h := sha256.New()
	for _, res := range results {
		fmt.Fprintf(h, "%s|%s|%s\n", res.ObjectType, res.ObjectName, res.Mode)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Checksum computes the sha256 hex digest of data, matching the teacher's
// computeChecksum. Flush does not call it; no bundle artifact records a
// checksum.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Flush writes the bundle atomically: manifest, DDL files, the three
// reports, and the run log, per spec.md §4.6 step 6. "Atomically" here
// means every artifact is written to a temp path inside the run directory
// and renamed into place, so a crash mid-flush never leaves a half-written
// file at its final name.
func (r *Run) Flush(ctx context.Context, mode translate.Mode, sourceDialect, targetDialect string) error {
	finishedAt := time.Now()
	rep := report.Generate(r.results, mode, sourceDialect, targetDialect)

	perLevel := map[string]LevelResult{}
	for lvl, lr := range r.perLevel {
		perLevel[lvl.String()] = *lr
	}

	manifest := Manifest{
		RunID:           r.RunID,
		StartedAt:       r.startedAt,
		FinishedAt:      finishedAt,
		Source:          r.Source,
		Target:          r.Target,
		SeedHash:        seedHash(r.results),
		PerLevelResults: perLevel,
		OverallStatus:   r.overallStatus(),
		Errors:          r.errors,
	}

	if err := r.writeJSON("run_manifest.json", manifest); err != nil {
		return err
	}

	ddlDir := filepath.Join(r.OutputDir, "ddl")
	if err := os.MkdirAll(ddlDir, 0o755); err != nil {
		return fmt.Errorf("%w: create ddl dir: %v", harnesserr.ErrIntegrity, err)
	}
	for name, content := range r.ddlFiles {
		if err := writeAtomic(filepath.Join(ddlDir, name), []byte(content)); err != nil {
			return fmt.Errorf("%w: write ddl %s: %v", harnesserr.ErrIntegrity, name, err)
		}
	}

	reportsDir := filepath.Join(r.OutputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return fmt.Errorf("%w: create reports dir: %v", harnesserr.ErrIntegrity, err)
	}
	if err := r.writeReportJSON(filepath.Join(reportsDir, "validation_report.json"), validationReport(rep, manifest)); err != nil {
		return err
	}
	if err := r.writeReportJSON(filepath.Join(reportsDir, "limitations_report.json"), limitationsReport(rep)); err != nil {
		return err
	}
	if err := r.writeReportJSON(filepath.Join(reportsDir, "parity_summary.json"), paritySummary(manifest)); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(reportsDir, "validation_report.txt"), []byte(rep.ToText())); err != nil {
		return fmt.Errorf("%w: write validation_report.txt: %v", harnesserr.ErrIntegrity, err)
	}

	logsDir := filepath.Join(r.OutputDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("%w: create logs dir: %v", harnesserr.ErrIntegrity, err)
	}
	runLog := fmt.Sprintf("run_id=%s dialect_pair=%s->%s overall_status=%s\n", r.RunID, sourceDialect, targetDialect, manifest.OverallStatus)
	if err := writeAtomic(filepath.Join(logsDir, "harness_run.log"), []byte(runLog)); err != nil {
		return fmt.Errorf("%w: write harness_run.log: %v", harnesserr.ErrIntegrity, err)
	}
	logger :=harnesslog.WithRun(r.RunID, sourceDialect, targetDialect)
	logger.Info().Str("status", string(manifest.OverallStatus)).Msg("run bundle flushed")

	return nil
}

func (r *Run) writeJSON(name string, v any) error {
	data, err := oj.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", harnesserr.ErrIntegrity, name, err)
	}
	return writeAtomic(filepath.Join(r.OutputDir, name), data)
}

func (r *Run) writeReportJSON(path string, v any) error {
	data, err := oj.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", harnesserr.ErrIntegrity, path, err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func validationReport(rep *report.Report, m Manifest) map[string]any {
	return map[string]any{
		"overall_status":    m.OverallStatus,
		"per_level_results": m.PerLevelResults,
		"risk_summary":      rep.RiskSummary,
		"counts":            rep.Counts,
	}
}

func limitationsReport(rep *report.Report) map[string]any {
	histogram := map[string]int{}
	for _, w := range rep.Warnings {
		histogram[w.Reason]++
	}
	return map[string]any{
		"reason_code_histogram": histogram,
		"manual_steps":          rep.ManualSteps,
	}
}

func paritySummary(m Manifest) map[string]any {
	perLevel := map[string]map[string]int{}
	for lvl, lr := range m.PerLevelResults {
		perLevel[lvl] = map[string]int{
			"migrated": lr.Succeeded,
			"skipped":  lr.Skipped,
			"errored":  lr.Errored,
		}
	}
	return map[string]any{"per_level": perLevel}
}
