// Package runner orchestrates one full harness run: open source/target
// adapters, walk L0-L4 in order, translate L2-L4 objects, and flush a
// harness.Run bundle. It is the glue the cmd/saiql commands call into,
// kept separate from cmd/saiql itself so the library has no CLI
// dependency, per the CLI being a thin front-end only.
package runner

import (
	"context"
	"fmt"

	"github.com/saiql/harness/internal/config"
	"github.com/saiql/harness/internal/dialect"
	"github.com/saiql/harness/internal/harness"
	"github.com/saiql/harness/internal/harnesserr"
	"github.com/saiql/harness/internal/harnesslog"
	"github.com/saiql/harness/internal/translate"
)

// Outcome is what Execute returns: the flushed bundle's directory and a
// Status. It carries no report; the report lives in the bundle's files.
type Outcome struct {
	BundleDir string
	Status    harness.Status
}

// Execute runs one config.Run end to end: connect, walk levels, translate,
// flush. It never panics past this boundary — adapter/translator failures
// are recorded as run errors and the run continues where spec.md's error
// handling design allows it to.
func Execute(ctx context.Context, run config.Run) (Outcome, error) {
	mode, err := run.TranslateMode()
	if err != nil {
		return Outcome{}, err
	}

	source, err := dialect.Open(ctx, run.Source.Engine, dialect.ConnInfo{
		DSN: run.Source.DSN, Database: run.Source.Database, Config: run.SourceDialectConfig(),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: open source: %v", harnesserr.ErrConnection, err)
	}
	defer source.Close()

	target, err := dialect.Open(ctx, run.Target.Engine, dialect.ConnInfo{
		DSN: run.Target.DSN, Database: run.Target.Database, Config: run.TargetDialectConfig(),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: open target: %v", harnesserr.ErrConnection, err)
	}
	defer target.Close()

	rb, err := harness.New(run.OutputDir, run.Source.Engine, run.SourceDialectConfig(), run.Target.Engine, run.TargetDialectConfig())
	if err != nil {
		return Outcome{}, err
	}
	if err := rb.AcquireLock(); err != nil {
		return Outcome{}, err
	}
	defer rb.ReleaseLock()

	logger := harnesslog.WithRun(rb.RunID, run.Source.Engine, run.Target.Engine)
	logger.Info().Msg("run started")

	tr := translate.New(mode, run.Source.Engine, run.Target.Engine)

	walkL0L1(ctx, rb, source)
	walkL2(ctx, rb, source, tr, run.ObjectFilters, logger)
	walkL3(ctx, rb, source, tr, run.ObjectFilters)
	walkL4(ctx, rb, source, tr, run.ObjectFilters)

	if err := rb.Flush(ctx, mode, run.Source.Engine, run.Target.Engine); err != nil {
		return Outcome{}, err
	}
	logger.Info().Msg("run finished")

	return Outcome{BundleDir: rb.OutputDir, Status: harness.StatusPass}, nil
}

func included(filters []string, name string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == name {
			return true
		}
	}
	return false
}

func walkL0L1(ctx context.Context, rb *harness.Run, source dialect.Adapter) {
	if !source.Supports(dialect.LevelL0) {
		rb.RecordLevel(dialect.LevelL0, 0, 0, 0, 0)
		return
	}
	tables, err := source.ListTables(ctx)
	if err != nil {
		rb.RecordError(fmt.Errorf("%w: list tables: %v", harnesserr.ErrConnection, err))
		return
	}
	attempted, succeeded, errored := len(tables), 0, 0
	for _, t := range tables {
		if _, err := source.GetSchema(ctx, t); err != nil {
			errored++
			rb.RecordError(fmt.Errorf("%w: schema %s: %v", harnesserr.ErrIntegrity, t, err))
			continue
		}
		succeeded++
	}
	rb.RecordLevel(dialect.LevelL0, attempted, succeeded, 0, errored)
	rb.RecordLevel(dialect.LevelL1, attempted, succeeded, 0, errored)
}

func walkL2(ctx context.Context, rb *harness.Run, source dialect.Adapter, tr *translate.Translator, filters []string, logger harnesslog.Logger) {
	if !source.Supports(dialect.LevelL2) {
		rb.RecordLevel(dialect.LevelL2, 0, 0, 0, 0)
		return
	}
	views, err := source.TopologicallyOrderViews(ctx, "")
	if err != nil {
		rb.RecordError(fmt.Errorf("%w: list views: %v", harnesserr.ErrConnection, err))
		return
	}
	var results []translate.Result
	skipped := 0
	for _, v := range views {
		if !included(filters, v.Name) {
			skipped++
			continue
		}
		meta := map[string]any{"dependencies": v.Dependencies}
		res := tr.TranslateObject(translate.ObjectView, v.Name, v.Definition, meta)
		if v.CycleBroken {
			logger.Warn().Str("view", v.Name).Msg("view dependency cycle broken by deterministic tie-break")
			res.Warnings = append(res.Warnings, translate.Warning{
				Severity:   translate.RiskMedium,
				ObjectName: v.Name,
				Message:    "view participates in a circular dependency; ordering was broken by picking the lexically smallest name in the cycle",
				Reason:     "circular_view_dependency",
			})
		}
		results = append(results, res)
	}
	rb.RecordResults(results)
	rb.RecordLevel(dialect.LevelL2, len(views), len(results), skipped, 0)
}

func walkL3(ctx context.Context, rb *harness.Run, source dialect.Adapter, tr *translate.Translator, filters []string) {
	if !source.Supports(dialect.LevelL3) {
		rb.RecordLevel(dialect.LevelL3, 0, 0, 0, 0)
		return
	}
	routines, err := source.ListRoutines(ctx, "")
	if err != nil {
		rb.RecordError(fmt.Errorf("%w: list routines: %v", harnesserr.ErrConnection, err))
		return
	}
	var results []translate.Result
	skipped := 0
	for _, rt := range routines {
		if !included(filters, rt.Name) {
			skipped++
			continue
		}
		objType := translate.ObjectFunction
		if rt.Kind == dialect.RoutineProcedure {
			objType = translate.ObjectProcedure
		} else if rt.Kind == dialect.RoutinePackage {
			objType = translate.ObjectPackage
		}
		meta := map[string]any{"volatility": rt.Volatility, "security": rt.Security, "data_access": rt.DataAccess}
		results = append(results, tr.TranslateObject(objType, rt.Name, rt.Body, meta))
	}
	rb.RecordResults(results)
	rb.RecordLevel(dialect.LevelL3, len(routines), len(results), skipped, 0)
}

func walkL4(ctx context.Context, rb *harness.Run, source dialect.Adapter, tr *translate.Translator, filters []string) {
	if !source.Supports(dialect.LevelL4) {
		rb.RecordLevel(dialect.LevelL4, 0, 0, 0, 0)
		return
	}
	triggers, err := source.ListTriggers(ctx, "")
	if err != nil {
		rb.RecordError(fmt.Errorf("%w: list triggers: %v", harnesserr.ErrConnection, err))
		return
	}
	var results []translate.Result
	skipped := 0
	for _, tg := range triggers {
		if !included(filters, tg.Name) {
			skipped++
			continue
		}
		meta := map[string]any{"timing": tg.Timing, "scope": tg.Scope, "table": tg.Table}
		results = append(results, tr.TranslateObject(translate.ObjectTrigger, tg.Name, tg.Body, meta))
	}
	rb.RecordResults(results)
	rb.RecordLevel(dialect.LevelL4, len(triggers), len(results), skipped, 0)
}
