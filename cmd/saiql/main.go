// Command saiql is the thin CLI front-end over the harness library
// packages, built the way the teacher's cmd.go wires contracts.Command
// implementations into github.com/oarkflow/cli. Per the Non-goals, this
// binary holds no migration logic of its own — run/validate/report each
// call straight into internal/runner, internal/config, and internal/report.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/oarkflow/cli"
	"github.com/oarkflow/cli/console"
	"github.com/oarkflow/cli/contracts"

	"github.com/saiql/harness/internal/config"
	"github.com/saiql/harness/internal/harnesslog"
	"github.com/saiql/harness/internal/runner"
)

var (
	Name    = "saiql"
	Version = "v0.1.0"
)

func main() {
	cli.SetName(Name)
	cli.SetVersion(Version)
	app := cli.New()
	client := app.Instance.Client()
	client.Register([]contracts.Command{
		console.NewListCommand(client),
		&RunCommand{},
		&ValidateCommand{},
		&ReportCommand{},
	})
	client.Run(os.Args, true)
}

// RunCommand executes every Run block declared in a BCL configuration file
// against its paired source/target endpoints and flushes one bundle per run.
type RunCommand struct {
	extend contracts.Extend
}

func (c *RunCommand) Signature() string { return "run" }

func (c *RunCommand) Description() string {
	return "Run a migration harness pass from a BCL run-configuration file."
}

func (c *RunCommand) Extend() contracts.Extend { return c.extend }

func (c *RunCommand) Handle(ctx contracts.Context) error {
	path := ctx.Argument(0)
	if path == "" {
		return fmt.Errorf("usage: saiql run <config.bcl>")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	for _, r := range cfg.Run {
		outcome, err := runner.Execute(context.Background(), r)
		if err != nil {
			harnesslog.Logger().Error().Err(err).Str("run", r.Name).Msg("run failed")
			return err
		}
		fmt.Printf("run %q: %s (bundle: %s)\n", r.Name, outcome.Status, outcome.BundleDir)
	}
	return nil
}

// ValidateCommand loads and validates a BCL run-configuration file without
// connecting to any database.
type ValidateCommand struct {
	extend contracts.Extend
}

func (c *ValidateCommand) Signature() string { return "validate" }

func (c *ValidateCommand) Description() string {
	return "Validate a BCL run-configuration file without executing it."
}

func (c *ValidateCommand) Extend() contracts.Extend { return c.extend }

func (c *ValidateCommand) Handle(ctx contracts.Context) error {
	path := ctx.Argument(0)
	if path == "" {
		return fmt.Errorf("usage: saiql validate <config.bcl>")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("config valid: %d run block(s)\n", len(cfg.Run))
	return nil
}

// ReportCommand prints a previously flushed bundle's text report.
type ReportCommand struct {
	extend contracts.Extend
}

func (c *ReportCommand) Signature() string { return "report" }

func (c *ReportCommand) Description() string {
	return "Print the text report from a completed run bundle directory."
}

func (c *ReportCommand) Extend() contracts.Extend { return c.extend }

func (c *ReportCommand) Handle(ctx contracts.Context) error {
	dir := ctx.Argument(0)
	if dir == "" {
		return fmt.Errorf("usage: saiql report <run_bundle_dir>")
	}
	// Flush renders this file once via report.Report.ToText() at run time;
	// printing it here prints that same rendering rather than reformatting
	// the machine-readable validation_report.json.
	data, err := os.ReadFile(dir + "/reports/validation_report.txt")
	if err != nil {
		return fmt.Errorf("read validation report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
