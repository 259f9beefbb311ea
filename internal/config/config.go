// Package config loads a harness run's configuration from a BCL document,
// the same DSL the teacher uses for its migration files, instead of a
// bespoke flag set or YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/oarkflow/bcl"

	"github.com/saiql/harness/internal/dialect"
	"github.com/saiql/harness/internal/harnesserr"
	"github.com/saiql/harness/internal/translate"
)

// Endpoint is one side (source or target) of a migration run.
type Endpoint struct {
	Engine         string `json:"engine"`
	DSN            string `json:"dsn"`
	Database       string `json:"database"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	SSLMode        string `json:"ssl_mode"`
	SSLCert        string `json:"ssl_cert"`
	SSLKey         string `json:"ssl_key"`
	SSLCA          string `json:"ssl_ca"`
	ConnectTimeout int    `json:"connect_timeout"`
	ReadTimeout    int    `json:"read_timeout"`
	WriteTimeout   int    `json:"write_timeout"`
	MaxRetries     int    `json:"max_retries"`
	MinConnections int    `json:"min_connections"`
	MaxConnections int    `json:"max_connections"`
	Charset        string `json:"charset"`
	Autocommit     bool   `json:"autocommit"`
	StrictTypes    bool   `json:"strict_types"`

	// SQLite-only.
	PragmaForeignKeys      bool `json:"pragma_foreign_keys"`
	PragmaRecursiveTrigger bool `json:"pragma_recursive_trigger"`
}

// RunConfig is the top-level shape loaded from a `.bcl` run file, mirroring
// the teacher's root-level Config/Migration BCL-tagged structs.
type RunConfig struct {
	Run []Run `json:"Run"`
}

// Run describes one harness invocation.
type Run struct {
	Name          string   `json:"name"`
	Source        Endpoint `json:"Source"`
	Target        Endpoint `json:"Target"`
	Mode          string   `json:"mode"`           // analyze | stub | subset_translate
	ObjectFilters []string `json:"object_filters"` // exact, case-sensitive names to include; empty = all
	OutputDir     string   `json:"output_dir"`
	TimeoutSec    int      `json:"timeout_sec"`
}

func (e Endpoint) toDialectConfig() dialect.Config {
	return dialect.Config{
		Host:                   e.Host,
		Port:                   e.Port,
		Database:               e.Database,
		User:                   e.User,
		Password:               e.Password,
		MinConnections:         e.MinConnections,
		MaxConnections:         e.MaxConnections,
		ConnectTimeout:         time.Duration(e.ConnectTimeout) * time.Second,
		ReadTimeout:            time.Duration(e.ReadTimeout) * time.Second,
		WriteTimeout:           time.Duration(e.WriteTimeout) * time.Second,
		SSLMode:                e.SSLMode,
		SSLCert:                e.SSLCert,
		SSLKey:                 e.SSLKey,
		SSLCA:                  e.SSLCA,
		MaxRetries:             e.MaxRetries,
		Charset:                e.Charset,
		Autocommit:             e.Autocommit,
		StrictTypes:            e.StrictTypes,
		PragmaForeignKeys:      e.PragmaForeignKeys,
		PragmaRecursiveTrigger: e.PragmaRecursiveTrigger,
	}
}

// SourceDialectConfig and TargetDialectConfig return r's source/target
// connection settings translated to
// the internal/dialect package's adapter configuration shape.
func (r Run) SourceDialectConfig() dialect.Config { return r.Source.toDialectConfig() }
func (r Run) TargetDialectConfig() dialect.Config { return r.Target.toDialectConfig() }

// TranslateMode validates and returns r.Mode as a translate.Mode, defaulting
// to analyze per spec.md's "ANALYZE (default, no SQL output ever)" rule.
func (r Run) TranslateMode() (translate.Mode, error) {
	switch translate.Mode(r.Mode) {
	case "":
		return translate.ModeAnalyze, nil
	case translate.ModeAnalyze, translate.ModeStub, translate.ModeSubsetTranslate:
		return translate.Mode(r.Mode), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", harnesserr.ErrConfiguration, r.Mode)
	}
}

// Load reads and unmarshals a BCL run-configuration file at path.
func Load(path string) (RunConfig, error) {
	var cfg RunConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read config: %v", harnesserr.ErrConfiguration, err)
	}
	if _, err := bcl.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config: %v", harnesserr.ErrConfiguration, err)
	}
	if len(cfg.Run) == 0 {
		return cfg, fmt.Errorf("%w: config declares no Run blocks", harnesserr.ErrConfiguration)
	}
	for i, r := range cfg.Run {
		if err := validateRun(r); err != nil {
			return cfg, fmt.Errorf("%w: run[%d] %q: %v", harnesserr.ErrConfiguration, i, r.Name, err)
		}
	}
	return cfg, nil
}

func validateRun(r Run) error {
	if r.Name == "" {
		return fmt.Errorf("missing name")
	}
	if r.Source.Engine == "" {
		return fmt.Errorf("missing Source.engine")
	}
	if r.Target.Engine == "" {
		return fmt.Errorf("missing Target.engine")
	}
	if _, err := r.TranslateMode(); err != nil {
		return err
	}
	if r.OutputDir == "" {
		return fmt.Errorf("missing output_dir")
	}
	return nil
}
