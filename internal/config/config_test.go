package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saiql/harness/internal/translate"
)

func TestTranslateModeDefaultsToAnalyze(t *testing.T) {
	r := Run{}
	mode, err := r.TranslateMode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != translate.ModeAnalyze {
		t.Errorf("mode = %v, want analyze", mode)
	}
}

func TestTranslateModeRejectsUnknownMode(t *testing.T) {
	r := Run{Mode: "bogus"}
	if _, err := r.TranslateMode(); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestTranslateModeAcceptsAllThreeKnownModes(t *testing.T) {
	for _, m := range []string{"analyze", "stub", "subset_translate"} {
		r := Run{Mode: m}
		got, err := r.TranslateMode()
		if err != nil {
			t.Fatalf("mode %q: unexpected error: %v", m, err)
		}
		if string(got) != m {
			t.Errorf("mode %q: got %v", m, got)
		}
	}
}

func TestSourceDialectConfigCarriesPragmaFlags(t *testing.T) {
	r := Run{Source: Endpoint{Engine: "sqlite", PragmaForeignKeys: true, PragmaRecursiveTrigger: false}}
	cfg := r.SourceDialectConfig()
	if !cfg.PragmaForeignKeys {
		t.Error("expected PragmaForeignKeys to carry through to dialect.Config")
	}
}

func TestLoadRejectsEmptyRunBlocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bcl")
	if err := os.WriteFile(path, []byte("# no run blocks\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a config with no Run blocks")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/run.bcl"); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}
