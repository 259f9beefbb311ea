package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saiql/harness/internal/dialect"
	"github.com/saiql/harness/internal/translate"
)

func TestRedactEndpointNeverCarriesPassword(t *testing.T) {
	cfg := dialect.Config{Host: "db.internal", Port: 5432, Database: "app", User: "svc", Password: "s3cret"}
	info := redactEndpoint("postgres", cfg)
	if info.Host != "db.internal" || info.Port != 5432 || info.Service != "app" || info.User != "svc" {
		t.Errorf("redacted endpoint fields don't match input: %+v", info)
	}
	// EndpointInfo has no Password field at all -- the struct shape itself
	// is the redaction guarantee, not a runtime check.
}

func TestChecksumIsDeterministic(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	if a != b {
		t.Error("checksum must be deterministic for identical input")
	}
	if a == Checksum([]byte("other")) {
		t.Error("checksum should differ for different input")
	}
}

func TestSeedHashIsOrderSensitiveAndDeterministic(t *testing.T) {
	results := []translate.Result{
		{ObjectType: translate.ObjectView, ObjectName: "v1", Mode: translate.ModeAnalyze},
		{ObjectType: translate.ObjectView, ObjectName: "v2", Mode: translate.ModeAnalyze},
	}
	h1 := seedHash(results)
	h2 := seedHash(results)
	if h1 != h2 {
		t.Error("seedHash must be deterministic for the same result slice")
	}
	reversed := []translate.Result{results[1], results[0]}
	if seedHash(reversed) == h1 {
		t.Error("seedHash should depend on result order")
	}
}

func TestOverallStatusPassWhenClean(t *testing.T) {
	r := &Run{perLevel: map[dialect.Level]*LevelResult{
		dialect.LevelL0: {Attempted: 2, Succeeded: 2},
	}}
	if got := r.overallStatus(); got != StatusPass {
		t.Errorf("overallStatus = %v, want PASS", got)
	}
}

func TestOverallStatusIncompleteWhenSomeLevelErrored(t *testing.T) {
	r := &Run{perLevel: map[dialect.Level]*LevelResult{
		dialect.LevelL0: {Attempted: 2, Succeeded: 1, Errored: 1},
	}}
	if got := r.overallStatus(); got != StatusIncomplete {
		t.Errorf("overallStatus = %v, want INCOMPLETE", got)
	}
}

func TestOverallStatusFailWhenHarnessErrorsWithNoSuccess(t *testing.T) {
	r := &Run{
		perLevel: map[dialect.Level]*LevelResult{dialect.LevelL0: {Attempted: 1, Succeeded: 0}},
		errors:   []string{"connection refused"},
	}
	if got := r.overallStatus(); got != StatusFail {
		t.Errorf("overallStatus = %v, want FAIL", got)
	}
}

func TestOverallStatusIncompleteWhenHarnessErrorsButSomeSucceeded(t *testing.T) {
	r := &Run{
		perLevel: map[dialect.Level]*LevelResult{dialect.LevelL0: {Attempted: 2, Succeeded: 1}},
		errors:   []string{"one table failed"},
	}
	if got := r.overallStatus(); got != StatusIncomplete {
		t.Errorf("overallStatus = %v, want INCOMPLETE", got)
	}
}

func TestWriteAtomicLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	if err := writeAtomic(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("writeAtomic failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected final file to exist: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected the .tmp file to be renamed away, not left behind")
	}
}

func TestRecordResultsMaterializesDDLFilesOnlyForNonNilSQL(t *testing.T) {
	r := &Run{ddlFiles: map[string]string{}}
	sql := "CREATE VIEW v1 AS SELECT 1"
	r.RecordResults([]translate.Result{
		{ObjectType: translate.ObjectView, ObjectName: "v1", SQLOutput: &sql},
		{ObjectType: translate.ObjectView, ObjectName: "v2", SQLOutput: nil},
	})
	if len(r.ddlFiles) != 1 {
		t.Fatalf("expected exactly one ddl file, got %d: %v", len(r.ddlFiles), r.ddlFiles)
	}
	if _, ok := r.ddlFiles["view_v1.sql"]; !ok {
		t.Errorf("expected ddl file view_v1.sql, got keys: %v", r.ddlFiles)
	}
}
