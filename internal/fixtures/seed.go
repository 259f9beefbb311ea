package fixtures

import (
	"fmt"
	"strings"

	"github.com/oarkflow/bcl"
)

// SeedDefinition describes one table's worth of generated rows, mirroring
// the teacher's BCL Seed{} block shape, narrowed to what a harness smoke
// fixture needs: a fixed row count of named fields, each either a literal,
// a fake_* generator call, or a random placeholder.
type SeedDefinition struct {
	Table  string
	Fields []FieldDefinition
	Rows   int
}

type FieldDefinition struct {
	Name   string
	Value  any
	Random bool
}

// ToSQL renders Rows INSERT statements against Table, identifier-quoted for
// the named dialect. Unlike the teacher's version this never dispatches
// through a dialect-specific DDL generator — INSERT...VALUES syntax is
// identical across every dialect this harness targets, so only the
// identifier quote style varies.
func (s SeedDefinition) ToSQL(dialectName string) ([]string, error) {
	quote := identifierQuote(dialectName)
	queries := make([]string, 0, s.Rows)
	for i := 0; i < s.Rows; i++ {
		cols := make([]string, 0, len(s.Fields))
		vals := make([]string, 0, len(s.Fields))
		for _, field := range s.Fields {
			cols = append(cols, quote(field.Name))
			if field.Random {
				vals = append(vals, "'random_fk'")
				continue
			}
			vals = append(vals, mutate(fmt.Sprintf("%v", field.Value)))
		}
		queries = append(queries, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			quote(s.Table), strings.Join(cols, ", "), strings.Join(vals, ", "),
		))
	}
	return queries, nil
}

func mutate(val string) string {
	if !strings.HasPrefix(val, "fake_") {
		return val
	}
	fn, ok := bcl.LookupFunction(val)
	if !ok {
		return val
	}
	rs, err := fn()
	if err != nil {
		return val
	}
	if s, ok := rs.(string); ok {
		return fmt.Sprintf("'%s'", s)
	}
	return fmt.Sprintf("%v", rs)
}

func identifierQuote(dialectName string) func(string) string {
	switch dialectName {
	case "mysql", "mariadb":
		return func(id string) string { return "`" + id + "`" }
	case "mssql":
		return func(id string) string { return "[" + id + "]" }
	default: // postgres, sqlite, oracle, hana
		return func(id string) string { return `"` + id + `"` }
	}
}
