package fixtures

import (
	"strings"
	"testing"
)

func TestToSQLGeneratesOneInsertPerRow(t *testing.T) {
	s := SeedDefinition{
		Table:  "customers",
		Fields: []FieldDefinition{{Name: "id", Value: 1}, {Name: "name", Value: "fake_name"}},
		Rows:   3,
	}
	queries, err := s.ToSQL("postgres")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 3 {
		t.Fatalf("expected 3 insert statements, got %d", len(queries))
	}
	for _, q := range queries {
		if !strings.HasPrefix(q, `INSERT INTO "customers"`) {
			t.Errorf("expected postgres-quoted insert, got %q", q)
		}
	}
}

func TestToSQLQuotesIdentifiersPerDialect(t *testing.T) {
	s := SeedDefinition{Table: "orders", Fields: []FieldDefinition{{Name: "id", Value: 1}}, Rows: 1}

	mysqlRows, _ := s.ToSQL("mysql")
	if !strings.Contains(mysqlRows[0], "`orders`") {
		t.Errorf("expected backtick-quoted table for mysql, got %q", mysqlRows[0])
	}

	mssqlRows, _ := s.ToSQL("mssql")
	if !strings.Contains(mssqlRows[0], "[orders]") {
		t.Errorf("expected bracket-quoted table for mssql, got %q", mssqlRows[0])
	}
}

func TestToSQLRandomFieldEmitsPlaceholder(t *testing.T) {
	s := SeedDefinition{
		Table:  "order_items",
		Fields: []FieldDefinition{{Name: "order_id", Value: "${ref(orders.id)}", Random: true}},
		Rows:   1,
	}
	queries, _ := s.ToSQL("sqlite")
	if !strings.Contains(queries[0], "'random_fk'") {
		t.Errorf("expected random field to render as the random_fk placeholder, got %q", queries[0])
	}
}

func TestToSQLResolvesFakeFunctionCalls(t *testing.T) {
	s := SeedDefinition{
		Table:  "customers",
		Fields: []FieldDefinition{{Name: "email", Value: "fake_email"}},
		Rows:   1,
	}
	queries, err := s.ToSQL("postgres")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(queries[0], "@") {
		t.Errorf("expected fake_email to resolve to a generated address, got %q", queries[0])
	}
}
