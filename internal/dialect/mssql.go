package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/saiql/harness/internal/typeregistry"
)

// MSSQLAdapter implements Adapter over SQL Server via database/sql, since
// the teacher's squealx layer carries no mssql driver.
type MSSQLAdapter struct {
	db     *sql.DB
	schema string
	config Config
}

func NewMSSQLAdapter(ctx context.Context, dsn, schema string, config Config) (*MSSQLAdapter, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	if schema == "" {
		schema = "dbo"
	}
	return &MSSQLAdapter{db: db, schema: schema, config: config}, nil
}

func (a *MSSQLAdapter) Name() string              { return "mssql" }
func (a *MSSQLAdapter) Supports(level Level) bool { return true }
func (a *MSSQLAdapter) Close() error               { return a.db.Close() }

func (a *MSSQLAdapter) query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *MSSQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = @p1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, a.schema)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["table_name"])))
	}
	return out, nil
}

func (a *MSSQLAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(ctx, `
		SELECT column_name, data_type, character_maximum_length,
		       numeric_precision, numeric_scale, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = @p1 AND table_name = @p2
		ORDER BY ordinal_position`, a.schema, table)
	if err != nil {
		return schema, err
	}
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["column_name"]))
		dataType := stringOrEmpty(r["data_type"])
		full := dataType
		if l, ok := r["character_maximum_length"]; ok && l != nil {
			full = fmt.Sprintf("%s(%v)", dataType, l)
		} else if p, ok := r["numeric_precision"]; ok && p != nil {
			if s, ok := r["numeric_scale"]; ok && s != nil {
				full = fmt.Sprintf("%s(%v,%v)", dataType, p, s)
			}
		}
		info := typeregistry.MapToIR("mssql", full)

		var def *string
		if s := stringOrEmpty(r["column_default"]); s != "" {
			def = &s
		}
		schema.Columns = append(schema.Columns, Column{
			Name:        name,
			NativeType:  dataType,
			IR:          info,
			Nullable:    stringOrEmpty(r["is_nullable"]) == "YES",
			Default:     def,
			Unsupported: info.IRType == typeregistry.IRUnknown,
		})
	}
	schema.PrimaryKey, _ = a.GetPrimaryKeys(ctx, table)
	schema.ForeignKeys, _ = a.GetForeignKeys(ctx, table)
	schema.UniqueConstraints, _ = a.GetUniqueConstraints(ctx, table)
	schema.Indexes, _ = a.GetIndexes(ctx, table)
	return schema, nil
}

func (a *MSSQLAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
	start := time.Now()
	var orderClause string
	if len(orderBy) > 0 {
		orderClause = strings.Join(orderBy, ", ")
	} else if pks, err := a.GetPrimaryKeys(ctx, table); err == nil && len(pks) > 0 {
		orderClause = strings.Join(pks, ", ")
	} else {
		schema, err := a.GetSchema(ctx, table)
		if err == nil && len(schema.Columns) > 0 {
			orderClause = schema.Columns[0].Name
		}
	}
	q := fmt.Sprintf("SELECT * FROM [%s].[%s]", a.schema, table)
	if orderClause != "" {
		q += " ORDER BY " + orderClause
	}
	rows, err := a.query(ctx, q)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		Rows:  rows,
		Stats: ExtractStats{RowCount: len(rows), Duration: time.Since(start), OrderKeyUsed: orderClause},
	}, nil
}

func (a *MSSQLAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = @p1 AND tc.table_name = @p2
		ORDER BY kcu.ordinal_position`, a.schema, table)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	return out, nil
}

func (a *MSSQLAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := a.query(ctx, `
		SELECT fk.name AS constraint_name, c1.name AS column_name,
		       t2.name AS ref_table, c2.name AS ref_column
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.columns c1 ON fkc.parent_object_id = c1.object_id AND fkc.parent_column_id = c1.column_id
		JOIN sys.columns c2 ON fkc.referenced_object_id = c2.object_id AND fkc.referenced_column_id = c2.column_id
		JOIN sys.tables t1 ON fk.parent_object_id = t1.object_id
		JOIN sys.tables t2 ON fk.referenced_object_id = t2.object_id
		WHERE t1.name = @p1
		ORDER BY fk.name`, table)
	if err != nil {
		return nil, err
	}
	var out []ForeignKey
	for _, r := range rows {
		out = append(out, ForeignKey{
			Column:         strings.ToLower(stringOrEmpty(r["column_name"])),
			RefTable:       strings.ToLower(stringOrEmpty(r["ref_table"])),
			RefColumn:      strings.ToLower(stringOrEmpty(r["ref_column"])),
			ConstraintName: stringOrEmpty(r["constraint_name"]),
		})
	}
	return out, nil
}

func (a *MSSQLAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(ctx, `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
		WHERE tc.constraint_type = 'UNIQUE' AND tc.table_schema = @p1 AND tc.table_name = @p2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, a.schema, table)
	if err != nil {
		return nil, err
	}
	byName := map[string]*UniqueConstraint{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["constraint_name"])
		uc, ok := byName[name]
		if !ok {
			uc = &UniqueConstraint{Name: name}
			byName[name] = uc
			order = append(order, name)
		}
		uc.Columns = append(uc.Columns, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	out := make([]UniqueConstraint, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (a *MSSQLAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(ctx, `
		SELECT i.name AS index_name, i.is_unique, i.is_primary_key, c.name AS column_name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.tables t ON i.object_id = t.object_id
		WHERE t.name = @p1 AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal`, table)
	if err != nil {
		return nil, err
	}
	byName := map[string]*Index{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["index_name"])
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: boolOf(r["is_unique"]), Primary: boolOf(r["is_primary_key"])}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	out := make([]Index, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (a *MSSQLAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	s := schema
	if s == "" {
		s = a.schema
	}
	rows, err := a.query(ctx, `
		SELECT table_name AS view_name, view_definition
		FROM information_schema.views WHERE table_schema = @p1 ORDER BY table_name`, s)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["view_name"]))
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{Schema: s, Name: name, Definition: stringOrEmpty(r["view_definition"]), Dependencies: deps})
	}
	return out, nil
}

func (a *MSSQLAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(ctx, `
		SELECT view_definition FROM information_schema.views
		WHERE table_schema = @p1 AND table_name = @p2`, a.schema, name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["view_definition"]), nil
}

func (a *MSSQLAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	rows, err := a.query(ctx, `
		SELECT referenced_entity_name, referenced_minor_name, o.type_desc
		FROM sys.dm_sql_referenced_entities('dbo.' + @p1, 'OBJECT') r
		JOIN sys.objects o ON o.name = r.referenced_entity_name
		WHERE r.referenced_entity_name != @p1`, name)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []ViewDependency
	for _, r := range rows {
		n := strings.ToLower(stringOrEmpty(r["referenced_entity_name"]))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		kind := "table"
		if strings.Contains(stringOrEmpty(r["type_desc"]), "VIEW") {
			kind = "view"
		}
		out = append(out, ViewDependency{Kind: kind, Name: n})
	}
	return out, nil
}

func (a *MSSQLAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

func (a *MSSQLAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	if orReplace {
		a.db.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS [%s].[%s]", a.schema, name))
	}
	sql := fmt.Sprintf("CREATE VIEW [%s].[%s] AS %s", a.schema, name, strings.TrimSpace(definition))
	if _, err := a.db.ExecContext(ctx, sql); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MSSQLAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	exists := ""
	if ifExists {
		exists = "IF EXISTS "
	}
	_, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP VIEW %s[%s].[%s]", exists, a.schema, name))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MSSQLAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for _, v := range views {
		results = append(results, a.CreateView(ctx, v.Name, v.Definition, true))
	}
	return results
}

func (a *MSSQLAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	s := schema
	if s == "" {
		s = a.schema
	}
	rows, err := a.query(ctx, `
		SELECT routine_name, routine_type, routine_definition, security_type
		FROM information_schema.routines
		WHERE routine_schema = @p1 ORDER BY routine_name`, s)
	if err != nil {
		return nil, err
	}
	var out []RoutineInfo
	for _, r := range rows {
		kind := RoutineFunction
		if strings.EqualFold(stringOrEmpty(r["routine_type"]), "PROCEDURE") {
			kind = RoutineProcedure
		}
		out = append(out, RoutineInfo{
			Schema:         s,
			Name:           strings.ToLower(stringOrEmpty(r["routine_name"])),
			Kind:           kind,
			Body:           stringOrEmpty(r["routine_definition"]),
			FullDefinition: stringOrEmpty(r["routine_definition"]),
		})
	}
	return out, nil
}

func (a *MSSQLAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	rows, err := a.query(ctx, `SELECT definition FROM sys.sql_modules m JOIN sys.objects o ON m.object_id = o.object_id WHERE o.name = @p1`, name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("routine not found: %s", name)
	}
	return stringOrEmpty(rows[0]["definition"]), nil
}

// ListSafeRoutines is empty: no syntactic safe-subset whitelist is defined
// for T-SQL procedures/functions; they surface only through advisory
// package/routine analysis.
func (a *MSSQLAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *MSSQLAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return a.ListRoutines(ctx, schema)
}

func (a *MSSQLAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.ExecContext(ctx, strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MSSQLAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	verb := "FUNCTION"
	if kind == RoutineProcedure {
		verb = "PROCEDURE"
	}
	_, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS [%s].[%s]", verb, a.schema, name))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MSSQLAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	results := make([]MutationResult, 0, len(routines))
	for _, r := range routines {
		results = append(results, a.CreateRoutine(ctx, r.FullDefinition))
	}
	return results
}

func (a *MSSQLAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	rows, err := a.query(ctx, `
		SELECT tr.name AS trigger_name, t.name AS table_name,
		       tr.is_instead_of_trigger, m.definition
		FROM sys.triggers tr
		JOIN sys.tables t ON tr.parent_id = t.object_id
		JOIN sys.sql_modules m ON tr.object_id = m.object_id
		ORDER BY t.name, tr.name`)
	if err != nil {
		return nil, err
	}
	var out []TriggerInfo
	for _, r := range rows {
		timing := "after"
		if boolOf(r["is_instead_of_trigger"]) {
			timing = "instead_of"
		}
		out = append(out, TriggerInfo{
			Name:       strings.ToLower(stringOrEmpty(r["trigger_name"])),
			Table:      strings.ToLower(stringOrEmpty(r["table_name"])),
			Timing:     timing,
			Scope:      "statement",
			Body:       stringOrEmpty(r["definition"]),
			Definition: stringOrEmpty(r["definition"]),
		})
	}
	return out, nil
}

func (a *MSSQLAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(ctx, `
		SELECT m.definition FROM sys.triggers tr
		JOIN sys.sql_modules m ON tr.object_id = m.object_id
		WHERE tr.name = @p1`, name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("trigger not found: %s", name)
	}
	return stringOrEmpty(rows[0]["definition"]), nil
}

// ListSafeTriggers is empty: T-SQL triggers are statement-scoped by default
// (no FOR EACH ROW concept) and operate over virtual inserted/deleted
// tables, which the whitelist pattern used for Postgres/MySQL row triggers
// does not model. Triggers surface only through advisory analysis.
func (a *MSSQLAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return nil, nil
}

func (a *MSSQLAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return a.ListTriggers(ctx, schema)
}

func (a *MSSQLAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.ExecContext(ctx, strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MSSQLAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS [%s].[%s]", a.schema, name))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}
