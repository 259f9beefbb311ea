package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/godror/godror"

	"github.com/saiql/harness/internal/typeregistry"
)

// OracleAdapter implements Adapter over Oracle using database/sql directly;
// the teacher's squealx wrapper has no Oracle driver, so this adapter talks
// to godror without that convenience layer. Routines and triggers get no
// adapter-level allow/deny verdict: ListSafeRoutines and ListSafeTriggers
// return nothing and every routine and trigger is listed as skipped, as
// Oracle's PL/SQL surface is too broad for the small safe-pattern allowlist
// used for Postgres/MySQL.
type OracleAdapter struct {
	db     *sql.DB
	schema string
	config Config
}

func NewOracleAdapter(ctx context.Context, dsn, schema string, config Config) (*OracleAdapter, error) {
	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, fmt.Errorf("oracle: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("oracle: ping: %w", err)
	}
	return &OracleAdapter{db: db, schema: strings.ToUpper(schema), config: config}, nil
}

func (a *OracleAdapter) Name() string { return "oracle" }

// Supports reports every level L0-L4. At L3/L4 no routine or trigger is
// classified as safe: PL/SQL's procedural surface (cursors, dynamic SQL,
// autonomous transactions, package state) is too broad for a syntactic safe
// subset.
func (a *OracleAdapter) Supports(level Level) bool { return true }

func (a *OracleAdapter) Close() error { return a.db.Close() }

func (a *OracleAdapter) query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *OracleAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT table_name FROM all_tables WHERE owner = :1 ORDER BY table_name`, a.schema)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["table_name"])))
	}
	return out, nil
}

func (a *OracleAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(ctx, `
		SELECT column_name, data_type, data_length, data_precision, data_scale,
		       nullable, data_default
		FROM all_tab_columns
		WHERE owner = :1 AND table_name = :2
		ORDER BY column_id`, a.schema, strings.ToUpper(table))
	if err != nil {
		return schema, err
	}
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["column_name"]))
		dataType := stringOrEmpty(r["data_type"])
		full := dataType
		if p, ok := r["data_precision"]; ok && p != nil {
			if s, ok := r["data_scale"]; ok && s != nil {
				full = fmt.Sprintf("%s(%v,%v)", dataType, p, s)
			} else {
				full = fmt.Sprintf("%s(%v)", dataType, p)
			}
		} else if l, ok := r["data_length"]; ok && l != nil && strings.Contains(dataType, "CHAR") {
			full = fmt.Sprintf("%s(%v)", dataType, l)
		}
		info := typeregistry.MapToIR("oracle", full)

		var def *string
		if s := stringOrEmpty(r["data_default"]); strings.TrimSpace(s) != "" {
			trimmed := strings.TrimSpace(s)
			def = &trimmed
		}
		schema.Columns = append(schema.Columns, Column{
			Name:        name,
			NativeType:  dataType,
			IR:          info,
			Nullable:    stringOrEmpty(r["nullable"]) == "Y",
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

func (a *OracleAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
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
	q := fmt.Sprintf(`SELECT * FROM "%s"`, strings.ToUpper(table))
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

func (a *OracleAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT cols.column_name
		FROM all_constraints cons
		JOIN all_cons_columns cols ON cons.constraint_name = cols.constraint_name AND cons.owner = cols.owner
		WHERE cons.constraint_type = 'P' AND cons.owner = :1 AND cons.table_name = :2
		ORDER BY cols.position`, a.schema, strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	return out, nil
}

func (a *OracleAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := a.query(ctx, `
		SELECT a.constraint_name, a.column_name, c_pk.table_name AS ref_table, b.column_name AS ref_column
		FROM all_cons_columns a
		JOIN all_constraints c ON a.owner = c.owner AND a.constraint_name = c.constraint_name
		JOIN all_constraints c_pk ON c.r_owner = c_pk.owner AND c.r_constraint_name = c_pk.constraint_name
		JOIN all_cons_columns b ON c_pk.owner = b.owner AND c_pk.constraint_name = b.constraint_name AND a.position = b.position
		WHERE c.constraint_type = 'R' AND a.owner = :1 AND a.table_name = :2
		ORDER BY a.constraint_name`, a.schema, strings.ToUpper(table))
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

func (a *OracleAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(ctx, `
		SELECT cons.constraint_name, cols.column_name
		FROM all_constraints cons
		JOIN all_cons_columns cols ON cons.constraint_name = cols.constraint_name AND cons.owner = cols.owner
		WHERE cons.constraint_type = 'U' AND cons.owner = :1 AND cons.table_name = :2
		ORDER BY cons.constraint_name, cols.position`, a.schema, strings.ToUpper(table))
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

func (a *OracleAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(ctx, `
		SELECT i.index_name, i.uniqueness, ic.column_name
		FROM all_indexes i
		JOIN all_ind_columns ic ON i.index_name = ic.index_name AND i.owner = ic.index_owner
		WHERE i.owner = :1 AND i.table_name = :2
		ORDER BY i.index_name, ic.column_position`, a.schema, strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	byName := map[string]*Index{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["index_name"])
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: stringOrEmpty(r["uniqueness"]) == "UNIQUE"}
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

func (a *OracleAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	owner := strings.ToUpper(schema)
	if owner == "" {
		owner = a.schema
	}
	rows, err := a.query(ctx, `SELECT view_name, text FROM all_views WHERE owner = :1 ORDER BY view_name`, owner)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["view_name"]))
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{Schema: owner, Name: name, Definition: stringOrEmpty(r["text"]), Dependencies: deps})
	}
	return out, nil
}

func (a *OracleAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(ctx, `SELECT text FROM all_views WHERE owner = :1 AND view_name = :2`, a.schema, strings.ToUpper(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["text"]), nil
}

func (a *OracleAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	rows, err := a.query(ctx, `
		SELECT referenced_name, referenced_type
		FROM all_dependencies
		WHERE owner = :1 AND name = :2 AND type = 'VIEW'
		  AND referenced_type IN ('TABLE', 'VIEW')
		ORDER BY referenced_name`, a.schema, strings.ToUpper(name))
	if err != nil {
		return nil, err
	}
	var out []ViewDependency
	for _, r := range rows {
		kind := "table"
		if stringOrEmpty(r["referenced_type"]) == "VIEW" {
			kind = "view"
		}
		out = append(out, ViewDependency{Kind: kind, Name: strings.ToLower(stringOrEmpty(r["referenced_name"]))})
	}
	return out, nil
}

func (a *OracleAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

func (a *OracleAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	verb := "CREATE VIEW"
	if orReplace {
		verb = "CREATE OR REPLACE VIEW"
	}
	sql := fmt.Sprintf(`%s "%s" AS %s`, verb, strings.ToUpper(name), strings.TrimSpace(definition))
	if _, err := a.db.ExecContext(ctx, sql); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *OracleAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DROP VIEW "%s"`, strings.ToUpper(name)))
	if err != nil {
		if ifExists && strings.Contains(err.Error(), "ORA-00942") {
			return MutationResult{Success: true}
		}
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *OracleAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for _, v := range views {
		results = append(results, a.CreateView(ctx, v.Name, v.Definition, true))
	}
	return results
}

func (a *OracleAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	owner := strings.ToUpper(schema)
	if owner == "" {
		owner = a.schema
	}
	rows, err := a.query(ctx, `
		SELECT object_name, object_type
		FROM all_objects
		WHERE owner = :1 AND object_type IN ('FUNCTION', 'PROCEDURE', 'PACKAGE')
		ORDER BY object_name`, owner)
	if err != nil {
		return nil, err
	}
	var out []RoutineInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["object_name"]))
		kind := RoutineFunction
		switch stringOrEmpty(r["object_type"]) {
		case "PROCEDURE":
			kind = RoutineProcedure
		case "PACKAGE":
			kind = RoutinePackage
		}
		body, _ := a.GetRoutineDefinition(ctx, name, kind)
		out = append(out, RoutineInfo{Schema: owner, Name: name, Kind: kind, Body: body, FullDefinition: body})
	}
	return out, nil
}

func (a *OracleAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	rows, err := a.query(ctx, `
		SELECT text FROM all_source
		WHERE owner = :1 AND name = :2
		ORDER BY line`, a.schema, strings.ToUpper(name))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(stringOrEmpty(r["text"]))
	}
	return b.String(), nil
}

// ListSafeRoutines is deliberately empty: Oracle's PL/SQL has no syntactic
// safe subset comparable to Postgres/MySQL's whitelist. Every routine is
// reported via the package/routine analyzer's advisory classification
// instead of an adapter-level allow/deny verdict.
func (a *OracleAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *OracleAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return a.ListRoutines(ctx, schema)
}

func (a *OracleAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.ExecContext(ctx, strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *OracleAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	verb := "FUNCTION"
	switch kind {
	case RoutineProcedure:
		verb = "PROCEDURE"
	case RoutinePackage:
		verb = "PACKAGE"
	}
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DROP %s "%s"`, verb, strings.ToUpper(name)))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *OracleAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	results := make([]MutationResult, 0, len(routines))
	for _, r := range routines {
		results = append(results, a.CreateRoutine(ctx, r.FullDefinition))
	}
	return results
}

func (a *OracleAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	owner := strings.ToUpper(schema)
	if owner == "" {
		owner = a.schema
	}
	rows, err := a.query(ctx, `
		SELECT trigger_name, table_name, triggering_event, trigger_type, trigger_body
		FROM all_triggers
		WHERE owner = :1
		ORDER BY table_name, trigger_name`, owner)
	if err != nil {
		return nil, err
	}
	var out []TriggerInfo
	for _, r := range rows {
		triggerType := strings.ToUpper(stringOrEmpty(r["trigger_type"]))
		timing := "before"
		scope := "statement"
		if strings.Contains(triggerType, "INSTEAD OF") {
			timing = "instead_of"
		} else if strings.Contains(triggerType, "AFTER") {
			timing = "after"
		}
		if strings.Contains(triggerType, "ROW") {
			scope = "row"
		}
		out = append(out, TriggerInfo{
			Schema:     owner,
			Name:       strings.ToLower(stringOrEmpty(r["trigger_name"])),
			Table:      strings.ToLower(stringOrEmpty(r["table_name"])),
			Timing:     timing,
			Events:     strings.Split(stringOrEmpty(r["triggering_event"]), " OR "),
			Scope:      scope,
			Body:       stringOrEmpty(r["trigger_body"]),
			Definition: stringOrEmpty(r["trigger_body"]),
		})
	}
	return out, nil
}

func (a *OracleAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(ctx, `SELECT trigger_body FROM all_triggers WHERE owner = :1 AND trigger_name = :2`, a.schema, strings.ToUpper(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("trigger not found: %s", name)
	}
	return stringOrEmpty(rows[0]["trigger_body"]), nil
}

func (a *OracleAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return nil, nil
}

func (a *OracleAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return a.ListTriggers(ctx, schema)
}

func (a *OracleAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.ExecContext(ctx, strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *OracleAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DROP TRIGGER "%s"`, strings.ToUpper(name)))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}
