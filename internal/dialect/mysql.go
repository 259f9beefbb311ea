package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/saiql/harness/drivers"
	"github.com/saiql/harness/internal/typeregistry"
)

// MySQLAdapter implements Adapter over MySQL/MariaDB. Connection opening is
// delegated to drivers.MySQLDriver.
type MySQLAdapter struct {
	db       *squealx.DB
	database string
	config   Config
}

func NewMySQLAdapter(ctx context.Context, dsn, database string, config Config) (*MySQLAdapter, error) {
	drv, err := drivers.NewMySQLDriver(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return &MySQLAdapter{db: drv.DB(), database: database, config: config}, nil
}

func (a *MySQLAdapter) Name() string              { return "mysql" }
func (a *MySQLAdapter) Supports(level Level) bool { return true }
func (a *MySQLAdapter) Close() error               { return a.db.Close() }

func (a *MySQLAdapter) query(q string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *MySQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, a.database)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, r := range rows {
		names = append(names, strings.ToLower(stringOrEmpty(r["table_name"])))
	}
	return names, nil
}

func (a *MySQLAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(`
		SELECT column_name, data_type, character_maximum_length,
		       numeric_precision, numeric_scale, is_nullable, column_default,
		       column_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, a.database, strings.ToLower(table))
	if err != nil {
		return schema, err
	}
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["column_name"]))
		fullType := stringOrEmpty(r["column_type"]) // e.g. "varchar(255)", "int unsigned"
		info := typeregistry.MapToIR("mysql", fullType)

		var def *string
		if s := stringOrEmpty(r["column_default"]); s != "" {
			def = &s
		}
		schema.Columns = append(schema.Columns, Column{
			Name:        name,
			NativeType:  stringOrEmpty(r["data_type"]),
			IR:          info,
			Nullable:    stringOrEmpty(r["is_nullable"]) == "YES",
			Default:     def,
			Unsupported: info.IRType == typeregistry.IRUnknown,
		})
	}
	return schema, nil
}

func (a *MySQLAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
	start := time.Now()
	var orderClause string
	if len(orderBy) > 0 {
		var quoted []string
		for _, c := range orderBy {
			quoted = append(quoted, fmt.Sprintf("`%s`", c))
		}
		orderClause = strings.Join(quoted, ", ")
	} else if pks, err := a.GetPrimaryKeys(ctx, table); err == nil && len(pks) > 0 {
		var quoted []string
		for _, c := range pks {
			quoted = append(quoted, fmt.Sprintf("`%s`", c))
		}
		orderClause = strings.Join(quoted, ", ")
	} else {
		schema, err := a.GetSchema(ctx, table)
		if err == nil && len(schema.Columns) > 0 {
			orderClause = fmt.Sprintf("`%s`", schema.Columns[0].Name)
		}
	}

	q := fmt.Sprintf("SELECT * FROM `%s`", strings.ToLower(table))
	if orderClause != "" {
		q += " ORDER BY " + orderClause
	}
	rows, err := a.query(q)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		Rows: rows,
		Stats: ExtractStats{
			RowCount:     len(rows),
			Duration:     time.Since(start),
			OrderKeyUsed: orderClause,
		},
	}, nil
}

func (a *MySQLAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = ? AND tc.table_name = ?
		ORDER BY kcu.ordinal_position`, a.database, strings.ToLower(table))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	return out, nil
}

func (a *MySQLAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := a.query(`
		SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name`, a.database, strings.ToLower(table))
	if err != nil {
		return nil, err
	}
	var out []ForeignKey
	for _, r := range rows {
		out = append(out, ForeignKey{
			Column:         strings.ToLower(stringOrEmpty(r["column_name"])),
			RefTable:       strings.ToLower(stringOrEmpty(r["referenced_table_name"])),
			RefColumn:      strings.ToLower(stringOrEmpty(r["referenced_column_name"])),
			ConstraintName: stringOrEmpty(r["constraint_name"]),
		})
	}
	return out, nil
}

func (a *MySQLAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(`
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
		WHERE tc.constraint_type = 'UNIQUE' AND tc.table_schema = ? AND tc.table_name = ?
		ORDER BY tc.constraint_name, kcu.ordinal_position`, a.database, strings.ToLower(table))
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

func (a *MySQLAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(`SHOW INDEX FROM `+"`"+strings.ToLower(table)+"`")
	if err != nil {
		return nil, err
	}
	byName := map[string]*Index{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["key_name"])
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: !boolOf(r["non_unique"]), Primary: name == "PRIMARY"}
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

func (a *MySQLAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	db := schema
	if db == "" {
		db = a.database
	}
	rows, err := a.query(`
		SELECT table_name AS view_name, view_definition
		FROM information_schema.views
		WHERE table_schema = ? ORDER BY table_name`, db)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["view_name"]))
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{Schema: db, Name: name, Definition: stringOrEmpty(r["view_definition"]), Dependencies: deps})
	}
	return out, nil
}

func (a *MySQLAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(`
		SELECT view_definition FROM information_schema.views
		WHERE table_schema = ? AND table_name = ?`, a.database, strings.ToLower(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["view_definition"]), nil
}

// GetViewDependencies scans view_table_usage, MySQL's own table-usage catalog.
func (a *MySQLAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	rows, err := a.query(`
		SELECT table_name, table_schema FROM information_schema.view_table_usage
		WHERE view_schema = ? AND view_name = ? AND table_name != ?
		ORDER BY table_name`, a.database, strings.ToLower(name), strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	views, _ := a.listViewNames(ctx)
	var out []ViewDependency
	for _, r := range rows {
		tn := strings.ToLower(stringOrEmpty(r["table_name"]))
		kind := "table"
		if views[tn] {
			kind = "view"
		}
		out = append(out, ViewDependency{Kind: kind, Name: tn})
	}
	return out, nil
}

func (a *MySQLAdapter) listViewNames(ctx context.Context) (map[string]bool, error) {
	rows, err := a.query(`SELECT table_name FROM information_schema.views WHERE table_schema = ?`, a.database)
	if err != nil {
		return nil, err
	}
	m := map[string]bool{}
	for _, r := range rows {
		m[strings.ToLower(stringOrEmpty(r["table_name"]))] = true
	}
	return m, nil
}

func (a *MySQLAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

func (a *MySQLAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	verb := "CREATE VIEW"
	if orReplace {
		verb = "CREATE OR REPLACE VIEW"
	}
	sql := fmt.Sprintf("%s `%s` AS %s", verb, strings.ToLower(name), strings.TrimSpace(definition))
	if _, err := a.db.Exec(sql); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MySQLAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	exists := ""
	if ifExists {
		exists = "IF EXISTS "
	}
	if _, err := a.db.Exec(fmt.Sprintf("DROP VIEW %s`%s`", exists, strings.ToLower(name))); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MySQLAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for _, v := range views {
		results = append(results, a.CreateView(ctx, v.Name, v.Definition, true))
	}
	return results
}

func (a *MySQLAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	db := schema
	if db == "" {
		db = a.database
	}
	rows, err := a.query(`
		SELECT routine_name, routine_type, is_deterministic, sql_data_access,
		       security_type, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = ? ORDER BY routine_name`, db)
	if err != nil {
		return nil, err
	}
	var out []RoutineInfo
	for _, r := range rows {
		kind := RoutineFunction
		if strings.EqualFold(stringOrEmpty(r["routine_type"]), "PROCEDURE") {
			kind = RoutineProcedure
		}
		security := "invoker"
		if strings.EqualFold(stringOrEmpty(r["security_type"]), "DEFINER") {
			security = "definer"
		}
		out = append(out, RoutineInfo{
			Schema:         db,
			Name:           strings.ToLower(stringOrEmpty(r["routine_name"])),
			Kind:           kind,
			DataAccess:     strings.ToUpper(stringOrEmpty(r["sql_data_access"])),
			Security:       security,
			Body:           stringOrEmpty(r["routine_definition"]),
			FullDefinition: stringOrEmpty(r["routine_definition"]),
			Volatility:     mysqlDeterministicToVolatility(boolOf(r["is_deterministic"])),
		})
	}
	return out, nil
}

func mysqlDeterministicToVolatility(deterministic bool) string {
	if deterministic {
		return "immutable"
	}
	return "volatile"
}

func (a *MySQLAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	verb := "FUNCTION"
	if kind == RoutineProcedure {
		verb = "PROCEDURE"
	}
	rows, err := a.query(fmt.Sprintf("SHOW CREATE %s `%s`", verb, strings.ToLower(name)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("routine not found: %s", name)
	}
	for _, key := range []string{"create procedure", "create function"} {
		if v, ok := rows[0][key]; ok {
			return stringOrEmpty(v), nil
		}
	}
	return "", fmt.Errorf("routine definition not found: %s", name)
}

// ListSafeRoutines: IS_DETERMINISTIC=YES (or a read-only procedure),
// DATA_ACCESS not MODIFIES SQL DATA, SQL_SECURITY=INVOKER, no dynamic SQL.
func (a *MySQLAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	all, err := a.ListRoutines(ctx, schema)
	if err != nil {
		return nil, err
	}
	var safe []RoutineInfo
	for _, r := range all {
		if classifyMySQLRoutine(&r); r.Classification.Allowed {
			safe = append(safe, r)
		}
	}
	return safe, nil
}

func (a *MySQLAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	all, err := a.ListRoutines(ctx, schema)
	if err != nil {
		return nil, err
	}
	var skipped []RoutineInfo
	for _, r := range all {
		if classifyMySQLRoutine(&r); !r.Classification.Allowed {
			skipped = append(skipped, r)
		}
	}
	return skipped, nil
}

func classifyMySQLRoutine(r *RoutineInfo) {
	var reasons []string
	isReadOnly := r.DataAccess == "READS SQL DATA" || r.DataAccess == "NO SQL" || r.DataAccess == "CONTAINS SQL"
	isProcedure := r.Kind == RoutineProcedure
	deterministic := r.Volatility == "immutable"

	if !deterministic && !(isProcedure && isReadOnly) {
		reasons = append(reasons, "not deterministic")
	}
	if r.DataAccess == "MODIFIES SQL DATA" {
		reasons = append(reasons, "modifies sql data")
	}
	if r.Security == "definer" {
		reasons = append(reasons, "sql security definer (privilege escalation risk)")
	}
	upper := strings.ToUpper(r.Body)
	if strings.Contains(upper, "PREPARE") || strings.Contains(upper, "EXECUTE") {
		reasons = append(reasons, "contains dynamic sql")
	}
	r.Classification = Classification{Allowed: len(reasons) == 0, ReasonCodes: reasons}
}

func (a *MySQLAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.Exec(strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MySQLAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	verb := "FUNCTION"
	if kind == RoutineProcedure {
		verb = "PROCEDURE"
	}
	if _, err := a.db.Exec(fmt.Sprintf("DROP %s IF EXISTS `%s`", verb, strings.ToLower(name))); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MySQLAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	results := make([]MutationResult, 0, len(routines))
	for _, r := range routines {
		results = append(results, a.CreateRoutine(ctx, r.FullDefinition))
	}
	return results
}

func (a *MySQLAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	db := schema
	if db == "" {
		db = a.database
	}
	rows, err := a.query(`
		SELECT trigger_name, event_manipulation, event_object_table, action_timing,
		       action_statement, action_orientation
		FROM information_schema.triggers
		WHERE trigger_schema = ? ORDER BY event_object_table, trigger_name`, db)
	if err != nil {
		return nil, err
	}
	var out []TriggerInfo
	for _, r := range rows {
		out = append(out, TriggerInfo{
			Schema:     db,
			Name:       strings.ToLower(stringOrEmpty(r["trigger_name"])),
			Table:      strings.ToLower(stringOrEmpty(r["event_object_table"])),
			Timing:     strings.ToLower(stringOrEmpty(r["action_timing"])),
			Events:     []string{strings.ToLower(stringOrEmpty(r["event_manipulation"]))},
			Scope:      strings.ToLower(stringOrEmpty(r["action_orientation"])),
			Body:       stringOrEmpty(r["action_statement"]),
			Definition: stringOrEmpty(r["action_statement"]),
		})
	}
	return out, nil
}

func (a *MySQLAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(fmt.Sprintf("SHOW CREATE TRIGGER `%s`", strings.ToLower(name)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("trigger not found: %s", name)
	}
	return stringOrEmpty(rows[0]["sql original statement"]), nil
}

// ListSafeTriggers admits ROW-level triggers without dynamic SQL or known
// unsafe function calls. AFTER triggers are skipped by default per the L4
// "may have side effects" rule.
func (a *MySQLAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var safe []TriggerInfo
	for _, t := range all {
		if classifyMySQLTrigger(&t); t.Classification.Allowed {
			safe = append(safe, t)
		}
	}
	return safe, nil
}

func (a *MySQLAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var skipped []TriggerInfo
	for _, t := range all {
		if classifyMySQLTrigger(&t); !t.Classification.Allowed {
			skipped = append(skipped, t)
		}
	}
	return skipped, nil
}

var mysqlUnsafeTriggerPatterns = []string{"SLEEP(", "BENCHMARK(", "LOAD_FILE(", "INTO OUTFILE", "INTO DUMPFILE"}

func classifyMySQLTrigger(t *TriggerInfo) {
	var reasons []string
	if t.Scope != "" && t.Scope != "row" {
		reasons = append(reasons, "not row-level trigger")
	}
	if t.Timing == "after" {
		reasons = append(reasons, "after trigger")
	}
	upper := strings.ToUpper(t.Body)
	if strings.Contains(upper, "PREPARE") || strings.Contains(upper, "EXECUTE IMMEDIATE") {
		reasons = append(reasons, "contains dynamic sql")
	}
	for _, pattern := range mysqlUnsafeTriggerPatterns {
		if strings.Contains(upper, pattern) {
			reasons = append(reasons, "contains unsafe pattern: "+pattern)
			break
		}
	}
	t.Classification = Classification{Allowed: len(reasons) == 0, ReasonCodes: reasons}
}

func (a *MySQLAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.Exec(strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *MySQLAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	if _, err := a.db.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`", strings.ToLower(name))); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}
