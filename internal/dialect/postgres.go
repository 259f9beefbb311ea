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

// PostgresAdapter implements Adapter over a Postgres/compatible endpoint.
// Connection opening is delegated to drivers.PostgresDriver; this type
// layers the catalog introspection and safe-subset classification the
// driver itself knows nothing about.
type PostgresAdapter struct {
	db     *squealx.DB
	config Config
}

func NewPostgresAdapter(ctx context.Context, dsn string, config Config) (*PostgresAdapter, error) {
	drv, err := drivers.NewPostgresDriver(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &PostgresAdapter{db: drv.DB(), config: config}, nil
}

func (a *PostgresAdapter) Name() string { return "postgres" }

func (a *PostgresAdapter) Supports(level Level) bool { return true } // full L0-L4

func (a *PostgresAdapter) Close() error { return a.db.Close() }

func (a *PostgresAdapter) query(query string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *PostgresAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, strings.ToLower(stringOrEmpty(r["table_name"])))
	}
	return names, nil
}

func (a *PostgresAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(`
		SELECT column_name, data_type, character_maximum_length,
		       numeric_precision, numeric_scale, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, strings.ToLower(table))
	if err != nil {
		return schema, err
	}
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["column_name"]))
		dataType := stringOrEmpty(r["data_type"])
		full := dataType
		if l, ok := r["character_maximum_length"].(int64); ok && l > 0 {
			full = fmt.Sprintf("%s(%d)", dataType, l)
		} else if p, ok := r["numeric_precision"].(int64); ok && p > 0 {
			if s, ok := r["numeric_scale"].(int64); ok && s > 0 {
				full = fmt.Sprintf("%s(%d,%d)", dataType, p, s)
			}
		}
		info := typeregistry.MapToIR("postgresql", full)

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
	return schema, nil
}

func (a *PostgresAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
	start := time.Now()
	var orderClause string
	if len(orderBy) > 0 {
		var quoted []string
		for _, c := range orderBy {
			quoted = append(quoted, fmt.Sprintf("%q", c))
		}
		orderClause = strings.Join(quoted, ", ")
	} else if pks, err := a.GetPrimaryKeys(ctx, table); err == nil && len(pks) > 0 {
		var quoted []string
		for _, c := range pks {
			quoted = append(quoted, fmt.Sprintf("%q", c))
		}
		orderClause = strings.Join(quoted, ", ")
	} else {
		schema, err := a.GetSchema(ctx, table)
		if err == nil && len(schema.Columns) > 0 {
			orderClause = fmt.Sprintf("%q", schema.Columns[0].Name)
		}
	}

	q := fmt.Sprintf(`SELECT * FROM %q`, strings.ToLower(table))
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

func (a *PostgresAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, strings.ToLower(table))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	return out, nil
}

func (a *PostgresAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := a.query(`
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name AS ref_table,
		       ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		ORDER BY tc.constraint_name`, strings.ToLower(table))
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

func (a *PostgresAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(`
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`, strings.ToLower(table))
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

func (a *PostgresAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(`
		SELECT i.relname AS index_name, a.attname AS column_name,
		       ix.indisunique AS is_unique, ix.indisprimary AS is_primary
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1
		ORDER BY i.relname`, strings.ToLower(table))
	if err != nil {
		return nil, err
	}
	byName := map[string]*Index{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["index_name"])
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: boolOf(r["is_unique"]), Primary: boolOf(r["is_primary"])}
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

func (a *PostgresAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := a.query(`
		SELECT viewname, definition FROM pg_views
		WHERE schemaname = $1 ORDER BY viewname`, schema)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["viewname"]))
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{
			Schema:       schema,
			Name:         name,
			Definition:   stringOrEmpty(r["definition"]),
			Dependencies: deps,
		})
	}
	return out, nil
}

func (a *PostgresAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(`SELECT definition FROM pg_views WHERE viewname = $1`, strings.ToLower(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["definition"]), nil
}

func (a *PostgresAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	rows, err := a.query(`
		SELECT DISTINCT
		  CASE c.relkind WHEN 'r' THEN 'table' WHEN 'v' THEN 'view'
		       WHEN 'm' THEN 'materialized_view' ELSE 'other' END AS dep_type,
		  c.relname AS dep_name
		FROM pg_depend d
		JOIN pg_rewrite r ON d.objid = r.oid
		JOIN pg_class v ON r.ev_class = v.oid
		JOIN pg_class c ON d.refobjid = c.oid
		WHERE v.relname = $1 AND c.relname != $1 AND d.deptype = 'n'
		ORDER BY dep_type, dep_name`, strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	var out []ViewDependency
	for _, r := range rows {
		out = append(out, ViewDependency{Kind: stringOrEmpty(r["dep_type"]), Name: strings.ToLower(stringOrEmpty(r["dep_name"]))})
	}
	return out, nil
}

func (a *PostgresAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

func (a *PostgresAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	verb := "CREATE VIEW"
	if orReplace {
		verb = "CREATE OR REPLACE VIEW"
	}
	sql := fmt.Sprintf(`%s "public"."%s" AS %s`, verb, strings.ToLower(name), strings.TrimSpace(definition))
	_, err := a.db.Exec(sql)
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *PostgresAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	exists := ""
	if ifExists {
		exists = "IF EXISTS "
	}
	_, err := a.db.Exec(fmt.Sprintf(`DROP VIEW %s"public"."%s"`, exists, strings.ToLower(name)))
	if err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *PostgresAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for _, v := range views {
		results = append(results, a.CreateView(ctx, v.Name, v.Definition, true))
	}
	return results
}

// ListRoutines covers both functions and procedures exposed under pg_proc.
func (a *PostgresAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := a.query(`
		SELECT p.proname AS name, l.lanname AS language,
		       p.provolatile AS volatility, p.prosecdef AS security_definer,
		       pg_get_functiondef(p.oid) AS definition
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		JOIN pg_language l ON p.prolang = l.oid
		WHERE n.nspname = $1
		ORDER BY p.proname`, schema)
	if err != nil {
		return nil, err
	}
	var out []RoutineInfo
	for _, r := range rows {
		vol := "volatile"
		switch stringOrEmpty(r["volatility"]) {
		case "i":
			vol = "immutable"
		case "s":
			vol = "stable"
		}
		security := "invoker"
		if boolOf(r["security_definer"]) {
			security = "definer"
		}
		out = append(out, RoutineInfo{
			Schema:         schema,
			Name:           strings.ToLower(stringOrEmpty(r["name"])),
			Kind:           RoutineFunction,
			Language:       strings.ToLower(stringOrEmpty(r["language"])),
			Volatility:     vol,
			Security:       security,
			FullDefinition: stringOrEmpty(r["definition"]),
		})
	}
	return out, nil
}

func (a *PostgresAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	rows, err := a.query(`SELECT pg_get_functiondef(oid) AS def FROM pg_proc WHERE proname = $1 LIMIT 1`, strings.ToLower(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("routine not found: %s", name)
	}
	return stringOrEmpty(rows[0]["def"]), nil
}

// ListSafeRoutines admits language in {sql, plpgsql}, volatility in
// {immutable, stable}, security = invoker.
func (a *PostgresAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	all, err := a.ListRoutines(ctx, schema)
	if err != nil {
		return nil, err
	}
	var safe []RoutineInfo
	for _, r := range all {
		if classifyPostgresRoutine(&r); r.Classification.Allowed {
			safe = append(safe, r)
		}
	}
	return safe, nil
}

func (a *PostgresAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	all, err := a.ListRoutines(ctx, schema)
	if err != nil {
		return nil, err
	}
	var skipped []RoutineInfo
	for _, r := range all {
		if classifyPostgresRoutine(&r); !r.Classification.Allowed {
			skipped = append(skipped, r)
		}
	}
	return skipped, nil
}

func classifyPostgresRoutine(r *RoutineInfo) {
	var reasons []string
	if r.Language != "sql" && r.Language != "plpgsql" {
		reasons = append(reasons, "unsupported language: "+r.Language)
	}
	if r.Volatility == "volatile" {
		reasons = append(reasons, "volatile function")
	}
	if r.Security == "definer" {
		reasons = append(reasons, "security definer")
	}
	r.Classification = Classification{Allowed: len(reasons) == 0, ReasonCodes: reasons}
}

func (a *PostgresAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	sql := strings.TrimSpace(definition)
	if !strings.Contains(strings.ToUpper(sql), "OR REPLACE") {
		sql = strings.Replace(sql, "CREATE FUNCTION", "CREATE OR REPLACE FUNCTION", 1)
		sql = strings.Replace(sql, "CREATE PROCEDURE", "CREATE OR REPLACE PROCEDURE", 1)
	}
	if _, err := a.db.Exec(sql); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *PostgresAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	verb := "FUNCTION"
	if kind == RoutineProcedure {
		verb = "PROCEDURE"
	}
	if _, err := a.db.Exec(fmt.Sprintf(`DROP %s IF EXISTS "public"."%s"`, verb, strings.ToLower(name))); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *PostgresAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	results := make([]MutationResult, 0, len(routines))
	for _, r := range routines {
		results = append(results, a.CreateRoutine(ctx, r.FullDefinition))
	}
	return results
}

func (a *PostgresAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := a.query(`
		SELECT t.tgname AS name, c.relname AS table_name,
		       CASE WHEN t.tgtype & 2 = 2 THEN 'before'
		            WHEN t.tgtype & 64 = 64 THEN 'instead_of'
		            ELSE 'after' END AS timing,
		       (t.tgtype & 4 = 4) AS on_insert,
		       (t.tgtype & 8 = 8) AS on_delete,
		       (t.tgtype & 16 = 16) AS on_update,
		       CASE WHEN t.tgtype & 1 = 1 THEN 'row' ELSE 'statement' END AS scope,
		       pg_get_triggerdef(t.oid) AS definition
		FROM pg_trigger t
		JOIN pg_class c ON t.tgrelid = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE n.nspname = $1 AND NOT t.tgisinternal
		ORDER BY c.relname, t.tgname`, schema)
	if err != nil {
		return nil, err
	}
	var out []TriggerInfo
	for _, r := range rows {
		var events []string
		if boolOf(r["on_insert"]) {
			events = append(events, "insert")
		}
		if boolOf(r["on_update"]) {
			events = append(events, "update")
		}
		if boolOf(r["on_delete"]) {
			events = append(events, "delete")
		}
		out = append(out, TriggerInfo{
			Schema:     schema,
			Name:       strings.ToLower(stringOrEmpty(r["name"])),
			Table:      strings.ToLower(stringOrEmpty(r["table_name"])),
			Timing:     stringOrEmpty(r["timing"]),
			Events:     events,
			Scope:      stringOrEmpty(r["scope"]),
			Definition: stringOrEmpty(r["definition"]),
		})
	}
	return out, nil
}

func (a *PostgresAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(`SELECT pg_get_triggerdef(oid) AS def FROM pg_trigger WHERE tgname = $1`, strings.ToLower(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("trigger not found: %s", name)
	}
	return stringOrEmpty(rows[0]["def"]), nil
}

// ListSafeTriggers admits row-level triggers that are not INSTEAD OF. Trigger
// functions are typically volatile by nature (they mutate NEW); volatility is
// not used to filter triggers.
func (a *PostgresAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var safe []TriggerInfo
	for _, t := range all {
		if classifyPostgresTrigger(&t); t.Classification.Allowed {
			safe = append(safe, t)
		}
	}
	return safe, nil
}

func (a *PostgresAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var skipped []TriggerInfo
	for _, t := range all {
		if classifyPostgresTrigger(&t); !t.Classification.Allowed {
			skipped = append(skipped, t)
		}
	}
	return skipped, nil
}

func classifyPostgresTrigger(t *TriggerInfo) {
	var reasons []string
	if t.Scope != "row" {
		reasons = append(reasons, "statement-level trigger")
	}
	if t.Timing == "instead_of" {
		reasons = append(reasons, "instead of trigger")
	}
	t.Classification = Classification{Allowed: len(reasons) == 0, ReasonCodes: reasons}
}

func (a *PostgresAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.Exec(strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *PostgresAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	if _, err := a.db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS "%s" ON "public"."%s"`, strings.ToLower(name), strings.ToLower(table))); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}
