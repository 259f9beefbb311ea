package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/saiql/harness/drivers"
	"github.com/saiql/harness/internal/typeregistry"
)

// SQLiteAdapter implements Adapter over SQLite. Connection opening is
// delegated to drivers.SQLiteDriver; this type layers the function/
// dependency classification and PRAGMA handling ported from sqlite_adapter.py.
type SQLiteAdapter struct {
	db     *squealx.DB
	path   string
	config Config
}

func NewSQLiteAdapter(ctx context.Context, dbPath string, config Config) (*SQLiteAdapter, error) {
	drv, err := drivers.NewSQLiteDriver(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	a := &SQLiteAdapter{db: drv.DB(), path: dbPath, config: config}
	if err := a.applyBaselinePragmas(); err != nil {
		return nil, err
	}
	return a, nil
}

// applyBaselinePragmas fixes foreign_keys and recursive_triggers so trigger
// safety analysis can rely on them instead of static recursion detection.
func (a *SQLiteAdapter) applyBaselinePragmas() error {
	fk := "OFF"
	if a.config.PragmaForeignKeys {
		fk = "ON"
	}
	if _, err := a.db.Exec(fmt.Sprintf("PRAGMA foreign_keys = %s", fk)); err != nil {
		return fmt.Errorf("sqlite: pragma foreign_keys: %w", err)
	}
	rt := "OFF"
	if a.config.PragmaRecursiveTrigger {
		rt = "ON"
	}
	if _, err := a.db.Exec(fmt.Sprintf("PRAGMA recursive_triggers = %s", rt)); err != nil {
		return fmt.Errorf("sqlite: pragma recursive_triggers: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Name() string              { return "sqlite" }
func (a *SQLiteAdapter) Supports(level Level) bool { return true }
func (a *SQLiteAdapter) Close() error               { return a.db.Close() }

func (a *SQLiteAdapter) query(q string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *SQLiteAdapter) GetPragmaSettings() (map[string]any, error) {
	out := map[string]any{}
	for _, p := range []string{"foreign_keys", "recursive_triggers", "encoding", "journal_mode"} {
		rows, err := a.query("PRAGMA " + p)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		for _, v := range rows[0] {
			out[p] = v
			break
		}
	}
	return out, nil
}

func (a *SQLiteAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, stringOrEmpty(r["name"]))
	}
	return out, nil
}

func (a *SQLiteAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(fmt.Sprintf("PRAGMA table_info(`%s`)", table))
	if err != nil {
		return schema, err
	}
	var pk []string
	for _, r := range rows {
		name := stringOrEmpty(r["name"])
		nativeType := stringOrEmpty(r["type"])
		info := typeregistry.MapToIR("sqlite", nativeType)

		var def *string
		if s := stringOrEmpty(r["dflt_value"]); s != "" {
			def = &s
		}
		schema.Columns = append(schema.Columns, Column{
			Name:        name,
			NativeType:  nativeType,
			IR:          info,
			Nullable:    !boolOf(r["notnull"]),
			Default:     def,
			Unsupported: info.IRType == typeregistry.IRUnknown,
		})
		if boolOf(r["pk"]) {
			pk = append(pk, name)
		}
	}
	schema.PrimaryKey = pk
	schema.ForeignKeys, _ = a.GetForeignKeys(ctx, table)
	schema.UniqueConstraints, _ = a.GetUniqueConstraints(ctx, table)
	schema.Indexes, _ = a.GetIndexes(ctx, table)
	return schema, nil
}

func (a *SQLiteAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
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
	q := fmt.Sprintf("SELECT * FROM `%s`", table)
	if orderClause != "" {
		q += " ORDER BY " + orderClause
	}
	rows, err := a.query(q)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		Rows:  rows,
		Stats: ExtractStats{RowCount: len(rows), Duration: time.Since(start), OrderKeyUsed: orderClause},
	}, nil
}

func (a *SQLiteAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(fmt.Sprintf("PRAGMA table_info(`%s`)", table))
	if err != nil {
		return nil, err
	}
	type pkCol struct {
		name string
		seq  int64
	}
	var cols []pkCol
	for _, r := range rows {
		if boolOf(r["pk"]) {
			seq, _ := r["pk"].(int64)
			cols = append(cols, pkCol{name: stringOrEmpty(r["name"]), seq: seq})
		}
	}
	var out []string
	for _, c := range cols {
		out = append(out, c.name)
	}
	return out, nil
}

func (a *SQLiteAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := a.query(fmt.Sprintf("PRAGMA foreign_key_list(`%s`)", table))
	if err != nil {
		return nil, err
	}
	var out []ForeignKey
	for _, r := range rows {
		out = append(out, ForeignKey{
			Column:         stringOrEmpty(r["from"]),
			RefTable:       stringOrEmpty(r["table"]),
			RefColumn:      stringOrEmpty(r["to"]),
			ConstraintName: fmt.Sprintf("fk_%s_%s", table, stringOrEmpty(r["from"])),
		})
	}
	return out, nil
}

func (a *SQLiteAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(fmt.Sprintf("PRAGMA index_list(`%s`)", table))
	if err != nil {
		return nil, err
	}
	var out []UniqueConstraint
	for _, r := range rows {
		if !boolOf(r["unique"]) {
			continue
		}
		name := stringOrEmpty(r["name"])
		if strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		cols, err := a.query(fmt.Sprintf("PRAGMA index_info(`%s`)", name))
		if err != nil {
			continue
		}
		uc := UniqueConstraint{Name: name}
		for _, c := range cols {
			uc.Columns = append(uc.Columns, stringOrEmpty(c["name"]))
		}
		out = append(out, uc)
	}
	return out, nil
}

func (a *SQLiteAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(fmt.Sprintf("PRAGMA index_list(`%s`)", table))
	if err != nil {
		return nil, err
	}
	var out []Index
	for _, r := range rows {
		name := stringOrEmpty(r["name"])
		cols, err := a.query(fmt.Sprintf("PRAGMA index_info(`%s`)", name))
		if err != nil {
			continue
		}
		idx := Index{Name: name, Unique: boolOf(r["unique"]), Primary: stringOrEmpty(r["origin"]) == "pk"}
		for _, c := range cols {
			idx.Columns = append(idx.Columns, stringOrEmpty(c["name"]))
		}
		out = append(out, idx)
	}
	return out, nil
}

func (a *SQLiteAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	rows, err := a.query(`SELECT name, sql FROM sqlite_master WHERE type = 'view' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := stringOrEmpty(r["name"])
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{Name: name, Definition: stringOrEmpty(r["sql"]), Dependencies: deps})
	}
	return out, nil
}

func (a *SQLiteAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(`SELECT sql FROM sqlite_master WHERE type = 'view' AND name = ?`, name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["sql"]), nil
}

// GetViewDependencies relies on the build-in bytecode-free dependency tables
// not being available in SQLite, so it uses sqlite_master's name scan over
// the view's own SQL text -- grounded on analyze_dependencies in the Python
// adapter, which does the same textual scan against known table/view names.
func (a *SQLiteAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	def, err := a.GetViewDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	tables, err := a.query(`SELECT name, type FROM sqlite_master WHERE type IN ('table','view') AND name != ?`, name)
	if err != nil {
		return nil, err
	}
	var out []ViewDependency
	for _, r := range tables {
		objName := stringOrEmpty(r["name"])
		if referencesIdentifier(def, objName) {
			kind := "table"
			if stringOrEmpty(r["type"]) == "view" {
				kind = "view"
			}
			out = append(out, ViewDependency{Kind: kind, Name: objName})
		}
	}
	return out, nil
}

func referencesIdentifier(sql, name string) bool {
	pattern := `(?i)\b` + regexp.QuoteMeta(name) + `\b`
	matched, _ := regexp.MatchString(pattern, sql)
	return matched
}

func (a *SQLiteAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

func (a *SQLiteAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	if orReplace {
		a.db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS `%s`", name))
	}
	sql := fmt.Sprintf("CREATE VIEW `%s` AS %s", name, strings.TrimSpace(definition))
	if _, err := a.db.Exec(sql); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *SQLiteAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	exists := ""
	if ifExists {
		exists = "IF EXISTS "
	}
	if _, err := a.db.Exec(fmt.Sprintf("DROP VIEW %s`%s`", exists, name)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *SQLiteAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for _, v := range views {
		results = append(results, a.CreateView(ctx, v.Name, v.Definition, true))
	}
	return results
}

// sqliteBuiltinFunctions, sqliteJSONFunctions and sqliteFTSFunctions mirror
// the Python adapter's SQLITE_BUILTIN_FUNCTIONS / SQLITE_JSON_FUNCTIONS /
// SQLITE_FTS_FUNCTIONS literal sets: the baseline that ships with every
// SQLite build, the json1 extension surface, and the FTS3/4/5 surface.
var sqliteBuiltinFunctions = map[string]bool{
	"abs": true, "changes": true, "char": true, "coalesce": true, "glob": true,
	"hex": true, "ifnull": true, "instr": true, "last_insert_rowid": true,
	"length": true, "like": true, "likelihood": true, "lower": true, "ltrim": true,
	"max": true, "min": true, "nullif": true, "printf": true, "quote": true,
	"random": true, "randomblob": true, "replace": true, "round": true,
	"rtrim": true, "sign": true, "soundex": true, "sqlite_compileoption_get": true,
	"sqlite_compileoption_used": true, "sqlite_offset": true, "sqlite_source_id": true,
	"sqlite_version": true, "substr": true, "total_changes": true, "trim": true,
	"typeof": true, "unicode": true, "upper": true, "zeroblob": true,
	"avg": true, "count": true, "group_concat": true, "sum": true, "total": true,
	"date": true, "time": true, "datetime": true, "julianday": true, "strftime": true,
}

var sqliteJSONFunctions = map[string]bool{
	"json": true, "json_array": true, "json_array_length": true, "json_extract": true,
	"json_insert": true, "json_object": true, "json_patch": true, "json_remove": true,
	"json_replace": true, "json_set": true, "json_type": true, "json_valid": true,
	"json_quote": true, "json_group_array": true, "json_group_object": true,
	"json_each": true, "json_tree": true,
}

var sqliteFTSFunctions = map[string]bool{
	"fts3": true, "fts4": true, "fts5": true, "highlight": true, "snippet": true,
	"offsets": true, "matchinfo": true, "bm25": true,
}

var sqliteFunctionCall = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\s*\(`)

// classifySQLiteDependencies extracts the function calls in a SQL body and
// buckets them into builtin/json_extension/fts_extension/unknown, matching
// classify_function in the Python adapter.
func classifySQLiteDependencies(body string) (needsJSON, needsFTS bool, unknown []string) {
	seen := map[string]bool{}
	for _, m := range sqliteFunctionCall.FindAllStringSubmatch(body, -1) {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		switch {
		case sqliteBuiltinFunctions[name]:
		case sqliteJSONFunctions[name]:
			needsJSON = true
		case sqliteFTSFunctions[name]:
			needsFTS = true
		default:
			unknown = append(unknown, name)
		}
	}
	return
}

// SQLite carries no stored functions/procedures of its own; L3 surfaces
// only as advisory "objects needing extension/app layer" classification,
// which the report generator reads off trigger/view bodies directly.
func (a *SQLiteAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *SQLiteAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	return "", fmt.Errorf("sqlite has no stored routines")
}

func (a *SQLiteAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *SQLiteAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *SQLiteAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	return MutationResult{Success: false, Error: "sqlite has no stored routines"}
}

func (a *SQLiteAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	return MutationResult{Success: false, Error: "sqlite has no stored routines"}
}

func (a *SQLiteAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	return nil
}

func (a *SQLiteAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	rows, err := a.query(`SELECT name, tbl_name, sql FROM sqlite_master WHERE type = 'trigger' ORDER BY tbl_name, name`)
	if err != nil {
		return nil, err
	}
	var out []TriggerInfo
	for _, r := range rows {
		def := stringOrEmpty(r["sql"])
		timing, scope := parseSQLiteTriggerHeader(def)
		out = append(out, TriggerInfo{
			Name:       stringOrEmpty(r["name"]),
			Table:      stringOrEmpty(r["tbl_name"]),
			Timing:     timing,
			Scope:      scope,
			Body:       def,
			Definition: def,
		})
	}
	return out, nil
}

var sqliteTriggerHeader = regexp.MustCompile(`(?is)CREATE\s+TRIGGER\s+\S+\s+(BEFORE|AFTER|INSTEAD\s+OF)`)

func parseSQLiteTriggerHeader(def string) (timing, scope string) {
	m := sqliteTriggerHeader.FindStringSubmatch(def)
	timing = "before"
	if len(m) == 2 {
		t := strings.ToLower(strings.Join(strings.Fields(m[1]), "_"))
		timing = t
	}
	scope = "row" // SQLite triggers are always FOR EACH ROW
	return
}

func (a *SQLiteAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(`SELECT sql FROM sqlite_master WHERE type = 'trigger' AND name = ?`, name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("trigger not found: %s", name)
	}
	return stringOrEmpty(rows[0]["sql"]), nil
}

// ListSafeTriggers excludes INSTEAD OF triggers and triggers whose bodies
// need json1 or FTS or call unknown functions, relying on the
// baseline PRAGMA recursive_triggers=OFF for recursion safety rather than
// static analysis -- an explicit design decision carried over from
// _is_trigger_safe in the Python adapter.
func (a *SQLiteAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var safe []TriggerInfo
	for _, t := range all {
		if classifySQLiteTrigger(&t); t.Classification.Allowed {
			safe = append(safe, t)
		}
	}
	return safe, nil
}

func (a *SQLiteAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	all, err := a.ListTriggers(ctx, schema)
	if err != nil {
		return nil, err
	}
	var skipped []TriggerInfo
	for _, t := range all {
		if classifySQLiteTrigger(&t); !t.Classification.Allowed {
			skipped = append(skipped, t)
		}
	}
	return skipped, nil
}

func classifySQLiteTrigger(t *TriggerInfo) {
	var reasons []string
	if strings.Contains(t.Timing, "instead_of") {
		reasons = append(reasons, "instead of trigger")
	}
	needsJSON, needsFTS, unknown := classifySQLiteDependencies(t.Body)
	if needsJSON {
		reasons = append(reasons, "requires json1 extension")
	}
	if needsFTS {
		reasons = append(reasons, "requires fts extension")
	}
	if len(unknown) > 0 {
		reasons = append(reasons, "references unknown function: "+strings.Join(unknown, ", "))
	}
	t.Classification = Classification{Allowed: len(reasons) == 0, ReasonCodes: reasons}
}

func (a *SQLiteAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	if _, err := a.db.Exec(strings.TrimSpace(definition)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}

func (a *SQLiteAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	if _, err := a.db.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`", name)); err != nil {
		return MutationResult{Success: false, Error: err.Error()}
	}
	return MutationResult{Success: true}
}
