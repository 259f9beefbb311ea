package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/SAP/go-hdb/driver"

	"github.com/saiql/harness/internal/typeregistry"
)

// HANAAdapter implements Adapter over SAP HANA via database/sql. L2/L3 are
// advertised as supported but reduced in practice: HANA's calculation
// views and SQLScript procedures are read and reported on, never
// reconstructed through CREATE ... AS-style migration the way Postgres/
// MySQL views are, since HANA's view layer mixes column-store modeling
// concepts that don't reduce to a portable SELECT.
type HANAAdapter struct {
	db     *sql.DB
	schema string
	config Config
}

func NewHANAAdapter(ctx context.Context, dsn, schema string, config Config) (*HANAAdapter, error) {
	db, err := sql.Open("hdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("hana: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("hana: ping: %w", err)
	}
	return &HANAAdapter{db: db, schema: strings.ToUpper(schema), config: config}, nil
}

func (a *HANAAdapter) Name() string { return "hana" }

// Supports reports L0/L1 fully; L2 (views) and L3 (procedures) are
// surfaced read-only for reporting, never attempted as CREATE-time
// migrations; L4 triggers are not modeled at all.
func (a *HANAAdapter) Supports(level Level) bool {
	switch level {
	case LevelL0, LevelL1, LevelL2, LevelL3:
		return true
	default:
		return false
	}
}

func (a *HANAAdapter) Close() error { return a.db.Close() }

func (a *HANAAdapter) query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRowsToMaps(rows)
}

func (a *HANAAdapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.query(ctx, `SELECT table_name FROM tables WHERE schema_name = ? ORDER BY table_name`, a.schema)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["table_name"])))
	}
	return out, nil
}

func (a *HANAAdapter) GetSchema(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{}
	rows, err := a.query(ctx, `
		SELECT column_name, data_type_name, length, scale, is_nullable, default_value
		FROM table_columns
		WHERE schema_name = ? AND table_name = ?
		ORDER BY position`, a.schema, strings.ToUpper(table))
	if err != nil {
		return schema, err
	}
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["column_name"]))
		dataType := stringOrEmpty(r["data_type_name"])
		full := dataType
		if l, ok := r["length"]; ok && l != nil {
			full = fmt.Sprintf("%s(%v)", dataType, l)
		}
		info := typeregistry.MapToIR("hana", full)

		var def *string
		if s := stringOrEmpty(r["default_value"]); s != "" {
			def = &s
		}
		schema.Columns = append(schema.Columns, Column{
			Name:        name,
			NativeType:  dataType,
			IR:          info,
			Nullable:    stringOrEmpty(r["is_nullable"]) == "TRUE",
			Default:     def,
			Unsupported: info.IRType == typeregistry.IRUnknown,
		})
	}
	schema.PrimaryKey, _ = a.GetPrimaryKeys(ctx, table)
	schema.Indexes, _ = a.GetIndexes(ctx, table)
	return schema, nil
}

func (a *HANAAdapter) ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error) {
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
	q := fmt.Sprintf(`SELECT * FROM "%s"."%s"`, a.schema, strings.ToUpper(table))
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

func (a *HANAAdapter) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT column_name FROM constraints
		WHERE schema_name = ? AND table_name = ? AND is_primary_key = 'TRUE'
		ORDER BY position`, a.schema, strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, strings.ToLower(stringOrEmpty(r["column_name"])))
	}
	return out, nil
}

// GetForeignKeys is not modeled: HANA's referential_constraints catalog
// view was not part of the grounding set read for this adapter, and no
// component in this harness currently requires cross-engine FK migration
// for HANA specifically (L1 here covers PKs, unique constraints and
// indexes; GetSchema fills in only PKs and indexes).
func (a *HANAAdapter) GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	return nil, nil
}

func (a *HANAAdapter) GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error) {
	rows, err := a.query(ctx, `
		SELECT constraint_name, column_name FROM constraints
		WHERE schema_name = ? AND table_name = ? AND is_unique_key = 'TRUE'
		ORDER BY constraint_name, position`, a.schema, strings.ToUpper(table))
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

func (a *HANAAdapter) GetIndexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := a.query(ctx, `
		SELECT index_name, column_name, constraint
		FROM index_columns
		WHERE schema_name = ? AND table_name = ?
		ORDER BY index_name, position`, a.schema, strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	byName := map[string]*Index{}
	var order []string
	for _, r := range rows {
		name := stringOrEmpty(r["index_name"])
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: strings.Contains(stringOrEmpty(r["constraint"]), "UNIQUE")}
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

func (a *HANAAdapter) ListViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	s := schema
	if s == "" {
		s = a.schema
	}
	rows, err := a.query(ctx, `SELECT view_name, definition FROM views WHERE schema_name = ? ORDER BY view_name`, s)
	if err != nil {
		return nil, err
	}
	var out []ViewInfo
	for _, r := range rows {
		name := strings.ToLower(stringOrEmpty(r["view_name"]))
		deps, _ := a.GetViewDependencies(ctx, name)
		out = append(out, ViewInfo{Schema: s, Name: name, Definition: stringOrEmpty(r["definition"]), Dependencies: deps})
	}
	return out, nil
}

func (a *HANAAdapter) GetViewDefinition(ctx context.Context, name string) (string, error) {
	rows, err := a.query(ctx, `SELECT definition FROM views WHERE schema_name = ? AND view_name = ?`, a.schema, strings.ToUpper(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("view not found: %s", name)
	}
	return stringOrEmpty(rows[0]["definition"]), nil
}

func (a *HANAAdapter) GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error) {
	rows, err := a.query(ctx, `
		SELECT base_object_name, base_object_type FROM view_base_tables
		WHERE schema_name = ? AND view_name = ?
		ORDER BY base_object_name`, a.schema, strings.ToUpper(name))
	if err != nil {
		return nil, err
	}
	var out []ViewDependency
	for _, r := range rows {
		kind := "table"
		if strings.Contains(stringOrEmpty(r["base_object_type"]), "VIEW") {
			kind = "view"
		}
		out = append(out, ViewDependency{Kind: kind, Name: strings.ToLower(stringOrEmpty(r["base_object_name"]))})
	}
	return out, nil
}

func (a *HANAAdapter) TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error) {
	views, err := a.ListViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	return topoSortViews(views), nil
}

// CreateView always fails: HANA view recreation is advisory-report-only
// in this harness (calculation views are not round-trippable as a single
// CREATE VIEW ... AS SELECT statement).
func (a *HANAAdapter) CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult {
	return MutationResult{Success: false, Error: "hana view migration is report-only in this harness"}
}

func (a *HANAAdapter) DropView(ctx context.Context, name string, ifExists bool) MutationResult {
	return MutationResult{Success: false, Error: "hana view migration is report-only in this harness"}
}

func (a *HANAAdapter) BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult {
	results := make([]MutationResult, 0, len(views))
	for range views {
		results = append(results, MutationResult{Success: false, Error: "hana view migration is report-only in this harness"})
	}
	return results
}

func (a *HANAAdapter) ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	s := schema
	if s == "" {
		s = a.schema
	}
	rows, err := a.query(ctx, `
		SELECT procedure_name AS routine_name, definition
		FROM procedures WHERE schema_name = ? ORDER BY procedure_name`, s)
	if err != nil {
		return nil, err
	}
	var out []RoutineInfo
	for _, r := range rows {
		out = append(out, RoutineInfo{
			Schema:         s,
			Name:           strings.ToLower(stringOrEmpty(r["routine_name"])),
			Kind:           RoutineProcedure,
			Body:           stringOrEmpty(r["definition"]),
			FullDefinition: stringOrEmpty(r["definition"]),
		})
	}
	return out, nil
}

func (a *HANAAdapter) GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error) {
	rows, err := a.query(ctx, `SELECT definition FROM procedures WHERE schema_name = ? AND procedure_name = ?`, a.schema, strings.ToUpper(name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("routine not found: %s", name)
	}
	return stringOrEmpty(rows[0]["definition"]), nil
}

// SQLScript procedures surface report-only, same rationale as views.
func (a *HANAAdapter) ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return nil, nil
}

func (a *HANAAdapter) ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error) {
	return a.ListRoutines(ctx, schema)
}

func (a *HANAAdapter) CreateRoutine(ctx context.Context, definition string) MutationResult {
	return MutationResult{Success: false, Error: "hana routine migration is report-only in this harness"}
}

func (a *HANAAdapter) DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult {
	return MutationResult{Success: false, Error: "hana routine migration is report-only in this harness"}
}

func (a *HANAAdapter) BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult {
	results := make([]MutationResult, 0, len(routines))
	for range routines {
		results = append(results, MutationResult{Success: false, Error: "hana routine migration is report-only in this harness"})
	}
	return results
}

// HANA triggers are not modeled (L4 unsupported, see Supports).
func (a *HANAAdapter) ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return nil, nil
}

func (a *HANAAdapter) GetTriggerDefinition(ctx context.Context, name string) (string, error) {
	return "", fmt.Errorf("hana triggers are not supported (L4 unsupported)")
}

func (a *HANAAdapter) ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return nil, nil
}

func (a *HANAAdapter) ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error) {
	return nil, nil
}

func (a *HANAAdapter) CreateTrigger(ctx context.Context, definition string) MutationResult {
	return MutationResult{Success: false, Error: "hana triggers are not supported (L4 unsupported)"}
}

func (a *HANAAdapter) DropTrigger(ctx context.Context, name, table string) MutationResult {
	return MutationResult{Success: false, Error: "hana triggers are not supported (L4 unsupported)"}
}
