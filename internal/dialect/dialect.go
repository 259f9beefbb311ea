// Package dialect presents a uniform L0-L4 capability surface over one
// database engine at a time. Every adapter in this package implements the
// same Adapter interface; the harness never branches on adapter type except
// to ask Supports(level) before attempting a capability.
package dialect

import (
	"context"
	"time"

	"github.com/saiql/harness/internal/typeregistry"
)

// Level is a migration capability tier.
type Level int

const (
	LevelL0 Level = iota
	LevelL1
	LevelL2
	LevelL3
	LevelL4
)

func (l Level) String() string {
	switch l {
	case LevelL0:
		return "L0"
	case LevelL1:
		return "L1"
	case LevelL2:
		return "L2"
	case LevelL3:
		return "L3"
	case LevelL4:
		return "L4"
	default:
		return "unknown"
	}
}

// Column is one table column as introspected at the L0 boundary.
type Column struct {
	Name       string
	NativeType string
	IR         typeregistry.TypeInfo
	Nullable   bool
	Default    *string
	Unsupported bool // true iff IR.IRType == typeregistry.IRUnknown
}

// ForeignKey is one FK constraint.
type ForeignKey struct {
	Column         string
	RefTable       string
	RefColumn      string
	ConstraintName string
}

// UniqueConstraint is one unique constraint over one or more columns.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// Index is one index, which may also enforce uniqueness or back a PK.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// TableSchema is the full L0/L1 shape of one table. Column order is
// significant and must round-trip.
type TableSchema struct {
	Columns           []Column
	PrimaryKey        []string
	ForeignKeys       []ForeignKey
	UniqueConstraints []UniqueConstraint
	Indexes           []Index
}

// ExtractStats records how a row extraction was ordered, for determinism
// auditing.
type ExtractStats struct {
	RowCount     int
	Duration     time.Duration
	OrderKeyUsed string
}

// ExtractResult is the outcome of one L0 data extraction.
type ExtractResult struct {
	Rows  []map[string]any
	Stats ExtractStats
}

// ViewDependency is one edge in a view's dependency set.
type ViewDependency struct {
	Kind string // "table" or "view"
	Name string
}

// ViewInfo is one view's identity, definition, and dependency set.
type ViewInfo struct {
	Schema       string
	Name         string
	Definition   string
	Dependencies []ViewDependency

	// CycleBroken is set by topoSortViews when this view was forced out of a
	// circular dependency group rather than ordered normally; callers must
	// surface this, never hide it (spec.md's "not silently hidden" rule).
	CycleBroken bool
}

// RoutineKind distinguishes the three L3 object shapes.
type RoutineKind string

const (
	RoutineFunction  RoutineKind = "function"
	RoutineProcedure RoutineKind = "procedure"
	RoutinePackage   RoutineKind = "package"
)

// Classification is the allowed/denied verdict an analyzer or adapter
// attaches to a routine or trigger, with machine-readable reason codes.
type Classification struct {
	Allowed     bool
	ReasonCodes []string
}

// RoutineInfo is one stored procedure, function, or package.
type RoutineInfo struct {
	Schema         string
	Name           string
	Kind           RoutineKind
	Language       string
	Volatility     string // immutable | stable | volatile
	DataAccess     string // none | contains | reads | modifies
	Security       string // invoker | definer
	Parameters     []string
	ReturnType     string
	Body           string
	FullDefinition string
	Classification Classification
}

// TriggerInfo is one trigger.
type TriggerInfo struct {
	Schema         string
	Name           string
	Table          string
	Timing         string // before | after | instead_of
	Events         []string
	Scope          string // row | statement
	Body           string
	Definition     string
	Classification Classification
}

// MutationResult is the uniform return shape of every mutating call. No
// exceptions for "expected" failures: constraint violations are data, not
// bugs.
type MutationResult struct {
	Success      bool
	Error        string
	RowsAffected int64
}

// Adapter is the uniform capability surface implemented once per engine.
type Adapter interface {
	Name() string
	Supports(level Level) bool
	Close() error

	// L0
	ListTables(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, table string) (TableSchema, error)
	ExtractData(ctx context.Context, table string, orderBy []string, chunkSize int) (ExtractResult, error)

	// L1
	GetPrimaryKeys(ctx context.Context, table string) ([]string, error)
	GetForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)
	GetUniqueConstraints(ctx context.Context, table string) ([]UniqueConstraint, error)
	GetIndexes(ctx context.Context, table string) ([]Index, error)

	// L2
	ListViews(ctx context.Context, schema string) ([]ViewInfo, error)
	GetViewDefinition(ctx context.Context, name string) (string, error)
	GetViewDependencies(ctx context.Context, name string) ([]ViewDependency, error)
	TopologicallyOrderViews(ctx context.Context, schema string) ([]ViewInfo, error)
	CreateView(ctx context.Context, name, definition string, orReplace bool) MutationResult
	DropView(ctx context.Context, name string, ifExists bool) MutationResult
	BulkCreateViewsInOrder(ctx context.Context, views []ViewInfo) []MutationResult

	// L3
	ListRoutines(ctx context.Context, schema string) ([]RoutineInfo, error)
	GetRoutineDefinition(ctx context.Context, name string, kind RoutineKind) (string, error)
	ListSafeRoutines(ctx context.Context, schema string) ([]RoutineInfo, error)
	ListSkippedRoutines(ctx context.Context, schema string) ([]RoutineInfo, error)
	CreateRoutine(ctx context.Context, definition string) MutationResult
	DropRoutine(ctx context.Context, name string, kind RoutineKind) MutationResult
	BulkCreateRoutinesInOrder(ctx context.Context, routines []RoutineInfo) []MutationResult

	// L4
	ListTriggers(ctx context.Context, schema string) ([]TriggerInfo, error)
	GetTriggerDefinition(ctx context.Context, name string) (string, error)
	ListSafeTriggers(ctx context.Context, schema string) ([]TriggerInfo, error)
	ListSkippedTriggers(ctx context.Context, schema string) ([]TriggerInfo, error)
	CreateTrigger(ctx context.Context, definition string) MutationResult
	DropTrigger(ctx context.Context, name, table string) MutationResult
}

// Config is the adapter-construction shape common across dialects.
type Config struct {
	Host           string
	Port           int
	Database       string // also used as "service" for Oracle/HANA
	User           string
	Password       string
	MinConnections int
	MaxConnections int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SSLMode        string // disabled | preferred | required | verify_ca | verify_identity
	SSLCert        string
	SSLKey         string
	SSLCA          string
	MaxRetries     int
	RetryDelay     time.Duration
	Charset        string
	Autocommit     bool
	StrictTypes    bool

	// SQLite-only.
	PragmaForeignKeys      bool
	PragmaRecursiveTrigger bool
}
