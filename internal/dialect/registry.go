package dialect

import (
	"context"
	"fmt"
)

// ConnInfo is the minimum a registry constructor needs to open an adapter:
// a driver-specific DSN plus the shared Config knobs.
type ConnInfo struct {
	DSN      string
	Database string // schema/service/database name, meaning varies per engine
	Config   Config
}

// Open constructs the adapter named by engine, mirroring the teacher's
// dialectRegistry/getDialect name-to-constructor pattern in dialect.go.
func Open(ctx context.Context, engine string, conn ConnInfo) (Adapter, error) {
	switch engine {
	case "postgres", "postgresql":
		return NewPostgresAdapter(ctx, conn.DSN, conn.Config)
	case "mysql", "mariadb":
		return NewMySQLAdapter(ctx, conn.DSN, conn.Database, conn.Config)
	case "sqlite", "sqlite3":
		return NewSQLiteAdapter(ctx, conn.DSN, conn.Config)
	case "oracle":
		return NewOracleAdapter(ctx, conn.DSN, conn.Database, conn.Config)
	case "mssql", "sqlserver":
		return NewMSSQLAdapter(ctx, conn.DSN, conn.Database, conn.Config)
	case "hana":
		return NewHANAAdapter(ctx, conn.DSN, conn.Database, conn.Config)
	default:
		return nil, fmt.Errorf("dialect: unknown engine %q", engine)
	}
}

// SupportedEngines lists every engine name Open accepts.
func SupportedEngines() []string {
	return []string{"postgres", "mysql", "sqlite", "oracle", "mssql", "hana"}
}
