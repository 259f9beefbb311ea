// Package typeregistry implements the dialect-neutral intermediate
// representation (IR) type system: mapping source dialect column types to
// IR types and IR types to target dialect DDL strings.
package typeregistry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IRType is the dialect-neutral intermediate type.
type IRType string

const (
	IRSmallInt     IRType = "SMALLINT"
	IRInteger      IRType = "INTEGER"
	IRBigInt       IRType = "BIGINT"
	IRDecimal      IRType = "DECIMAL"
	IRReal         IRType = "REAL"
	IRDouble       IRType = "DOUBLE PRECISION"
	IRChar         IRType = "CHAR"
	IRVarchar      IRType = "VARCHAR"
	IRText         IRType = "TEXT"
	IRBytea        IRType = "BYTEA"
	IRDate         IRType = "DATE"
	IRTime         IRType = "TIME"
	IRTimestamp    IRType = "TIMESTAMP"
	IRTimestampTZ  IRType = "TIMESTAMP WITH TIME ZONE"
	IRBoolean      IRType = "BOOLEAN"
	IRUUID         IRType = "UUID"
	IRJSON         IRType = "JSON"
	IRJSONB        IRType = "JSONB"
	IRUnknown      IRType = "UNKNOWN"
)

// TypeInfo is an IR type carrying the precision/scale/length it was resolved with.
type TypeInfo struct {
	IRType    IRType
	Precision *int
	Scale     *int
	Length    *int
}

func (t TypeInfo) String() string {
	return fmt.Sprintf("TypeInfo(%s, p=%v, s=%v, l=%v)", t.IRType, deref(t.Precision), deref(t.Scale), deref(t.Length))
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// precisionRule encodes the SOURCE_TO_IR precision/scale rule: either a
// literal fixed value or "extract from the parsed source type string".
type precisionRule struct {
	extract bool
	literal *int
}

func extract() precisionRule       { return precisionRule{extract: true} }
func literal(v int) precisionRule  { return precisionRule{literal: &v} }
func none() precisionRule          { return precisionRule{} }

type sourceMapping struct {
	ir    IRType
	prec  precisionRule
	scale precisionRule
}

func sm(ir IRType, p, s precisionRule) sourceMapping { return sourceMapping{ir, p, s} }

// sourceToIR mirrors the per-dialect type-string -> (IRType, precision rule,
// scale rule) tables of the original type registry, keyed by lowercase
// normalized dialect name and lowercase base type string (Oracle's table is
// additionally probed uppercase, matching the source behavior).
var sourceToIR = map[string]map[string]sourceMapping{
	"postgres": {
		"smallint":                   sm(IRSmallInt, none(), none()),
		"integer":                    sm(IRInteger, none(), none()),
		"bigint":                     sm(IRBigInt, none(), none()),
		"numeric":                    sm(IRDecimal, extract(), extract()),
		"real":                       sm(IRReal, none(), none()),
		"double precision":           sm(IRDouble, none(), none()),
		"varchar":                    sm(IRVarchar, extract(), none()),
		"character varying":          sm(IRVarchar, extract(), none()),
		"text":                       sm(IRText, none(), none()),
		"bytea":                      sm(IRBytea, none(), none()),
		"boolean":                    sm(IRBoolean, none(), none()),
		"date":                       sm(IRDate, none(), none()),
		"timestamp":                  sm(IRTimestamp, none(), none()),
		"timestamp without time zone": sm(IRTimestamp, none(), none()),
		"timestamp with time zone":   sm(IRTimestampTZ, none(), none()),
		"timestamptz":                sm(IRTimestampTZ, none(), none()),
		"uuid":                       sm(IRUUID, none(), none()),
		"json":                       sm(IRJSON, none(), none()),
		"jsonb":                      sm(IRJSONB, none(), none()),
	},
	"mysql": {
		"tinyint":      sm(IRSmallInt, none(), none()),
		"smallint":     sm(IRSmallInt, none(), none()),
		"int":          sm(IRInteger, none(), none()),
		"bigint":       sm(IRBigInt, none(), none()),
		"decimal":      sm(IRDecimal, extract(), extract()),
		"float":        sm(IRReal, none(), none()),
		"double":       sm(IRDouble, none(), none()),
		"varchar":      sm(IRVarchar, extract(), none()),
		"text":         sm(IRText, none(), none()),
		"longtext":     sm(IRText, none(), none()),
		"blob":         sm(IRBytea, none(), none()),
		"longblob":     sm(IRBytea, none(), none()),
		"tinyint(1)":   sm(IRBoolean, none(), none()),
		"date":         sm(IRDate, none(), none()),
		"datetime":     sm(IRTimestamp, none(), none()),
		"timestamp":    sm(IRTimestampTZ, none(), none()),
		"json":         sm(IRJSON, none(), none()),
		"binary":       sm(IRBytea, none(), none()),
		"varbinary":    sm(IRBytea, none(), none()),
	},
	"sqlite": {
		"integer":  sm(IRInteger, none(), none()),
		"real":     sm(IRDouble, none(), none()),
		"text":     sm(IRText, none(), none()),
		"blob":     sm(IRBytea, none(), none()),
		"boolean":  sm(IRBoolean, none(), none()),
		"date":     sm(IRDate, none(), none()),
		"datetime": sm(IRTimestamp, none(), none()),
		"timestamp": sm(IRTimestamp, none(), none()),
	},
	"oracle": {
		"number":                         sm(IRDecimal, extract(), extract()),
		"float":                          sm(IRDouble, none(), none()),
		"binary_float":                   sm(IRReal, none(), none()),
		"binary_double":                  sm(IRDouble, none(), none()),
		"varchar2":                       sm(IRVarchar, extract(), none()),
		"nvarchar2":                      sm(IRVarchar, extract(), none()),
		"char":                           sm(IRChar, extract(), none()),
		"nchar":                          sm(IRChar, extract(), none()),
		"clob":                           sm(IRText, none(), none()),
		"nclob":                          sm(IRText, none(), none()),
		"blob":                           sm(IRBytea, none(), none()),
		"raw":                            sm(IRBytea, none(), none()),
		"long":                           sm(IRText, none(), none()),
		"long raw":                       sm(IRBytea, none(), none()),
		"date":                           sm(IRTimestamp, none(), none()),
		"timestamp":                      sm(IRTimestamp, none(), none()),
		"timestamp with time zone":       sm(IRTimestampTZ, none(), none()),
		"timestamp with local time zone": sm(IRTimestampTZ, none(), none()),
	},
	"duckdb": {
		"integer":   sm(IRInteger, none(), none()),
		"bigint":    sm(IRBigInt, none(), none()),
		"varchar":   sm(IRVarchar, none(), none()),
		"double":    sm(IRDouble, none(), none()),
		"boolean":   sm(IRBoolean, none(), none()),
		"timestamp": sm(IRTimestamp, none(), none()),
	},
	"mssql": {
		"tinyint":        sm(IRSmallInt, none(), none()),
		"smallint":       sm(IRSmallInt, none(), none()),
		"int":            sm(IRInteger, none(), none()),
		"bigint":         sm(IRBigInt, none(), none()),
		"bit":            sm(IRBoolean, none(), none()),
		"decimal":        sm(IRDecimal, extract(), extract()),
		"numeric":        sm(IRDecimal, extract(), extract()),
		"money":          sm(IRDecimal, literal(19), literal(4)),
		"smallmoney":     sm(IRDecimal, literal(10), literal(4)),
		"float":          sm(IRDouble, none(), none()),
		"real":           sm(IRReal, none(), none()),
		"date":           sm(IRDate, none(), none()),
		"datetime":       sm(IRTimestamp, none(), none()),
		"datetime2":      sm(IRTimestamp, none(), none()),
		"datetimeoffset": sm(IRTimestampTZ, none(), none()),
		"char":           sm(IRChar, extract(), none()),
		"varchar":        sm(IRVarchar, extract(), none()),
		"nchar":          sm(IRChar, extract(), none()),
		"nvarchar":       sm(IRVarchar, extract(), none()),
		"text":           sm(IRText, none(), none()),
		"ntext":          sm(IRText, none(), none()),
		"binary":         sm(IRBytea, none(), none()),
		"varbinary":      sm(IRBytea, none(), none()),
		"image":          sm(IRBytea, none(), none()),
		"uniqueidentifier": sm(IRUUID, none(), none()),
		"xml":            sm(IRText, none(), none()),
	},
	"hana": {
		"boolean":    sm(IRBoolean, none(), none()),
		"tinyint":    sm(IRSmallInt, none(), none()),
		"smallint":   sm(IRSmallInt, none(), none()),
		"integer":    sm(IRInteger, none(), none()),
		"bigint":     sm(IRBigInt, none(), none()),
		"real":       sm(IRReal, none(), none()),
		"double":     sm(IRDouble, none(), none()),
		"char":       sm(IRChar, extract(), none()),
		"nchar":      sm(IRChar, extract(), none()),
		"varchar":    sm(IRVarchar, extract(), none()),
		"nvarchar":   sm(IRVarchar, extract(), none()),
		"clob":       sm(IRText, none(), none()),
		"nclob":      sm(IRText, none(), none()),
		"date":       sm(IRDate, none(), none()),
		"time":       sm(IRTime, none(), none()),
		"timestamp":  sm(IRTimestamp, none(), none()),
		"binary":     sm(IRBytea, extract(), none()),
		"varbinary":  sm(IRBytea, extract(), none()),
		"decimal":       sm(IRDecimal, extract(), extract()),
		"smalldecimal":  sm(IRDecimal, literal(16), literal(0)),
		"seconddate":    sm(IRTimestamp, none(), none()),
		"blob":          sm(IRBytea, none(), none()),
		"shorttext":     sm(IRVarchar, extract(), none()),
	},
}

// irToTarget mirrors IR_TO_TARGET: IR type -> target DDL base string, per dialect.
var irToTarget = map[string]map[IRType]string{
	"postgres": {
		IRSmallInt: "SMALLINT", IRInteger: "INTEGER", IRBigInt: "BIGINT",
		IRDecimal: "NUMERIC", IRReal: "REAL", IRDouble: "DOUBLE PRECISION",
		IRVarchar: "VARCHAR", IRText: "TEXT", IRChar: "CHAR", IRBytea: "BYTEA",
		IRBoolean: "BOOLEAN", IRDate: "DATE", IRTimestamp: "TIMESTAMP",
		IRTimestampTZ: "TIMESTAMP WITH TIME ZONE", IRUUID: "UUID",
		IRJSON: "JSON", IRJSONB: "JSONB",
	},
	"mysql": {
		IRSmallInt: "SMALLINT", IRInteger: "INT", IRBigInt: "BIGINT",
		IRDecimal: "DECIMAL", IRReal: "FLOAT", IRDouble: "DOUBLE",
		IRVarchar: "VARCHAR", IRText: "TEXT", IRChar: "CHAR", IRBytea: "LONGBLOB",
		IRBoolean: "TINYINT(1)", IRDate: "DATE", IRTimestamp: "DATETIME",
		IRTimestampTZ: "TIMESTAMP", IRUUID: "CHAR(36)", IRJSON: "JSON", IRJSONB: "JSON",
	},
	"sqlite": {
		IRSmallInt: "INTEGER", IRInteger: "INTEGER", IRBigInt: "INTEGER",
		IRDecimal: "REAL", IRReal: "REAL", IRDouble: "REAL",
		IRVarchar: "TEXT", IRText: "TEXT", IRChar: "TEXT", IRBytea: "BLOB",
		IRBoolean: "INTEGER", IRDate: "TEXT", IRTimestamp: "TEXT",
		IRTimestampTZ: "TEXT", IRUUID: "TEXT", IRJSON: "TEXT", IRJSONB: "TEXT",
	},
	"mssql": {
		IRSmallInt: "SMALLINT", IRInteger: "INT", IRBigInt: "BIGINT",
		IRDecimal: "DECIMAL", IRReal: "REAL", IRDouble: "FLOAT",
		IRVarchar: "NVARCHAR", IRText: "NVARCHAR(MAX)", IRChar: "NCHAR",
		IRBytea: "VARBINARY(MAX)", IRBoolean: "BIT", IRDate: "DATE",
		IRTimestamp: "DATETIME2", IRTimestampTZ: "DATETIMEOFFSET",
		IRUUID: "UNIQUEIDENTIFIER", IRJSON: "NVARCHAR(MAX)", IRJSONB: "NVARCHAR(MAX)",
	},
}

var typeStringPattern = regexp.MustCompile(`^([a-zA-Z0-9_]+)\s*(?:\((\d+)(?:,\s*(\d+))?\))?\s*(.*)$`)

func parseTypeString(typeStr string) (base string, precision, scale, length *int) {
	m := typeStringPattern.FindStringSubmatch(typeStr)
	if m == nil {
		t := strings.TrimSpace(typeStr)
		return t, nil, nil, nil
	}
	basePrefix := strings.TrimSpace(m[1])
	if m[2] != "" {
		v, _ := strconv.Atoi(m[2])
		precision = &v
	}
	if m[3] != "" {
		v, _ := strconv.Atoi(m[3])
		scale = &v
	}
	trailing := strings.TrimSpace(m[4])
	base = basePrefix
	if trailing != "" {
		base = basePrefix + " " + trailing
	}
	length = precision
	return base, precision, scale, length
}

func normalizeSourceDialect(dialect string) string {
	d := strings.ToLower(dialect)
	switch {
	case strings.Contains(d, "postgres"):
		return "postgres"
	case strings.Contains(d, "mysql"):
		return "mysql"
	case strings.Contains(d, "oracle"):
		return "oracle"
	case strings.Contains(d, "mssql"):
		return "mssql"
	case strings.Contains(d, "hana"):
		return "hana"
	case strings.Contains(d, "sqlite"):
		return "sqlite"
	case strings.Contains(d, "duckdb"):
		return "duckdb"
	}
	return d
}

func normalizeTargetDialect(dialect string) string {
	d := strings.ToLower(dialect)
	switch {
	case strings.Contains(d, "postgres"):
		return "postgres"
	case strings.Contains(d, "mysql"):
		return "mysql"
	case strings.Contains(d, "sqlite"):
		return "sqlite"
	case strings.Contains(d, "mssql"):
		return "mssql"
	}
	return d
}

func resolve(rule precisionRule, extracted *int) *int {
	if rule.extract {
		return extracted
	}
	return rule.literal
}

// MapToIR maps a source dialect's column type string to an IR TypeInfo,
// returning TypeInfo{IRType: IRUnknown} when nothing in the dialect's table
// matches (exact, base, uppercase-Oracle, or prefix fallback, in that order).
func MapToIR(sourceDialect, sourceType string) TypeInfo {
	dialect := normalizeSourceDialect(sourceDialect)
	sourceTypeLower := strings.ToLower(strings.TrimSpace(sourceType))

	base, precision, scale, length := parseTypeString(sourceTypeLower)

	table, ok := sourceToIR[dialect]
	if !ok {
		return TypeInfo{IRType: IRUnknown}
	}

	mapping, found := table[sourceTypeLower]
	if !found {
		mapping, found = table[base]
	}
	if !found && dialect == "oracle" {
		mapping, found = table[strings.ToUpper(base)]
	}
	if !found {
		for key, val := range table {
			if strings.HasPrefix(base, strings.ToLower(key)) {
				mapping, found = val, true
				break
			}
		}
	}
	if !found {
		return TypeInfo{IRType: IRUnknown}
	}

	return TypeInfo{
		IRType:    mapping.ir,
		Precision: resolve(mapping.prec, precision),
		Scale:     resolve(mapping.scale, scale),
		Length:    length,
	}
}

// MapFromIR renders an IR TypeInfo as a target dialect's DDL type string,
// falling back to "TEXT" for an unrecognized target dialect or an IR type
// with no entry in that dialect's table.
func MapFromIR(targetDialect string, info TypeInfo) string {
	dialect := normalizeTargetDialect(targetDialect)
	table, ok := irToTarget[dialect]
	if !ok {
		return "TEXT"
	}
	base, ok := table[info.IRType]
	if !ok {
		base = "TEXT"
	}

	switch info.IRType {
	case IRDecimal:
		if info.Precision != nil {
			if info.Scale != nil {
				return fmt.Sprintf("%s(%d,%d)", base, *info.Precision, *info.Scale)
			}
			return fmt.Sprintf("%s(%d)", base, *info.Precision)
		}
	case IRVarchar, IRChar:
		if info.Length != nil {
			return fmt.Sprintf("%s(%d)", base, *info.Length)
		}
	}
	return base
}

// IsLossyConversion reports whether converting sourceType (in sourceDialect)
// to targetDialect loses information, and a human-readable reason when it does.
func IsLossyConversion(sourceDialect, sourceType, targetDialect string) (bool, string) {
	sourceIR := MapToIR(sourceDialect, sourceType)
	if sourceIR.IRType == IRUnknown {
		return false, ""
	}

	targetTypeStr := MapFromIR(targetDialect, sourceIR)
	targetLower := strings.ToLower(targetDialect)

	if sourceIR.IRType == IRDecimal && strings.Contains(targetLower, "sqlite") {
		return true, fmt.Sprintf("Precision loss: %s %s -> SQLite REAL (floating point)", sourceDialect, sourceType)
	}

	if sourceIR.IRType == IRTimestampTZ {
		if strings.Contains(targetLower, "mysql") || strings.Contains(targetLower, "sqlite") {
			return true, fmt.Sprintf("Timezone loss: %s %s -> %s %s (UTC normalized)", sourceDialect, sourceType, targetDialect, targetTypeStr)
		}
	}

	if sourceIR.IRType == IRUUID && strings.Contains(targetLower, "mysql") {
		return false, ""
	}

	if strings.Contains(strings.ToLower(sourceDialect), "oracle") &&
		(sourceIR.IRType == IRVarchar || sourceIR.IRType == IRChar || sourceIR.IRType == IRText) {
		if !strings.Contains(targetLower, "oracle") {
			return true, fmt.Sprintf("Semantic change: Oracle %s treats empty string as NULL. Target backend may distinguish them.", sourceType)
		}
	}

	return false, ""
}
