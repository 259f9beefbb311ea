package typeregistry

import "testing"

func TestMapToIRExactAndPrefixMatch(t *testing.T) {
	cases := []struct {
		dialect  string
		native   string
		wantIR   IRType
		wantPrec *int
		wantSc   *int
	}{
		{"postgres", "integer", IRInteger, nil, nil},
		{"postgres", "numeric(10,2)", IRDecimal, intp(10), intp(2)},
		{"postgres", "varchar(255)", IRVarchar, intp(255), nil},
		{"mysql", "varchar(255)", IRVarchar, intp(255), nil},
		{"mysql", "tinyint(1)", IRBoolean, nil, nil},
		{"oracle", "NUMBER(5,2)", IRDecimal, intp(5), intp(2)},
		{"sqlite", "INTEGER", IRInteger, nil, nil},
		{"mssql", "money", IRDecimal, intp(19), intp(4)},
	}
	for _, c := range cases {
		got := MapToIR(c.dialect, c.native)
		if got.IRType != c.wantIR {
			t.Errorf("MapToIR(%q, %q) = %v, want IR %v", c.dialect, c.native, got.IRType, c.wantIR)
		}
		if !intEq(got.Precision, c.wantPrec) {
			t.Errorf("MapToIR(%q, %q).Precision = %v, want %v", c.dialect, c.native, deref(got.Precision), deref(c.wantPrec))
		}
		if !intEq(got.Scale, c.wantSc) {
			t.Errorf("MapToIR(%q, %q).Scale = %v, want %v", c.dialect, c.native, deref(got.Scale), deref(c.wantSc))
		}
	}
}

func TestMapToIRUnknownDialectOrType(t *testing.T) {
	if got := MapToIR("unknowndb", "whatever"); got.IRType != IRUnknown {
		t.Errorf("unknown dialect should map to IRUnknown, got %v", got.IRType)
	}
	if got := MapToIR("postgres", "not_a_real_type"); got.IRType != IRUnknown {
		t.Errorf("unknown native type should map to IRUnknown, got %v", got.IRType)
	}
}

func TestMapFromIRRendersPrecisionAndLength(t *testing.T) {
	dec := TypeInfo{IRType: IRDecimal, Precision: intp(10), Scale: intp(2)}
	if got := MapFromIR("postgres", dec); got != "NUMERIC(10,2)" {
		t.Errorf("MapFromIR decimal = %q, want NUMERIC(10,2)", got)
	}
	varchar := TypeInfo{IRType: IRVarchar, Length: intp(64)}
	if got := MapFromIR("mysql", varchar); got != "VARCHAR(64)" {
		t.Errorf("MapFromIR varchar = %q, want VARCHAR(64)", got)
	}
	if got := MapFromIR("unknowndb", TypeInfo{IRType: IRInteger}); got != "TEXT" {
		t.Errorf("unknown target dialect should fall back to TEXT, got %q", got)
	}
}

func TestIsLossyConversionTimezoneAndPrecision(t *testing.T) {
	lossy, reason := IsLossyConversion("postgres", "numeric(10,2)", "sqlite")
	if !lossy || reason == "" {
		t.Errorf("decimal -> sqlite should be lossy with a reason, got lossy=%v reason=%q", lossy, reason)
	}
	lossy, _ = IsLossyConversion("postgres", "timestamp with time zone", "mysql")
	if !lossy {
		t.Error("timestamptz -> mysql should be flagged as a timezone loss")
	}
	lossy, _ = IsLossyConversion("postgres", "integer", "mysql")
	if lossy {
		t.Error("integer -> mysql int should not be lossy")
	}
}

func intp(v int) *int { return &v }

func intEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
