package dialect

import "testing"

func TestLowerASCIIOnly(t *testing.T) {
	if got := lower("TABLE_NAME"); got != "table_name" {
		t.Errorf("lower(TABLE_NAME) = %q, want table_name", got)
	}
	if got := lower("already_lower"); got != "already_lower" {
		t.Errorf("lower should be a no-op on already-lowercase input, got %q", got)
	}
}

func TestStringOrEmpty(t *testing.T) {
	if got := stringOrEmpty(nil); got != "" {
		t.Errorf("stringOrEmpty(nil) = %q, want empty", got)
	}
	if got := stringOrEmpty("hello"); got != "hello" {
		t.Errorf("stringOrEmpty(string) = %q, want hello", got)
	}
	if got := stringOrEmpty(42); got != "" {
		t.Errorf("stringOrEmpty(non-string) = %q, want empty", got)
	}
}

func TestBoolOf(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{int64(1), true},
		{int64(0), false},
		{"t", true},
		{"true", true},
		{"YES", true},
		{"no", false},
		{nil, false},
	}
	for _, c := range cases {
		if got := boolOf(c.in); got != c.want {
			t.Errorf("boolOf(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
