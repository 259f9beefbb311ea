package dialect

import "testing"

func TestHANASupportsL0ThroughL3NotL4(t *testing.T) {
	a := &HANAAdapter{}
	for _, lvl := range []Level{LevelL0, LevelL1, LevelL2, LevelL3} {
		if !a.Supports(lvl) {
			t.Errorf("expected HANA to support %v", lvl)
		}
	}
	if a.Supports(LevelL4) {
		t.Error("HANA should not claim trigger-level support")
	}
}
