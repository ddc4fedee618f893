package mysql

import "testing"

func TestPrepareCallPlaceholders(t *testing.T) {
	mc := &Connection{cfg: NewConfig()}
	cs := mc.PrepareCall("sp_adjust_balance", 3)

	if cs.procedure != "sp_adjust_balance" {
		t.Errorf("procedure = %q", cs.procedure)
	}
	if len(cs.placeholders) != 3 {
		t.Fatalf("len(placeholders) = %d, want 3", len(cs.placeholders))
	}
	want := []string{"@_cs_p0", "@_cs_p1", "@_cs_p2"}
	for i, w := range want {
		if cs.placeholders[i] != w {
			t.Errorf("placeholders[%d] = %q, want %q", i, cs.placeholders[i], w)
		}
	}
}

func TestPrepareCallZeroParams(t *testing.T) {
	mc := &Connection{cfg: NewConfig()}
	cs := mc.PrepareCall("sp_noop", 0)
	if len(cs.placeholders) != 0 {
		t.Errorf("len(placeholders) = %d, want 0", len(cs.placeholders))
	}
}
