package mysql

import "testing"

func TestBatchStatementAccumulates(t *testing.T) {
	b := NewBatch(nil)
	b.AddBatch(1, "a")
	b.AddBatch(2, "b")
	b.AddBatch(3, "c")

	if len(b.batch) != 3 {
		t.Fatalf("len(batch) = %d, want 3", len(b.batch))
	}
	if b.batch[1][0] != 2 || b.batch[1][1] != "b" {
		t.Errorf("batch[1] = %v, want [2 b]", b.batch[1])
	}
}
