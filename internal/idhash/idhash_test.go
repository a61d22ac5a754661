package idhash

import "testing"

func TestComputeEventID_Deterministic(t *testing.T) {
	a := ComputeEventID(42161, "0xabc", 3)
	b := ComputeEventID(42161, "0xabc", 3)
	if a != b {
		t.Errorf("same inputs produced %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64", len(a))
	}
	if a == ComputeEventID(42161, "0xabc", 4) {
		t.Error("different log index collided")
	}
}

func TestComputeTraceID_ParamsChangeID(t *testing.T) {
	base := ComputeTraceID(42161, "0xabc", 3, 30, 4, "v1")

	if base != ComputeTraceID(42161, "0xabc", 3, 30, 4, "v1") {
		t.Error("not deterministic")
	}
	if base == ComputeTraceID(42161, "0xabc", 3, 7, 4, "v1") {
		t.Error("window change did not change the id")
	}
	if base == ComputeTraceID(42161, "0xabc", 3, 30, 4, "v2") {
		t.Error("label version change did not change the id")
	}
}
