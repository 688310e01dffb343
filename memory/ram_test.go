package memory

import (
	"testing"

	D "github.com/rcornwell/ts7200/device"
)

func TestRAMUninitializedRead(t *testing.T) {
	r := New(1024, "sdram")
	if err := r.W32(0, 0xAABBCCDD); err != nil {
		t.Fatalf("w32: %v", err)
	}
	_, ex := r.R32(4)
	if ex == nil {
		t.Fatal("expected ContractViolation reading uninitialized RAM")
	}
	if ex.Kind != D.ContractViolation {
		t.Fatalf("expected ContractViolation kind, got %v", ex.Kind)
	}
	if ex.StubVal != 0x2D2D2D2D {
		t.Fatalf("stub_val = %#x, want 0x2d2d2d2d", ex.StubVal)
	}
}

func TestRAMRoundTrip(t *testing.T) {
	r := New(64, "sdram")
	r.BulkWrite(0, []byte{1, 2, 3, 4})
	v, ex := r.R32(0)
	if ex != nil {
		t.Fatalf("unexpected fault: %v", ex)
	}
	if v != 0x04030201 {
		t.Fatalf("got %#x want 0x04030201 (little-endian)", v)
	}
}

func TestRAMOutOfRange(t *testing.T) {
	r := New(16, "sdram")
	_, ex := r.R32(16)
	if ex == nil || !ex.Fatal() {
		t.Fatal("expected fatal Unexpected fault for out-of-range read")
	}
}
