package adapter

import (
	"testing"

	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/memory"
)

func TestAdapterSurfacesFaultWithoutPanicking(t *testing.T) {
	ram := memory.New(16, "sdram")
	a := New(ram)

	v := a.Read32(0)
	if v != 0x2D2D2D2D {
		t.Fatalf("got %#x, want stub fill value", v)
	}
	ex := a.LastFault()
	if ex == nil || ex.Kind != D.ContractViolation {
		t.Fatalf("expected ContractViolation fault, got %v", ex)
	}
	// Fault should be cleared after being read once.
	if a.LastFault() != nil {
		t.Fatal("expected fault to be cleared after LastFault")
	}
}

func TestAdapterOutOfRangeIsFatal(t *testing.T) {
	ram := memory.New(4, "sdram")
	a := New(ram)

	_ = a.Read32(100)
	ex := a.LastFault()
	if ex == nil || !ex.Fatal() {
		t.Fatal("expected a fatal out-of-range fault")
	}
}

func TestSnifferReportsWatchpointHit(t *testing.T) {
	ram := memory.New(16, "sdram")
	a := New(ram)
	wp := map[uint32]struct{}{4: {}}
	s := NewSniffer(a, wp)

	s.Write32(4, 0xCAFEBABE)
	hit := s.Hit()
	if hit == nil {
		t.Fatal("expected watchpoint hit")
	}
	if hit.Offset != 4 || hit.Value != 0xCAFEBABE || hit.Kind != D.Write {
		t.Fatalf("unexpected hit record: %+v", hit)
	}

	s.Write32(8, 0) // not watched
	if s.Hit() != nil {
		t.Fatal("expected no hit for unwatched address")
	}
}
