package bus

import (
	"testing"

	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/memory"
)

func TestBusDispatchAndUnexpected(t *testing.T) {
	ram := memory.New(16, "sdram")
	b := New([]Range{{Lo: 0, Hi: 15, Dev: ram}})

	if err := b.W32(0, 0x11223344); err != nil {
		t.Fatalf("w32: %v", err)
	}
	v, err := b.R32(0)
	if err != nil {
		t.Fatalf("r32: %v", err)
	}
	if v != 0x11223344 {
		t.Fatalf("got %#x", v)
	}

	_, ex := b.R32(0x1000)
	if ex == nil || ex.Kind != D.Unexpected {
		t.Fatal("expected Unexpected fault outside mapped window")
	}
}
