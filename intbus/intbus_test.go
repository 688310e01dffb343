package intbus

import "testing"

func TestSendNeverBlocksAndPreservesOrder(t *testing.T) {
	b := New()
	for i := 0; i < 1000; i++ {
		b.Send(Tc1Ui, i%2 == 0)
	}
	msgs := b.DrainAll()
	if len(msgs) != 1000 {
		t.Fatalf("got %d messages, want 1000", len(msgs))
	}
	for i, m := range msgs {
		if m.Asserted != (i%2 == 0) {
			t.Fatalf("message %d out of order", i)
		}
	}
}

func TestTryRecvEmpty(t *testing.T) {
	b := New()
	if _, ok := b.TryRecv(); ok {
		t.Fatal("expected empty bus")
	}
}
