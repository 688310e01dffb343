package syscon

import "testing"

func TestLockFSM(t *testing.T) {
	s := New("syscon")

	if err := s.W32(0xC0, 0xAA); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := s.W32(0x80, 0x1234_5678); err != nil {
		t.Fatalf("locked write after unlock: %v", err)
	}
	v, err := s.R32(0x80)
	if err != nil || v != 0x1234_5678 {
		t.Fatalf("got %#x, %v", v, err)
	}
	lockVal, err := s.R32(0xC0)
	if err != nil || lockVal != 0x00 {
		t.Fatalf("expected re-locked, got %#x, %v", lockVal, err)
	}
	if err := s.W32(0x88, 0xdead); err == nil || !err.Fatal() {
		t.Fatal("expected fatal ContractViolation writing locked region again")
	}
}

func TestSysSWLockRejectsNonAA(t *testing.T) {
	s := New("syscon")
	if err := s.W32(0xC0, 0x55); err == nil {
		t.Fatal("expected ContractViolation for non-0xAA unlock value")
	}
	v, _ := s.R32(0xC0)
	if v != 0x00 {
		t.Fatalf("state should remain locked, got %#x", v)
	}
}

func TestHaltStandbyTransitions(t *testing.T) {
	s := New("syscon")
	if err := s.W32(0xC0, 0xAA); err != nil {
		t.Fatal(err)
	}
	if err := s.W32(0x80, 1); err != nil { // device_cfg bit0 = 1
		t.Fatal(err)
	}
	if _, err := s.R32(0x08); err != nil {
		t.Fatalf("halt read: %v", err)
	}
	if s.Power() != Halt {
		t.Fatalf("expected Halt, got %v", s.Power())
	}
}

func TestWriteHaltIsInvalidAccess(t *testing.T) {
	s := New("syscon")
	if err := s.W32(0x08, 1); err == nil {
		t.Fatal("expected InvalidAccess writing Halt")
	}
}
