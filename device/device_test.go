/*
 * ts7200 - Device and Memory trait definitions.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package device

import "testing"

// fakeReg32 is a one-word Raw32 for exercising the default narrowing helpers.
type fakeReg32 struct {
	word uint32
	fail bool
}

func (f *fakeReg32) R32(offset uint32) (uint32, *MemException) {
	if f.fail {
		return 0, &MemException{Kind: Unexpected, Access: Read, HasAccess: true, Offset: offset}
	}
	return f.word, nil
}

func (f *fakeReg32) W32(offset uint32, val uint32) *MemException {
	if f.fail {
		return &MemException{Kind: Unexpected, Access: Write, HasAccess: true, Offset: offset}
	}
	f.word = val
	return nil
}

func TestR8DefaultExtractsLowByteAtAlignedOffset(t *testing.T) {
	r := &fakeReg32{word: 0x44332211}
	got, ex := R8Default(r, 0)
	if ex != nil {
		t.Fatalf("unexpected exception: %v", ex)
	}
	if got != 0x11 {
		t.Fatalf("got %#x, want 0x11", got)
	}
}

func TestR8DefaultRejectsMisalignedOffset(t *testing.T) {
	r := &fakeReg32{word: 0x1234}
	for _, offset := range []uint32{1, 2, 3} {
		_, ex := R8Default(r, offset)
		if ex == nil || ex.Kind != Misaligned {
			t.Fatalf("R8Default(%d) = %v, want a Misaligned exception", offset, ex)
		}
	}
}

func TestR16DefaultRejectsMisalignedOffset(t *testing.T) {
	r := &fakeReg32{word: 0x1234}
	_, ex := R16Default(r, 1)
	if ex == nil || ex.Kind != Misaligned {
		t.Fatalf("R16Default(1) = %v, want a Misaligned exception", ex)
	}
}

func TestW8DefaultWritesLowByteAtAlignedOffset(t *testing.T) {
	r := &fakeReg32{word: 0xaabbccdd}
	if ex := W8Default(r, 0, 0xEE); ex != nil {
		t.Fatalf("W8Default: %v", ex)
	}
	if r.word != 0x000000EE {
		t.Fatalf("word after W8Default = %#x, want %#x", r.word, 0x000000EE)
	}
}

func TestW8DefaultRejectsMisalignedOffset(t *testing.T) {
	r := &fakeReg32{}
	for _, offset := range []uint32{1, 2, 3} {
		ex := W8Default(r, offset, 0xEE)
		if ex == nil || ex.Kind != Misaligned {
			t.Fatalf("W8Default(%d) = %v, want a Misaligned exception", offset, ex)
		}
	}
}

func TestW16DefaultRejectsMisalignedOffset(t *testing.T) {
	r := &fakeReg32{}
	ex := W16Default(r, 0, 0x1234)
	if ex != nil {
		t.Fatalf("W16Default(0) = %v, want nil (offset 0 is word-aligned)", ex)
	}
	if r.word != 0x1234 {
		t.Fatalf("word = %#x, want 0x1234", r.word)
	}

	ex = W16Default(r, 1, 0x5678)
	if ex == nil || ex.Kind != Misaligned {
		t.Fatalf("W16Default(1) = %v, want a Misaligned exception", ex)
	}
}

func TestMemExceptionFatalClassification(t *testing.T) {
	cases := []struct {
		ex    *MemException
		fatal bool
	}{
		{&MemException{Kind: Misaligned}, true},
		{&MemException{Kind: Unexpected}, true},
		{&MemException{Kind: Unimplemented}, true},
		{&MemException{Kind: InvalidAccess}, true},
		{&MemException{Kind: StubRead}, false},
		{&MemException{Kind: ContractViolation, Severity: SeverityWarn}, false},
		{&MemException{Kind: ContractViolation, Severity: SeverityError}, true},
	}
	for _, c := range cases {
		if got := c.ex.Fatal(); got != c.fatal {
			t.Errorf("%s/%s Fatal() = %v, want %v", c.ex.Kind, c.ex.Severity, got, c.fatal)
		}
	}
}

func TestProbeStringRendersChainAndLeaf(t *testing.T) {
	leaf := RegisterProbe("Flag")
	inner := NewDeviceProbe(fakeDevice{kind: "UART", label: "uart2"}, &leaf)
	chain := Probe{DeviceKind: "Ts7200", Next: &inner}

	if got, want := chain.String(), "Ts7200 > UART:uart2 > Flag"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	if got, want := UnmappedProbe().String(), "<unmapped>"; got != want {
		t.Fatalf("UnmappedProbe().String() = %q, want %q", got, want)
	}
}

type fakeDevice struct{ kind, label string }

func (fakeDevice) R8(uint32) (uint8, *MemException)   { return 0, nil }
func (fakeDevice) R16(uint32) (uint16, *MemException)  { return 0, nil }
func (fakeDevice) R32(uint32) (uint32, *MemException)  { return 0, nil }
func (fakeDevice) W8(uint32, uint8) *MemException       { return nil }
func (fakeDevice) W16(uint32, uint16) *MemException     { return nil }
func (fakeDevice) W32(uint32, uint32) *MemException     { return nil }
func (d fakeDevice) Kind() string                       { return d.kind }
func (d fakeDevice) Label() string                      { return d.label }
func (fakeDevice) Probe(uint32) Probe                   { return Probe{} }
