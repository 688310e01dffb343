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

// Package device defines the memory-mapped I/O contract shared by every
// peripheral on the TS-7200 bus: the fallible Memory access trait, the
// Device identity trait, the probe tree used to render fault contexts,
// and the exception taxonomy raised by peripherals and RAM.
package device

import "fmt"

// AccessKind distinguishes a read from a write in a fault or access record.
type AccessKind int

const (
	Read AccessKind = iota
	Write
)

func (a AccessKind) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// Severity of a ContractViolation.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// ExceptionKind enumerates the fault categories a Memory operation may raise.
type ExceptionKind int

const (
	// Misaligned is raised by the default width-fallback when an offset
	// does not satisfy the access's natural alignment.
	Misaligned ExceptionKind = iota
	// Unexpected is raised by the bus for an address outside any mapped window.
	Unexpected
	// Unimplemented is raised by a device for a register it declares but
	// does not implement.
	Unimplemented
	// StubRead means the caller should substitute StubVal and continue.
	StubRead
	// StubWrite means the write should be silently dropped.
	StubWrite
	// InvalidAccess is a write to a read-only register or a read of a
	// write-only one.
	InvalidAccess
	// ContractViolation is a device-specific invariant break, carrying
	// its own severity.
	ContractViolation
)

func (k ExceptionKind) String() string {
	switch k {
	case Misaligned:
		return "misaligned"
	case Unexpected:
		return "unexpected"
	case Unimplemented:
		return "unimplemented"
	case StubRead:
		return "stub-read"
	case StubWrite:
		return "stub-write"
	case InvalidAccess:
		return "invalid-access"
	case ContractViolation:
		return "contract-violation"
	default:
		return "unknown"
	}
}

// MemException is the value every Memory operation returns on failure.
// Invariant: every exception surfaced to the CPU carries a non-empty
// Path identifying the innermost device and the base-absolute Offset.
type MemException struct {
	Kind     ExceptionKind
	Access   AccessKind
	HasAccess bool // Access is meaningful only when HasAccess is true.
	Path     string
	Offset   uint32
	StubVal  uint32 // Valid when Kind == StubRead, and for RAM's uninitialized-read ContractViolation.
	Msg      string // Valid when Kind == ContractViolation.
	Severity Severity
}

func (e *MemException) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s @ %s+%#x: %s", e.Kind, e.Access, e.Path, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s: %s @ %s+%#x", e.Kind, e.Access, e.Path, e.Offset)
}

// Fatal reports whether this exception should halt the system.
func (e *MemException) Fatal() bool {
	switch e.Kind {
	case Misaligned, Unexpected, Unimplemented, InvalidAccess:
		return true
	case ContractViolation:
		return e.Severity == SeverityError
	default:
		return false
	}
}

// Access is the record produced by the sniffer for watchpoints and by the
// debug target when reading/writing memory.
type Access struct {
	Kind   AccessKind
	Offset uint32
	Width  int // 8, 16, or 32
	Value  uint32
}

// Memory is the fallible 8/16/32-bit access contract every bus leaf
// implements. Components implement R32/W32 directly and forward R8/R16/W8/
// W16 to R8Default/R16Default/W8Default/W16Default below (misaligned check
// plus truncate/widen over the 32-bit register).
type Memory interface {
	R8(offset uint32) (uint8, *MemException)
	R16(offset uint32) (uint16, *MemException)
	R32(offset uint32) (uint32, *MemException)
	W8(offset uint32, val uint8) *MemException
	W16(offset uint32, val uint16) *MemException
	W32(offset uint32, val uint32) *MemException
}

// Device is the polymorphic identity every memory-mapped component exposes
// in addition to Memory, for fault reporting and the probe tree.
type Device interface {
	Memory
	Kind() string    // Static label, e.g. "UART".
	Label() string   // Instance tag, e.g. "uart2"; may be empty.
	Probe(offset uint32) Probe
}

// Probe is a linked list whose interior nodes are {device, next} and whose
// leaf is either a named register or Unmapped.
type Probe struct {
	DeviceKind  string
	DeviceLabel string
	Next        *Probe
	Reg         string // set on a leaf Register node.
	Unmapped    bool   // set on a leaf Unmapped node.
}

// NewDeviceProbe builds an interior probe node.
func NewDeviceProbe(d Device, next *Probe) Probe {
	return Probe{DeviceKind: d.Kind(), DeviceLabel: d.Label(), Next: next}
}

// RegisterProbe builds a leaf probe node naming a register.
func RegisterProbe(name string) Probe {
	return Probe{Reg: name}
}

// UnmappedProbe builds a leaf probe node for an address with no register.
func UnmappedProbe() Probe {
	return Probe{Unmapped: true}
}

// String renders "A > B:label > RegName" or "<unmapped>".
func (p Probe) String() string {
	if p.Unmapped {
		return "<unmapped>"
	}
	if p.Reg != "" {
		return p.Reg
	}
	head := p.DeviceKind
	if p.DeviceLabel != "" {
		head = head + ":" + p.DeviceLabel
	}
	if p.Next == nil {
		return head
	}
	return head + " > " + p.Next.String()
}

// Raw32 is the narrow interface R8Default/R16Default/W8Default/W16Default
// need: any component implementing plain R32/W32 gets the default
// misalignment-checked 8/16-bit narrowing for free by forwarding to these.
type Raw32 interface {
	R32(offset uint32) (uint32, *MemException)
	W32(offset uint32, val uint32) *MemException
}

// Misalign builds a Misaligned exception for the given access.
func Misalign(access AccessKind, offset uint32) *MemException {
	return &MemException{Kind: Misaligned, Access: access, HasAccess: true, Offset: offset}
}

// R8Default implements the default byte read: Misaligned
// if offset&3 != 0, else forward to R32 and truncate.
func R8Default(m Raw32, offset uint32) (uint8, *MemException) {
	if offset&3 != 0 {
		return 0, Misalign(Read, offset)
	}
	v, ex := m.R32(offset)
	if ex != nil {
		return 0, ex
	}
	return uint8(v), nil
}

// R16Default implements the default halfword read: Misaligned
// if offset&3 != 0, else forward to R32 and truncate.
func R16Default(m Raw32, offset uint32) (uint16, *MemException) {
	if offset&3 != 0 {
		return 0, Misalign(Read, offset)
	}
	v, ex := m.R32(offset)
	if ex != nil {
		return 0, ex
	}
	return uint16(v), nil
}

// W8Default implements the default byte write.
func W8Default(m Raw32, offset uint32, val uint8) *MemException {
	if offset&3 != 0 {
		return Misalign(Write, offset)
	}
	return m.W32(offset, uint32(val))
}

// W16Default implements the default halfword write.
func W16Default(m Raw32, offset uint32, val uint16) *MemException {
	if offset&3 != 0 {
		return Misalign(Write, offset)
	}
	return m.W32(offset, uint32(val))
}
