/*
 * ts7200 - Vectored interrupt controller bank.
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

// Package vic implements the two 32-interrupt VIC banks and the manager
// that daisy-chains them.
package vic

import (
	"sync"

	D "github.com/rcornwell/ts7200/device"
)

const numVectors = 16

type vectorEntry struct {
	source  uint8
	isrAddr uint32
	enabled bool
}

// Bank is one 32-interrupt VIC bank.
type Bank struct {
	mu             sync.Mutex
	label          string
	status         uint32 // hardware-asserted bitmap
	enabled        uint32 // mask
	selectReg      uint32 // per-source FIQ(1) vs IRQ(0)
	softwareStatus uint32
	defaultISR     uint32
	vectors        [numVectors]vectorEntry
}

// NewBank constructs a Bank in its reset state.
func NewBank(label string) *Bank {
	return &Bank{label: label}
}

func (b *Bank) Kind() string  { return "VIC" }
func (b *Bank) Label() string { return b.label }

func (b *Bank) path(reg string) string {
	return b.Kind() + ":" + b.label + " > " + reg
}

// rawStatus returns status | softwareStatus. Caller must hold b.mu.
func (b *Bank) rawStatus() uint32 { return b.status | b.softwareStatus }

// active returns rawstatus & enabled. Caller must hold b.mu.
func (b *Bank) active() uint32 { return b.rawStatus() & b.enabled }

// IRQ reports whether this bank is asserting IRQ.
func (b *Bank) IRQ() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active()&^b.selectReg != 0
}

// FIQ reports whether this bank is asserting FIQ.
func (b *Bank) FIQ() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active()&b.selectReg != 0
}

// AssertInterrupt sets the hardware status bit for source (0..31).
func (b *Bank) AssertInterrupt(source int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status |= 1 << uint(source)
}

// ClearInterrupt clears the hardware status bit for source.
func (b *Bank) ClearInterrupt(source int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status &^= 1 << uint(source)
}

// vectAddr computes the vectored ISR address lookup: the
// first (lowest-index) vector whose enabled is true and whose source bit
// lies in active & !select; default_isr if none. Caller must hold b.mu.
func (b *Bank) vectAddr() uint32 {
	candidates := b.active() &^ b.selectReg
	for _, v := range b.vectors {
		if v.enabled && candidates&(1<<uint(v.source)) != 0 {
			return v.isrAddr
		}
	}
	return b.defaultISR
}

const (
	offIRQStatus     uint32 = 0x00
	offFIQStatus     uint32 = 0x04
	offRawIntr       uint32 = 0x08
	offIntSelect     uint32 = 0x0C
	offIntEnable     uint32 = 0x10
	offIntEnClear    uint32 = 0x14
	offSoftInt       uint32 = 0x18
	offSoftIntClear  uint32 = 0x1C
	offVectAddr      uint32 = 0x30
	offDefVectAddr   uint32 = 0x34
	offVectAddrBase  uint32 = 0x100
	offVectCntlBase  uint32 = 0x200
	offPeriphIDBase  uint32 = 0xFE0
)

var periphID = [4]uint8{0x90, 0x11, 0x04, 0x00}

func regName(offset uint32) (string, bool) {
	switch offset {
	case offIRQStatus:
		return "IRQStatus", true
	case offFIQStatus:
		return "FIQStatus", true
	case offRawIntr:
		return "RawIntr", true
	case offIntSelect:
		return "IntSelect", true
	case offIntEnable:
		return "IntEnable", true
	case offIntEnClear:
		return "IntEnClear", true
	case offSoftInt:
		return "SoftInt", true
	case offSoftIntClear:
		return "SoftIntClear", true
	case offVectAddr:
		return "VectAddr", true
	case offDefVectAddr:
		return "DefVectAddr", true
	}
	if offset >= offVectAddrBase && offset < offVectAddrBase+4*numVectors {
		return "VectAddrN", true
	}
	if offset >= offVectCntlBase && offset < offVectCntlBase+4*numVectors {
		return "VectCntlN", true
	}
	if offset >= offPeriphIDBase && offset < offPeriphIDBase+0x10 {
		return "PeriphID", true
	}
	return "", false
}

func (b *Bank) Probe(offset uint32) D.Probe {
	if name, ok := regName(offset); ok {
		return D.RegisterProbe(name)
	}
	return D.UnmappedProbe()
}

func invalidAccess(access D.AccessKind, path string, offset uint32) *D.MemException {
	return &D.MemException{Kind: D.InvalidAccess, Access: access, HasAccess: true, Path: path, Offset: offset}
}

func unexpected(access D.AccessKind, path string, offset uint32) *D.MemException {
	return &D.MemException{Kind: D.Unexpected, Access: access, HasAccess: true, Path: path, Offset: offset}
}

func (b *Bank) R32(offset uint32) (uint32, *D.MemException) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, known := regName(offset)
	path := b.path(name)

	switch {
	case offset == offIRQStatus:
		return b.active() &^ b.selectReg, nil
	case offset == offFIQStatus:
		return b.active() & b.selectReg, nil
	case offset == offRawIntr:
		return b.rawStatus(), nil
	case offset == offIntSelect:
		return b.selectReg, nil
	case offset == offIntEnable:
		return b.enabled, nil
	case offset == offSoftInt:
		return b.softwareStatus, nil
	case offset == offVectAddr:
		return b.vectAddr(), nil
	case offset == offDefVectAddr:
		return b.defaultISR, nil
	case offset >= offVectAddrBase && offset < offVectAddrBase+4*numVectors:
		i := (offset - offVectAddrBase) / 4
		return b.vectors[i].isrAddr, nil
	case offset >= offVectCntlBase && offset < offVectCntlBase+4*numVectors:
		i := (offset - offVectCntlBase) / 4
		v := b.vectors[i]
		var en uint32
		if v.enabled {
			en = 1
		}
		return (en << 5) | uint32(v.source), nil
	case offset >= offPeriphIDBase && offset < offPeriphIDBase+0x10:
		i := (offset - offPeriphIDBase) / 4
		if i < 4 {
			return uint32(periphID[i]), nil
		}
		return 0, nil
	case offset == offIntEnClear || offset == offSoftIntClear:
		return 0, invalidAccess(D.Read, path, offset)
	default:
		if known {
			return 0, invalidAccess(D.Read, path, offset)
		}
		return 0, unexpected(D.Read, path, offset)
	}
}

func (b *Bank) W32(offset uint32, val uint32) *D.MemException {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, known := regName(offset)
	path := b.path(name)

	switch {
	case offset == offIntSelect:
		b.selectReg = val
		return nil
	case offset == offIntEnable:
		b.enabled = val
		return nil
	case offset == offIntEnClear:
		b.enabled &^= val
		return nil
	case offset == offSoftInt:
		b.softwareStatus |= val
		return nil
	case offset == offSoftIntClear:
		b.softwareStatus &^= val
		return nil
	case offset == offVectAddr:
		// Open question (a): EOI write is a documented no-op.
		return nil
	case offset == offDefVectAddr:
		b.defaultISR = val
		return nil
	case offset >= offVectAddrBase && offset < offVectAddrBase+4*numVectors:
		i := (offset - offVectAddrBase) / 4
		b.vectors[i].isrAddr = val
		return nil
	case offset >= offVectCntlBase && offset < offVectCntlBase+4*numVectors:
		i := (offset - offVectCntlBase) / 4
		b.vectors[i].enabled = val&(1<<5) != 0
		b.vectors[i].source = uint8(val & 0x1f)
		return nil
	case offset == offIRQStatus || offset == offFIQStatus || offset == offRawIntr ||
		offset == offVectCntlBase || (offset >= offPeriphIDBase && offset < offPeriphIDBase+0x10):
		return invalidAccess(D.Write, path, offset)
	default:
		if known {
			return invalidAccess(D.Write, path, offset)
		}
		return unexpected(D.Write, path, offset)
	}
}

func (b *Bank) R8(offset uint32) (uint8, *D.MemException)   { return D.R8Default(b, offset) }
func (b *Bank) R16(offset uint32) (uint16, *D.MemException) { return D.R16Default(b, offset) }
func (b *Bank) W8(offset uint32, v uint8) *D.MemException    { return D.W8Default(b, offset, v) }
func (b *Bank) W16(offset uint32, v uint16) *D.MemException  { return D.W16Default(b, offset, v) }
