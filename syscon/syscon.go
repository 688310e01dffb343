/*
 * ts7200 - EP93xx system controller.
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

// Package syscon implements the EP93xx system controller register file, its
// SW-lock FSM and its power-state FSM.
package syscon

import (
	"sync"

	D "github.com/rcornwell/ts7200/device"
)

// PowerState enumerates the system controller's power states.
type PowerState int

const (
	Run PowerState = iota
	Halt
	Standby
)

func (p PowerState) String() string {
	switch p {
	case Halt:
		return "halt"
	case Standby:
		return "standby"
	default:
		return "run"
	}
}

// Register offsets, (EP93xx SysCon memory map).
const (
	offHalt        uint32 = 0x0008
	offStandby     uint32 = 0x000C
	offScratchReg0 uint32 = 0x0040
	offScratchReg1 uint32 = 0x0044
	offDeviceCfg   uint32 = 0x0080 // within the SW-locked region
	offSysSWLock   uint32 = 0x00C0
)

var regNames = map[uint32]string{
	offHalt:        "Halt",
	offStandby:     "Standby",
	offScratchReg0: "ScratchReg0",
	offScratchReg1: "ScratchReg1",
	offDeviceCfg:   "DeviceCfg",
	offSysSWLock:   "SysSWLock",
}

const defaultDeviceCfg uint32 = 0x0894_0d00

// Syscon holds the system controller's register state.
type Syscon struct {
	mu         sync.Mutex
	label      string
	scratch0   uint32
	scratch1   uint32
	deviceCfg  uint32
	locked     bool
	power      PowerState
}

// New constructs a Syscon in its reset state: locked, Run power state,
// default device configuration.
func New(label string) *Syscon {
	return &Syscon{
		label:     label,
		deviceCfg: defaultDeviceCfg,
		locked:    true,
		power:     Run,
	}
}

func (s *Syscon) Kind() string  { return "Syscon" }
func (s *Syscon) Label() string { return s.label }

func (s *Syscon) path(reg string) string {
	if s.label != "" {
		return s.Kind() + ":" + s.label + " > " + reg
	}
	return s.Kind() + " > " + reg
}

// Power returns the current power state.
func (s *Syscon) Power() PowerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}

// ForceRun transitions back to the Run power state. Called by the system
// step loop when a pending interrupt wakes the board from Halt; this is a
// hardware-level transition, not a register write, so it bypasses the
// SW-lock machinery entirely.
func (s *Syscon) ForceRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.power = Run
}

// inLockedRange reports whether offset falls in the SW-locked region
// [0x80..0x9C].
func inLockedRange(offset uint32) bool {
	return offset >= 0x80 && offset <= 0x9C
}

func regName(offset uint32) string {
	if n, ok := regNames[offset]; ok {
		return n
	}
	return "Unknown"
}

func (s *Syscon) Probe(offset uint32) D.Probe {
	if _, ok := regNames[offset]; ok {
		return D.RegisterProbe(regName(offset))
	}
	return D.UnmappedProbe()
}

func invalidAccess(access D.AccessKind, path string, offset uint32) *D.MemException {
	return &D.MemException{Kind: D.InvalidAccess, Access: access, HasAccess: true, Path: path, Offset: offset}
}

func unimplemented(access D.AccessKind, path string, offset uint32) *D.MemException {
	return &D.MemException{Kind: D.Unimplemented, Access: access, HasAccess: true, Path: path, Offset: offset}
}

func contractError(access D.AccessKind, path string, offset uint32, msg string) *D.MemException {
	return &D.MemException{
		Kind: D.ContractViolation, Access: access, HasAccess: true, Path: path, Offset: offset,
		Msg: msg, Severity: D.SeverityError,
	}
}

func (s *Syscon) R32(offset uint32) (uint32, *D.MemException) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(regName(offset))

	switch offset {
	case offScratchReg0:
		return s.scratch0, nil
	case offScratchReg1:
		return s.scratch1, nil
	case offDeviceCfg:
		return s.deviceCfg, nil
	case offSysSWLock:
		if s.locked {
			return 0x00, nil
		}
		return 0x01, nil
	case offHalt:
		if s.deviceCfg&1 == 1 {
			s.power = Halt
			return 0, nil
		}
		return 0, contractError(D.Read, path, offset, "Halt read while device config bit 0 clear")
	case offStandby:
		if s.deviceCfg&1 == 1 {
			s.power = Standby
			return 0, nil
		}
		return 0, contractError(D.Read, path, offset, "Standby read while device config bit 0 clear")
	default:
		if _, ok := regNames[offset]; ok {
			return 0, unimplemented(D.Read, path, offset)
		}
		return 0, &D.MemException{Kind: D.Unexpected, Access: D.Read, HasAccess: true, Path: path, Offset: offset}
	}
}

func (s *Syscon) W32(offset uint32, val uint32) *D.MemException {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(regName(offset))

	// Open question (b): writing the read-only Halt/Standby registers is
	// InvalidAccess.
	if offset == offHalt || offset == offStandby {
		return invalidAccess(D.Write, path, offset)
	}

	if offset == offSysSWLock {
		if val != 0xAA {
			return contractError(D.Write, path, offset, "SysSWLock write must be exactly 0xAA")
		}
		s.locked = false
		return nil
	}

	if inLockedRange(offset) {
		if s.locked {
			return contractError(D.Write, path, offset, "write to SW-locked register while locked")
		}
		defer func() { s.locked = true }()
	}

	switch offset {
	case offScratchReg0:
		s.scratch0 = val
		return nil
	case offScratchReg1:
		s.scratch1 = val
		return nil
	case offDeviceCfg:
		s.deviceCfg = val
		return nil
	default:
		if _, ok := regNames[offset]; ok {
			return unimplemented(D.Write, path, offset)
		}
		return &D.MemException{Kind: D.Unexpected, Access: D.Write, HasAccess: true, Path: path, Offset: offset}
	}
}

func (s *Syscon) R8(offset uint32) (uint8, *D.MemException)  { return D.R8Default(s, offset) }
func (s *Syscon) R16(offset uint32) (uint16, *D.MemException) { return D.R16Default(s, offset) }
func (s *Syscon) W8(offset uint32, v uint8) *D.MemException   { return D.W8Default(s, offset, v) }
func (s *Syscon) W16(offset uint32, v uint16) *D.MemException { return D.W16Default(s, offset, v) }
