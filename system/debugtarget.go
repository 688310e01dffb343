/*
 * ts7200 - debug target glue: Go-level API consumed by an external GDB stub.
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

package system

import "github.com/rcornwell/ts7200/armcore"

// StopReason mirrors the subset of gdbstub's stop reasons this board can
// produce: plain single-step completion, a graceful HLE halt, a software
// breakpoint, or a watchpoint hit.
type StopReason int

const (
	StopStep StopReason = iota
	StopHalted
	StopBreak
	StopWatchRead
	StopWatchWrite
)

// ResumeAction selects how DebugTarget.Resume should drive the system.
type ResumeAction int

const (
	ResumeStep ResumeAction = iota
	ResumeContinue
)

// DebugTarget is the Go-level API a GDB stub (run out-of-process or in a
// goroutine by main) drives instead of talking a wire protocol directly to
// System. No RSP framing lives here; that belongs to the stub.
type DebugTarget struct {
	sys *System
}

// NewDebugTarget wraps sys for debugger consumption.
func NewDebugTarget(sys *System) *DebugTarget {
	return &DebugTarget{sys: sys}
}

// Resume steps once, or runs until a stop condition, checking interrupt
// after every 1024 instructions in Continue mode so the caller can poll for
// an external interrupt request (e.g. a GDB ctrl-C) without blocking
// forever.
func (d *DebugTarget) Resume(action ResumeAction, checkInterrupt func() bool) (StopReason, uint32, error) {
	switch action {
	case ResumeStep:
		res, err := d.sys.Step(false)
		if err != nil {
			return 0, 0, err
		}
		return stopReasonOf(res)
	case ResumeContinue:
		cycles := 0
		for {
			res, err := d.sys.Step(false)
			if err != nil {
				return 0, 0, err
			}
			if res.Event != EventNone {
				return stopReasonOf(res)
			}
			cycles++
			if cycles%1024 == 0 && checkInterrupt != nil && checkInterrupt() {
				return StopStep, 0, nil
			}
		}
	default:
		return StopStep, 0, nil
	}
}

func stopReasonOf(res StepResult) (StopReason, uint32, error) {
	switch res.Event {
	case EventHalted:
		return StopHalted, 0, nil
	case EventBreak:
		return StopBreak, 0, nil
	case EventWatchRead:
		return StopWatchRead, res.Addr, nil
	case EventWatchWrite:
		return StopWatchWrite, res.Addr, nil
	default:
		return StopStep, 0, nil
	}
}

// ReadRegisters copies every general-purpose register plus SP/LR/PC/CPSR
// for the given mode.
func (d *DebugTarget) ReadRegisters(mode armcore.Mode) [17]uint32 {
	var regs [17]uint32
	for i := armcore.R0; i <= armcore.CPSR; i++ {
		regs[i] = d.sys.cpu.RegGet(mode, i)
	}
	return regs
}

// WriteRegisters writes every general-purpose register plus SP/LR/PC/CPSR
// for the given mode.
func (d *DebugTarget) WriteRegisters(mode armcore.Mode, regs [17]uint32) {
	for i := armcore.R0; i <= armcore.CPSR; i++ {
		d.sys.cpu.RegSet(mode, i, regs[i])
	}
}

// ReadRegister reads a single register by index.
func (d *DebugTarget) ReadRegister(mode armcore.Mode, reg armcore.Reg) uint32 {
	return d.sys.cpu.RegGet(mode, reg)
}

// WriteRegister writes a single register by index.
func (d *DebugTarget) WriteRegister(mode armcore.Mode, reg armcore.Reg, val uint32) {
	d.sys.cpu.RegSet(mode, reg, val)
}

// ReadMemory reads n bytes starting at addr through the same infallible
// adapter the CPU uses. It drains the adapter's LastFault: a fatal fault is
// returned as the error, a non-fatal one is discarded.
func (d *DebugTarget) ReadMemory(addr uint32, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = d.sys.mem.Read8(addr + uint32(i))
	}
	if ex := d.sys.mem.LastFault(); ex != nil && ex.Fatal() {
		return out, ex
	}
	return out, nil
}

// WriteMemory writes data starting at addr.
func (d *DebugTarget) WriteMemory(addr uint32, data []byte) error {
	for i, b := range data {
		d.sys.mem.Write8(addr+uint32(i), b)
	}
	if ex := d.sys.mem.LastFault(); ex != nil && ex.Fatal() {
		return ex
	}
	return nil
}

// AddBreakpoint/RemoveBreakpoint manage the software breakpoint set.
func (d *DebugTarget) AddBreakpoint(addr uint32) {
	d.sys.breakpoints[addr] = struct{}{}
}

func (d *DebugTarget) RemoveBreakpoint(addr uint32) {
	delete(d.sys.breakpoints, addr)
}

// AddWatchpoint/RemoveWatchpoint manage the hardware watchpoint set shared
// with the system's memory sniffer.
func (d *DebugTarget) AddWatchpoint(addr uint32) {
	d.sys.watchpoints[addr] = struct{}{}
}

func (d *DebugTarget) RemoveWatchpoint(addr uint32) {
	delete(d.sys.watchpoints, addr)
}

// Freeze puts the system into post-mortem mode: Step becomes a no-op, so a
// GDB session can still inspect registers/memory after a fatal error.
func (d *DebugTarget) Freeze() { d.sys.Freeze() }
