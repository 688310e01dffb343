/*
 * ts7200 - ARM core contract: the CPU is an external collaborator.
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

// Package armcore declares the contract system expects from an ARMv4T
// core: step-one-instruction against a bus, register access for boot setup
// and debug inspection, and exception delivery for IRQ/FIQ. No ARM
// interpreter lives here; a real core is an external collaborator plugged
// in by main, and a minimal fake satisfying this interface is used by
// system's own tests.
package armcore

// Mode names the processor's register bank, mirroring ARM's CPU modes.
type Mode int

const (
	User Mode = iota
	FIQMode
	IRQMode
	Supervisor
	Abort
	Undefined
	System
)

// Reg indexes the general-purpose and special register file.
type Reg int

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
	CPSR
)

// Exception selects which asynchronous exception to raise.
type Exception int

const (
	Interrupt Exception = iota
	FastInterrupt
)

// Core is the minimal surface system drives. A concrete ARMv4T
// interpreter implements this; system only ever calls through the
// interface.
type Core interface {
	// Step executes exactly one instruction against mem, fetching,
	// decoding and executing it. Any bus fault raised during the step is
	// available afterward through the bus adapter, not through this
	// return.
	Step(mem Bus) error

	// RegGet/RegSet access mode's register file, used for boot-time setup
	// (PC, CPSR, SP, LR) and the debug target's register inspection.
	RegGet(mode Mode, reg Reg) uint32
	RegSet(mode Mode, reg Reg, val uint32)

	// Exception delivers an asynchronous interrupt or fast-interrupt to
	// the core, to be taken before the next Step.
	Exception(kind Exception)
}

// Bus is the infallible memory view a Core steps against; satisfied by
// *adapter.Adapter and *adapter.Sniffer.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16)
	Write32(addr uint32, v uint32)
}
