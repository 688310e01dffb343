/*
 * ts7200 - CPU-bus adapter: infallible wrapper around the fallible Memory trait.
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

// Package adapter bridges the fallible device.Memory trait the bus exposes
// to the infallible access an ARM core expects: every
// operation always returns a value (StubVal substituted on failure), with
// the triggering *device.MemException, if any, stashed out-of-band for the
// caller to inspect and act on after the step completes.
package adapter

import (
	D "github.com/rcornwell/ts7200/device"
)

// CPUBus is the infallible view of the bus an ARM core steps against.
type CPUBus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16)
	Write32(addr uint32, v uint32)

	// LastFault returns the most recent fault raised since the previous
	// call, if any, and clears it.
	LastFault() *D.MemException
}

// Adapter wraps a device.Memory (ordinarily the bus) and implements CPUBus.
type Adapter struct {
	mem   D.Memory
	fault *D.MemException
}

// New wraps mem for infallible CPU-facing access.
func New(mem D.Memory) *Adapter {
	return &Adapter{mem: mem}
}

func (a *Adapter) LastFault() *D.MemException {
	f := a.fault
	a.fault = nil
	return f
}

// record stashes ex (if non-nil) as the pending fault: the adapter never
// propagates a fault to the caller as an error return, only ever makes it
// inspectable afterward via LastFault.
func (a *Adapter) record(ex *D.MemException) {
	if ex != nil {
		a.fault = ex
	}
}

// Read8/16/32 always return a value: every device.Memory implementation
// returns its best-effort substitute alongside a non-nil exception (RAM's
// ContractViolation carries the raw stub byte, a Fatal exception carries
// whatever zero value its register would read as), so the adapter need
// only forward it and stash the fault out-of-band.

func (a *Adapter) Read8(addr uint32) uint8 {
	v, ex := a.mem.R8(addr)
	a.record(ex)
	return v
}

func (a *Adapter) Read16(addr uint32) uint16 {
	v, ex := a.mem.R16(addr)
	a.record(ex)
	return v
}

func (a *Adapter) Read32(addr uint32) uint32 {
	v, ex := a.mem.R32(addr)
	a.record(ex)
	return v
}

func (a *Adapter) Write8(addr uint32, v uint8) {
	a.record(a.mem.W8(addr, v))
}

func (a *Adapter) Write16(addr uint32, v uint16) {
	a.record(a.mem.W16(addr, v))
}

func (a *Adapter) Write32(addr uint32, v uint32) {
	a.record(a.mem.W32(addr, v))
}
