/*
 * ts7200 - watchpoint sniffer: wraps CPUBus to report matching accesses.
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

package adapter

import D "github.com/rcornwell/ts7200/device"

// Sniffer wraps a CPUBus and records the first access whose address falls
// within an installed watchpoint, for the debug target's step-to-watchpoint
// operation.
type Sniffer struct {
	inner       CPUBus
	watchpoints map[uint32]struct{}
	hit         *D.Access
}

// NewSniffer wraps inner, reporting accesses to any address in watchpoints.
func NewSniffer(inner CPUBus, watchpoints map[uint32]struct{}) *Sniffer {
	return &Sniffer{inner: inner, watchpoints: watchpoints}
}

// Hit returns the access that matched a watchpoint during the last step,
// if any, and clears it.
func (s *Sniffer) Hit() *D.Access {
	h := s.hit
	s.hit = nil
	return h
}

func (s *Sniffer) note(kind D.AccessKind, addr uint32, width int, value uint32) {
	if _, ok := s.watchpoints[addr]; ok && s.hit == nil {
		s.hit = &D.Access{Kind: kind, Offset: addr, Width: width, Value: value}
	}
}

func (s *Sniffer) LastFault() *D.MemException { return s.inner.LastFault() }

func (s *Sniffer) Read8(addr uint32) uint8 {
	v := s.inner.Read8(addr)
	s.note(D.Read, addr, 8, uint32(v))
	return v
}

func (s *Sniffer) Read16(addr uint32) uint16 {
	v := s.inner.Read16(addr)
	s.note(D.Read, addr, 16, uint32(v))
	return v
}

func (s *Sniffer) Read32(addr uint32) uint32 {
	v := s.inner.Read32(addr)
	s.note(D.Read, addr, 32, v)
	return v
}

func (s *Sniffer) Write8(addr uint32, v uint8) {
	s.note(D.Write, addr, 8, uint32(v))
	s.inner.Write8(addr, v)
}

func (s *Sniffer) Write16(addr uint32, v uint16) {
	s.note(D.Write, addr, 16, uint32(v))
	s.inner.Write16(addr, v)
}

func (s *Sniffer) Write32(addr uint32, v uint32) {
	s.note(D.Write, addr, 32, v)
	s.inner.Write32(addr, v)
}
