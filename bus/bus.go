/*
 * ts7200 - Static address-interval bus.
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

// Package bus implements the compile-time fixed interval map from a
// CPU-visible address to a (device, base) pair.
package bus

import (
	"sort"

	D "github.com/rcornwell/ts7200/device"
)

// Range is one entry of the static address map.
type Range struct {
	Lo, Hi uint32 // inclusive byte range
	Dev    D.Device
}

// Bus dispatches memory operations to the device whose range contains the
// address, translating to a device-relative offset.
type Bus struct {
	ranges []Range
}

// New builds a Bus from the given ranges. Ranges must not overlap; they are
// sorted by Lo for binary search.
func New(ranges []Range) *Bus {
	rs := make([]Range, len(ranges))
	copy(rs, ranges)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lo < rs[j].Lo })
	return &Bus{ranges: rs}
}

func (b *Bus) Kind() string  { return "Ts7200" }
func (b *Bus) Label() string { return "" }

// find returns the range containing addr, or nil.
func (b *Bus) find(addr uint32) *Range {
	i := sort.Search(len(b.ranges), func(i int) bool { return b.ranges[i].Hi >= addr })
	if i < len(b.ranges) && b.ranges[i].Lo <= addr {
		return &b.ranges[i]
	}
	return nil
}

func unexpected(access D.AccessKind, addr uint32) *D.MemException {
	return &D.MemException{
		Kind: D.Unexpected, Access: access, HasAccess: true,
		Path: "Ts7200", Offset: addr,
	}
}

func (b *Bus) Probe(addr uint32) D.Probe {
	r := b.find(addr)
	if r == nil {
		return D.UnmappedProbe()
	}
	sub := r.Dev.Probe(addr - r.Lo)
	return D.Probe{DeviceKind: b.Kind(), Next: &sub}
}

// enrich prefixes a fault raised by a bus leaf with the bus's own probe
// context and the absolute (base) offset.
func (b *Bus) enrich(ex *D.MemException, r *Range, addr uint32) *D.MemException {
	if ex == nil {
		return nil
	}
	ex.Path = b.Kind() + " > " + ex.Path
	ex.Offset = addr
	return ex
}

func (b *Bus) R8(addr uint32) (uint8, *D.MemException) {
	r := b.find(addr)
	if r == nil {
		return 0, unexpected(D.Read, addr)
	}
	v, ex := r.Dev.R8(addr - r.Lo)
	return v, b.enrich(ex, r, addr)
}

func (b *Bus) R16(addr uint32) (uint16, *D.MemException) {
	r := b.find(addr)
	if r == nil {
		return 0, unexpected(D.Read, addr)
	}
	v, ex := r.Dev.R16(addr - r.Lo)
	return v, b.enrich(ex, r, addr)
}

func (b *Bus) R32(addr uint32) (uint32, *D.MemException) {
	r := b.find(addr)
	if r == nil {
		return 0, unexpected(D.Read, addr)
	}
	v, ex := r.Dev.R32(addr - r.Lo)
	return v, b.enrich(ex, r, addr)
}

func (b *Bus) W8(addr uint32, val uint8) *D.MemException {
	r := b.find(addr)
	if r == nil {
		return unexpected(D.Write, addr)
	}
	return b.enrich(r.Dev.W8(addr-r.Lo, val), r, addr)
}

func (b *Bus) W16(addr uint32, val uint16) *D.MemException {
	r := b.find(addr)
	if r == nil {
		return unexpected(D.Write, addr)
	}
	return b.enrich(r.Dev.W16(addr-r.Lo, val), r, addr)
}

func (b *Bus) W32(addr uint32, val uint32) *D.MemException {
	r := b.find(addr)
	if r == nil {
		return unexpected(D.Write, addr)
	}
	return b.enrich(r.Dev.W32(addr-r.Lo, val), r, addr)
}
