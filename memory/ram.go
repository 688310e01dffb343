/*
 * ts7200 - SDRAM backing store.
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

// Package memory implements the fixed-size SDRAM backing store with
// per-byte initialization tracking.
package memory

import (
	"strings"

	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/util/hex"
)

// fillByte is the conspicuous non-zero byte new RAM is filled with, to aid
// post-mortem inspection.
const fillByte = '-'

// RAM is a byte buffer of fixed size plus a parallel bitmap of initialized
// bytes.
type RAM struct {
	data []byte
	init []byte // one bit per byte of data
	size uint32
	label string
}

// New allocates a RAM of size bytes, filled with fillByte and marked
// entirely uninitialized.
func New(size uint32, label string) *RAM {
	r := &RAM{
		data:  make([]byte, size),
		init:  make([]byte, (size+7)/8),
		size:  size,
		label: label,
	}
	for i := range r.data {
		r.data[i] = fillByte
	}
	return r
}

func (r *RAM) Kind() string  { return "RAM" }
func (r *RAM) Label() string { return r.label }

func (r *RAM) Probe(offset uint32) D.Probe {
	if offset >= r.size {
		return D.UnmappedProbe()
	}
	return D.RegisterProbe("byte")
}

func (r *RAM) bitSet(i uint32) bool {
	return r.init[i/8]&(1<<(i%8)) != 0
}

func (r *RAM) setBit(i uint32) {
	r.init[i/8] |= 1 << (i % 8)
}

// bulkRead returns the n raw bytes at offset regardless of init state, and
// whether every one of them was initialized.
func (r *RAM) bulkRead(offset uint32, n uint32) ([]byte, bool) {
	out := make([]byte, n)
	ok := true
	for i := uint32(0); i < n; i++ {
		o := offset + i
		if o >= r.size || !r.bitSet(o) {
			ok = false
		}
		if o < r.size {
			out[i] = r.data[o]
		}
	}
	return out, ok
}

// dumpHex renders n bytes starting at offset, with "??" for any byte whose
// init bit is 0, matching ContractViolation message shape.
func (r *RAM) dumpHex(offset uint32, n uint32) string {
	var b strings.Builder
	for i := uint32(0); i < n; i++ {
		o := offset + i
		if o >= r.size || !r.bitSet(o) {
			b.WriteString("?? ")
			continue
		}
		hex.FormatByte(&b, r.data[o])
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func (r *RAM) readN(offset uint32, n uint32) (uint32, *D.MemException) {
	if offset+n > r.size {
		return 0, &D.MemException{
			Kind: D.Unexpected, Access: D.Read, HasAccess: true,
			Path: r.Label(), Offset: offset,
		}
	}
	raw, ok := r.bulkRead(offset, n)
	var v uint32
	for i := uint32(0); i < n; i++ {
		v |= uint32(raw[i]) << (8 * i)
	}
	if !ok {
		return 0, &D.MemException{
			Kind: D.ContractViolation, Access: D.Read, HasAccess: true,
			Path: r.Label(), Offset: offset,
			Msg:      "read of uninitialized RAM: " + r.dumpHex(offset, n),
			StubVal:  v,
			Severity: D.SeverityWarn,
		}
	}
	return v, nil
}

func (r *RAM) writeN(offset uint32, n uint32, val uint32) *D.MemException {
	if offset+n > r.size {
		return &D.MemException{
			Kind: D.Unexpected, Access: D.Write, HasAccess: true,
			Path: r.Label(), Offset: offset,
		}
	}
	for i := uint32(0); i < n; i++ {
		r.data[offset+i] = byte(val >> (8 * i))
		r.setBit(offset + i)
	}
	return nil
}

func (r *RAM) R8(offset uint32) (uint8, *D.MemException) {
	v, ex := r.readN(offset, 1)
	if ex != nil {
		return uint8(ex.StubVal), ex
	}
	return uint8(v), nil
}

func (r *RAM) R16(offset uint32) (uint16, *D.MemException) {
	v, ex := r.readN(offset, 2)
	if ex != nil {
		return uint16(ex.StubVal), ex
	}
	return uint16(v), nil
}

func (r *RAM) R32(offset uint32) (uint32, *D.MemException) {
	v, ex := r.readN(offset, 4)
	if ex != nil {
		return ex.StubVal, ex
	}
	return v, nil
}

func (r *RAM) W8(offset uint32, val uint8) *D.MemException {
	return r.writeN(offset, 1, uint32(val))
}

func (r *RAM) W16(offset uint32, val uint16) *D.MemException {
	return r.writeN(offset, 2, uint32(val))
}

func (r *RAM) W32(offset uint32, val uint32) *D.MemException {
	return r.writeN(offset, 4, val)
}

// BulkWrite sets bytes and their init bits in one shot, used by the ELF
// loader to populate sections.
func (r *RAM) BulkWrite(offset uint32, data []byte) {
	for i, b := range data {
		o := offset + uint32(i)
		if o >= r.size {
			break
		}
		r.data[o] = b
		r.setBit(o)
	}
}

// Size returns the RAM's fixed byte size.
func (r *RAM) Size() uint32 { return r.size }
