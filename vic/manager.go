/*
 * ts7200 - VIC manager: owns both banks, daisy-chains VectAddr.
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

package vic

import (
	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/intbus"
)

// bankWindow is the size of the manager's per-bank address window.
const bankWindow = 0x10000

// globalIndex maps an interrupt tag to its (bank, bit) pair. Grounded on
// chanUnit [16]*chanDev's dispatch-by-index idiom, generalized to a fixed
// lookup table instead of a configured roster.
var globalIndex = map[intbus.Tag]struct {
	bank int // 0 or 1
	bit  int
}{
	intbus.Tc1Ui:    {0, 4},
	intbus.Tc2Ui:    {0, 5},
	intbus.Tc3Ui:    {1, 19},
	intbus.Uart1Rx:  {0, 23},
	intbus.Uart2Rx:  {0, 25},
	intbus.Uart3Rx:  {0, 27},
	intbus.Uart1Tx:  {0, 24},
	intbus.Uart2Tx:  {0, 26},
	intbus.Uart3Tx:  {0, 28},
	intbus.IntUart1: {1, 20},
	intbus.IntUart2: {1, 22},
	intbus.IntUart3: {1, 23},
}

// Manager owns the two VIC banks and implements the daisy-chained address
// window.
type Manager struct {
	bank1, bank2 *Bank
}

// NewManager constructs a Manager with two freshly reset banks.
func NewManager() *Manager {
	return &Manager{bank1: NewBank("vic1"), bank2: NewBank("vic2")}
}

func (m *Manager) Kind() string  { return "VICManager" }
func (m *Manager) Label() string { return "" }

// Assert routes tag to the correct bank/bit and sets the hardware status
// bit, per the global-index table.
func (m *Manager) Assert(tag intbus.Tag, asserted bool) {
	idx, ok := globalIndex[tag]
	if !ok {
		return
	}
	bank := m.bank1
	if idx.bank == 1 {
		bank = m.bank2
	}
	if asserted {
		bank.AssertInterrupt(idx.bit)
	} else {
		bank.ClearInterrupt(idx.bit)
	}
}

// IRQ reports whether either bank is asserting IRQ.
func (m *Manager) IRQ() bool { return m.bank1.IRQ() || m.bank2.IRQ() }

// FIQ reports whether either bank is asserting FIQ.
func (m *Manager) FIQ() bool { return m.bank1.FIQ() || m.bank2.FIQ() }

func (m *Manager) which(addr uint32) (*Bank, uint32) {
	if addr < bankWindow {
		return m.bank1, addr
	}
	return m.bank2, addr - bankWindow
}

func (m *Manager) Probe(addr uint32) D.Probe {
	b, off := m.which(addr)
	sub := b.Probe(off)
	return D.Probe{DeviceKind: m.Kind(), Next: &sub}
}

// vectAddrDaisyChain implements the daisy-chain rule for the manager-level
// VectAddr read: bank1's VectAddr if bank1.irq, else bank2's if bank2.irq,
// else bank1's default_isr.
func (m *Manager) vectAddrDaisyChain() uint32 {
	if m.bank1.IRQ() {
		v, _ := m.bank1.R32(offVectAddr)
		return v
	}
	if m.bank2.IRQ() {
		v, _ := m.bank2.R32(offVectAddr)
		return v
	}
	v, _ := m.bank1.R32(offDefVectAddr)
	return v
}

func (m *Manager) R32(addr uint32) (uint32, *D.MemException) {
	if addr == offVectAddr {
		return m.vectAddrDaisyChain(), nil
	}
	b, off := m.which(addr)
	return b.R32(off)
}

func (m *Manager) W32(addr uint32, val uint32) *D.MemException {
	b, off := m.which(addr)
	return b.W32(off, val)
}

func (m *Manager) R8(addr uint32) (uint8, *D.MemException)   { return D.R8Default(m, addr) }
func (m *Manager) R16(addr uint32) (uint16, *D.MemException) { return D.R16Default(m, addr) }
func (m *Manager) W8(addr uint32, v uint8) *D.MemException    { return D.W8Default(m, addr, v) }
func (m *Manager) W16(addr uint32, v uint16) *D.MemException  { return D.W16Default(m, addr, v) }
