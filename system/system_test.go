/*
 * ts7200 - top-level system: address map, HLE boot, step loop.
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

import (
	"log/slog"
	"testing"

	"github.com/rcornwell/ts7200/adapter"
	"github.com/rcornwell/ts7200/armcore"
	"github.com/rcornwell/ts7200/intbus"
	"github.com/rcornwell/ts7200/memory"
	"github.com/rcornwell/ts7200/syscon"
	"github.com/rcornwell/ts7200/timer"
	"github.com/rcornwell/ts7200/uart"
	"github.com/rcornwell/ts7200/vic"
)

// fakeCore is the minimal ARM core test double system's own tests drive
// instead of a real interpreter (armcore.Core is an external collaborator;
// see armcore.go). It fetches one 32-bit word at PC and decodes it against a
// tiny private opcode set: a NOP, a branch-to-Supervisor-LR, and single
// two-word load/store-R0 instructions. PC is not banked per mode, matching
// real ARM.
type fakeCore struct {
	regs [7][17]uint32
}

const (
	opNop     uint32 = 0x0000_0000
	opRetLR   uint32 = 0x0000_0001
	opStoreR0 uint32 = 0x0000_0002 // operand word at pc+4 is the target address
	opLoadR0  uint32 = 0x0000_0003 // operand word at pc+4 is the source address
)

func (c *fakeCore) RegGet(mode armcore.Mode, reg armcore.Reg) uint32 {
	if reg == armcore.PC {
		return c.regs[armcore.User][armcore.PC]
	}
	return c.regs[mode][reg]
}

func (c *fakeCore) RegSet(mode armcore.Mode, reg armcore.Reg, val uint32) {
	if reg == armcore.PC {
		c.regs[armcore.User][armcore.PC] = val
		return
	}
	c.regs[mode][reg] = val
}

func (c *fakeCore) Exception(kind armcore.Exception) {}

func (c *fakeCore) Step(mem armcore.Bus) error {
	pc := c.regs[armcore.User][armcore.PC]
	switch mem.Read32(pc) {
	case opRetLR:
		c.regs[armcore.User][armcore.PC] = c.regs[armcore.Supervisor][armcore.LR]
	case opStoreR0:
		addr := mem.Read32(pc + 4)
		mem.Write32(addr, c.regs[armcore.User][armcore.R0])
		c.regs[armcore.User][armcore.PC] = pc + 8
	case opLoadR0:
		addr := mem.Read32(pc + 4)
		c.regs[armcore.User][armcore.R0] = mem.Read32(addr)
		c.regs[armcore.User][armcore.PC] = pc + 8
	default: // opNop and anything unrecognized
		c.regs[armcore.User][armcore.PC] = pc + 4
	}
	return nil
}

// newTestSystem builds a System the way NewHLE does, skipping the ELF load
// so tests can seed SDRAM and registers directly.
func newTestSystem(t *testing.T, cpu armcore.Core) *System {
	t.Helper()

	s := &System{
		hle:         true,
		cpu:         cpu,
		sdram:       memory.New(sdramSize, "sdram"),
		syscon:      syscon.New("syscon"),
		vicmgr:      vic.NewManager(),
		intBus:      intbus.New(),
		watchpoints: make(map[uint32]struct{}),
		breakpoints: make(map[uint32]struct{}),
		logger:      slog.Default(),
	}
	s.timer1 = timer.New("timer1", intbus.Tc1Ui, s.intBus, 0xFFFF)
	s.timer2 = timer.New("timer2", intbus.Tc2Ui, s.intBus, 0xFFFF)
	s.timer3 = timer.New("timer3", intbus.Tc3Ui, s.intBus, 0xFFFFFFFF)
	s.uart1 = uart.New("uart1", intbus.Uart1Rx, intbus.Uart1Tx, intbus.IntUart1, s.intBus)
	s.uart2 = uart.New("uart2", intbus.Uart2Rx, intbus.Uart2Tx, intbus.IntUart2, s.intBus)

	s.bus = s.buildBus()
	s.mem = adapter.New(s.bus)
	s.sniffer = adapter.NewSniffer(s.mem, s.watchpoints)

	t.Cleanup(s.Shutdown)
	return s
}

func TestStepHLEExitHalts(t *testing.T) {
	cpu := &fakeCore{}
	cpu.regs[armcore.Supervisor][armcore.LR] = hleBootloaderLR
	cpu.regs[armcore.User][armcore.PC] = 0x1000

	sys := newTestSystem(t, cpu)
	if err := sys.sdram.W32(0x1000, opRetLR); err != nil {
		t.Fatalf("seeding code word: %v", err)
	}

	res, err := sys.Step(false)
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if res.Event != EventHalted {
		t.Fatalf("Event = %v, want EventHalted", res.Event)
	}
}

func TestRunReturnsOnHLEExit(t *testing.T) {
	cpu := &fakeCore{}
	cpu.regs[armcore.Supervisor][armcore.LR] = hleBootloaderLR
	cpu.regs[armcore.User][armcore.PC] = 0x2000

	sys := newTestSystem(t, cpu)
	if err := sys.sdram.W32(0x2000, opRetLR); err != nil {
		t.Fatalf("seeding code word: %v", err)
	}

	if err := sys.Run(); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

func TestWatchpointWriteStopsAndStillStores(t *testing.T) {
	const codeAddr = 0x3000
	const watchAddr = 0x4000
	const storeVal = 0xCAFEBABE

	cpu := &fakeCore{}
	cpu.regs[armcore.User][armcore.PC] = codeAddr
	cpu.regs[armcore.User][armcore.R0] = storeVal

	sys := newTestSystem(t, cpu)
	if err := sys.sdram.W32(codeAddr, opStoreR0); err != nil {
		t.Fatalf("seeding opcode word: %v", err)
	}
	if err := sys.sdram.W32(codeAddr+4, watchAddr); err != nil {
		t.Fatalf("seeding operand word: %v", err)
	}
	sys.watchpoints[watchAddr] = struct{}{}

	res, err := sys.Step(false)
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if res.Event != EventWatchWrite {
		t.Fatalf("Event = %v, want EventWatchWrite", res.Event)
	}
	if res.Addr != watchAddr {
		t.Fatalf("Addr = %#x, want %#x", res.Addr, watchAddr)
	}

	got, ex := sys.sdram.R32(watchAddr)
	if ex != nil {
		t.Fatalf("reading back stored value: %v", ex)
	}
	if got != storeVal {
		t.Fatalf("stored value = %#x, want %#x", got, storeVal)
	}
}

func TestHaltStateWakesOnPendingInterrupt(t *testing.T) {
	const (
		sysSWLockOff = 0x00C0
		deviceCfgOff = 0x0080
		haltOff      = 0x0008
		intEnableOff = 0x0010 // bank1 IntEnable, within the VIC's daisy-chained window
	)

	cpu := &fakeCore{}
	sys := newTestSystem(t, cpu)

	// Enable Tc1Ui (bank1, bit 4) as an IRQ source.
	if ex := sys.vicmgr.W32(intEnableOff, 1<<4); ex != nil {
		t.Fatalf("enabling Tc1Ui: %v", ex)
	}

	// Unlock syscon, set the device-config bit that makes the Halt
	// register readable, then read it to enter Halt.
	if ex := sys.syscon.W32(sysSWLockOff, 0xAA); ex != nil {
		t.Fatalf("unlocking syscon: %v", ex)
	}
	if ex := sys.syscon.W32(deviceCfgOff, 0x0894_0d01); ex != nil {
		t.Fatalf("setting device config: %v", ex)
	}
	if _, ex := sys.syscon.R32(haltOff); ex != nil {
		t.Fatalf("reading Halt register: %v", ex)
	}
	if sys.syscon.Power() != syscon.Halt {
		t.Fatalf("Power() = %v, want Halt", sys.syscon.Power())
	}

	if _, err := sys.Step(false); err != nil {
		t.Fatalf("Step in Halt with no pending interrupt: %v", err)
	}
	if sys.syscon.Power() != syscon.Halt {
		t.Fatalf("Power() = %v, want still Halt with nothing pending", sys.syscon.Power())
	}

	sys.intBus.Send(intbus.Tc1Ui, true)
	if _, err := sys.Step(false); err != nil {
		t.Fatalf("Step in Halt with a pending interrupt: %v", err)
	}
	if sys.syscon.Power() != syscon.Run {
		t.Fatalf("Power() = %v, want Run after the pending interrupt woke the board", sys.syscon.Power())
	}
}
