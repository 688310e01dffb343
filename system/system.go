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

// Package system wires every peripheral onto the bus at its TS-7200
// address, boots a kernel ELF via High Level Emulation of the bootloader,
// and drives the ARM core one instruction at a time. Grounded on
// emu/core.Start's run loop (running flag, channel-drained interrupts),
// adapted from an always-running background goroutine to a synchronous
// Step() API driven by main or a GDB stub.
package system

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/ts7200/adapter"
	"github.com/rcornwell/ts7200/armcore"
	"github.com/rcornwell/ts7200/bus"
	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/elfload"
	"github.com/rcornwell/ts7200/intbus"
	"github.com/rcornwell/ts7200/memory"
	"github.com/rcornwell/ts7200/syscon"
	"github.com/rcornwell/ts7200/timer"
	"github.com/rcornwell/ts7200/uart"
	"github.com/rcornwell/ts7200/vic"
)

// Values grafted from real hardware boot traces; used to seed the
// bootloader's register state and to detect a graceful HLE exit.
const (
	hleBootloaderSP uint32 = 0x01fd_cf34
	hleBootloaderLR uint32 = 0x0001_74c8
	hleBootloaderCPSR uint32 = 0xd3 // supervisor mode, IRQ/FIQ masked
	ivtStubInsn uint32 = 0xe59f_f018 // ldr pc, [pc, #0x18]: loads from slot+0x20
)

const sdramSize uint32 = 32 * 1024 * 1024

// Event is returned by Step when something other than plain progress
// occurred.
type Event int

const (
	EventNone Event = iota
	EventHalted
	EventBreak
	EventWatchRead
	EventWatchWrite
)

// StepResult reports what happened during one Step call.
type StepResult struct {
	Event Event
	Addr  uint32 // valid for EventWatchRead/EventWatchWrite
}

// FatalError is returned by Step when a fault or contract violation is
// severe enough that emulation cannot continue meaningfully.
type FatalError struct {
	PC      uint32
	Path    string
	Reason  *D.MemException
	Message string
}

func (e *FatalError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("fatal fault at pc %#x [%s]: %v", e.PC, e.Path, e.Reason)
	}
	return fmt.Sprintf("fatal error at pc %#x [%s]: %s", e.PC, e.Path, e.Message)
}

// System is one TS-7200 board: its devices, bus, interrupt fabric, and the
// ARM core stepping through it.
type System struct {
	hle     bool
	frozen  bool
	cpu     armcore.Core
	sdram   *memory.RAM
	syscon  *syscon.Syscon
	timer1  *timer.Timer
	timer2  *timer.Timer
	timer3  *timer.Timer
	uart1   *uart.UART
	uart2   *uart.UART
	uart3   *uart.UART // optional, installed only when requested
	vicmgr  *vic.Manager
	intBus  *intbus.Bus
	bus     *bus.Bus
	mem     *adapter.Adapter
	sniffer *adapter.Sniffer

	watchpoints map[uint32]struct{}
	breakpoints map[uint32]struct{}

	logger *slog.Logger
}

// Config selects which optional peripherals a board is constructed with.
type Config struct {
	KernelPath  string
	EnableUART3 bool
	Logger      *slog.Logger
}

// NewHLE constructs a System with every peripheral in its out-of-reset
// state, loads the kernel ELF at cfg.KernelPath into SDRAM, and seeds CPU
// registers exactly as a real bootloader hand-off would.
func NewHLE(cpu armcore.Core, cfg Config) (*System, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kernel, err := elfload.Load(cfg.KernelPath)
	if err != nil {
		return nil, err
	}

	s := &System{
		hle:         true,
		cpu:         cpu,
		sdram:       memory.New(sdramSize, "sdram"),
		syscon:      syscon.New("syscon"),
		vicmgr:      vic.NewManager(),
		intBus:      intbus.New(),
		watchpoints: make(map[uint32]struct{}),
		breakpoints: make(map[uint32]struct{}),
		logger:      logger,
	}

	s.timer1 = timer.New("timer1", intbus.Tc1Ui, s.intBus, 0xFFFF)
	s.timer2 = timer.New("timer2", intbus.Tc2Ui, s.intBus, 0xFFFF)
	s.timer3 = timer.New("timer3", intbus.Tc3Ui, s.intBus, 0xFFFFFFFF)
	s.uart1 = uart.New("uart1", intbus.Uart1Rx, intbus.Uart1Tx, intbus.IntUart1, s.intBus)
	s.uart2 = uart.New("uart2", intbus.Uart2Rx, intbus.Uart2Tx, intbus.IntUart2, s.intBus)
	if cfg.EnableUART3 {
		s.uart3 = uart.New("uart3", intbus.Uart3Rx, intbus.Uart3Tx, intbus.IntUart3, s.intBus)
	}

	s.bus = s.buildBus()
	s.mem = adapter.New(s.bus)
	s.sniffer = adapter.NewSniffer(s.mem, s.watchpoints)

	for _, sec := range kernel.Sections() {
		if sec.Alloc {
			s.sdram.BulkWrite(sec.VAddr, sec.Data)
		}
	}

	// Redboot pre-populates the first 8 IVT slots with "ldr pc, [pc, #0x18]"
	// stubs (pc reads 8 ahead, so each loads from its own slot+0x20), so a handler is installed just by writing a function pointer
	// at IVT+0x20 (e.g. the SWI vector at 0x08 dispatches through 0x28).
	for addr := uint32(0); addr < 0x20; addr += 4 {
		_ = s.sdram.W32(addr, ivtStubInsn)
	}

	s.logger.Debug("HLE boot", "entry", fmt.Sprintf("%#x", kernel.Entry()))
	cpu.RegSet(armcore.User, armcore.PC, kernel.Entry())
	cpu.RegSet(armcore.User, armcore.CPSR, hleBootloaderCPSR)
	cpu.RegSet(armcore.Supervisor, armcore.LR, hleBootloaderLR)
	cpu.RegSet(armcore.Supervisor, armcore.SP, hleBootloaderSP)

	return s, nil
}

// buildBus maps every peripheral at its fixed TS-7200 address.
func (s *System) buildBus() *bus.Bus {
	ranges := []bus.Range{
		{Lo: 0x0000_0000, Hi: 0x01ff_ffff, Dev: s.sdram},
		{Lo: 0x800b_0000, Hi: 0x800c_ffff, Dev: s.vicmgr},
		{Lo: 0x8081_0000, Hi: 0x8081_001f, Dev: s.timer1},
		{Lo: 0x8081_0020, Hi: 0x8081_003f, Dev: s.timer2},
		{Lo: 0x8081_0080, Hi: 0x8081_009f, Dev: s.timer3},
		{Lo: 0x808c_0000, Hi: 0x808c_ffff, Dev: s.uart1},
		{Lo: 0x808d_0000, Hi: 0x808d_ffff, Dev: s.uart2},
		{Lo: 0x8093_0000, Hi: 0x8093_ffff, Dev: s.syscon},
	}
	if s.uart3 != nil {
		ranges = append(ranges, bus.Range{Lo: 0x808e_0000, Hi: 0x808e_ffff, Dev: s.uart3})
	}
	return bus.New(ranges)
}

// Shutdown stops every peripheral's background goroutines.
func (s *System) Shutdown() {
	s.timer1.Shutdown()
	s.timer2.Shutdown()
	s.timer3.Shutdown()
	s.uart1.Shutdown()
	s.uart2.Shutdown()
	if s.uart3 != nil {
		s.uart3.Shutdown()
	}
}

// UART1/UART2/UART3 expose the installed UART devices for wiring to an
// ioline backend; UART3 is nil unless enabled.
func (s *System) UART1() *uart.UART { return s.uart1 }
func (s *System) UART2() *uart.UART { return s.uart2 }
func (s *System) UART3() *uart.UART { return s.uart3 }

// Freeze makes Step a no-op, for a post-mortem debug session after a fatal
// error. There is no way to thaw a frozen system.
func (s *System) Freeze() { s.frozen = true }

func (s *System) drainInterrupts(blocking bool) {
	var msgs []intbus.Message
	if blocking {
		if m, ok := s.intBus.RecvBlocking(); ok {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, s.intBus.DrainAll()...)

	for _, m := range msgs {
		s.vicmgr.Assert(m.Tag, m.Asserted)
	}
	if s.vicmgr.FIQ() {
		s.cpu.Exception(armcore.FastInterrupt)
	}
	if s.vicmgr.IRQ() {
		s.cpu.Exception(armcore.Interrupt)
	}
}

// handleFault interprets a *device.MemException: Fatal kinds become a Go
// error, everything else is logged and swallowed.
func (s *System) handleFault(pc uint32, path string, ex *D.MemException) error {
	if ex == nil {
		return nil
	}
	if ex.Fatal() {
		return &FatalError{PC: pc, Path: path, Reason: ex}
	}
	s.logger.Warn("swallowed memory exception", "pc", fmt.Sprintf("%#x", pc), "path", path, "kind", ex.Kind.String(), "msg", ex.Msg)
	return nil
}

// Step runs the system for a single CPU instruction (in PowerState Run) or
// processes one round of pending interrupts (Halt).
// blocking controls whether a Halt-state interrupt wait blocks.
func (s *System) Step(blocking bool) (StepResult, error) {
	if s.frozen {
		return StepResult{}, nil
	}

	switch s.syscon.Power() {
	case syscon.Run:
		return s.stepRun()
	case syscon.Halt:
		s.drainInterrupts(blocking)
		if s.vicmgr.FIQ() || s.vicmgr.IRQ() {
			s.syscon.ForceRun()
		}
		return StepResult{}, nil
	default: // Standby
		return StepResult{}, &FatalError{Message: "Standby power state is not implemented"}
	}
}

func (s *System) stepRun() (StepResult, error) {
	if err := s.cpu.Step(s.sniffer); err != nil {
		return StepResult{}, err
	}
	if ex := s.sniffer.LastFault(); ex != nil {
		pc := s.cpu.RegGet(armcore.User, armcore.PC)
		if err := s.handleFault(pc, ex.Path, ex); err != nil {
			return StepResult{}, err
		}
	}
	s.drainInterrupts(false)

	pc := s.cpu.RegGet(armcore.User, armcore.PC)
	if s.hle && pc == hleBootloaderLR {
		s.logger.Info("returned to bootloader", "retval", s.cpu.RegGet(armcore.User, armcore.R0))
		return StepResult{Event: EventHalted}, nil
	}

	if hit := s.sniffer.Hit(); hit != nil {
		if hit.Kind == D.Read {
			return StepResult{Event: EventWatchRead, Addr: hit.Offset}, nil
		}
		return StepResult{Event: EventWatchWrite, Addr: hit.Offset}, nil
	}

	if _, ok := s.breakpoints[pc]; ok {
		return StepResult{Event: EventBreak}, nil
	}
	return StepResult{}, nil
}

// Run steps the system until a graceful HLE exit or an error.
func (s *System) Run() error {
	for {
		res, err := s.Step(true)
		if err != nil {
			return err
		}
		if res.Event == EventHalted {
			return nil
		}
	}
}
