/*
 * ts7200 - EP93xx UART: line control, fifos, register file.
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

// Package uart implements the EP93xx UART: line-control/baud
// model, fifos, and the rx/tx worker threads that simulate bit-time
// transmission. Grounded on emu/model1052's console device (busy/request
// state machine) and emu/timer's goroutine+channel idiom, generalized
// from scheduled event callbacks to two always-running worker goroutines
// moving bytes at a simulated bit rate.
package uart

import (
	"log/slog"
	"sync"
	"time"

	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/intbus"
)

// UARTCLK is inherited from the CS452 reference board.
const uartClkHz = 7_372_800

const (
	offData          uint32 = 0x00
	offRXSts         uint32 = 0x04
	offLinCtrlHigh   uint32 = 0x08
	offLinCtrlMid    uint32 = 0x0C
	offLinCtrlLow    uint32 = 0x10
	offCtrl          uint32 = 0x14
	offFlag          uint32 = 0x18
	offIntIDIntClr   uint32 = 0x1C
)

const (
	flagTXFE uint32 = 1 << 7
	flagRXFF uint32 = 1 << 6
	flagTXFF uint32 = 1 << 5
	flagRXFE uint32 = 1 << 4
	flagBUSY uint32 = 1 << 3
	flagCTS  uint32 = 1 << 0
)

const (
	intIDTimeout  uint8 = 1 << 3
	intIDTxHalf   uint8 = 1 << 2
	intIDRxHalf   uint8 = 1 << 1
	intIDCtsChg   uint8 = 1 << 0
)

// LogicalInterrupt enumerates the three edge-triggered interrupt lines a
// UART derives from its interrupt-identification byte.
type LogicalInterrupt int

const (
	IntTX LogicalInterrupt = iota
	IntRX
	IntCombined
	numLogicalInterrupts
)

// state is the shared register file guarded by mu, touched by the device
// itself and by both worker goroutines.
type state struct {
	linctrl       [3]uint32
	stageMid      uint32
	stageLow      uint32
	latched       bool
	ctrl          uint32
	overrun       bool
	busy          bool
	timeout       bool
	ctsChange     bool
	rxFifo        []byte
	txBufSize     int
	latchedAssert [numLogicalInterrupts]bool
}

// UART is one EP93xx UART device.
type UART struct {
	mu    sync.Mutex
	st    state
	label string

	rxTag, txTag, combinedTag intbus.Tag
	bus                       *intbus.Bus
	logger                    *slog.Logger

	deviceOutput chan byte      // device -> output worker
	inbound      chan byte      // external world -> input worker
	outbound     chan byte      // output worker -> external world

	exitWorkers chan struct{}
	wg          sync.WaitGroup

	writerTask func()
	readerTask func()
}

// New constructs a UART wired to the given interrupt tags and interrupt
// bus, and starts its two internal worker threads.
func New(label string, rxTag, txTag, combinedTag intbus.Tag, bus *intbus.Bus) *UART {
	u := &UART{
		label:        label,
		rxTag:        rxTag,
		txTag:        txTag,
		combinedTag:  combinedTag,
		bus:          bus,
		logger:       slog.Default(),
		deviceOutput: make(chan byte, 16),
		inbound:      make(chan byte, 16),
		outbound:     make(chan byte, 16),
		exitWorkers:  make(chan struct{}),
	}
	u.wg.Add(2)
	go u.inputWorker()
	go u.outputWorker()
	return u
}

func (u *UART) Kind() string  { return "UART" }
func (u *UART) Label() string { return u.label }

func (u *UART) path(reg string) string {
	return u.Kind() + ":" + u.label + " > " + reg
}

// Inbound returns the channel a user I/O task sends received bytes on.
func (u *UART) Inbound() chan<- byte { return u.inbound }

// Outbound returns the channel a user I/O task receives transmitted bytes from.
func (u *UART) Outbound() <-chan byte { return u.outbound }

// InstallTasks installs a reader/writer task pair built from this UART's
// inbound sender and outbound receiver. Returns the
// previously installed pair, if any.
func (u *UART) InstallTasks(build func(in chan<- byte, out <-chan byte) (reader, writer func())) (prevReader, prevWriter func()) {
	u.mu.Lock()
	prevReader, prevWriter = u.readerTask, u.writerTask
	reader, writer := build(u.inbound, u.outbound)
	u.readerTask = reader
	u.writerTask = writer
	u.mu.Unlock()
	return prevReader, prevWriter
}

// bittimeWordLen derives baud, bittime and word_len from the committed
// linctrl.
func (s *state) bittimeWordLen() (time.Duration, int) {
	bauddiv := (uint64(s.linctrl[1]&0xff) << 32) | uint64(s.linctrl[2])
	baud := uint64(uartClkHz) / 16 / (bauddiv + 1)
	if baud == 0 {
		baud = 1
	}
	bittime := time.Second / time.Duration(baud)

	wordLen := 1 + 8
	if s.linctrl[0]&(1<<3) != 0 {
		wordLen += 2
	} else {
		wordLen += 1
	}
	if s.linctrl[0]&(1<<1) != 0 {
		wordLen++
	}
	return bittime, wordLen
}

func (s *state) fifoSize() int {
	if s.linctrl[0]&(1<<4) != 0 {
		return 16
	}
	return 1
}

// computeIntID recomputes the interrupt-identification byte.
func (s *state) computeIntID() uint8 {
	fifoSize := s.fifoSize()
	var id uint8
	if s.timeout {
		id |= intIDTimeout
	}
	if s.txBufSize*2 <= fifoSize {
		id |= intIDTxHalf
	}
	if len(s.rxFifo)*2 >= fifoSize {
		id |= intIDRxHalf
	}
	if s.ctsChange {
		id |= intIDCtsChg
	}
	return id & uint8(s.ctrl>>3)
}

// updateInterrupts recomputes the three logical interrupt assertions and
// emits an edge on the bus for each one whose computed state differs from
// its latch. Caller must hold u.mu.
func (u *UART) updateInterrupts() {
	id := u.st.computeIntID()
	assertions := [numLogicalInterrupts]bool{
		IntTX:       id&intIDTxHalf != 0,
		IntRX:       id&intIDRxHalf != 0,
		IntCombined: id != 0,
	}
	tags := [numLogicalInterrupts]intbus.Tag{u.txTag, u.rxTag, u.combinedTag}
	for i := range assertions {
		if assertions[i] != u.st.latchedAssert[i] {
			u.st.latchedAssert[i] = assertions[i]
			u.bus.Send(tags[i], assertions[i])
		}
	}
}

func (u *UART) Probe(offset uint32) D.Probe {
	switch offset {
	case offData:
		return D.RegisterProbe("Data")
	case offRXSts:
		return D.RegisterProbe("RXSts")
	case offLinCtrlHigh:
		return D.RegisterProbe("LinCtrlHigh")
	case offLinCtrlMid:
		return D.RegisterProbe("LinCtrlMid")
	case offLinCtrlLow:
		return D.RegisterProbe("LinCtrlLow")
	case offCtrl:
		return D.RegisterProbe("Ctrl")
	case offFlag:
		return D.RegisterProbe("Flag")
	case offIntIDIntClr:
		return D.RegisterProbe("IntIDIntClr")
	default:
		return D.UnmappedProbe()
	}
}

func contractWarn(access D.AccessKind, path string, offset uint32, msg string) *D.MemException {
	return &D.MemException{
		Kind: D.ContractViolation, Access: access, HasAccess: true, Path: path, Offset: offset,
		Msg: msg, Severity: D.SeverityWarn,
	}
}

func (u *UART) R32(offset uint32) (uint32, *D.MemException) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch offset {
	case offData:
		var v byte
		if len(u.st.rxFifo) > 0 {
			v = u.st.rxFifo[0]
			u.st.rxFifo = u.st.rxFifo[1:]
			if len(u.st.rxFifo) == 0 {
				u.st.timeout = false
			}
		}
		u.updateInterrupts()
		return uint32(v), nil
	case offRXSts:
		var v uint32
		if u.st.overrun {
			v |= 1 << 3
		}
		return v, nil
	case offLinCtrlHigh:
		return u.st.linctrl[0], nil
	case offLinCtrlMid:
		if u.st.latched {
			return u.st.linctrl[1], contractWarn(D.Read, u.path("LinCtrlMid"), offset, "reading stale LinCtrlMid while latched")
		}
		return u.st.linctrl[1], nil
	case offLinCtrlLow:
		if u.st.latched {
			return u.st.linctrl[2], contractWarn(D.Read, u.path("LinCtrlLow"), offset, "reading stale LinCtrlLow while latched")
		}
		return u.st.linctrl[2], nil
	case offCtrl:
		return u.st.ctrl, nil
	case offFlag:
		return u.computeFlag(), nil
	case offIntIDIntClr:
		return uint32(u.st.computeIntID()), nil
	default:
		return 0, &D.MemException{Kind: D.Unexpected, Access: D.Read, HasAccess: true, Path: u.path("?"), Offset: offset}
	}
}

func (u *UART) computeFlag() uint32 {
	fifoSize := u.st.fifoSize()
	var v uint32
	if u.st.txBufSize == 0 {
		v |= flagTXFE
	}
	if len(u.st.rxFifo) >= fifoSize {
		v |= flagRXFF
	}
	if u.st.txBufSize >= fifoSize {
		v |= flagTXFF
	}
	if len(u.st.rxFifo) == 0 {
		v |= flagRXFE
	}
	if u.st.busy {
		v |= flagBUSY
	}
	if !u.st.busy {
		v |= flagCTS
	}
	return v
}

func (u *UART) W32(offset uint32, val uint32) *D.MemException {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch offset {
	case offData:
		fifoSize := u.st.fifoSize()
		if u.st.txBufSize < fifoSize {
			u.st.txBufSize++
			u.deviceOutput <- byte(val)
		} else {
			u.logger.Warn("uart tx fifo full, dropping byte", "path", u.path("Data"))
		}
		return nil
	case offRXSts:
		u.st.overrun = false
		return nil
	case offLinCtrlHigh:
		u.st.linctrl[0] = val
		u.st.linctrl[1] = u.st.stageMid
		u.st.linctrl[2] = u.st.stageLow
		u.st.latched = false
		return nil
	case offLinCtrlMid:
		u.st.stageMid = val
		u.st.latched = true
		return nil
	case offLinCtrlLow:
		u.st.stageLow = val
		u.st.latched = true
		return nil
	case offCtrl:
		u.st.ctrl = val
		u.updateInterrupts()
		return nil
	case offFlag:
		return &D.MemException{Kind: D.InvalidAccess, Access: D.Write, HasAccess: true, Path: u.path("Flag"), Offset: offset}
	case offIntIDIntClr:
		u.st.ctsChange = false
		u.updateInterrupts()
		return nil
	default:
		return &D.MemException{Kind: D.Unexpected, Access: D.Write, HasAccess: true, Path: u.path("?"), Offset: offset}
	}
}

func (u *UART) R8(offset uint32) (uint8, *D.MemException)   { return D.R8Default(u, offset) }
func (u *UART) R16(offset uint32) (uint16, *D.MemException) { return D.R16Default(u, offset) }
func (u *UART) W8(offset uint32, v uint8) *D.MemException    { return D.W8Default(u, offset, v) }
func (u *UART) W16(offset uint32, v uint16) *D.MemException  { return D.W16Default(u, offset, v) }
