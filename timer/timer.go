/*
 * ts7200 - EP93xx timer: lazy-tick decrementer + interrupter thread.
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

// Package timer implements the EP93xx 16/32-bit timer: a lazy
// decrementer queried synchronously by the CPU, and a dedicated
// interrupter goroutine that asserts the timer's interrupt on a real
// wall-clock schedule, grounded on emu/timer's ticker+channel goroutine
// shape (generalized from a fixed period to a dynamic reschedule-on-write
// model).
package timer

import (
	"sync"
	"time"

	D "github.com/rcornwell/ts7200/device"
	"github.com/rcornwell/ts7200/intbus"
)

// Clock selects the timer's input clock rate.
type Clock int

const (
	Clock2kHz Clock = 2
	Clock508kHz Clock = 508
)

// Mode selects free-running or periodic decrement behavior.
type Mode int

const (
	FreeRunning Mode = iota
	Periodic
)

const (
	offLoad    uint32 = 0x00
	offValue   uint32 = 0x04
	offControl uint32 = 0x08
	offClear   uint32 = 0x0C
)

// ctrlMode/clksel bit layout.
const (
	ctrlClkSelBit = 3
	ctrlModeBit   = 6
	ctrlEnableBit = 7
)

// command is sent to the interrupter goroutine.
type command struct {
	enable bool
	next   time.Time
	period time.Duration
}

// Timer is one EP93xx timer channel.
type Timer struct {
	mu       sync.Mutex
	label    string
	tag      intbus.Tag
	bus      *intbus.Bus
	wrapMask uint32 // 0xFFFF for 16-bit timers, 0xFFFFFFFF for 32-bit

	loadval    uint32
	loadValSet bool
	val        uint32
	enabled    bool
	mode       Mode
	clock      Clock
	lastTime   time.Time
	microticks int64 // carry, 0 <= microticks < 1_000_000

	cmd  chan command
	done chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Timer with the given wrap mask (0xFFFF or 0xFFFFFFFF),
// wired to tag on bus, and starts its interrupter goroutine.
func New(label string, tag intbus.Tag, bus *intbus.Bus, wrapMask uint32) *Timer {
	t := &Timer{
		label:    label,
		tag:      tag,
		bus:      bus,
		wrapMask: wrapMask,
		lastTime: time.Now(),
		cmd:      make(chan command, 4),
		done:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.interrupterLoop()
	return t
}

// Shutdown stops the interrupter goroutine.
func (t *Timer) Shutdown() {
	close(t.done)
	t.wg.Wait()
}

func (t *Timer) Kind() string  { return "Timer" }
func (t *Timer) Label() string { return t.label }

func (t *Timer) path(reg string) string {
	return t.Kind() + ":" + t.label + " > " + reg
}

// interrupterLoop is the dedicated per-timer thread: maintains
// (next, period), performs a timed receive on cmd with timeout
// max(next-now, 0) when next is set, else blocks indefinitely. On timeout
// it asserts the interrupt and advances next by period.
func (t *Timer) interrupterLoop() {
	defer t.wg.Done()
	var next time.Time
	var period time.Duration
	haveNext := false

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if haveNext {
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
		}

		select {
		case <-t.done:
			return
		case c := <-t.cmd:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if c.enable {
				next = c.next
				period = c.period
				haveNext = true
			} else {
				haveNext = false
			}
		case <-func() <-chan time.Time {
			if haveNext {
				return timer.C
			}
			return nil
		}():
			t.bus.Send(t.tag, true)
			next = next.Add(period)
		}
	}
}

// updateRegs is the lazy-decrement step run before every register access,
//.
func (t *Timer) updateRegs() {
	now := time.Now()
	dt := now.Sub(t.lastTime).Nanoseconds()
	t.lastTime = now
	if !t.enabled {
		return
	}
	micro := dt*int64(t.clock) + t.microticks
	ticks := uint32(micro / 1_000_000)
	t.microticks = micro % 1_000_000

	switch t.mode {
	case FreeRunning:
		t.val = (t.val - ticks) & t.wrapMask
	case Periodic:
		l := t.loadval
		switch {
		case l == 0:
			t.val = 0
		case t.val < ticks:
			t.val = l - ((ticks - t.val) % l)
		default:
			t.val -= ticks
		}
	}
}

func (t *Timer) Probe(offset uint32) D.Probe {
	switch offset {
	case offLoad:
		return D.RegisterProbe("Load")
	case offValue:
		return D.RegisterProbe("Value")
	case offControl:
		return D.RegisterProbe("Control")
	case offClear:
		return D.RegisterProbe("Clear")
	default:
		return D.UnmappedProbe()
	}
}

func (t *Timer) R32(offset uint32) (uint32, *D.MemException) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateRegs()

	switch offset {
	case offLoad:
		if !t.loadValSet {
			return 0, &D.MemException{
				Kind: D.ContractViolation, Access: D.Read, HasAccess: true,
				Path: t.path("Load"), Offset: offset,
				Msg: "Load read before any write", Severity: D.SeverityError,
			}
		}
		return t.loadval, nil
	case offValue:
		return t.val, nil
	case offControl:
		return t.controlBits(), nil
	case offClear:
		return 0, &D.MemException{Kind: D.InvalidAccess, Access: D.Read, HasAccess: true, Path: t.path("Clear"), Offset: offset}
	default:
		return 0, &D.MemException{Kind: D.Unexpected, Access: D.Read, HasAccess: true, Path: t.path("?"), Offset: offset}
	}
}

func (t *Timer) controlBits() uint32 {
	var clksel, mode, enabled uint32
	if t.clock == Clock508kHz {
		clksel = 1
	}
	if t.mode == Periodic {
		mode = 1
	}
	if t.enabled {
		enabled = 1
	}
	return (clksel << ctrlClkSelBit) | (mode << ctrlModeBit) | (enabled << ctrlEnableBit)
}

func (t *Timer) W32(offset uint32, val uint32) *D.MemException {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateRegs()

	switch offset {
	case offLoad:
		if t.enabled {
			return &D.MemException{
				Kind: D.ContractViolation, Access: D.Write, HasAccess: true,
				Path: t.path("Load"), Offset: offset,
				Msg: "Load write while enabled", Severity: D.SeverityError,
			}
		}
		t.loadval = val & t.wrapMask
		t.loadValSet = true
		t.val = t.loadval
		return nil
	case offValue:
		return &D.MemException{Kind: D.InvalidAccess, Access: D.Write, HasAccess: true, Path: t.path("Value"), Offset: offset}
	case offControl:
		return t.writeControl(val)
	case offClear:
		t.bus.Send(t.tag, false)
		return nil
	default:
		return &D.MemException{Kind: D.Unexpected, Access: D.Write, HasAccess: true, Path: t.path("?"), Offset: offset}
	}
}

func (t *Timer) writeControl(val uint32) *D.MemException {
	wasEnabled := t.enabled
	clksel := (val >> ctrlClkSelBit) & 1
	mode := (val >> ctrlModeBit) & 1
	enabled := (val >> ctrlEnableBit) & 1 != 0

	newClock := Clock2kHz
	if clksel == 1 {
		newClock = Clock508kHz
	}
	newMode := FreeRunning
	if mode == 1 {
		newMode = Periodic
	}

	if enabled && newMode == Periodic && !t.loadValSet {
		return &D.MemException{
			Kind: D.ContractViolation, Access: D.Write, HasAccess: true,
			Path: t.path("Control"), Offset: offControl,
			Msg: "enabling Periodic mode without a prior Load write", Severity: D.SeverityError,
		}
	}

	t.clock = newClock
	t.mode = newMode
	t.enabled = enabled

	switch {
	case !wasEnabled && enabled && newMode == Periodic:
		periodNs := time.Duration(uint64(t.loadval) * 1_000_000 / uint64(newClock))
		t.cmd <- command{enable: true, next: time.Now().Add(periodNs), period: periodNs}
	case wasEnabled && !enabled:
		t.cmd <- command{enable: false}
		t.loadValSet = false
		t.loadval = 0
	}
	return nil
}

func (t *Timer) R8(offset uint32) (uint8, *D.MemException)   { return D.R8Default(t, offset) }
func (t *Timer) R16(offset uint32) (uint16, *D.MemException) { return D.R16Default(t, offset) }
func (t *Timer) W8(offset uint32, v uint8) *D.MemException    { return D.W8Default(t, offset, v) }
func (t *Timer) W16(offset uint32, v uint16) *D.MemException  { return D.W16Default(t, offset, v) }
