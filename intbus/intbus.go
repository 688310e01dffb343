/*
 * ts7200 - Interrupt bus: unbounded MPMC channel of (tag, asserted) edges.
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

// Package intbus implements the shared interrupt bus: an
// unbounded multi-producer, single-consumer channel of (interrupt tag,
// asserted) edges. Producers (timers, UART workers) must never block;
// per-source order is preserved even though cross-source order is not
// guaranteed.
package intbus

import "sync"

// Tag enumerates the interrupt sources routed through the bus.
type Tag int

const (
	Tc1Ui Tag = iota
	Tc2Ui
	Tc3Ui
	Uart1Rx
	Uart2Rx
	Uart3Rx
	Uart1Tx
	Uart2Tx
	Uart3Tx
	IntUart1
	IntUart2
	IntUart3
)

func (t Tag) String() string {
	names := [...]string{
		"Tc1Ui", "Tc2Ui", "Tc3Ui",
		"Uart1Rx", "Uart2Rx", "Uart3Rx",
		"Uart1Tx", "Uart2Tx", "Uart3Tx",
		"IntUart1", "IntUart2", "IntUart3",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Tag(?)"
}

// Message is one edge: the source and its new assertion level.
type Message struct {
	Tag      Tag
	Asserted bool
}

// Bus is the shared channel. Producers call Send, which never blocks; the
// single consumer (the system step loop) calls Recv/TryRecv.
type Bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Message
	closed  bool
}

// New constructs an empty Bus.
func New() *Bus {
	b := &Bus{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send enqueues a message without blocking the caller, preserving FIFO
// order relative to every other Send from the same goroutine.
func (b *Bus) Send(tag Tag, asserted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, Message{Tag: tag, Asserted: asserted})
	b.cond.Signal()
}

// TryRecv drains and returns one queued message, or ok=false if the queue
// is empty. Never blocks.
func (b *Bus) TryRecv() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Message{}, false
	}
	m := b.queue[0]
	b.queue = b.queue[1:]
	return m, true
}

// DrainAll non-blockingly removes and returns every currently queued
// message, oldest first.
func (b *Bus) DrainAll() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}

// RecvBlocking waits until at least one message is queued (or the bus is
// closed) and returns it, used by the Halt power-state's blocking drain.
func (b *Bus) RecvBlocking() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.queue) == 0 {
		return Message{}, false
	}
	m := b.queue[0]
	b.queue = b.queue[1:]
	return m, true
}

// Close marks the bus closed, waking any blocked receiver.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
