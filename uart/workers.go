/*
 * ts7200 - UART worker threads: bit-time simulated input and output.
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

package uart

import "time"

// outputWorker drains bytes the device queued for transmission, sleeping
// the derived bittime*wordLen per byte to simulate real transmission
// latency, then marks the fifo slot free and forwards the byte outward.
// Grounded on emu/model1052's busy-flag request/release pattern, moved off
// the event scheduler and onto a dedicated goroutine.
func (u *UART) outputWorker() {
	defer u.wg.Done()
	for {
		select {
		case <-u.exitWorkers:
			return
		case b := <-u.deviceOutput:
			u.mu.Lock()
			d, _ := u.st.bittimeWordLen()
			if !u.st.busy {
				u.st.busy = true
				u.st.ctsChange = true
				u.updateInterrupts()
			}
			u.mu.Unlock()

			delay := d * time.Duration(wordBits(u))
			select {
			case <-time.After(delay):
			case <-u.exitWorkers:
				return
			}

			u.mu.Lock()
			if u.st.txBufSize > 0 {
				u.st.txBufSize--
			}
			if u.st.txBufSize == 0 {
				u.st.busy = false
				u.st.ctsChange = true
			}
			u.updateInterrupts()
			u.mu.Unlock()

			select {
			case u.outbound <- b:
			case <-u.exitWorkers:
				return
			}
		}
	}
}

// wordBits returns the current committed word length in bits, under lock.
func wordBits(u *UART) int {
	u.mu.Lock()
	_, wl := u.st.bittimeWordLen()
	u.mu.Unlock()
	return wl
}

// inputWorker accepts bytes from the external world, sleeps the derived
// bittime*wordLen per byte to simulate reception latency, appends each to
// the rx fifo (dropping with an overrun flag when full), and updates the
// edge-triggered interrupts.
func (u *UART) inputWorker() {
	defer u.wg.Done()
	for {
		select {
		case <-u.exitWorkers:
			return
		case b := <-u.inbound:
			u.mu.Lock()
			d, wl := u.st.bittimeWordLen()
			u.mu.Unlock()
			select {
			case <-time.After(d * time.Duration(wl)):
			case <-u.exitWorkers:
				return
			}

			u.mu.Lock()
			fifoSize := u.st.fifoSize()
			if len(u.st.rxFifo) >= fifoSize {
				u.st.overrun = true
			} else {
				u.st.rxFifo = append(u.st.rxFifo, b)
				u.st.timeout = true
			}
			u.updateInterrupts()
			u.mu.Unlock()
		}
	}
}

// Shutdown stops both worker goroutines.
func (u *UART) Shutdown() {
	close(u.exitWorkers)
	u.wg.Wait()
}
