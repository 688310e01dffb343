/*
 * ts7200 - UART I/O backends: none, file, stdio, tcp.
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

// Package ioline wires a UART's inbound/outbound byte channels to the
// outside world's backend grammar: none, file:<out>[,in=<in>],
// stdio, tcp:[host]:<port>. The tcp backend's accept-loop is grounded on
// telnet.Server (minus telnet option negotiation, since a UART wants a raw
// byte pipe); the stdio backend is grounded on golang.org/x/term raw-mode
// usage.
package ioline

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Handle represents one running I/O backend, stoppable via Close.
type Handle struct {
	closeFns []func()
	closed   bool
}

// Close tears down every resource the backend opened. Calls after the
// first do nothing.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	for _, f := range h.closeFns {
		f()
	}
}

// Attach parses a backend spec's grammar and wires it to
// in (device inbound channel) / out (device outbound channel).
func Attach(spec string, in chan<- byte, out <-chan byte) (*Handle, error) {
	switch {
	case spec == "" || spec == "none":
		return attachNone(out), nil
	case spec == "stdio":
		return attachStdio(in, out)
	case strings.HasPrefix(spec, "file:"):
		return attachFile(spec[len("file:"):], in, out)
	case strings.HasPrefix(spec, "tcp:"):
		return attachTCP(spec[len("tcp:"):], in, out)
	default:
		return nil, fmt.Errorf("ioline: unrecognized backend spec %q", spec)
	}
}

// attachNone discards everything transmitted and never produces input.
func attachNone(out <-chan byte) *Handle {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-out:
			}
		}
	}()
	return &Handle{closeFns: []func(){func() { close(done) }}}
}

// attachFile implements file:<out>[,in=<in>]: out is created if missing
// (existing contents are kept) and appended to as bytes are transmitted; in, if given, is read once at
// startup and streamed in as received bytes.
func attachFile(rest string, in chan<- byte, out <-chan byte) (*Handle, error) {
	outPath := rest
	inPath := ""
	if idx := strings.Index(rest, ",in="); idx >= 0 {
		outPath = rest[:idx]
		inPath = rest[idx+len(",in="):]
	}

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ioline: open out file: %w", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case b := <-out:
				_, _ = outFile.Write([]byte{b})
			}
		}
	}()

	if inPath != "" {
		inFile, err := os.Open(inPath)
		if err != nil {
			return nil, fmt.Errorf("ioline: open in file: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer inFile.Close()
			r := bufio.NewReader(inFile)
			for {
				b, err := r.ReadByte()
				if err != nil {
					return
				}
				select {
				case in <- b:
				case <-done:
					return
				}
			}
		}()
	}

	return &Handle{closeFns: []func(){
		func() { close(done); wg.Wait(); outFile.Close() },
	}}, nil
}

// attachStdio puts the controlling terminal into raw mode and pipes stdin
// to in / out to stdout, grounded on golang.org/x/term's raw-mode dance.
func attachStdio(in chan<- byte, out <-chan byte) (*Handle, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("ioline: stdio raw mode: %w", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case in <- buf[0]:
			case <-done:
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case b := <-out:
				_, _ = os.Stdout.Write([]byte{b})
			}
		}
	}()

	return &Handle{closeFns: []func(){
		func() {
			close(done)
			_ = term.Restore(fd, oldState)
		},
	}}, nil
}

// attachTCP listens on address and pipes every accepted connection's
// bytes to/from the UART, each on its own goroutine. Grounded on telnet.Server's
// accept-loop/shutdown-channel shape, with telnet option negotiation
// stripped since a UART-over-TCP pipe wants raw bytes.
func attachTCP(address string, in chan<- byte, out <-chan byte) (*Handle, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("ioline: listen on %s: %w", address, err)
	}

	shutdown := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-shutdown:
					return
				default:
					slog.Warn("ioline: tcp accept failed", "address", address, "error", err)
					continue
				}
			}
			go serveTCPConn(conn, shutdown, in, out)
		}
	}()

	return &Handle{closeFns: []func(){
		func() { close(shutdown); ln.Close(); wg.Wait() },
	}}, nil
}

func serveTCPConn(conn net.Conn, shutdown <-chan struct{}, in chan<- byte, out <-chan byte) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			for i := 0; i < n; i++ {
				select {
				case in <- buf[i]:
				case <-shutdown:
					return
				}
			}
		}
	}()

	for {
		select {
		case <-shutdown:
			return
		case <-done:
			return
		case b, ok := <-out:
			if !ok {
				return
			}
			if _, err := conn.Write([]byte{b}); err != nil {
				return
			}
		}
	}
}
