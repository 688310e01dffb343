/*
 * ts7200 - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/ts7200/ioline"
	logger "github.com/rcornwell/ts7200/util/logger"
)

var Logger *slog.Logger

func main() {
	optGdbPort := getopt.StringLong("gdbport", 0, "", "GDB remote-serial port")
	optUART1 := getopt.StringLong("uart1", 0, "none", "UART1 I/O backend: none|file:<out>[,in=<in>]|stdio|tcp:[host]:<port>")
	optUART2 := getopt.StringLong("uart2", 0, "none", "UART2 I/O backend")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Echo log records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("kernel.elf")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "ts7200: exactly one kernel ELF path is required")
		getopt.Usage()
		os.Exit(1)
	}
	kernelPath := args[0]

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("ts7200 started", "kernel", kernelPath)

	if newCore == nil {
		Logger.Error("no ARM core implementation linked into this build; the core is an external collaborator (see armcore.Core) that must be provided at build time")
		os.Exit(1)
	}

	sys, err := newSystem(kernelPath, Logger)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer sys.Shutdown()

	uart1Handle, err := ioline.Attach(*optUART1, sys.UART1().Inbound(), sys.UART1().Outbound())
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer uart1Handle.Close()

	uart2Handle, err := ioline.Attach(*optUART2, sys.UART2().Inbound(), sys.UART2().Outbound())
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer uart2Handle.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *optGdbPort != "" {
		port, err := strconv.ParseUint(*optGdbPort, 10, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ts7200: invalid --gdbport %q: %v\n", *optGdbPort, err)
			os.Exit(1)
		}
		Logger.Info("GDB remote-serial not yet wired up for this session; running freestanding", "port", port)
	}

	done := make(chan error, 1)
	go func() { done <- runUntilHaltOrSignal(sys, sigChan) }()

	if err := <-done; err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	Logger.Info("ts7200 halted gracefully")
}
