/*
 * ts7200 - system bootstrap and run loop for the CLI entry point.
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
	"log/slog"
	"os"

	"github.com/rcornwell/ts7200/armcore"
	"github.com/rcornwell/ts7200/system"
)

// newCore constructs the ARM core this build links in. The ARM
// instruction interpreter is an external collaborator this repository
// only ever talks to through armcore.Core; a real implementation wires
// itself in here, typically from an init() in a separate build-tagged
// file. Left nil, the CLI refuses to run rather than silently stepping a
// no-op core.
var newCore func() armcore.Core

func newSystem(kernelPath string, logger *slog.Logger) (*system.System, error) {
	cpu := newCore()
	return system.NewHLE(cpu, system.Config{
		KernelPath: kernelPath,
		Logger:     logger,
	})
}

func runUntilHaltOrSignal(sys *system.System, sigChan <-chan os.Signal) error {
	for {
		select {
		case <-sigChan:
			return nil
		default:
		}

		res, err := sys.Step(true)
		if err != nil {
			return err
		}
		if res.Event == system.EventHalted {
			return nil
		}
	}
}
