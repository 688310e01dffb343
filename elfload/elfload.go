/*
 * ts7200 - kernel ELF loader.
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

// Package elfload loads a 32-bit ARM kernel ELF into the guest's SDRAM,
// wrapping the standard library's debug/elf (no third-party ELF reader
// appears anywhere in the retrieved corpus, so this is the one ambient
// concern grounded directly on stdlib rather than an example).
package elfload

import (
	"debug/elf"
	"fmt"
)

// Section is one loadable program segment, flattened from the ELF's
// program headers.
type Section struct {
	VAddr  uint32
	Data   []byte
	Alloc  bool // PT_LOAD carrying file bytes (Filesz > 0); Data holds them
	NoBits bool // Memsz > Filesz: a .bss-like tail with no file bytes
}

// Kernel is a parsed kernel image ready to be copied into SDRAM.
type Kernel struct {
	entry    uint32
	sections []Section
}

// Load parses the ELF file at path.
func Load(path string) (*Kernel, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfload: open %s: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("elfload: %s is not a 32-bit ARM ELF", path)
	}

	k := &Kernel{entry: uint32(f.Entry)}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		sec := Section{VAddr: uint32(prog.Vaddr)}
		if prog.Filesz > 0 {
			data := make([]byte, prog.Filesz)
			if _, err := prog.ReadAt(data, 0); err != nil {
				return nil, fmt.Errorf("elfload: read segment at %#x: %w", prog.Vaddr, err)
			}
			sec.Data = data
			sec.Alloc = true
		}
		if prog.Memsz > prog.Filesz {
			sec.NoBits = true
		}
		k.sections = append(k.sections, sec)
	}
	return k, nil
}

// Entry returns the ELF's entry point address.
func (k *Kernel) Entry() uint32 { return k.entry }

// Sections returns every loadable program segment, in file order.
func (k *Kernel) Sections() []Section { return k.sections }
