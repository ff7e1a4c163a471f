// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state defines the PartialTranslation search-tree node and the
// State wrapper the hypothesis stacks push and pop.
package state

import "fmt"

// MaxContextSize is the greatest language-model context size that can be
// stored in a PackedContext slot: one less than the 4-bit sentinel Unset.
const MaxContextSize = 14

// Unset marks a context-size slot that has not yet been computed by any
// language-model feature.
const Unset = 15

// maxSlot is the highest addressable slot index (slot 0 is the coarse LM
// context size; slots 1..7 are per-BiLM context sizes).
const maxSlot = 7

// PackedContext packs up to 8 four-bit language-model context sizes into a
// single 32-bit word, mirroring the original decoder's ArrayUint4 (used
// there to keep PartialTranslation's memory footprint small across the
// millions of states a beam search allocates). Slot 0 holds the coarse LM
// context size; slots 1..7 hold per-BiLM context sizes.
type PackedContext uint32

// NewPackedContext returns a PackedContext with every slot set to init. Use
// Unset for "all slots uninitialized" and 1 for "all slots provide a single
// token of context" (the empty initial state's default, since <s> or its
// bitoken equivalent is always available as context).
func NewPackedContext(init uint32) PackedContext {
	var pc PackedContext
	for i := 0; i <= maxSlot; i++ {
		pc = pc.set(uint32(i), init)
	}
	return pc
}

// Get returns the context size stored at slot i (0 for the coarse LM size,
// 1..7 for BiLM i).
func (pc PackedContext) Get(i uint32) uint32 {
	return (uint32(pc) >> (4 * i)) & 0xF
}

func (pc PackedContext) set(i, v uint32) PackedContext {
	mask := PackedContext(0xF << (4 * i))
	pc &^= mask
	pc |= PackedContext((v & 0xF) << (4 * i))
	return pc
}

// WithLMContextSize returns a copy of pc with the coarse LM context size
// (slot 0) set to size. It panics if size exceeds MaxContextSize, mirroring
// the original's ETFatal on an unsupported n-gram order.
func (pc PackedContext) WithLMContextSize(size uint32) PackedContext {
	if size > MaxContextSize {
		panic(fmt.Sprintf("lm context size %d exceeds the maximum supported value %d; "+
			"an n-gram LM of this order cannot be used with minimized LM context sizes", size, MaxContextSize))
	}
	return pc.set(0, size)
}

// WithBiLMContextSize returns a copy of pc with BiLM id's context size
// (slot id, 1..7) set to size. It panics under the same condition as
// WithLMContextSize.
func (pc PackedContext) WithBiLMContextSize(id, size uint32) PackedContext {
	if size > MaxContextSize {
		panic(fmt.Sprintf("BiLM %d context size %d exceeds the maximum supported value %d", id, size, MaxContextSize))
	}
	if id == 0 || id > maxSlot {
		panic(fmt.Sprintf("BiLM id %d out of range [1,%d]", id, maxSlot))
	}
	return pc.set(id, size)
}

// LMContextSize returns the coarse LM context size (slot 0).
func (pc PackedContext) LMContextSize() uint32 {
	return pc.Get(0)
}

// LMContextSizeSet reports whether the coarse LM context size has been
// computed.
func (pc PackedContext) LMContextSizeSet() bool {
	return pc.Get(0) != Unset
}

// BiLMContextSize returns the context size recorded for BiLM id (1..7).
func (pc PackedContext) BiLMContextSize(id uint32) uint32 {
	return pc.Get(id)
}
