// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lattice

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/stack"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// ExtractNBest pops up to n complete translations off the final,
// whole-sentence-covering stack produced by search.Decode, best first.
// Building the n-best list this way rather than walking the overlay
// mirrors the decoder's own use of its final stack as the n-best source:
// when search.Options.NBestOut (or Masse, or LatticeOut) keeps recombined
// alternatives around, popping the stack repeatedly already yields them in
// best-first order, the same order Overlay.Build's finalStates argument
// expects.
func ExtractNBest(final stack.Hyp, n int) []*state.State {
	var out []*state.State
	for i := 0; i < n && !final.IsEmpty(); i++ {
		out = append(out, final.Pop())
	}
	return out
}
