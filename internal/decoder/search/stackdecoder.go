// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/stack"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// RunStackDecoder translates one source sentence of sourceLength words
// by exhaustively extending every state popped off each
// stack.HistogramThresholdHypStack with every phrase finder.FindPhrases
// returns for it, pushing the resulting states onto the stack matching
// their new coverage count. It returns the final (sourceLength-covering)
// stack, from which the caller pops the best (or, for lattice/n-best
// output, every) complete translation. Grounded on the two-argument
// runStackDecoder overload in decoder.cc, with the stack-construction
// logic of its CanoeConfig-aware wrapper folded in.
func RunStackDecoder(
	ctx *decodectx.Context,
	m *model.Model,
	finder phrasefinder.Finder,
	sourceLength uint32,
	opts Options,
) *stack.HistogramThresholdHypStack {
	discard := opts.discardRecombined()
	threshold := logThreshold(opts.PruneThreshold)
	covThreshold := logThreshold(opts.CovThreshold)
	finalSize := opts.finalStackSize()

	stacks := make([]*stack.HistogramThresholdHypStack, sourceLength+1)
	for i := range stacks {
		size := opts.MaxRegularStackSize
		if uint32(i) == sourceLength {
			size = finalSize
		}
		stacks[i] = stack.NewHistogramThresholdHypStack(
			m, size, threshold, opts.CovLimit, covThreshold,
			opts.Diversity, opts.DiversityStackIncrement, discard,
		)
	}

	arena := state.NewArena()
	stacks[0].Push(arena.MakeEmptyState(sourceLength, opts.UsingLev, opts.NewShiftReduce))

	for i := uint32(0); i < sourceLength; i++ {
		for !stacks[i].IsEmpty() {
			s := stacks[i].Pop()

			for _, ph := range finder.FindPhrases(ctx, s.Trans) {
				ns := arena.Extend(s, ph, nil, opts.ExtendShiftReduce)
				ns.Score = s.Score + m.ScoreTranslation(ns.Trans)
				ns.FutureScore = ns.Score + m.ComputeFutureScore(ns.Trans)
				stacks[ns.Trans.NumSourceWordsCovered].Push(ns)
			}
		}
	}

	return stacks[sourceLength]
}
