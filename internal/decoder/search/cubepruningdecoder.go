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
	"sort"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/stack"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// precomputeScoredPhrases pre-sorts every candidate phrase for every
// source range in table by its weighted PrecomputeFutureScore,
// descending, matching runCubePruningDecoder's one-time scored_phrases
// triangular array. Cube pruning's hyperedges need this ordering to
// explore each matrix from its best corner outward instead of
// evaluating every (state, phrase) cell.
func precomputeScoredPhrases(m *model.Model, table *phrase.Table) map[coverage.Range][]stack.ScoredPhrase {
	n := table.SentenceLength()
	out := make(map[coverage.Range][]stack.ScoredPhrase)
	for i := 0; i < n; i++ {
		for length := 1; i+length <= n; length++ {
			candidates := table.Candidates(i, length)
			if len(candidates) == 0 {
				continue
			}
			scored := make([]stack.ScoredPhrase, len(candidates))
			for j, c := range candidates {
				scored[j] = stack.ScoredPhrase{
					PartialScore: m.PrecomputeFutureScore(c),
					Phrase:       c,
				}
			}
			sort.SliceStable(scored, func(a, b int) bool {
				return scored[a].PartialScore > scored[b].PartialScore
			})
			out[coverage.NewRange(uint32(i), uint32(i+length))] = scored
		}
	}
	return out
}

// makeHyperedges builds every compatible Hyperedge out of the states on
// source stacks[s], adding each onto the stack matching its resulting
// coverage count. Grounded on the static MakeHyperedges in
// cube_pruning_decoder.cc.
func makeHyperedges(
	arena *state.Arena,
	m *model.Model,
	finder phrasefinder.Finder,
	scoredPhrases map[coverage.Range][]stack.ScoredPhrase,
	stacks []*stack.CubePruningHypStack,
	s int,
	opts Options,
) {
	for _, states := range stacks[s].GetAllStates() {
		if len(states) == 0 {
			continue
		}
		cov := states[0].Trans.SourceWordsNotCovered

		for _, r := range cov.SubRanges() {
			phrases := scoredPhrases[r]
			if len(phrases) == 0 {
				continue
			}

			outCov := cov.Sub(r)

			var scoredStates []stack.ScoredState
			var futureScore float64
			futureScoreKnown := false

			for _, st := range states {
				synthetic := &state.PartialTranslation{
					LastPhrase:            st.Trans.LastPhrase,
					SourceWordsNotCovered: cov,
				}
				if !finder.RespectsDistortionLimit(synthetic, r) {
					continue
				}

				candidate := state.Extend(st.Trans, phrases[0].Phrase, outCov, nil)
				if !futureScoreKnown {
					futureScore = m.ComputeFutureScore(candidate)
					futureScoreKnown = true
				}
				partial := st.Score + m.ScoreTranslation(candidate) + futureScore
				scoredStates = append(scoredStates, stack.ScoredState{PartialScore: partial, State: st})
			}
			if len(scoredStates) == 0 {
				continue
			}

			sort.SliceStable(scoredStates, func(i, j int) bool {
				return scoredStates[i].PartialScore > scoredStates[j].PartialScore
			})

			edge := stack.NewHyperedge(arena, cov, scoredStates, r, phrases, opts.ExtendShiftReduce)
			nextStack := s + int(r.Len())
			stacks[nextStack].Add(edge)
		}
	}
}

// RunCubePruningDecoder translates one source sentence of sourceLength
// words using Huang and Chiang's cube pruning algorithm in place of the
// stack decoder's exhaustive per-state extension: every stack is filled
// by building hyperedges out of the previous stack's states and running
// stack.CubePruningHypStack.KBest over them. Grounded on
// runCubePruningDecoder in cube_pruning_decoder.cc.
func RunCubePruningDecoder(
	m *model.Model,
	finder phrasefinder.Finder,
	table *phrase.Table,
	sourceLength uint32,
	opts Options,
) *stack.CubePruningHypStack {
	scoredPhrases := precomputeScoredPhrases(m, table)
	threshold := logThreshold(opts.PruneThreshold)
	discard := opts.discardRecombined()

	stacks := make([]*stack.CubePruningHypStack, sourceLength+1)
	for i := range stacks {
		stacks[i] = stack.NewCubePruningHypStack(m, discard)
	}

	arena := state.NewArena()
	stacks[0].Push(arena.MakeEmptyState(sourceLength, opts.UsingLev, opts.NewShiftReduce))

	for s := 1; s <= int(sourceLength); s++ {
		makeHyperedges(arena, m, finder, scoredPhrases, stacks, s-1, opts)
		stacks[s].KBest(opts.MaxRegularStackSize, threshold)
	}

	return stacks[sourceLength]
}
