// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stack

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// ScoredState pairs a state with the partial heuristic score the search
// already knows for it, before any phrase from a Hyperedge has been
// appended.
type ScoredState struct {
	PartialScore float64
	State        *state.State
}

// ScoredPhrase pairs a translation candidate with its own partial
// heuristic score.
type ScoredPhrase struct {
	PartialScore float64
	Phrase       *phrase.Info
}

// Hyperedge represents one cell-matrix of cube-pruning candidates: every
// combination of an incoming state (all sharing the same coverage) with a
// candidate phrase (all covering the same source range) that could
// extend it. DecoderStates and Phrases must each already be sorted in
// descending order of PartialScore by the caller — the same precondition
// the original's Hyperedge constructor documents and relies on, since
// cube pruning's whole point is exploring this matrix from its best
// corner outward instead of evaluating every cell.
type Hyperedge struct {
	arena *state.Arena

	decoderStates []ScoredState
	srcRange      coverage.Range
	phrases       []ScoredPhrase

	outNotCovered coverage.Set
	explored      [][]bool

	newShiftReduce func(src coverage.Range, prevSR any) any
}

// NewHyperedge constructs a Hyperedge combining decoderStates (all with
// incoming coverage inNotCovered) against phrases (all covering
// srcRange), using arena to allocate the states cube pruning actually
// materializes.
func NewHyperedge(
	arena *state.Arena,
	inNotCovered coverage.Set,
	decoderStates []ScoredState,
	srcRange coverage.Range,
	phrases []ScoredPhrase,
	newShiftReduce func(src coverage.Range, prevSR any) any,
) *Hyperedge {
	explored := make([][]bool, len(decoderStates))
	for i := range explored {
		explored[i] = make([]bool, len(phrases))
	}
	return &Hyperedge{
		arena:          arena,
		decoderStates:  decoderStates,
		srcRange:       srcRange,
		phrases:        phrases,
		outNotCovered:  inNotCovered.Sub(srcRange),
		explored:       explored,
		newShiftReduce: newShiftReduce,
	}
}

// HyperedgeItem is one fully or partially evaluated cell of a Hyperedge's
// matrix: a specific (state, phrase) pair, its combined heuristic score,
// and — once created — the fully scored state that results from
// appending the phrase to the state.
type HyperedgeItem struct {
	edge        *Hyperedge
	state       *state.State
	stateIndex  int
	phraseIndex int

	heuristicScore float64
}

// newHyperedgeItem marks (stateIndex, phraseIndex) explored on e and
// returns the item for that cell, creating its fully scored state only
// if createState is true.
func newHyperedgeItem(m *model.Model, e *Hyperedge, stateIndex, phraseIndex int, createState bool) *HyperedgeItem {
	e.explored[stateIndex][phraseIndex] = true
	item := &HyperedgeItem{
		edge:        e,
		stateIndex:  stateIndex,
		phraseIndex: phraseIndex,
		heuristicScore: e.decoderStates[stateIndex].PartialScore +
			e.phrases[phraseIndex].PartialScore,
	}
	if createState {
		item.createState(m)
	}
	return item
}

// createState materializes this item's resulting state and fully scores
// it — extending a state doesn't score it on its own, so this is the one
// place cube pruning actually calls the model.
func (item *HyperedgeItem) createState(m *model.Model) {
	e := item.edge
	prev := e.decoderStates[item.stateIndex].State
	ph := e.phrases[item.phraseIndex].Phrase

	ns := e.arena.Extend(prev, ph, e.outNotCovered, e.newShiftReduce)
	ns.Score = prev.Score + m.ScoreTranslation(ns.Trans)
	ns.FutureScore = ns.Score + m.ComputeFutureScore(ns.Trans)
	item.state = ns
}

// successors returns the up-to-two unexplored cells adjacent to this one
// (one state further, one phrase further), each fully scored.
func (item *HyperedgeItem) successors(m *model.Model) []*HyperedgeItem {
	e := item.edge
	var out []*HyperedgeItem

	if item.stateIndex+1 < len(e.decoderStates) && !e.explored[item.stateIndex+1][item.phraseIndex] {
		out = append(out, newHyperedgeItem(m, e, item.stateIndex+1, item.phraseIndex, true))
	}
	if item.phraseIndex+1 < len(e.phrases) && !e.explored[item.stateIndex][item.phraseIndex+1] {
		out = append(out, newHyperedgeItem(m, e, item.stateIndex, item.phraseIndex+1, true))
	}
	return out
}
