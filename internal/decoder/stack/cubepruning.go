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
	"container/heap"
	"math"
	"sort"

	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// itemHeap is a max-heap over *HyperedgeItem ordered by its resulting
// state's state.WorseScore, the same max-heap-via-inverted-Less idiom
// stateHeap uses.
type itemHeap []*HyperedgeItem

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return !state.WorseScore(h[i].state, h[j].state) }
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(*HyperedgeItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// CubePruningHypStack fills a stack using Huang and Chiang's KBest
// algorithm over a set of Hyperedges instead of exhaustively combining
// every incoming state with every candidate phrase: grounded on
// CubePruningHypStack in cube_pruning_hyp_stack.h/.cc. Its usage shape
// is different from RecombHypStack/HistogramThresholdHypStack — Add
// every incoming Hyperedge, call KBest once to fill the stack, then
// GetAllStates (mid-decode) or Pop/IsEmpty (only for the final,
// whole-sentence-covering stack) to read the results back out — but it
// still satisfies Hyp so the rest of the search can hold it through the
// same interface.
type CubePruningHypStack struct {
	model             *model.Model
	discardRecombined bool

	hyperedges []*Hyperedge
	bestStates map[string][]*state.State

	popStarted  bool
	popPosition int

	numPotentialStates  uint32
	numEvaluatedStates  uint32
	numRecombined       uint32
	numKept             uint32
}

// NewCubePruningHypStack constructs an empty stack scoring and
// recombining with m.
func NewCubePruningHypStack(m *model.Model, discardRecombined bool) *CubePruningHypStack {
	return &CubePruningHypStack{
		model:             m,
		discardRecombined: discardRecombined,
		bestStates:        make(map[string][]*state.State),
	}
}

// Add registers an incoming Hyperedge to be explored by the next KBest
// call. Must be called before KBest, never after.
func (c *CubePruningHypStack) Add(e *Hyperedge) {
	c.hyperedges = append(c.hyperedges, e)
}

// Push appends a state directly, bypassing recombination — used only to
// receive KBest's own already-recombined output, or to seed the very
// first stack with the sentence's initial empty state.
func (c *CubePruningHypStack) Push(s *state.State) {
	key := s.Trans.SourceWordsNotCovered.String()
	c.bestStates[key] = append(c.bestStates[key], s)
}

// KBest runs Huang and Chiang's lazy best-first search over every added
// Hyperedge's matrix, popping at most k cells in best-first order and
// keeping, after recombination, the resulting states whose future score
// is within pruningThreshold (negative, or -Inf for no threshold) of the
// best one seen. Pruned and recombined pops count toward k.
func (c *CubePruningHypStack) KBest(k uint32, pruningThreshold float64) {
	if len(c.hyperedges) == 0 {
		c.numPotentialStates, c.numEvaluatedStates, c.numRecombined, c.numKept = 0, 0, 0, 0
		return
	}

	var cand itemHeap
	for _, e := range c.hyperedges {
		item := newHyperedgeItem(c.model, e, 0, 0, true)
		cand = append(cand, item)
		c.numEvaluatedStates++
		c.numPotentialStates += uint32(len(e.decoderStates)) * uint32(len(e.phrases))
	}
	heap.Init(&cand)

	buffer := NewRecombHypStack(c.model, c.discardRecombined)
	bestScore := cand[0].state.FutureScore

	var popCount uint32
	for len(cand) > 0 && popCount < k {
		item := heap.Pop(&cand).(*HyperedgeItem)
		popCount++

		if item.state.FutureScore >= bestScore+pruningThreshold {
			if item.state.FutureScore > bestScore {
				bestScore = item.state.FutureScore
			}
			buffer.Push(item.state)
		} else if item.state.FutureScore != math.Inf(-1) {
			// Pruned, and not a filter-feature -Inf score: its neighbours
			// are no more promising than it is, so don't explore them.
			continue
		}
		// A -Inf score means a filter feature vetoed this exact phrase
		// pair, not this whole region of the matrix — its neighbours still
		// get a chance.

		for _, succ := range item.successors(c.model) {
			heap.Push(&cand, succ)
			c.numEvaluatedStates++
		}
	}

	for _, s := range buffer.GetAllStates() {
		c.Push(s)
	}
	c.numRecombined = buffer.NumRecombined()
	c.numKept = buffer.Size()
}

func (c *CubePruningHypStack) beginPop() {
	for key, states := range c.bestStates {
		sorted := append([]*state.State(nil), states...)
		sort.Slice(sorted, func(i, j int) bool { return !state.WorseScore(sorted[i], sorted[j]) })
		c.bestStates[key] = sorted
	}
	c.popStarted = true
}

// Pop removes and returns the next-best state. Valid only once this
// stack's states all cover the full source sentence (the final stack),
// matching the original's precondition.
func (c *CubePruningHypStack) Pop() *state.State {
	if !c.popStarted {
		c.beginPop()
	}
	for _, states := range c.bestStates {
		s := states[c.popPosition]
		c.popPosition++
		return s
	}
	panic("stack: Pop called on an empty CubePruningHypStack")
}

// IsEmpty reports whether Pop has exhausted the (single, full-coverage)
// bucket of states this stack holds.
func (c *CubePruningHypStack) IsEmpty() bool {
	if !c.popStarted {
		c.beginPop()
	}
	for _, states := range c.bestStates {
		return c.popPosition >= len(states)
	}
	return true
}

// GetAllStates returns the K-best states KBest kept, grouped by
// coverage — the form the search needs for building the next round of
// Hyperedges.
func (c *CubePruningHypStack) GetAllStates() map[string][]*state.State {
	return c.bestStates
}

func (c *CubePruningHypStack) Size() uint32 { return c.numKept }

func (c *CubePruningHypStack) NumHyperedges() uint32       { return uint32(len(c.hyperedges)) }
func (c *CubePruningHypStack) NumPotentialStates() uint32  { return c.numPotentialStates }
func (c *CubePruningHypStack) NumEvaluatedStates() uint32  { return c.numEvaluatedStates }
func (c *CubePruningHypStack) NumRecombined() uint32       { return c.numRecombined }

func (c *CubePruningHypStack) NumPruned() uint32            { return 0 }
func (c *CubePruningHypStack) NumPrunedAtPush() uint32      { return 0 }
func (c *CubePruningHypStack) NumPrunedAtPop() uint32       { return 0 }
func (c *CubePruningHypStack) NumRecombKept() uint32        { return 0 }
func (c *CubePruningHypStack) NumUnrecombined() uint32      { return 0 }
func (c *CubePruningHypStack) NumRecombPrunedAtPop() uint32 { return 0 }
func (c *CubePruningHypStack) NumCovPruned() uint32         { return 0 }
func (c *CubePruningHypStack) NumRecombCovPruned() uint32   { return 0 }
