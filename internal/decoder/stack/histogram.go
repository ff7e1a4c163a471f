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

	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// covEntry tracks, for one coverage set, the best future score seen among
// states popped with that coverage and how many states with that coverage
// have been popped so far.
type covEntry struct {
	bestScore float64
	count     uint32
}

// stateHeap is a max-heap over *state.State ordered by state.WorseScore,
// so Pop always returns the best remaining state — container/heap is a
// min-heap by Less, so Less here is the inverse of WorseScore.
type stateHeap []*state.State

func (h stateHeap) Len() int            { return len(h) }
func (h stateHeap) Less(i, j int) bool  { return !state.WorseScore(h[i], h[j]) }
func (h stateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x any)         { *h = append(*h, x.(*state.State)) }
func (h *stateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// HistogramThresholdHypStack layers four pruning criteria on top of
// RecombHypStack's recombination: a histogram cap on the total number of
// states kept (PruneSize), a relative threshold below the best future
// score seen so far (RelativeThreshold), a per-coverage cap and relative
// threshold (CovLimit/CovThreshold), and a per-coverage diversity floor
// (Diversity/DiversityStackIncrement) that keeps at least Diversity states
// for every distinct coverage even if that means temporarily exceeding
// PruneSize.
//
// Pushing is eager (checked against the running best score immediately);
// coverage and histogram-threshold pruning of already-pushed and already-
// recombined states is deferred until the first Pop, exactly like the
// original's two-phase push/beginPop design — a state's true rank can't be
// known until every competing state has been seen.
type HistogramThresholdHypStack struct {
	*RecombHypStack

	pruneSize             uint32
	threshold             float64
	bestScore             float64
	covLimit              uint32
	covThreshold          float64
	diversity             uint32
	diversityStackIncrement uint32

	covMap map[string]*covEntry

	popStarted bool
	heap       stateHeap

	numKept             uint32
	numPruned           uint32
	numUnrecombined     uint32
	numRecombKept       uint32
	numCovPruned        uint32
	numRecombCovPruned  uint32
}

// NewHistogramThresholdHypStack constructs a stack pruning to at most
// pruneSize states (NoSizeLimit for unbounded), discarding any state whose
// future score falls relativeThreshold (must not be positive; -Inf for no
// threshold) below the best future score seen. covLimit/covThreshold apply
// the same two criteria per coverage set (covLimit 0 or covThreshold
// -Inf disables the respective check); diversity keeps at least that many
// states per coverage regardless of the other criteria, up to
// diversityStackIncrement additional states beyond pruneSize.
func NewHistogramThresholdHypStack(
	m *model.Model,
	pruneSize uint32,
	relativeThreshold float64,
	covLimit uint32,
	covThreshold float64,
	diversity uint32,
	diversityStackIncrement uint32,
	discardRecombined bool,
) *HistogramThresholdHypStack {
	if relativeThreshold > 0 {
		panic("stack: relativeThreshold must not be positive (-Inf for no threshold)")
	}
	return &HistogramThresholdHypStack{
		RecombHypStack:          NewRecombHypStack(m, discardRecombined),
		pruneSize:               pruneSize,
		threshold:               relativeThreshold,
		bestScore:               math.Inf(-1),
		covLimit:                covLimit,
		covThreshold:            covThreshold,
		diversity:               diversity,
		diversityStackIncrement: diversityStackIncrement,
		covMap:                  make(map[string]*covEntry),
	}
}

// Push discards s immediately if its future score already falls below the
// running relative threshold; otherwise it's handed to RecombHypStack for
// recombination.
func (h *HistogramThresholdHypStack) Push(s *state.State) {
	if s.FutureScore > h.bestScore+h.threshold {
		if s.FutureScore > h.bestScore {
			h.bestScore = s.FutureScore
		}
		h.RecombHypStack.Push(s)
	} else {
		h.numPruned++
	}
}

func (h *HistogramThresholdHypStack) beginPop() {
	h.heap = append(h.heap, h.RecombHypStack.GetAllStates()...)
	heap.Init(&h.heap)
	h.popStarted = true
}

// Pop removes and returns the best remaining state, applying coverage
// pruning to the states left behind it before returning.
func (h *HistogramThresholdHypStack) Pop() *state.State {
	if !h.popStarted {
		h.beginPop()
	}

	result := heap.Pop(&h.heap).(*state.State)
	h.numKept++

	if h.covLimit != 0 || h.covThreshold != math.Inf(-1) || h.diversity != 0 {
		h.applyCoveragePruning(result)
	}

	// Apply the threshold to recombined states at pop time too, for
	// consistency with states that were pruned before ever being pushed.
	h.numUnrecombined += uint32(result.PruneRecombinedStates(h.bestScore + h.threshold))
	h.numRecombKept += uint32(len(result.Recomb)) + 1

	return result
}

func (h *HistogramThresholdHypStack) applyCoveragePruning(result *state.State) {
	key := result.Trans.SourceWordsNotCovered.String()
	if entry, ok := h.covMap[key]; ok {
		entry.count++
	} else {
		h.covMap[key] = &covEntry{bestScore: result.FutureScore, count: 1}
	}

	for len(h.heap) > 0 {
		top := h.heap[0]
		topKey := top.Trans.SourceWordsNotCovered.String()
		entry, ok := h.covMap[topKey]
		if !ok {
			break
		}

		meetsDiversity := entry.count >= h.diversity
		meetsOtherCriteria := (h.pruneSize != NoSizeLimit && h.numKept >= h.pruneSize) ||
			top.FutureScore <= h.bestScore+h.threshold ||
			(h.covLimit != 0 && entry.count >= h.covLimit) ||
			top.FutureScore <= entry.bestScore+h.covThreshold
		if !meetsDiversity || !meetsOtherCriteria {
			break
		}

		pruned := heap.Pop(&h.heap).(*state.State)
		h.numCovPruned++
		h.numRecombCovPruned += uint32(len(pruned.Recomb)) + 1
	}
}

// IsEmpty reports whether no further state can be popped, honoring the
// diversity floor (which can keep the stack non-empty past PruneSize up
// to DiversityStackIncrement further states) and the histogram/threshold
// criteria otherwise.
func (h *HistogramThresholdHypStack) IsEmpty() bool {
	if !h.popStarted {
		h.beginPop()
	}

	if h.diversity != 0 {
		return (h.diversityStackIncrement != NoSizeLimit &&
			h.pruneSize != NoSizeLimit &&
			h.numKept >= h.pruneSize+h.diversityStackIncrement) ||
			len(h.heap) == 0
	}
	return (h.pruneSize != NoSizeLimit && h.numKept >= h.pruneSize) ||
		len(h.heap) == 0 ||
		h.heap[0].FutureScore <= h.bestScore+h.threshold
}

// Size returns the number of states still available: the heap's size
// once popping has started, or RecombHypStack's recombined count before.
func (h *HistogramThresholdHypStack) Size() uint32 {
	if h.popStarted {
		return uint32(len(h.heap))
	}
	return h.RecombHypStack.Size()
}

func (h *HistogramThresholdHypStack) NumPrunedAtPush() uint32 { return h.numPruned }
func (h *HistogramThresholdHypStack) NumPrunedAtPop() uint32  { return uint32(len(h.heap)) }
func (h *HistogramThresholdHypStack) NumUnrecombined() uint32 { return h.numUnrecombined }
func (h *HistogramThresholdHypStack) NumRecombKept() uint32   { return h.numRecombKept }
func (h *HistogramThresholdHypStack) NumCovPruned() uint32    { return h.numCovPruned }
func (h *HistogramThresholdHypStack) NumRecombCovPruned() uint32 {
	return h.numRecombCovPruned
}

// NumRecombPrunedAtPop counts every recombined state still sitting behind
// the states remaining in the heap.
func (h *HistogramThresholdHypStack) NumRecombPrunedAtPop() uint32 {
	var count uint32
	for _, s := range h.heap {
		count += uint32(len(s.Recomb)) + 1
	}
	return count
}

// NumPruned is the sum of everything pruned at push and at pop time,
// matching the original's default getNumPruned() combination.
func (h *HistogramThresholdHypStack) NumPruned() uint32 {
	return h.NumPrunedAtPush() + h.NumPrunedAtPop()
}
