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
	"hash/fnv"
	"math"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// coverageFeature recombines states purely on remaining coverage and the
// last generated target word, enough search-relevant context to exercise
// recombination in isolation from any real scoring feature.
type coverageFeature struct {
	feature.Base
}

func (coverageFeature) Name() string                          { return "test:coverage" }
func (coverageFeature) NewSourceSentence(feature.NewSentenceInfo) {}
func (coverageFeature) PrecomputeFutureScore(*phrase.Info) float64    { return 0 }
func (coverageFeature) FutureScore(*state.PartialTranslation) float64 { return 0 }
func (coverageFeature) Score(*state.PartialTranslation) float64       { return 0 }
func (coverageFeature) PartialFutureScore(*state.PartialTranslation) float64 { return 0 }

func (coverageFeature) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pt.SourceWordsNotCovered.String()))
	last := pt.LastWords(1, true)
	for _, w := range last {
		h.Write([]byte{byte(w)})
	}
	return h.Sum64()
}

func (coverageFeature) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.SourceWordsNotCovered.Equal(pt2.SourceWordsNotCovered) && pt1.SameLastWords(pt2, 1)
}

func testModel() *model.Model {
	return model.New([]model.Weighted{{Function: coverageFeature{}, Weight: 1}})
}

// extend builds a state covering [0,1) with a single-word target phrase,
// scoring it score/futureScore.
func extend(arena *state.Arena, prev *state.State, word phrase.WordID, src coverage.Range, score, futureScore float64) *state.State {
	pi := phrase.New(src, phrase.Phrase{word})
	s := arena.Extend(prev, pi, nil, nil)
	s.Score = score
	s.FutureScore = futureScore
	return s
}

func TestRecombHypStackRecombinesEquivalentStates(t *testing.T) {
	m := testModel()
	r := NewRecombHypStack(m, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(2, false, nil)

	a := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)
	b := extend(arena, root, 1, coverage.NewRange(0, 1), -2, -2)

	r.Push(a)
	r.Push(b)

	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (a and b should recombine)", r.Size())
	}
	if r.NumRecombined() != 1 {
		t.Errorf("NumRecombined() = %d, want 1", r.NumRecombined())
	}

	states := r.GetAllStates()
	if len(states) != 1 || states[0].FutureScore != -1 {
		t.Errorf("surviving state futureScore = %v, want -1 (a is better)", states[0].FutureScore)
	}
	if len(states[0].Recomb) != 1 || states[0].Recomb[0] != b {
		t.Errorf("expected b recombined onto the survivor's Recomb list")
	}
}

func TestRecombHypStackKeepsDistinctCoverageSeparate(t *testing.T) {
	m := testModel()
	r := NewRecombHypStack(m, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(2, false, nil)

	a := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)
	b := extend(arena, root, 2, coverage.NewRange(1, 2), -1, -1)

	r.Push(a)
	r.Push(b)

	if r.Size() != 2 {
		t.Errorf("Size() = %d, want 2 (different coverage, no recombination)", r.Size())
	}
}

func TestRecombHypStackDiscardRecombined(t *testing.T) {
	m := testModel()
	r := NewRecombHypStack(m, true)
	arena := state.NewArena()
	root := arena.MakeEmptyState(2, false, nil)

	a := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)
	b := extend(arena, root, 1, coverage.NewRange(0, 1), -2, -2)
	r.Push(a)
	r.Push(b)

	states := r.GetAllStates()
	if len(states) != 1 || len(states[0].Recomb) != 0 {
		t.Errorf("expected discarded recombined state to leave no Recomb trail")
	}
}

func TestHistogramThresholdHypStackPopsInBestFirstOrder(t *testing.T) {
	m := testModel()
	h := NewHistogramThresholdHypStack(m, NoSizeLimit, math.Inf(-1), 0, math.Inf(-1), 0, NoSizeLimit, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)

	low := extend(arena, root, 1, coverage.NewRange(0, 1), -5, -5)
	mid := extend(arena, root, 2, coverage.NewRange(1, 2), -2, -2)
	high := extend(arena, root, 3, coverage.NewRange(2, 3), -1, -1)

	h.Push(low)
	h.Push(mid)
	h.Push(high)

	var order []float64
	for !h.IsEmpty() {
		order = append(order, h.Pop().FutureScore)
	}
	if len(order) != 3 || order[0] != -1 || order[1] != -2 || order[2] != -5 {
		t.Errorf("pop order = %v, want [-1 -2 -5]", order)
	}
}

func TestHistogramThresholdHypStackPruneSizeLimitsPops(t *testing.T) {
	m := testModel()
	h := NewHistogramThresholdHypStack(m, 1, math.Inf(-1), 0, math.Inf(-1), 0, NoSizeLimit, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)

	h.Push(extend(arena, root, 1, coverage.NewRange(0, 1), -5, -5))
	h.Push(extend(arena, root, 2, coverage.NewRange(1, 2), -1, -1))

	if h.IsEmpty() {
		t.Fatal("IsEmpty() = true before any Pop, want false")
	}
	first := h.Pop()
	if first.FutureScore != -1 {
		t.Fatalf("first pop futureScore = %v, want -1", first.FutureScore)
	}
	if !h.IsEmpty() {
		t.Errorf("IsEmpty() = false after reaching pruneSize=1, want true")
	}
}

func TestHistogramThresholdHypStackRelativeThresholdPrunesAtPush(t *testing.T) {
	m := testModel()
	h := NewHistogramThresholdHypStack(m, NoSizeLimit, -3, 0, math.Inf(-1), 0, NoSizeLimit, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)

	h.Push(extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1))
	h.Push(extend(arena, root, 2, coverage.NewRange(1, 2), -10, -10))

	if h.NumPrunedAtPush() != 1 {
		t.Errorf("NumPrunedAtPush() = %d, want 1 (futureScore -10 is below -1 + -3)", h.NumPrunedAtPush())
	}
	if h.Size() != 1 {
		t.Errorf("Size() = %d, want 1", h.Size())
	}
}

func TestHistogramThresholdHypStackCovLimitPrunesExtraPerCoverage(t *testing.T) {
	m := testModel()
	h := NewHistogramThresholdHypStack(m, NoSizeLimit, math.Inf(-1), 1, math.Inf(-1), 0, NoSizeLimit, false)
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)

	// Two states with the same coverage [0,1) but different last words so
	// they don't recombine; covLimit=1 should keep only the better one.
	a := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)
	b := extend(arena, root, 2, coverage.NewRange(0, 1), -2, -2)

	h.Push(a)
	h.Push(b)

	var kept []float64
	for !h.IsEmpty() {
		kept = append(kept, h.Pop().FutureScore)
	}
	if len(kept) != 1 || kept[0] != -1 {
		t.Errorf("kept = %v, want [-1] (covLimit=1 keeps only the best per coverage)", kept)
	}
	if h.NumCovPruned() != 1 {
		t.Errorf("NumCovPruned() = %d, want 1", h.NumCovPruned())
	}
}
