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

// cubeFeature scores target word 20 heavily worse than anything else, so
// tests can exercise threshold pruning deterministically, and recombines
// on coverage plus trailing word exactly like coverageFeature.
type cubeFeature struct {
	feature.Base
}

func (cubeFeature) Name() string                          { return "test:cube" }
func (cubeFeature) NewSourceSentence(feature.NewSentenceInfo) {}
func (cubeFeature) PrecomputeFutureScore(*phrase.Info) float64       { return 0 }
func (cubeFeature) FutureScore(*state.PartialTranslation) float64    { return 0 }
func (cubeFeature) PartialFutureScore(*state.PartialTranslation) float64 { return 0 }

func (cubeFeature) Score(pt *state.PartialTranslation) float64 {
	ph := pt.Phrase()
	if len(ph) > 0 && ph[0] == 20 {
		return -5
	}
	return 0
}

func (cubeFeature) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pt.SourceWordsNotCovered.String()))
	for _, w := range pt.LastWords(1, true) {
		h.Write([]byte{byte(w)})
	}
	return h.Sum64()
}

func (cubeFeature) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.SourceWordsNotCovered.Equal(pt2.SourceWordsNotCovered) && pt1.SameLastWords(pt2, 1)
}

func cubeModel() *model.Model {
	return model.New([]model.Weighted{{Function: cubeFeature{}, Weight: 1}})
}

// buildHyperedge constructs a single-incoming-state hyperedge over range
// [1,2) with two candidate phrases: word 10 (cheap) and word 20
// (expensive, per cubeFeature), in the descending-partial-score order
// NewHyperedge requires.
func buildHyperedge(arena *state.Arena, prev *state.State) *Hyperedge {
	phA := phrase.New(coverage.NewRange(1, 2), phrase.Phrase{10})
	phB := phrase.New(coverage.NewRange(1, 2), phrase.Phrase{20})
	return NewHyperedge(
		arena,
		prev.Trans.SourceWordsNotCovered,
		[]ScoredState{{PartialScore: prev.FutureScore, State: prev}},
		coverage.NewRange(1, 2),
		[]ScoredPhrase{
			{PartialScore: 0, Phrase: phA},
			{PartialScore: -5, Phrase: phB},
		},
		nil,
	)
}

func TestCubePruningHypStackKBestPrunesExpensiveNeighbour(t *testing.T) {
	m := cubeModel()
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)
	prev := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)

	edge := buildHyperedge(arena, prev)
	c := NewCubePruningHypStack(m, false)
	c.Add(edge)
	c.KBest(2, -3)

	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (the -6 future-score neighbour should be pruned)", c.Size())
	}
	all := c.GetAllStates()
	var kept *state.State
	for _, states := range all {
		for _, s := range states {
			kept = s
		}
	}
	if kept == nil || kept.FutureScore != -1 {
		t.Errorf("kept state futureScore = %v, want -1", kept)
	}
}

func TestCubePruningHypStackKBestWithNoThresholdKeepsBoth(t *testing.T) {
	m := cubeModel()
	arena := state.NewArena()
	root := arena.MakeEmptyState(3, false, nil)
	prev := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)

	edge := buildHyperedge(arena, prev)
	c := NewCubePruningHypStack(m, false)
	c.Add(edge)
	c.KBest(2, math.Inf(-1))

	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2 (no threshold, K=2 should keep both candidates)", c.Size())
	}
}

func TestCubePruningHypStackNoHyperedgesKeepsNothing(t *testing.T) {
	m := cubeModel()
	c := NewCubePruningHypStack(m, false)
	c.KBest(5, math.Inf(-1))
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 (no hyperedges added)", c.Size())
	}
}

func TestCubePruningHypStackPopReturnsStatesBestFirst(t *testing.T) {
	m := cubeModel()
	arena := state.NewArena()
	root := arena.MakeEmptyState(1, false, nil)

	// Directly push two complete (fully covered) states to exercise
	// Pop/IsEmpty, bypassing KBest.
	worse := extend(arena, root, 2, coverage.NewRange(0, 1), -3, -3)
	good := extend(arena, root, 1, coverage.NewRange(0, 1), -1, -1)
	c := NewCubePruningHypStack(m, false)
	c.Push(worse)
	c.Push(good)

	if c.IsEmpty() {
		t.Fatal("IsEmpty() = true before Pop, want false")
	}
	popped := c.Pop()
	if popped != good {
		t.Errorf("first Pop() did not return the better state")
	}
	if c.IsEmpty() {
		t.Fatal("IsEmpty() = true after popping one of two states, want false")
	}
	if popped := c.Pop(); popped != worse {
		t.Errorf("second Pop() did not return the worse state")
	}
	if !c.IsEmpty() {
		t.Error("IsEmpty() = false after popping both states, want true")
	}
}
