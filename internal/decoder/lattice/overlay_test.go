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
	"math"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// buildFixture constructs a small hand-built overlay:
//
//	leaf (L) <- mid (M) <- final1 (F1), with F1.Recomb = [F3] (also back M)
//	                    <- final2 (F2)
//
// so that F1 has two alternate routes back to M (its own Back, and its
// recombined sibling F3's Back), and the best complete path is
// root -> F1 -> M -> L with total score 5.
func buildFixture() (finalStates []*state.State, leaf *state.State) {
	l := &state.State{Id: 0}
	m := &state.State{Id: 1, Back: l, Score: 2, Trans: phraseState("m")}
	f1 := &state.State{Id: 2, Back: m, Score: 5, Trans: phraseState("f1")}
	f2 := &state.State{Id: 3, Back: m, Score: 4, Trans: phraseState("f2")}
	f3 := &state.State{Id: 4, Back: m, Score: 3.9, Trans: phraseState("f1")}
	f1.Recomb = []*state.State{f3}
	return []*state.State{f1, f2}, l
}

func phraseState(tag string) *state.PartialTranslation {
	return &state.PartialTranslation{
		LastPhrase: &phrase.Info{Phrase: phrase.Phrase{wordIDFor(tag)}},
	}
}

func wordIDFor(tag string) phrase.WordID {
	switch tag {
	case "m":
		return 1
	case "f1":
		return 2
	case "f2":
		return 3
	}
	return 0
}

func TestStatesInInsideOrderVisitsChildrenBeforeParents(t *testing.T) {
	finalStates, leaf := buildFixture()
	o := Build(finalStates, math.Inf(-1))

	order := o.StatesInInsideOrder()
	pos := make(map[*state.State]int, len(order))
	for i, s := range order {
		pos[s] = i
	}

	if pos[root] != len(order)-1 {
		t.Errorf("root at position %d, want last (%d)", pos[root], len(order)-1)
	}
	if pos[leaf] >= pos[root] {
		t.Errorf("leaf at %d should precede root at %d", pos[leaf], pos[root])
	}
}

func TestInsideOutsideAreConsistentAtLeafAndRoot(t *testing.T) {
	finalStates, leaf := buildFixture()
	o := Build(finalStates, math.Inf(-1))

	inside := o.Inside()
	outside := o.Outside()

	if inside[root] != 5 {
		t.Errorf("inside(root) = %v, want 5", inside[root])
	}
	if outside[leaf] != 5 {
		t.Errorf("outside(leaf) = %v, want 5", outside[leaf])
	}
}

func TestInsideOutsideScoresBestPathEdgesAtTheGlobalBest(t *testing.T) {
	finalStates, _ := buildFixture()
	o := Build(finalStates, math.Inf(-1))

	f1 := finalStates[0]
	scored := o.InsideOutside()

	var bestPathEdges int
	for _, es := range scored {
		if es.Edge.From == root && es.Edge.To == f1 && es.Score == 5 {
			bestPathEdges++
		}
	}
	if bestPathEdges != 1 {
		t.Errorf("expected exactly one root->f1 edge scoring 5, found %d", bestPathEdges)
	}
}

func TestInsideOutsidePanicsOnInconsistentLeafRootScores(t *testing.T) {
	finalStates, leaf := buildFixture()
	o := Build(finalStates, math.Inf(-1))
	// Append an edge into o.in[leaf] with no matching entry in the
	// corresponding o.out map, so Outside (which only reads o.in) sees a
	// path Inside (which only reads o.out) never does — the only way to
	// make the two sides of the invariant disagree, since every edge
	// Build adds is the same *Edge shared between both maps.
	o.in[leaf] = append(o.in[leaf], &Edge{From: finalStates[1], To: leaf, Score: 1e9})

	defer func() {
		if recover() == nil {
			t.Fatal("InsideOutside did not panic on an inconsistent overlay")
		}
	}()
	o.InsideOutside()
}

func TestBuildFloorsEdgeScores(t *testing.T) {
	l := &state.State{Id: 0}
	m := &state.State{Id: 1, Back: l, Score: -1000, Trans: phraseState("m")}
	finalStates := []*state.State{m}

	o := Build(finalStates, -1)

	edges := o.out[m]
	if len(edges) != 1 {
		t.Fatalf("got %d edges out of m, want 1", len(edges))
	}
	if edges[0].Score != -1 {
		t.Errorf("edge score = %v, want floored at -1 (raw delta was -1000)", edges[0].Score)
	}
}
