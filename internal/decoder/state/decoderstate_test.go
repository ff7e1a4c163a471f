// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"bytes"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
)

func TestArenaAssignsMonotonicIDs(t *testing.T) {
	a := NewArena()
	s0 := a.MakeEmptyState(4, false, nil)
	if s0.Id != 0 {
		t.Fatalf("empty state id = %d, want 0", s0.Id)
	}

	ph := phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1, 2})
	s1 := a.Extend(s0, ph, nil, nil)
	if s1.Id != 1 {
		t.Fatalf("first extension id = %d, want 1", s1.Id)
	}

	ph2 := phrase.New(coverage.NewRange(2, 4), phrase.Phrase{3})
	s2 := a.Extend(s1, ph2, nil, nil)
	if s2.Id != 2 {
		t.Fatalf("second extension id = %d, want 2", s2.Id)
	}
	if !s2.Trans.Complete() {
		t.Fatal("expected the translation covering [0,4) of a 4-word sentence to be complete")
	}
}

func TestWorseScoreOrdering(t *testing.T) {
	a := &State{FutureScore: 1.0, Score: 1.0, Id: 1}
	b := &State{FutureScore: 2.0, Score: 1.0, Id: 2}
	if !WorseScore(a, b) {
		t.Error("expected lower future score to be worse")
	}
	if WorseScore(b, a) {
		t.Error("expected higher future score to not be worse")
	}

	// Future score tie: fall back to Score.
	c := &State{FutureScore: 1.0, Score: 0.5, Id: 3}
	d := &State{FutureScore: 1.0, Score: 0.9, Id: 4}
	if !WorseScore(c, d) {
		t.Error("expected lower score to be worse on a future-score tie")
	}

	// Both tie: higher id is worse.
	e := &State{FutureScore: 1.0, Score: 1.0, Id: 5}
	f := &State{FutureScore: 1.0, Score: 1.0, Id: 6}
	if !WorseScore(f, e) {
		t.Error("expected the higher id to be worse on a full tie")
	}
}

func TestPruneRecombinedStates(t *testing.T) {
	kept := &State{FutureScore: 5.0}
	dropped := &State{FutureScore: -5.0}
	s := &State{Recomb: []*State{kept, dropped}}

	n := s.PruneRecombinedStates(0.0)
	if n != 1 {
		t.Fatalf("pruned %d states, want 1", n)
	}
	if len(s.Recomb) != 1 || s.Recomb[0] != kept {
		t.Fatalf("Recomb after pruning = %v, want [kept]", s.Recomb)
	}
}

func TestStateDisplayDoesNotPanic(t *testing.T) {
	a := NewArena()
	s0 := a.MakeEmptyState(3, false, nil)
	ph := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{42})
	s1 := a.Extend(s0, ph, nil, nil)
	s1.Score = -1.5
	s1.FutureScore = -2.0

	var buf bytes.Buffer
	s1.Display(&buf, func(p phrase.Phrase) string { return "word" })
	if buf.Len() == 0 {
		t.Fatal("expected Display to write something")
	}
}
