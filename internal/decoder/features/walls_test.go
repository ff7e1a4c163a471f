// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package features

import (
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

func TestStrictWallsPrecomputeFutureScorePenalizesStraddle(t *testing.T) {
	w := NewStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	straddling := phrase.New(coverage.NewRange(2, 4), nil)
	if got := w.PrecomputeFutureScore(straddling); got != -1.0 {
		t.Errorf("PrecomputeFutureScore(straddling) = %v, want -1", got)
	}

	nonStraddling := phrase.New(coverage.NewRange(3, 5), nil)
	if got := w.PrecomputeFutureScore(nonStraddling); got != 0 {
		t.Errorf("PrecomputeFutureScore(non-straddling) = %v, want 0", got)
	}
}

func TestLooseWallsNeverPenalizesStraddle(t *testing.T) {
	w := NewLooseWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	straddling := phrase.New(coverage.NewRange(2, 4), nil)
	if got := w.PrecomputeFutureScore(straddling); got != 0 {
		t.Errorf("PrecomputeFutureScore(straddling) = %v, want 0 for Loose", got)
	}
}

func TestWordStrictWallsNoAlignmentIsViolation(t *testing.T) {
	w := NewWordStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	straddling := phrase.New(coverage.NewRange(2, 4), nil)
	if got := w.PrecomputeFutureScore(straddling); got != -1.0 {
		t.Errorf("PrecomputeFutureScore(no alignment) = %v, want -1", got)
	}
}

func TestWordStrictWallsCompositionalSplitIsNotAViolation(t *testing.T) {
	w := NewWordStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	straddling := phrase.New(coverage.NewRange(2, 4), nil)
	straddling.SetAnnotation(AlignmentAnnotationKey, AlignmentSets{
		{0}, // source word 2 (index 0) links to target position 0
		{1}, // source word 3 (index 1) links to target position 1
	})
	if got := w.PrecomputeFutureScore(straddling); got != 0 {
		t.Errorf("PrecomputeFutureScore(compositional split) = %v, want 0", got)
	}
}

func TestWordStrictWallsNonCompositionalIsAViolation(t *testing.T) {
	w := NewWordStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	straddling := phrase.New(coverage.NewRange(2, 4), nil)
	straddling.SetAnnotation(AlignmentAnnotationKey, AlignmentSets{
		{5}, // word before the wall links past where the word after it links
		{0},
	})
	if got := w.PrecomputeFutureScore(straddling); got != -1.0 {
		t.Errorf("PrecomputeFutureScore(non-compositional) = %v, want -1", got)
	}
}

func TestWallsPartialScoreCrossing(t *testing.T) {
	w := NewStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})

	// Word 1 uncovered (before wall) but word 4 covered (after wall): a crossing.
	pt := &state.PartialTranslation{SourceWordsNotCovered: coverage.Set{coverage.NewRange(1, 2), coverage.NewRange(5, 6)}}
	if got := w.PartialScore(pt); got != -1.0 {
		t.Errorf("PartialScore(crossed) = %v, want -1", got)
	}

	clean := &state.PartialTranslation{SourceWordsNotCovered: coverage.Set{coverage.NewRange(4, 6)}}
	if got := w.PartialScore(clean); got != 0 {
		t.Errorf("PartialScore(not crossed) = %v, want 0", got)
	}
}

func TestWallsEarlyFilterViolation(t *testing.T) {
	w := NewStrictWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6, Walls: []feature.Wall{{Pos: 3}}})
	pt := &state.PartialTranslation{SourceWordsNotCovered: coverage.Set{coverage.NewRange(0, 6)}}

	if !w.EarlyFilterViolation(pt, coverage.NewRange(2, 4)) {
		t.Error("expected a straddling candidate range to violate the wall")
	}
	if w.EarlyFilterViolation(pt, coverage.NewRange(0, 3)) {
		t.Error("did not expect a non-straddling candidate range to violate the wall")
	}
}

func TestWallsNamedScoping(t *testing.T) {
	w := NewStrictWalls("foo")
	w.NewSourceSentence(feature.NewSentenceInfo{
		SentenceLength: 6,
		Walls: []feature.Wall{
			{Name: "foo", Pos: 3},
			{Name: "bar", Pos: 1},
		},
	})
	if len(w.walls) != 1 || w.walls[0].Pos != 3 {
		t.Fatalf("expected only the %q-named wall to be kept, got %+v", "foo", w.walls)
	}
}
