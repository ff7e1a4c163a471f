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

func TestWordDisplacementScorePenalizesJump(t *testing.T) {
	w := &WordDisplacement{}
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6})

	back := &state.PartialTranslation{LastPhrase: phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1})}
	pt := &state.PartialTranslation{
		Back:                  back,
		LastPhrase:            phrase.New(coverage.NewRange(4, 6), phrase.Phrase{2}),
		SourceWordsNotCovered: coverage.Set{coverage.NewRange(2, 4)},
	}

	got := w.Score(pt)
	want := -2.0 // |4 - 2| = 2, not complete so no end-of-sentence charge
	if got != want {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestWordDisplacementScoreChargesSentenceEndOnCompletion(t *testing.T) {
	w := &WordDisplacement{}
	w.NewSourceSentence(feature.NewSentenceInfo{SentenceLength: 6})

	back := &state.PartialTranslation{LastPhrase: phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1})}
	pt := &state.PartialTranslation{
		Back:       back,
		LastPhrase: phrase.New(coverage.NewRange(2, 4), phrase.Phrase{2}),
		// Complete: nothing left uncovered.
	}

	got := w.Score(pt)
	want := -0.0 - 2.0 // jump |2-2|=0, plus end-of-sentence charge (6-4)=2
	if got != want {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestWordDisplacementRecombinable(t *testing.T) {
	w := &WordDisplacement{}
	pt1 := &state.PartialTranslation{LastPhrase: phrase.New(coverage.NewRange(0, 4), nil)}
	pt2 := &state.PartialTranslation{LastPhrase: phrase.New(coverage.NewRange(1, 4), nil)}
	if !w.IsRecombinable(pt1, pt2) {
		t.Error("expected translations ending at the same position to be recombinable")
	}

	pt3 := &state.PartialTranslation{LastPhrase: phrase.New(coverage.NewRange(0, 5), nil)}
	if w.IsRecombinable(pt1, pt3) {
		t.Error("did not expect translations ending at different positions to be recombinable")
	}
}

func TestZeroInfoDistortionFutureScoreZeroOnComplete(t *testing.T) {
	z := &ZeroInfoDistortion{}
	complete := &state.PartialTranslation{}
	if got := z.FutureScore(complete); got != 0 {
		t.Errorf("FutureScore on a complete translation = %v, want 0", got)
	}
	if got := z.Score(complete); got != 1.0 {
		t.Errorf("Score on a complete translation = %v, want 1.0", got)
	}

	incomplete := &state.PartialTranslation{SourceWordsNotCovered: coverage.Set{coverage.NewRange(0, 1)}}
	if got := z.FutureScore(incomplete); got != 1.0 {
		t.Errorf("FutureScore on an incomplete translation = %v, want 1.0", got)
	}
	if got := z.Score(incomplete); got != 0.0 {
		t.Errorf("Score on an incomplete translation = %v, want 0.0", got)
	}
}

func TestLengthFeature(t *testing.T) {
	l := Length{}
	pi := phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1, 2, 3})
	if got := l.PrecomputeFutureScore(pi); got != -3.0 {
		t.Errorf("PrecomputeFutureScore = %v, want -3.0", got)
	}

	pt := &state.PartialTranslation{LastPhrase: pi}
	if got := l.Score(pt); got != -3.0 {
		t.Errorf("Score = %v, want -3.0", got)
	}
	if got := l.FutureScore(pt); got != 0 {
		t.Errorf("FutureScore = %v, want 0", got)
	}
}
