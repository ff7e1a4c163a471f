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
	"math"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

type fakeLexicalModel struct {
	probs map[string]float64
}

func (f fakeLexicalModel) Pr(srcSent []string, tgtWord string) float64 {
	return f.probs[tgtWord]
}

type fakeVocabulary struct {
	words map[phrase.WordID]string
}

func (f fakeVocabulary) TargetWord(id phrase.WordID) string { return f.words[id] }

func TestIBM1ForwardSumsPerWordLogProbs(t *testing.T) {
	model := fakeLexicalModel{probs: map[string]float64{"le": 0.5, "chat": 0.25}}
	voc := fakeVocabulary{words: map[phrase.WordID]string{1: "le", 2: "chat"}}
	f := NewIBM1Forward(model, voc)
	f.NewSourceSentence(feature.NewSentenceInfo{SourceSentence: []string{"the", "cat"}})

	pi := phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1, 2})
	want := math.Log(0.5) + math.Log(0.25)
	if got := f.PrecomputeFutureScore(pi); math.Abs(got-want) > 1e-9 {
		t.Errorf("PrecomputeFutureScore = %v, want %v", got, want)
	}

	pt := &state.PartialTranslation{LastPhrase: pi}
	if got := f.Score(pt); math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestIBM1ForwardZeroProbabilityFloorsAtLogAlmostZero(t *testing.T) {
	model := fakeLexicalModel{probs: map[string]float64{}}
	voc := fakeVocabulary{words: map[phrase.WordID]string{1: "rare"}}
	f := NewIBM1Forward(model, voc)
	f.NewSourceSentence(feature.NewSentenceInfo{SourceSentence: []string{"the"}})

	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{1})
	if got := f.PrecomputeFutureScore(pi); got != logAlmostZero {
		t.Errorf("PrecomputeFutureScore = %v, want %v", got, logAlmostZero)
	}
}

func TestIBM1ForwardCachesPerWordWithinASentence(t *testing.T) {
	calls := 0
	model := countingModel{fn: func(string) float64 { calls++; return 0.5 }}
	voc := fakeVocabulary{words: map[phrase.WordID]string{1: "le"}}
	f := NewIBM1Forward(model, voc)
	f.NewSourceSentence(feature.NewSentenceInfo{SourceSentence: []string{"the"}})

	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{1, 1})
	f.phraseLogProb(pi.Phrase)
	if calls != 1 {
		t.Errorf("model.Pr called %d times, want 1 (second occurrence of word 1 cached)", calls)
	}
}

type countingModel struct {
	fn func(string) float64
}

func (c countingModel) Pr(srcSent []string, tgtWord string) float64 { return c.fn(tgtWord) }

func TestIBM1ForwardFutureScoreAlwaysZero(t *testing.T) {
	f := NewIBM1Forward(fakeLexicalModel{}, fakeVocabulary{})
	pt := &state.PartialTranslation{}
	if got := f.FutureScore(pt); got != 0 {
		t.Errorf("FutureScore = %v, want 0", got)
	}
	if got := f.PartialFutureScore(pt); got != 0 {
		t.Errorf("PartialFutureScore = %v, want 0", got)
	}
}
