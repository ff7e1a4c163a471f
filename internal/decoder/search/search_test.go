// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"hash/fnv"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// wordPreferenceFeature scores appending a phrase by its PhraseTransProb
// (used here simply as a per-phrase test weight) and recombines states
// sharing coverage plus one word of trailing context, matching the
// shape of the stack package's own test features.
type wordPreferenceFeature struct {
	feature.Base
}

func (wordPreferenceFeature) Name() string                       { return "test:wordpref" }
func (wordPreferenceFeature) NewSourceSentence(feature.NewSentenceInfo) {}

func (wordPreferenceFeature) PrecomputeFutureScore(pi *phrase.Info) float64 {
	return pi.PhraseTransProb
}

func (wordPreferenceFeature) FutureScore(*state.PartialTranslation) float64 { return 0 }

func (wordPreferenceFeature) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return 0
}

func (wordPreferenceFeature) Score(pt *state.PartialTranslation) float64 {
	if pt.LastPhrase == nil {
		return 0
	}
	return pt.LastPhrase.PhraseTransProb
}

func (wordPreferenceFeature) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pt.SourceWordsNotCovered.String()))
	for _, w := range pt.LastWords(1, true) {
		h.Write([]byte{byte(w)})
	}
	return h.Sum64()
}

func (wordPreferenceFeature) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.SourceWordsNotCovered.Equal(pt2.SourceWordsNotCovered) && pt1.SameLastWords(pt2, 1)
}

func testModel() *model.Model {
	return model.New([]model.Weighted{{Function: wordPreferenceFeature{}, Weight: 1}})
}

// buildTable constructs a 2-word-source phrase table where translating
// each word on its own scores 0, but the single phrase covering both
// words at once scores 5 — so the best decode must prefer the joint
// phrase over the two one-word phrases.
func buildTable() *phrase.Table {
	t := phrase.NewTable(2)
	t.Add(0, 1, phrase.New(coverage.NewRange(0, 1), phrase.Phrase{10}))
	t.Add(1, 1, phrase.New(coverage.NewRange(1, 2), phrase.Phrase{20}))
	joint := phrase.New(coverage.NewRange(0, 2), phrase.Phrase{30, 31})
	joint.PhraseTransProb = 5
	t.Add(0, 2, joint)
	return t
}

func defaultOptions() Options {
	return Options{
		MaxRegularStackSize: NoMaxSize,
		NBestSize:           1,
		PruneThreshold:      0,
		CovThreshold:        0,
	}
}

func TestRunStackDecoderPrefersHigherScoringJointPhrase(t *testing.T) {
	m := testModel()
	table := buildTable()
	finder := phrasefinder.New(table, 2, phrasefinder.Config{DistLimit: phrasefinder.NoMaxDistortion})
	ctx := decodectx.New(context.Background(), 0, false)

	final := RunStackDecoder(ctx, m, finder, 2, defaultOptions())
	if final.IsEmpty() {
		t.Fatal("final stack is empty, want at least one complete translation")
	}
	best := final.Pop()
	if len(best.Trans.EntirePhrase()) != 2 {
		t.Fatalf("best translation has %d words, want 2 (the joint phrase)", len(best.Trans.EntirePhrase()))
	}
	if best.Trans.EntirePhrase()[0] != 30 {
		t.Errorf("best translation = %v, want the joint phrase [30 31]", best.Trans.EntirePhrase())
	}
	if best.Score != 5 {
		t.Errorf("best.Score = %v, want 5", best.Score)
	}
}

func TestRunCubePruningDecoderAgreesWithStackDecoderOnBestScore(t *testing.T) {
	m := testModel()
	table := buildTable()
	finder := phrasefinder.New(table, 2, phrasefinder.Config{DistLimit: phrasefinder.NoMaxDistortion})
	ctx := decodectx.New(context.Background(), 0, false)

	stackFinal := RunStackDecoder(ctx, m, finder, 2, defaultOptions())
	stackBest := stackFinal.Pop()

	cubeFinal := RunCubePruningDecoder(m, finder, table, 2, defaultOptions())
	if cubeFinal.IsEmpty() {
		t.Fatal("cube pruning final stack is empty, want at least one complete translation")
	}
	cubeBest := cubeFinal.Pop()

	if cubeBest.Score != stackBest.Score {
		t.Errorf("cube pruning best score = %v, stack decoder best score = %v, want equal", cubeBest.Score, stackBest.Score)
	}
}

func TestOptionsFinalStackSizeDiscardsRecombinedToOne(t *testing.T) {
	o := Options{MaxRegularStackSize: 100}
	if got := o.finalStackSize(); got != 1 {
		t.Errorf("finalStackSize() = %d, want 1 when nothing forces recombined states to be kept", got)
	}
}

func TestDecodeDispatchesOnCubePruningOption(t *testing.T) {
	m := testModel()
	table := buildTable()
	finder := phrasefinder.New(table, 2, phrasefinder.Config{DistLimit: phrasefinder.NoMaxDistortion})
	ctx := decodectx.New(context.Background(), 0, false)

	opts := defaultOptions()
	opts.CubePruning = true
	final := Decode(ctx, m, finder, table, 2, opts)
	if final.IsEmpty() {
		t.Fatal("Decode with CubePruning=true returned an empty stack")
	}
	if best := final.Pop(); best.Score != 5 {
		t.Errorf("Decode(CubePruning=true) best score = %v, want 5", best.Score)
	}
}

func TestOptionsFinalStackSizeHonorsSmallerNBest(t *testing.T) {
	o := Options{MaxRegularStackSize: 100, NBestSize: 10, Masse: true}
	if got := o.finalStackSize(); got != 100 {
		t.Errorf("finalStackSize() = %d, want 100 (masse forces the regular size)", got)
	}

	o2 := Options{MaxRegularStackSize: 100, NBestSize: 10, NBestOut: true}
	if got := o2.finalStackSize(); got != 10 {
		t.Errorf("finalStackSize() = %d, want 10 (n-best smaller than the regular stack size)", got)
	}
}
