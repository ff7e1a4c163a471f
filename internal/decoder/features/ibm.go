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

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// logAlmostZero stands in for an IBM1 probability of exactly 0, which
// would otherwise log() to -Inf and dominate every other feature's
// score. Matches IBM1FwdFeature::LOG_ALMOST_ZERO, set far above stdlib
// float64's actual -Inf rather than at it because values as low as
// 1e-30 genuinely occur in fitted translation tables.
const logAlmostZero = -70.0

// LexicalModel supplies an IBM1-style lexical translation probability:
// the probability of generating tgtWord given the whole source sentence,
// independent of alignment or target context. Implementations typically
// wrap a fitted word-translation table.
type LexicalModel interface {
	Pr(srcSent []string, tgtWord string) float64
}

// VocabularyLookup resolves a target-vocabulary word id back to its
// surface form, needed to query a LexicalModel.
type VocabularyLookup interface {
	TargetWord(id phrase.WordID) string
}

// IBM1Forward scores a target phrase by the sum of each of its words'
// IBM1 forward (source-to-target) log probability, independent of where
// in the phrase a word falls or what precedes/follows it. Ported from
// IBM1FwdFeature in ibm_feature.{h,cc}.
//
// The original's newSrcSent pre-batches Pr() calls for every word
// appearing in every phrase-table entry the phrase finder generated for
// the sentence (its "active vocabulary"); NewSentenceInfo here carries
// only the source words, not that enumeration, so this port instead
// caches each word's log probability lazily, the first time a phrase
// containing it is scored, rather than all at once up front. The
// resulting per-sentence cache is exactly the same table the original
// built eagerly, just populated on demand.
type IBM1Forward struct {
	feature.Base

	model LexicalModel
	voc   VocabularyLookup

	srcSent  []string
	logProbs map[phrase.WordID]float64
}

// NewIBM1Forward constructs an IBM1Forward feature backed by model and
// voc.
func NewIBM1Forward(model LexicalModel, voc VocabularyLookup) *IBM1Forward {
	return &IBM1Forward{model: model, voc: voc}
}

func (*IBM1Forward) Name() string { return "ibm1:fwd" }

// NewSourceSentence records the new sentence's source words and resets
// the per-word log-probability cache.
func (f *IBM1Forward) NewSourceSentence(info feature.NewSentenceInfo) {
	f.srcSent = info.SourceSentence
	f.logProbs = make(map[phrase.WordID]float64)
}

func (f *IBM1Forward) wordLogProb(w phrase.WordID) float64 {
	if lp, ok := f.logProbs[w]; ok {
		return lp
	}
	pr := f.model.Pr(f.srcSent, f.voc.TargetWord(w))
	lp := logAlmostZero
	if pr > 0 {
		lp = math.Log(pr)
	}
	f.logProbs[w] = lp
	return lp
}

func (f *IBM1Forward) phraseLogProb(ph phrase.Phrase) float64 {
	s := 0.0
	for _, w := range ph {
		s += f.wordLogProb(w)
	}
	return s
}

// PrecomputeFutureScore is this feature's entire contribution: the
// target phrase's lexical log probability, independent of context.
func (f *IBM1Forward) PrecomputeFutureScore(pi *phrase.Info) float64 {
	return f.phraseLogProb(pi.Phrase)
}

// Score replays PrecomputeFutureScore against the phrase just appended.
func (f *IBM1Forward) Score(pt *state.PartialTranslation) float64 {
	return f.phraseLogProb(pt.LastPhrase.Phrase)
}

func (*IBM1Forward) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore (always 0).
func (f *IBM1Forward) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return f.FutureScore(pt)
}

func (*IBM1Forward) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

func (*IBM1Forward) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}
