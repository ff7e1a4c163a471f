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
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// NGramModel supplies backoff n-gram log probabilities over
// target-vocabulary word ids: the log probability of word given up to
// Order()-1 preceding context words (most recent last). Implementations
// typically wrap a loaded ARPA-format backoff model.
type NGramModel interface {
	// Order is the highest n-gram order this model scores with (e.g. 3
	// for a trigram model).
	Order() uint32

	// LogProb returns the log probability of word given context (at most
	// Order()-1 words, most recent last; shorter when fewer words of
	// history are available).
	LogProb(context []phrase.WordID, word phrase.WordID) float64
}

// NGramLM scores a translation by the sum of each target word's n-gram
// log probability given its preceding context, recombining two
// hypotheses whenever they share the same trailing Order()-1 words (the
// only context a later n-gram lookup could ever distinguish them by).
// There is no dedicated language-model feature file in the retrieval
// pack (canoe's own basicmodel.cc, which would normally wire an LM
// feature up alongside the phrase-table ones, was never present); this
// is grounded instead on the shared Function contract every other
// feature here follows and on state.PackedContext/SameLastWords, both of
// which already exist specifically to support an n-gram-style feature's
// recombination needs.
type NGramLM struct {
	feature.Base

	model NGramModel
	order uint32
}

// NewNGramLM constructs an NGramLM feature backed by model.
func NewNGramLM(model NGramModel) *NGramLM {
	return &NGramLM{model: model, order: model.Order()}
}

func (*NGramLM) Name() string { return "lm:ngram" }

func (*NGramLM) NewSourceSentence(feature.NewSentenceInfo) {}

// PrecomputeFutureScore has no context-independent bound to offer: an
// n-gram probability is inherently a function of target context, not of
// the phrase pair alone.
func (*NGramLM) PrecomputeFutureScore(*phrase.Info) float64 { return 0 }

// FutureScore is approximated as 0 (an admissible, if not tight,
// remaining-cost estimate) rather than porting the original's
// unigram-backoff future-score heuristic, which the NGramModel contract
// above has no way to ask a loaded model for.
func (*NGramLM) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore.
func (l *NGramLM) PartialFutureScore(pt *state.PartialTranslation) float64 { return l.FutureScore(pt) }

// Score sums the n-gram log probability of every word in the phrase just
// appended, each conditioned on up to order-1 words of preceding context
// drawn from pt.Back's translation and the words of this same phrase
// already placed.
func (l *NGramLM) Score(pt *state.PartialTranslation) float64 {
	ph := pt.Phrase()
	if len(ph) == 0 {
		return 0
	}
	need := int(l.order) - 1
	s := 0.0
	for i, w := range ph {
		s += l.model.LogProb(l.contextFor(pt.Back, ph, i, need), w)
	}
	return s
}

// contextFor builds the up-to-need preceding words for ph[i], drawing
// the tail from back's translation and the head from ph's own words
// already placed before i.
func (l *NGramLM) contextFor(back *state.PartialTranslation, ph phrase.Phrase, i, need int) []phrase.WordID {
	if need <= 0 {
		return nil
	}
	combined := make([]phrase.WordID, 0, need+i)
	if back != nil {
		combined = append(combined, []phrase.WordID(back.LastWords(need, false))...)
	}
	combined = append(combined, []phrase.WordID(ph[:i])...)
	if len(combined) > need {
		combined = combined[len(combined)-need:]
	}
	return combined
}

// ComputeRecombHash hashes the trailing order-1 target words: the only
// context a future n-gram lookup could ever use to tell two hypotheses
// apart.
func (l *NGramLM) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	const fnvOffset = 1469598103934665603
	const fnvPrime = 1099511628211
	h := uint64(fnvOffset)
	for _, w := range pt.LastWords(int(l.order)-1, true) {
		h ^= uint64(w)
		h *= fnvPrime
	}
	return h
}

// IsRecombinable reports whether pt1 and pt2 share the same trailing
// order-1 target words.
func (l *NGramLM) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.SameLastWords(pt2, int(l.order)-1)
}

// LMLikeContextNeeded overrides feature.Base's default: this feature needs
// order-1 trailing target words of context from the previous state.
func (l *NGramLM) LMLikeContextNeeded() uint32 {
	if l.order == 0 {
		return 0
	}
	return l.order - 1
}
