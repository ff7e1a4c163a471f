// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model aggregates a weighted set of feature.Function values into
// the single scoring/hashing/recombination surface the search, hypothesis
// stacks, and phrase finder all consult, mirroring the original decoder's
// PhraseDecoderModel abstraction over its translation-model-plus-language-
// model combination.
package model

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// Weighted pairs a feature with the log-linear weight its Score and
// PrecomputeFutureScore/FutureScore contributions are multiplied by
// before being summed into the model's totals, mirroring
// PhraseDecoderModel::getFeatureWeights paired index-for-index against
// getFeatureFunctionVals.
type Weighted struct {
	Function feature.Function
	Weight   float64
}

// Model combines every active feature function into the one scoring
// surface phrasefinder.RangeFinder, the hypothesis stacks, and the search
// drivers all depend on.
type Model struct {
	features []Weighted
}

// New constructs a Model from the given weighted feature set.
func New(features []Weighted) *Model {
	return &Model{features: features}
}

// NewSourceSentence resets every feature's per-sentence state.
func (m *Model) NewSourceSentence(info feature.NewSentenceInfo) {
	for _, w := range m.features {
		w.Function.NewSourceSentence(info)
	}
}

// PrecomputeFutureScore sums every feature's weighted context-independent
// bound for pi, caching the total onto pi.PartialScore the same way the
// original's phrasePartialScore() cache works.
func (m *Model) PrecomputeFutureScore(pi *phrase.Info) float64 {
	s := 0.0
	for _, w := range m.features {
		s += w.Weight * w.Function.PrecomputeFutureScore(pi)
	}
	pi.PartialScore = s
	return s
}

// ScoreTranslation returns the incremental weighted score for having
// appended pt.LastPhrase to pt.Back: log P(pt) - log P(pt.Back).
func (m *Model) ScoreTranslation(pt *state.PartialTranslation) float64 {
	s := 0.0
	for _, w := range m.features {
		s += w.Weight * w.Function.Score(pt)
	}
	return s
}

// ComputeFutureScore returns the incremental weighted estimate of the
// best possible score for completing pt.
func (m *Model) ComputeFutureScore(pt *state.PartialTranslation) float64 {
	s := 0.0
	for _, w := range m.features {
		s += w.Weight * w.Function.FutureScore(pt)
	}
	return s
}

// ComputeRecombHash combines every feature's recombination hash. Two
// translations that hash differently can never be recombined; matching
// hashes still require IsRecombinable to confirm equivalence since
// hash collisions are possible.
func (m *Model) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	const fnvOffset = 1469598103934665603
	const fnvPrime = 1099511628211
	h := uint64(fnvOffset)
	for _, w := range m.features {
		h ^= w.Function.ComputeRecombHash(pt)
		h *= fnvPrime
	}
	return h
}

// IsRecombinable reports whether trans1 and trans2 can be recombined:
// every active feature must agree they would score identically on any
// possible extension.
func (m *Model) IsRecombinable(trans1, trans2 *state.PartialTranslation) bool {
	for _, w := range m.features {
		if !w.Function.IsRecombinable(trans1, trans2) {
			return false
		}
	}
	return true
}

// FeatureFunctionVals returns the unweighted marginal value each feature
// assigns to pt.LastPhrase, in the same order as FeatureWeights — used by
// lattice/n-best output to report each feature's contribution
// separately, mirroring PhraseDecoderModel::getFeatureFunctionVals.
func (m *Model) FeatureFunctionVals(pt *state.PartialTranslation) []float64 {
	vals := make([]float64, len(m.features))
	for i, w := range m.features {
		vals[i] = w.Function.Score(pt)
	}
	return vals
}

// FeatureWeights returns the configured weight for each feature, in the
// same order as FeatureFunctionVals.
func (m *Model) FeatureWeights() []float64 {
	weights := make([]float64, len(m.features))
	for i, w := range m.features {
		weights[i] = w.Weight
	}
	return weights
}

// LMLikeContextNeeded returns the maximum trailing-target-word context
// any active feature requires, the bound the search uses to decide how
// many words of a state's translation it must keep distinguishable
// before hypotheses with otherwise-identical coverage can recombine.
func (m *Model) LMLikeContextNeeded() uint32 {
	var max uint32
	for _, w := range m.features {
		if n := w.Function.LMLikeContextNeeded(); n > max {
			max = n
		}
	}
	return max
}
