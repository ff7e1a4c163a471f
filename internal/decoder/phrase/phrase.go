// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phrase defines the target-language Phrase type and the immutable
// PhraseInfo phrase-table entry, along with the flat triangular index used
// to look phrase-table entries up by source Range without per-sentence
// pointer-triangle allocation.
package phrase

import (
	"math"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
)

// WordID is a vocabulary-internal identifier for a single target word.
type WordID uint32

// Phrase is a target-language phrase: a sequence of vocabulary word ids,
// leftmost word first.
type Phrase []WordID

// Annotation is an opaque, feature-owned payload attached to a PhraseInfo.
// Individual feature functions define their own concrete annotation types
// and type-assert them back out of the Annotations map; the phrase table
// and search code never interpret their contents.
type Annotation interface{}

// Info is a single phrase-table entry: a source Range paired with one
// candidate target-language Phrase and the scores that came with it from
// the phrase table. It is immutable once constructed; PartialScore is
// filled in once by the search's precompute pass and never changes after
// that (mirroring the original decoder's phrasePartialScore() cache).
type Info struct {
	// SrcWords is the source-word range this is a translation of.
	SrcWords coverage.Range

	// Phrase is the target-language phrase, leftmost word first.
	Phrase Phrase

	// PhraseTransProb is the backward (p(target|source)) log-probability,
	// combining PhraseTransProbs across all loaded phrase tables.
	PhraseTransProb float64
	// PhraseTransProbs holds the per-table backward log-probabilities.
	PhraseTransProbs []float32

	// ForwardTransProb is the forward (p(source|target)) log-probability.
	ForwardTransProb float64
	// ForwardTransProbs holds the per-table forward log-probabilities.
	ForwardTransProbs []float32

	// AdirProb is the adirectional log-probability score (e.g. from a
	// joint or feature-based phrase model).
	AdirProb float64
	// AdirProbs holds the per-table adirectional log-probabilities.
	AdirProbs []float32

	// LexDisProbs holds the lexicalized-distortion log-probabilities
	// associated with this phrase pair, one per configured orientation
	// model.
	LexDisProbs []float32

	// PartialScore caches the combined heuristic precompute_future_score
	// across all feature functions for this phrase in isolation. It is
	// NaN until the search's precompute pass fills it in.
	PartialScore float64

	// Annotations carries feature-specific side data keyed by the
	// contributing feature's name.
	Annotations map[string]Annotation
}

// New constructs an Info with an unset (NaN) PartialScore, matching the
// original decoder's PhraseInfo default constructor.
func New(srcWords coverage.Range, ph Phrase) *Info {
	return &Info{
		SrcWords:     srcWords,
		Phrase:       ph,
		PartialScore: math.NaN(),
	}
}

// Empty is the sentinel phrase-table entry every fresh PartialTranslation
// starts with as its LastPhrase: an empty target phrase over the empty
// source range [0,0). Matches PartialTranslation::EmptyPhraseInfo in the
// original, which exists so that code reading t.lastPhrase->src_words
// never needs a nil check on the initial state.
var Empty = New(coverage.NewRange(0, 0), nil)

// HasPartialScore reports whether the precompute pass has already filled in
// PartialScore for this entry.
func (pi *Info) HasPartialScore() bool {
	return !math.IsNaN(pi.PartialScore)
}

// Annotation looks up a feature's annotation on this phrase, if any.
func (pi *Info) Annotation(feature string) (Annotation, bool) {
	if pi.Annotations == nil {
		return nil, false
	}
	a, ok := pi.Annotations[feature]
	return a, ok
}

// SetAnnotation attaches a feature's annotation to this phrase.
func (pi *Info) SetAnnotation(feature string, a Annotation) {
	if pi.Annotations == nil {
		pi.Annotations = make(map[string]Annotation)
	}
	pi.Annotations[feature] = a
}
