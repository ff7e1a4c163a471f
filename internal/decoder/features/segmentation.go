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

// segmentation captures the shared profile every segmentation model
// follows: the whole contribution is computed by PrecomputeFutureScore
// alone, Score just replays it against the last phrase, and nothing
// else varies across states. Ported from the default-method bodies on
// SegmentationModel in original_source/src/canoe/segmentmodel.h.
type segmentation struct {
	feature.Base
}

func (segmentation) NewSourceSentence(feature.NewSentenceInfo) {}
func (segmentation) FutureScore(*state.PartialTranslation) float64 { return 0 }
func (segmentation) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }
func (segmentation) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}

// SegmentCount is the "phrase penalty" segmentation model: every phrase
// pays a constant cost of 1, so its weight controls the decoder's bias
// toward fewer, longer phrases versus more, shorter ones. Ported from
// SegmentCount in segmentmodel.{h,cc}.
type SegmentCount struct {
	segmentation
}

func (SegmentCount) Name() string { return "segmentation:count" }

// PrecomputeFutureScore is this model's entire contribution: a constant
// -1 per phrase, independent of its length or target context.
func (SegmentCount) PrecomputeFutureScore(*phrase.Info) float64 { return -1 }

// Score replays PrecomputeFutureScore against the phrase just appended.
func (s SegmentCount) Score(pt *state.PartialTranslation) float64 {
	return s.PrecomputeFutureScore(pt.LastPhrase)
}

// PartialFutureScore delegates to FutureScore (always 0).
func (s SegmentCount) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return s.FutureScore(pt)
}

// BernoulliSegmentation models the probability of a segment boundary as
// a fixed Bernoulli trial with success probability Q at every source
// position: each phrase of length n pays log(Q) for the boundary after
// it plus (n-1)*log(1-Q) for not segmenting at each of its internal
// positions. Ported from BernoulliSegmentationModel in
// segmentmodel.{h,cc}; the "uniform" variant in the original is just
// this model constructed with Q=0.5.
type BernoulliSegmentation struct {
	segmentation
	boundary    float64
	notBoundary float64
}

// minProb floors Q and 1-Q the same way the original's constructor does
// before taking their logarithm, avoiding -Inf for degenerate Q.
const minProb = 1e-6

// NewBernoulliSegmentation constructs a Bernoulli segmentation model
// with per-position boundary probability q.
func NewBernoulliSegmentation(q float64) *BernoulliSegmentation {
	return &BernoulliSegmentation{
		boundary:    math.Log(math.Max(q, minProb)),
		notBoundary: math.Log(math.Max(1-q, minProb)),
	}
}

// NewUniformSegmentation constructs the original's "uniform" alias: a
// Bernoulli model with Q=0.5.
func NewUniformSegmentation() *BernoulliSegmentation {
	return NewBernoulliSegmentation(0.5)
}

func (*BernoulliSegmentation) Name() string { return "segmentation:bernoulli" }

// PrecomputeFutureScore charges one boundary cost plus (length-1)
// not-boundary costs for a phrase of the given source length.
func (b *BernoulliSegmentation) PrecomputeFutureScore(pi *phrase.Info) float64 {
	words := int(pi.SrcWords.Len())
	return b.boundary + float64(words-1)*b.notBoundary
}

// Score replays PrecomputeFutureScore against the phrase just appended.
func (b *BernoulliSegmentation) Score(pt *state.PartialTranslation) float64 {
	return b.PrecomputeFutureScore(pt.LastPhrase)
}

// PartialFutureScore delegates to FutureScore (always 0).
func (b *BernoulliSegmentation) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return b.FutureScore(pt)
}
