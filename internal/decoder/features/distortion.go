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

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// WordDisplacement is the default distortion model: it penalizes jumps
// between the end of the previously covered phrase and the start of the
// next one, including a final jump from the last covered word to the
// sentence end. Ported from WordDisplacement in
// original_source/src/canoe/distortionmodel.{h,cc}.
type WordDisplacement struct {
	feature.Base
	sentLength uint32
}

// Name identifies this feature.
func (*WordDisplacement) Name() string { return "distortion:WordDisplacement" }

// NewSourceSentence records the new sentence's length.
func (w *WordDisplacement) NewSourceSentence(info feature.NewSentenceInfo) {
	w.sentLength = info.SentenceLength
}

// PrecomputeFutureScore is always 0: displacement depends on target
// context (what came immediately before), not on the phrase in
// isolation.
func (*WordDisplacement) PrecomputeFutureScore(*phrase.Info) float64 { return 0 }

// Score penalizes the absolute jump from the end of the previous phrase
// to the start of the new one, plus (if the translation is now complete)
// the jump from the new phrase's end to the sentence end.
func (w *WordDisplacement) Score(pt *state.PartialTranslation) float64 {
	jump := int(pt.LastPhrase.SrcWords.Start) - int(pt.Back.LastPhrase.SrcWords.End)
	result := -float64(absInt(jump))
	if pt.Complete() {
		result -= float64(int(w.sentLength) - int(pt.LastPhrase.SrcWords.End))
	}
	return result
}

// ComputeRecombHash hashes on the end position of the last covered
// phrase, since that's the only context this feature's future scoring
// depends on.
func (*WordDisplacement) ComputeRecombHash(pt *state.PartialTranslation) uint64 {
	return uint64(pt.LastPhrase.SrcWords.End)
}

// IsRecombinable reports whether pt1 and pt2 end their last covered
// phrase at the same source position.
func (*WordDisplacement) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.LastPhrase.SrcWords.End == pt2.LastPhrase.SrcWords.End
}

// FutureScore estimates the remaining distortion cost by walking the
// not-yet-covered ranges in order, charging the jump between consecutive
// ranges' boundaries and the final jump to the sentence end. It is 0 on a
// complete translation, whose final jump Score has already charged.
func (w *WordDisplacement) FutureScore(pt *state.PartialTranslation) float64 {
	if pt.Complete() {
		return 0
	}
	var distScore float64
	lastEnd := int(pt.LastPhrase.SrcWords.End)
	for _, r := range pt.SourceWordsNotCovered {
		distScore -= math.Abs(float64(lastEnd - int(r.Start)))
		lastEnd = int(r.End)
	}
	distScore -= float64(int(w.sentLength) - lastEnd)
	return distScore
}

// PartialFutureScore delegates to FutureScore: this feature's future
// estimate never depends on which target phrase eventually fills a
// range, only on the source ranges themselves.
func (w *WordDisplacement) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return w.FutureScore(pt)
}

// PartialScore can already account for the jump distance as soon as the
// candidate's source range is known, before any target phrase for it has
// been chosen — used by cube pruning's heuristic ordering.
func (w *WordDisplacement) PartialScore(pt *state.PartialTranslation) float64 {
	return w.Score(pt)
}

// ZeroInfoDistortion is a deliberately uninformative distortion model: it
// returns 0 for every incomplete translation and 1 once the translation
// is complete, so that its weight adds the same constant to every complete
// translation rather than collapsing to an unconstrained or random signal.
// Ported from ZeroInfoDistortion in distortionmodel.h; see that type's
// original doc comment for the rationale preserved in this port's doc
// comment below.
//
// This model returns a constant, non-zero value over all completed
// translations rather than 0 (which would make its optimization weight
// useless) or a context-dependent value (which would make it behave like
// a differently-shaped feature rather than a true no-op).
type ZeroInfoDistortion struct {
	feature.Base
}

func (*ZeroInfoDistortion) Name() string                                   { return "distortion:ZeroInfo" }
func (*ZeroInfoDistortion) NewSourceSentence(feature.NewSentenceInfo)      {}
func (*ZeroInfoDistortion) PrecomputeFutureScore(*phrase.Info) float64     { return 0 }
func (*ZeroInfoDistortion) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }
func (*ZeroInfoDistortion) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}

// Score returns 1 once the translation is complete, 0 otherwise.
func (*ZeroInfoDistortion) Score(pt *state.PartialTranslation) float64 {
	if pt.Complete() {
		return 1.0
	}
	return 0.0
}

// FutureScore estimates 1 more point of score remaining, paid out when
// the translation completes, and 0 once it has. The original always
// returns 1 here regardless of completeness, which violates the
// universal feature invariant that FutureScore must be 0 on complete
// translations (see DESIGN.md's Open Question decision on this
// feature); this port special-cases the complete case to satisfy that
// invariant instead.
func (*ZeroInfoDistortion) FutureScore(pt *state.PartialTranslation) float64 {
	if pt.Complete() {
		return 0.0
	}
	return 1.0
}

// PartialFutureScore delegates to FutureScore.
func (z *ZeroInfoDistortion) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return z.FutureScore(pt)
}
