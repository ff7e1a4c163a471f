// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package features implements the concrete decoder features: length and
// segmentation penalties, distortion, hard reordering constraints (walls,
// zones, local walls), lexicalized and Levenshtein scoring, and an
// external neural-model adapter.
package features

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// Length is a word-penalty feature: its score is the negative of the
// number of target words the last phrase contributed, so that its weight
// controls the decoder's bias toward longer or shorter output. Ported
// from LengthFeature in original_source/src/canoe/length_feature.h.
type Length struct {
	feature.Base
}

// Name identifies this feature.
func (Length) Name() string { return "length" }

// NewSourceSentence is a no-op: this feature has no per-sentence state.
func (Length) NewSourceSentence(feature.NewSentenceInfo) {}

// PrecomputeFutureScore returns the negative length of the candidate
// phrase, fully determined independent of target context.
func (Length) PrecomputeFutureScore(pi *phrase.Info) float64 {
	return -float64(len(pi.Phrase))
}

// FutureScore is always 0: the whole contribution is already accounted
// for by PrecomputeFutureScore.
func (Length) FutureScore(*state.PartialTranslation) float64 { return 0 }

// Score returns the negative length of the last phrase appended.
func (Length) Score(pt *state.PartialTranslation) float64 {
	return -float64(len(pt.Phrase()))
}

// PartialFutureScore delegates to FutureScore, since this feature's
// future score never depends on target-word identity.
func (l Length) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return l.FutureScore(pt)
}

// ComputeRecombHash is constant: length never distinguishes states for
// recombination purposes.
func (Length) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable is always true: this feature never blocks recombination.
func (Length) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}
