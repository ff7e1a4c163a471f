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

// NoMaxLevenshtein disables the Levenshtein hard cutoff: every hypothesis
// is scored regardless of how far it has drifted from the reference.
const NoMaxLevenshtein = -1

// Levenshtein scores a hypothesis against a fixed target reference during
// (semi-)forced decoding: the closer the hypothesis tracks the reference,
// the higher its score. Ported from LevenshteinFeature in
// levenshtein_feature.{h,cc}.
type Levenshtein struct {
	ref         phrase.Phrase
	levLimit    int
	relLevLimit int
}

// NewLevenshtein constructs a Levenshtein feature with the given hard
// distance limit (as a percentage of source sentence length), or
// NoMaxLevenshtein to never cut a hypothesis off regardless of distance.
func NewLevenshtein(levLimit int) *Levenshtein {
	return &Levenshtein{levLimit: levLimit}
}

func (*Levenshtein) Name() string { return "levenshtein" }

// NewSourceSentence records the forced reference for the new sentence and
// rescales levLimit to this sentence's length.
func (l *Levenshtein) NewSourceSentence(info feature.NewSentenceInfo) {
	l.ref = info.ForcedReference
	if l.levLimit != NoMaxLevenshtein {
		l.relLevLimit = int(float64(int(info.SentenceLength)*l.levLimit) / 100.0)
	} else {
		l.relLevLimit = NoMaxLevenshtein
	}
}

// PrecomputeFutureScore is the optimistic score for this phrase alone, as
// computed by minLevDist: -Inf once it can never stay within the
// configured limit, regardless of how the rest of the sentence is
// translated.
func (l *Levenshtein) PrecomputeFutureScore(pi *phrase.Info) float64 {
	minDist := l.minLevDist(pi.Phrase)
	if l.levLimit != NoMaxLevenshtein && minDist > l.relLevLimit {
		return math.Inf(-1)
	}
	return -float64(minDist)
}

// FutureScore is always 0: this feature's entire remaining-distance
// estimate is folded into PrecomputeFutureScore per phrase.
func (*Levenshtein) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore (always 0).
func (l *Levenshtein) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return l.FutureScore(pt)
}

// Score returns the marginal change in (negative) edit distance caused by
// appending pt.LastPhrase, caching the freshly computed distance onto
// pt.LevInfo the first time this node is scored.
func (l *Levenshtein) Score(pt *state.PartialTranslation) float64 {
	var dist int
	if pt.LevInfo.Distance == -1 {
		dist = l.levDist(pt)
		pt.LevInfo.Distance = dist
	} else {
		dist = pt.LevInfo.Distance
	}

	if l.levLimit != NoMaxLevenshtein && dist > l.relLevLimit {
		return math.Inf(-1)
	}

	if pt.Back != nil && pt.Back.Length() > 0 {
		dist -= pt.Back.LevInfo.Distance
	}
	return -float64(dist)
}

// PartialScore has nothing source-range-only to offer: the Levenshtein
// distance is inherently target-word dependent.
func (*Levenshtein) PartialScore(*state.PartialTranslation) float64 { return 0 }

// ComputeRecombHash is always 0: recombination is decided by IsRecombinable
// comparing the cached distance and min-position set directly.
func (*Levenshtein) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable reports whether pt1 and pt2 have the same distance to the
// reference, achieved by covering the same part of it.
func (l *Levenshtein) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	if pt1.LevInfo.Distance != pt2.LevInfo.Distance {
		return false
	}
	return equalBoolSlices(pt1.LevInfo.MinPositions, pt2.LevInfo.MinPositions)
}

// LMLikeContextNeeded: this feature needs no target-word context from the
// previous state beyond what the PartialTranslation chain already gives it.
func (*Levenshtein) LMLikeContextNeeded() uint32 { return 0 }

// levDist is the actual (for complete translations) or optimistic (for
// partial translations) edit distance between the translation built so far
// and the reference.
func (l *Levenshtein) levDist(pt *state.PartialTranslation) int {
	hyp := pt.EntirePhrase()
	if pt.Complete() {
		return editDistance(hyp, l.ref)
	}
	var minPositions []bool
	dist := editDistanceIncompleteRef(hyp, l.ref, false, true, &minPositions)
	pt.LevInfo.MinPositions = minPositions
	return dist
}

// minLevDist finds the part of the reference — not necessarily starting at
// its beginning or ending at its end — with the minimal edit distance to
// phr, giving a very optimistic score for a target phrase considered in
// isolation.
func (l *Levenshtein) minLevDist(phr phrase.Phrase) int {
	if len(l.ref) == 0 {
		return len(phr)
	}
	return editDistanceIncompleteRef(phr, l.ref, true, true, nil)
}

// equalBoolSlices reports whether a and b have the same length and
// contents, treating a nil/empty slice as equal to another nil/empty one.
func equalBoolSlices(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
