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
	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// localWallStraddle is the LocalWalls analogue of wallStraddle: it
// decides whether a phrase straddling a local wall's position counts as
// a violation. The position test is identical to a plain wall; only the
// zone-scoping in LocalWalls' crossing test differs.
type localWallStraddle = wallStraddle

// LocalWalls is a Wall whose crossing test only looks inside the wall's
// own zone: the wall is crossed when some word of the zone before the
// wall is still uncovered while some word of the zone after the wall is
// already covered. Ported from
// StrictLocalWallsFeature/LooseLocalWallsFeature/WordStrictLocalWallsFeature
// in original_source/src/canoe/walls_zones.{h,cc}.
type LocalWalls struct {
	feature.Base
	variant    string
	name       string
	straddle   localWallStraddle
	rangeVeto  bool
	localWalls []feature.LocalWall
}

// NewStrictLocalWalls constructs a LocalWalls feature that penalizes
// both straddling phrases and post-hoc crossings within the wall's
// zone.
func NewStrictLocalWalls(name string) *LocalWalls {
	return &LocalWalls{variant: "Strict", name: name, straddle: strictWallStraddle{}, rangeVeto: true}
}

// NewLooseLocalWalls constructs a LocalWalls feature that only
// penalizes post-hoc crossings, never straddling phrases.
func NewLooseLocalWalls(name string) *LocalWalls {
	return &LocalWalls{variant: "Loose", name: name, straddle: looseWallStraddle{}, rangeVeto: false}
}

// NewWordStrictLocalWalls constructs a LocalWalls feature whose
// straddle test consults phrase-internal word alignment.
func NewWordStrictLocalWalls(name string) *LocalWalls {
	return &LocalWalls{variant: "WordStrict", name: name, straddle: wordStrictWallStraddle{}, rangeVeto: true}
}

func (w *LocalWalls) Name() string {
	if w.name == "" {
		return "localwalls:" + w.variant
	}
	return "localwalls:" + w.variant + ":" + w.name
}

func (w *LocalWalls) NewSourceSentence(info feature.NewSentenceInfo) {
	w.localWalls = w.localWalls[:0]
	for _, lw := range info.LocalWalls {
		if w.name == "" || lw.Name == w.name {
			w.localWalls = append(w.localWalls, lw)
		}
	}
}

// PrecomputeFutureScore charges -1 per local wall this phrase straddles.
func (w *LocalWalls) PrecomputeFutureScore(pi *phrase.Info) float64 {
	var result float64
	for _, lw := range w.localWalls {
		if w.straddle.straddles(pi, lw.Pos) {
			result -= 1.0
		}
	}
	return result
}

// crossesLocalWall reports whether, restricted to lw's own zone, some
// word before the wall position is uncovered while some word after it
// (still within the zone) is already covered.
func crossesLocalWall(lw feature.LocalWall, notCovered coverage.Set) bool {
	before := coverage.NewRange(lw.Zone.Start, lw.Pos)
	after := coverage.NewRange(lw.Pos, lw.Zone.End)
	return !notCovered.Disjoint(before) && !notCovered.ContainsRange(after)
}

// PartialScore charges -1 per local wall crossed by the coverage
// resulting from pt, within that wall's own zone.
func (w *LocalWalls) PartialScore(pt *state.PartialTranslation) float64 {
	var result float64
	for _, lw := range w.localWalls {
		if crossesLocalWall(lw, pt.SourceWordsNotCovered) {
			result -= 1.0
		}
	}
	return result
}

func (w *LocalWalls) Score(pt *state.PartialTranslation) float64 {
	return w.PartialScore(pt) + w.PrecomputeFutureScore(pt.LastPhrase)
}

// FutureScore is always 0: every local wall violation is already fully
// charged as it happens.
func (*LocalWalls) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore.
func (w *LocalWalls) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return w.FutureScore(pt)
}

// ComputeRecombHash is constant.
func (*LocalWalls) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable is always true.
func (*LocalWalls) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}

// EarlyFilterViolation implements phrasefinder.EarlyFilterFeature, the
// LocalWalls analogue of Walls.EarlyFilterViolation.
func (w *LocalWalls) EarlyFilterViolation(pt *state.PartialTranslation, candidate coverage.Range) bool {
	if w.rangeVeto {
		for _, lw := range w.localWalls {
			if candidate.Start < lw.Pos && candidate.End > lw.Pos {
				return true
			}
		}
	}
	notCovered := pt.SourceWordsNotCovered.Sub(candidate)
	for _, lw := range w.localWalls {
		if crossesLocalWall(lw, notCovered) {
			return true
		}
	}
	return false
}
