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

// wallStraddle decides whether a phrase pair straddling a wall counts
// as a violation worth charging in PrecomputeFutureScore. Strict,
// WordStrict, and Loose walls differ only in this test; everything else
// (crossing detection on the resulting coverage, future score, hashing)
// is shared, replacing the original's one-method-override mixin
// inheritance with composition over this small interface.
type wallStraddle interface {
	straddles(pi *phrase.Info, wallPos uint32) bool
}

type strictWallStraddle struct{}

func (strictWallStraddle) straddles(pi *phrase.Info, wallPos uint32) bool {
	return pi.SrcWords.Start < wallPos && pi.SrcWords.End > wallPos
}

type looseWallStraddle struct{}

func (looseWallStraddle) straddles(*phrase.Info, uint32) bool { return false }

type wordStrictWallStraddle struct{}

// straddles reports a violation only when the phrase's alignment links
// show the material before and after the wall are not independently
// translatable: the latest link before the wall reaches at least as far
// as the earliest link at or after it. A phrase with no alignment
// annotation is assumed non-compositional and always counts as a
// violation when it straddles the wall.
func (wordStrictWallStraddle) straddles(pi *phrase.Info, wallPos uint32) bool {
	if pi.SrcWords.Start >= wallPos || pi.SrcWords.End <= wallPos {
		return false
	}
	srcLen := int(pi.SrcWords.Len())
	sets, ok := alignmentSets(pi, srcLen)
	if !ok {
		return true
	}
	boundary := int(wallPos - pi.SrcWords.Start)
	return maxLink(sets, 0, boundary) >= minLink(sets, boundary, srcLen)
}

// Walls is a hard-reordering-constraint feature: it charges a violation
// for any phrase straddling a configured wall position (per variant's
// wallStraddle test) and for any resulting coverage that leaves words
// uncovered before a wall while words after it are already covered.
// Ported from StrictWallsFeature/LooseWallsFeature/WordStrictWallsFeature
// in original_source/src/canoe/walls_zones.{h,cc}.
type Walls struct {
	feature.Base
	variant    string
	name       string
	straddle   wallStraddle
	rangeVeto  bool
	walls      []feature.Wall
	sentLength uint32
}

// NewStrictWalls constructs a Walls feature that penalizes both
// straddling phrases and post-hoc wall crossings. name restricts the
// feature to walls of that name; "" considers every unnamed wall.
func NewStrictWalls(name string) *Walls {
	return &Walls{variant: "Strict", name: name, straddle: strictWallStraddle{}, rangeVeto: true}
}

// NewLooseWalls constructs a Walls feature that only penalizes post-hoc
// wall crossings, never straddling phrases.
func NewLooseWalls(name string) *Walls {
	return &Walls{variant: "Loose", name: name, straddle: looseWallStraddle{}, rangeVeto: false}
}

// NewWordStrictWalls constructs a Walls feature whose straddle test
// consults phrase-internal word alignment.
func NewWordStrictWalls(name string) *Walls {
	return &Walls{variant: "WordStrict", name: name, straddle: wordStrictWallStraddle{}, rangeVeto: true}
}

// Name identifies the feature, including the wall name it's scoped to
// (if any).
func (w *Walls) Name() string {
	if w.name == "" {
		return "walls:" + w.variant
	}
	return "walls:" + w.variant + ":" + w.name
}

// NewSourceSentence records the sentence length and the subset of the
// sentence's walls this feature cares about.
func (w *Walls) NewSourceSentence(info feature.NewSentenceInfo) {
	w.sentLength = info.SentenceLength
	w.walls = w.walls[:0]
	for _, wall := range info.Walls {
		if w.name == "" || wall.Name == w.name {
			w.walls = append(w.walls, wall)
		}
	}
}

// PrecomputeFutureScore charges -1 per wall this phrase straddles,
// letting the hard constraint bite as early as the search's DP future
// score pass, before a state is even built for the violating phrase.
func (w *Walls) PrecomputeFutureScore(pi *phrase.Info) float64 {
	var result float64
	for _, wall := range w.walls {
		if w.straddle.straddles(pi, wall.Pos) {
			result -= 1.0
		}
	}
	return result
}

// crossesWall reports whether notCovered (the coverage complement) has
// an uncovered word before wallPos while some word at or after wallPos is
// already covered (the region from wallPos to the sentence end is not
// entirely uncovered).
func (w *Walls) crossesWall(wallPos uint32, notCovered coverage.Set) bool {
	if len(notCovered) == 0 {
		return false
	}
	first, last := notCovered[0], notCovered[len(notCovered)-1]
	return first.Start < wallPos && (last.Start > wallPos || last.End != w.sentLength)
}

// PartialScore charges -1 per wall crossed by the coverage resulting
// from pt, independent of which phrase produced it.
func (w *Walls) PartialScore(pt *state.PartialTranslation) float64 {
	var result float64
	for _, wall := range w.walls {
		if w.crossesWall(wall.Pos, pt.SourceWordsNotCovered) {
			result -= 1.0
		}
	}
	return result
}

// Score combines the coverage-crossing charge with the straddle charge
// for the phrase just appended.
func (w *Walls) Score(pt *state.PartialTranslation) float64 {
	return w.PartialScore(pt) + w.PrecomputeFutureScore(pt.LastPhrase)
}

// FutureScore is always 0: every wall violation is already fully
// charged by PrecomputeFutureScore/PartialScore as it happens.
func (*Walls) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore.
func (w *Walls) PartialFutureScore(pt *state.PartialTranslation) float64 { return w.FutureScore(pt) }

// ComputeRecombHash is constant: walls never distinguish states for
// recombination beyond what coverage already captures.
func (*Walls) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable is always true.
func (*Walls) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool { return true }

// EarlyFilterViolation implements phrasefinder.EarlyFilterFeature: a
// candidate range that structurally straddles a wall, or whose
// resulting coverage would cross one, can be rejected before the
// search enumerates specific target phrases for it. Loose walls never
// veto on structural straddling alone, matching their precomputed
// future score always being 0; the word-alignment refinement
// WordStrict applies is necessarily deferred to PrecomputeFutureScore,
// since no specific phrase is known yet at this point.
func (w *Walls) EarlyFilterViolation(pt *state.PartialTranslation, candidate coverage.Range) bool {
	if w.rangeVeto {
		for _, wall := range w.walls {
			if candidate.Start < wall.Pos && candidate.End > wall.Pos {
				return true
			}
		}
	}
	notCovered := pt.SourceWordsNotCovered.Sub(candidate)
	for _, wall := range w.walls {
		if w.crossesWall(wall.Pos, notCovered) {
			return true
		}
	}
	return false
}
