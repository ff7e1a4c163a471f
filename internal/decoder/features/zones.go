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

// isStraddlingZoneBoundary reports whether src has words on both sides
// of either edge of zone.
func isStraddlingZoneBoundary(zone, src coverage.Range) bool {
	return (src.Start < zone.Start && src.End > zone.Start) ||
		(src.Start < zone.End && src.End > zone.End)
}

// isLeavingIncompleteZone reports whether zone was started (some of it
// already translated before pt) but not finished as of pt, and pt's
// last phrase has a word outside zone — i.e. the hypothesis is working
// elsewhere while leaving zone half-translated.
func isLeavingIncompleteZone(zone coverage.Range, pt *state.PartialTranslation) bool {
	zoneStarted := pt.Back != nil && !pt.Back.SourceWordsNotCovered.ContainsRange(zone)
	if !zoneStarted {
		return false
	}
	zoneFinished := pt.SourceWordsNotCovered.Disjoint(zone)
	if zoneFinished {
		return false
	}
	src := pt.LastPhrase.SrcWords
	return src.Start < zone.Start || src.End > zone.End
}

// DistortionLimitChecker lets StrictZones' (and WordStrictZones')
// future-score pass detect when entering a zone before completing the
// words that precede it would make the zone uncompletable under the
// active distortion limit. Supplying one is optional; without it this
// detection is simply skipped.
type DistortionLimitChecker interface {
	RespectsDistortionLimit(pt *state.PartialTranslation, candidate coverage.Range) bool
}

// zoneStraddlePenalty decides, for the simple (non-word-strict) zone
// variants, whether a phrase straddling a zone boundary charges -1 in
// PrecomputeFutureScore. Strict always does; Loose never does.
type zoneStraddlePenalty bool

// Zones is the Strict/Loose hard-reordering-constraint feature over
// zones: a contiguous region that must be translated as a unit. Ported
// from StrictZonesFeature/LooseZonesFeature in
// original_source/src/canoe/walls_zones.{h,cc}.
type Zones struct {
	feature.Base
	variant    string
	name       string
	penalize   zoneStraddlePenalty
	checker    DistortionLimitChecker
	zones      []feature.Zone
	sentLength uint32
}

// NewStrictZones constructs a Zones feature that charges both
// straddling phrases and incomplete-zone departures. checker may be nil
// to skip the zone-uncompletability future-score check.
func NewStrictZones(name string, checker DistortionLimitChecker) *Zones {
	return &Zones{variant: "Strict", name: name, penalize: true, checker: checker}
}

// NewLooseZones constructs a Zones feature that only charges
// incomplete-zone departures, never straddling phrases.
func NewLooseZones(name string, checker DistortionLimitChecker) *Zones {
	return &Zones{variant: "Loose", name: name, penalize: false, checker: checker}
}

func (z *Zones) Name() string {
	if z.name == "" {
		return "zones:" + z.variant
	}
	return "zones:" + z.variant + ":" + z.name
}

func (z *Zones) NewSourceSentence(info feature.NewSentenceInfo) {
	z.sentLength = info.SentenceLength
	z.zones = z.zones[:0]
	for _, zone := range info.Zones {
		if z.name == "" || zone.Name == z.name {
			z.zones = append(z.zones, zone)
		}
	}
}

// PrecomputeFutureScore charges -1 per zone this phrase straddles, if
// this variant penalizes straddling at all.
func (z *Zones) PrecomputeFutureScore(pi *phrase.Info) float64 {
	if !z.penalize {
		return 0
	}
	var result float64
	for _, zone := range z.zones {
		if isStraddlingZoneBoundary(zone.Range, pi.SrcWords) {
			result -= 1.0
		}
	}
	return result
}

// PartialScore charges -1 per zone left incomplete by pt while the
// hypothesis moves on to translate elsewhere.
func (z *Zones) PartialScore(pt *state.PartialTranslation) float64 {
	var result float64
	for _, zone := range z.zones {
		if isLeavingIncompleteZone(zone.Range, pt) {
			result -= 1.0
		}
	}
	return result
}

func (z *Zones) Score(pt *state.PartialTranslation) float64 {
	return z.PartialScore(pt) + z.PrecomputeFutureScore(pt.LastPhrase)
}

// FutureScore detects the case where a zone was entered but not
// completed, and completing it from here would require a final phrase
// reaching the zone's right edge that violates the active distortion
// limit — a dead end that otherwise fills decoder stacks with
// hypotheses that can never finish legally. Shared unchanged by every
// zone variant.
func (z *Zones) FutureScore(pt *state.PartialTranslation) float64 {
	if z.checker == nil {
		return 0
	}
	cov := pt.SourceWordsNotCovered
	var firstNotCovered uint32
	if len(cov) == 0 {
		firstNotCovered = z.sentLength
	} else {
		firstNotCovered = cov[0].Start
	}

	var result float64
	for _, zone := range z.zones {
		r := zone.Range
		if r.Start <= firstNotCovered {
			// The search hasn't jumped ahead of the zone: either the
			// zone starts at or before the oldest remaining gap, so
			// entering it out of order isn't what's happening here.
			continue
		}
		if cov.ContainsRange(r) {
			continue // zone not started
		}
		if cov.Disjoint(r) {
			continue // zone already finished
		}
		zoneNotCovered := cov.Intersect(r)
		if len(zoneNotCovered) == 0 {
			continue
		}
		last := zoneNotCovered[len(zoneNotCovered)-1]
		if last.End == r.End {
			if !z.checker.RespectsDistortionLimit(pt, last) {
				result -= 1.0
			}
		}
	}
	return result
}

// PartialFutureScore delegates to FutureScore.
func (z *Zones) PartialFutureScore(pt *state.PartialTranslation) float64 { return z.FutureScore(pt) }

// ComputeRecombHash is constant.
func (*Zones) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable is always true.
func (*Zones) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool { return true }

// hasCrossLink reports, for a phrase src that covers all of zone plus
// words outside it, whether any alignment link from the part of src
// outside zone falls between the zone's own link span — meaning the
// zone's material isn't independently translatable from the rest of
// src.
func hasCrossLink(src, zone coverage.Range, sets AlignmentSets) bool {
	entry := int(zone.Start - src.Start)
	exit := int(zone.End - src.Start)
	zoneMax := maxLink(sets, entry, exit)
	if zoneMax == -1 {
		return false
	}
	zoneMin := minLink(sets, entry, exit)
	for i := 0; i < entry; i++ {
		for _, link := range sets[i] {
			if link >= zoneMin && link <= zoneMax {
				return true
			}
		}
	}
	return false
}

// WordStrictZones consults phrase-internal word alignment to decide
// whether a phrase straddling a zone boundary is actually
// non-compositional (a violation) or safely splittable. Its score is
// not simply partialScore + precomputeFutureScore, since whether
// straddling at the zone's left or right edge is a violation depends on
// whether the hypothesis is entering or exiting the zone at that point
// — a distinction only known once the coverage before and after the
// phrase are both available. Ported from WordStrictZonesFeature.
type WordStrictZones struct {
	feature.Base
	name  string
	zones []feature.Zone
}

// NewWordStrictZones constructs a WordStrictZones feature.
func NewWordStrictZones(name string) *WordStrictZones {
	return &WordStrictZones{name: name}
}

func (z *WordStrictZones) Name() string {
	if z.name == "" {
		return "zones:WordStrict"
	}
	return "zones:WordStrict:" + z.name
}

func (z *WordStrictZones) NewSourceSentence(info feature.NewSentenceInfo) {
	z.zones = z.zones[:0]
	for _, zone := range info.Zones {
		if z.name == "" || zone.Name == z.name {
			z.zones = append(z.zones, zone)
		}
	}
}

// PrecomputeFutureScore checks straddling phrases for compositionality,
// without yet knowing whether the hypothesis will be entering or
// exiting the zone through that edge — a phrase is flagged here only
// if it would violate either way.
func (z *WordStrictZones) PrecomputeFutureScore(pi *phrase.Info) float64 {
	var result float64
	src := pi.SrcWords
	for _, zone := range z.zones {
		r := zone.Range
		if !isStraddlingZoneBoundary(r, src) {
			continue
		}
		srcLen := int(src.Len())
		sets, ok := alignmentSets(pi, srcLen)
		if !ok {
			result -= 1.0
			continue
		}
		switch {
		case src.Start <= r.Start && src.End >= r.End:
			if hasCrossLink(src, r, sets) {
				result -= 1.0
			}
		case src.Start < r.Start:
			boundary := int(r.Start - src.Start)
			if maxLink(sets, boundary, srcLen) >= minLink(sets, 0, boundary) &&
				maxLink(sets, 0, boundary) >= minLink(sets, boundary, srcLen) {
				result -= 1.0
			}
		default:
			boundary := int(r.End - src.Start)
			if maxLink(sets, 0, boundary) >= minLink(sets, boundary, srcLen) &&
				maxLink(sets, boundary, srcLen) >= minLink(sets, 0, boundary) {
				result -= 1.0
			}
		}
	}
	return result
}

// Score recomputes the straddle test now that the actual entering/exiting
// direction at each edge is known from pt's coverage, plus the
// incomplete-zone-departure charge shared with the other zone variants.
func (z *WordStrictZones) Score(pt *state.PartialTranslation) float64 {
	result := 0.0
	for _, zone := range z.zones {
		if isLeavingIncompleteZone(zone.Range, pt) {
			result -= 1.0
		}
	}

	src := pt.LastPhrase.SrcWords
	for _, zone := range z.zones {
		r := zone.Range
		if !isStraddlingZoneBoundary(r, src) {
			continue
		}
		srcLen := int(src.Len())
		sets, ok := alignmentSets(pt.LastPhrase, srcLen)
		if !ok {
			result -= 1.0
			continue
		}
		switch {
		case src.Start <= r.Start && src.End >= r.End:
			if hasCrossLink(src, r, sets) {
				result -= 1.0
			}
		case src.Start < r.Start:
			boundary := int(r.Start - src.Start)
			if !pt.SourceWordsNotCovered.Disjoint(r) {
				if maxLink(sets, 0, boundary) >= minLink(sets, boundary, srcLen) {
					result -= 1.0
				}
			} else if maxLink(sets, boundary, srcLen) >= minLink(sets, 0, boundary) {
				result -= 1.0
			}
		default:
			boundary := int(r.End - src.Start)
			if pt.SourceWordsNotCovered.Disjoint(r) {
				if maxLink(sets, 0, boundary) >= minLink(sets, boundary, srcLen) {
					result -= 1.0
				}
			} else if maxLink(sets, boundary, srcLen) >= minLink(sets, 0, boundary) {
				result -= 1.0
			}
		}
	}
	return result
}

// FutureScore is always 0: every charge WordStrictZones assigns is
// already fully accounted for in Score/PrecomputeFutureScore as it
// happens. The dead-end-zone detection StrictZones/LooseZones perform
// depends on a distortion-limit checker that's orthogonal to the
// word-alignment refinement this variant adds; callers that need both
// behaviours should run a Zones feature alongside this one.
func (*WordStrictZones) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore.
func (z *WordStrictZones) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return z.FutureScore(pt)
}

// ComputeRecombHash is constant.
func (*WordStrictZones) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable is always true.
func (*WordStrictZones) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}
