// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package feature declares the Function contract every scoring component
// (length penalty, distortion, reordering walls/zones, lexicalized
// models, language models, and any externally-hosted model such as an
// NNJM) must implement to participate in the decoder's search.
package feature

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// Wall marks a hard barrier at a single source position: no hypothesis
// may leave words before the barrier uncovered while words after it are
// already covered. Name is "" for the default (unnamed) wall set, or
// identifies a named subset that only a feature configured for that
// name pays attention to.
type Wall struct {
	Name string
	Pos  uint32
}

// Zone marks a contiguous source range that must be covered as a unit:
// no phrase may straddle either edge, and no hypothesis may leave the
// zone partially covered and move on.
type Zone struct {
	Name  string
	Range coverage.Range
}

// LocalWall is a Wall whose barrier only applies to words inside Zone.
type LocalWall struct {
	Name string
	Pos  uint32
	Zone coverage.Range
}

// Mark is a user-supplied marked translation: a source range annotated
// with a preferred or forced target phrase, the name of the rule class
// that should consider it, and the log probability a Rule feature for
// that class assigns to choosing it.
type Mark struct {
	ClassName    string
	SrcWords     coverage.Range
	TargetPhrase phrase.Phrase
	LogProb      float64
}

// NewSentenceInfo carries everything a feature needs to reset its
// per-sentence state: the source sentence's word ids, its length, any
// auxiliary per-sentence inputs (references, markup) a feature might
// consult, and the sentence's hard-reordering-constraint metadata. It
// mirrors the original decoder's newSrcSentInfo.
type NewSentenceInfo struct {
	SourceSentence []string
	SentenceLength uint32
	References     [][]string
	Walls          []Wall
	Zones          []Zone
	LocalWalls     []LocalWall
	Marks          []Mark

	// ForcedReference is the target-vocabulary word-id sequence a
	// Levenshtein feature scores hypotheses against during (semi-)forced
	// decoding. Empty when forced decoding isn't active.
	ForcedReference phrase.Phrase
}

// Function is the contract every decoder feature implements. A Function
// assigns a marginal score to the act of appending one phrase pair to a
// partial translation, plus a heuristic estimate ("future score") of how
// much more score remains to be earned completing that translation — the
// combination of scores and future scores across every active Function is
// what hypothesis stacks compare when pruning and what cube pruning uses
// to order its frontier.
//
// Every Function must satisfy: FutureScore returns 0 for any complete
// partial translation (pt.Complete()); PartialScore and
// PartialFutureScore must not double-count information the other methods
// already report, since cube pruning sums PartialScore(pt) +
// PrecomputeFutureScore(pt.LastPhrase) as a proxy for Score(pt).
type Function interface {
	// Name identifies the feature for logging, the recombination hash
	// combination, and config wiring.
	Name() string

	// NewSourceSentence resets any per-sentence state before decoding a new
	// sentence.
	NewSourceSentence(info NewSentenceInfo)

	// PrecomputeFutureScore computes the highest score this feature could
	// ever assign to the given phrase pair, independent of target context.
	// Returns 0 if no context-independent bound can be computed for this
	// feature.
	PrecomputeFutureScore(pi *phrase.Info) float64

	// FutureScore estimates the highest score this feature can assign to
	// any complete extension of pt, scoring only the as-yet-untranslated
	// portion. Must return 0 when pt is already complete.
	FutureScore(pt *state.PartialTranslation) float64

	// Score returns the marginal score for having appended
	// pt.LastPhrase to pt.Back.
	Score(pt *state.PartialTranslation) float64

	// PartialScore returns whatever part of Score can be inferred from
	// pt.LastPhrase.SrcWords alone, ignoring its target words. The base
	// behavior (for features with nothing source-range-dependent to
	// report) is to return 0.
	PartialScore(pt *state.PartialTranslation) float64

	// PartialFutureScore is like FutureScore but may additionally use
	// pt.LastPhrase's target words; used by cube pruning before a
	// specific target phrase has been chosen for a source range. Features
	// whose FutureScore never depends on pt.LastPhrase.Phrase can
	// implement this as FutureScore(pt).
	PartialFutureScore(pt *state.PartialTranslation) float64

	// ComputeRecombHash returns a hash capturing only the
	// feature-specific information relevant to IsRecombinable: not the
	// last N target words, not the covered-source-word set, nothing a
	// different feature already accounts for.
	ComputeRecombHash(pt *state.PartialTranslation) uint64

	// IsRecombinable reports whether, from this feature's perspective
	// alone, pt1 and pt2 would score identically on every possible
	// extension.
	IsRecombinable(pt1, pt2 *state.PartialTranslation) bool

	// LMLikeContextNeeded returns the number of trailing target words
	// this feature needs from the previous state's context, analogous to
	// an n-gram language model's order. Features with no such dependency
	// return 0.
	LMLikeContextNeeded() uint32
}

// Base provides default implementations of the optional parts of the
// Function contract (PartialScore returning 0, LMLikeContextNeeded
// returning 0) so that a concrete feature embedding Base only needs to
// implement the methods where it differs from the common case — the same
// "override only what you need" shape as the original's DecoderFeature
// base class virtuals with default bodies. PartialFutureScore has no
// default here (Go's embedding can't call back into the embedding type's
// FutureScore the way a C++ virtual call can); features whose
// PartialFutureScore is just FutureScore should implement it explicitly
// as `func (f *Foo) PartialFutureScore(pt) float64 { return f.FutureScore(pt) }`.
type Base struct{}

// PartialScore is the default: no source-range-only information to offer.
func (Base) PartialScore(*state.PartialTranslation) float64 { return 0.0 }

// LMLikeContextNeeded is the default: this feature needs no target-word
// context from the previous state.
func (Base) LMLikeContextNeeded() uint32 { return 0 }
