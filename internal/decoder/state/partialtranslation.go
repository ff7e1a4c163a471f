// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
)

// LevenshteinInfo tracks the running state the optional Levenshtein
// feature needs: the edit distance accumulated so far between the
// translation prefix and a reference, plus the set of reference
// positions that distance is achieved at (needed to tell two partial
// translations with the same distance, but against different possible
// alignments to the reference, apart for recombination purposes).
// Distance is -1 until the feature first computes it for this node.
type LevenshteinInfo struct {
	Distance     int
	MinPositions []bool
}

// PartialTranslation is one node of the search tree: a translation prefix
// built by appending LastPhrase's target words to Back's translation. It is
// immutable once constructed, mirroring the original decoder's
// PartialTranslation, except that Go's garbage collector replaces the
// original's manual new/delete of the optional LevInfo/ShiftReduce
// sub-objects — there is no equivalent of its destructor here.
type PartialTranslation struct {
	// Back points to the translation prefix this extends, or nil for the
	// initial empty translation.
	Back *PartialTranslation

	// LastPhrase is the phrase appended to Back to produce this
	// translation, or phrase.Empty for the initial empty translation.
	LastPhrase *phrase.Info

	// NumSourceWordsCovered is the total number of source words accounted
	// for by this translation and everything in its Back chain.
	NumSourceWordsCovered uint32

	// SourceWordsNotCovered is the coverage set of source words still
	// needing translation.
	SourceWordsNotCovered coverage.Set

	// ContextSizes caches each language-model feature's required context
	// size for this translation's last few words, computed lazily and
	// reused across recombination checks.
	ContextSizes PackedContext

	// LevInfo is present only when a Levenshtein feature is active.
	LevInfo *LevenshteinInfo

	// ShiftReduce is present only when an ITG/shift-reduce reordering
	// constraint is active; its concrete type lives in the shiftreduce
	// package and is threaded through as an opaque value here to avoid an
	// import cycle (shiftreduce itself needs coverage.Range, not this
	// package).
	ShiftReduce any
}

// NewInitial constructs the empty translation for a source sentence of the
// given length: nothing covered, full context available (the decoder
// always has at least a sentence-start token of context to offer), and the
// optional Levenshtein/shift-reduce sub-state allocated only if requested.
func NewInitial(sourceLen uint32, newShiftReduce func(sourceLen uint32) any) *PartialTranslation {
	pt := &PartialTranslation{
		LastPhrase:   phrase.Empty,
		ContextSizes: NewPackedContext(1),
	}
	if sourceLen > 0 {
		pt.SourceWordsNotCovered = coverage.Set{coverage.NewRange(0, sourceLen)}
	}
	if newShiftReduce != nil {
		pt.ShiftReduce = newShiftReduce(sourceLen)
	}
	return pt
}

// Extend constructs the translation obtained by appending ph to prev. If
// precomputedNotCovered is non-nil it is used as-is (the caller has already
// computed it, e.g. while enumerating phrase-finder candidates);
// otherwise it is derived by subtracting ph's source range from prev's
// coverage.
func Extend(prev *PartialTranslation, ph *phrase.Info, precomputedNotCovered coverage.Set, newShiftReduce func(src coverage.Range, prevSR any) any) *PartialTranslation {
	pt := &PartialTranslation{
		Back:                  prev,
		LastPhrase:            ph,
		NumSourceWordsCovered: prev.NumSourceWordsCovered + ph.SrcWords.Len(),
		ContextSizes:          NewPackedContext(Unset),
	}
	if prev.LevInfo != nil {
		pt.LevInfo = &LevenshteinInfo{Distance: -1}
	}
	if precomputedNotCovered != nil {
		pt.SourceWordsNotCovered = precomputedNotCovered
	} else {
		pt.SourceWordsNotCovered = prev.SourceWordsNotCovered.Sub(ph.SrcWords)
	}
	if prev.ShiftReduce != nil && newShiftReduce != nil {
		pt.ShiftReduce = newShiftReduce(ph.SrcWords, prev.ShiftReduce)
	}
	return pt
}

// Complete reports whether every source word has been covered.
func (pt *PartialTranslation) Complete() bool {
	return len(pt.SourceWordsNotCovered) == 0
}

// Phrase returns the target words appended at this node (empty for the
// initial translation).
func (pt *PartialTranslation) Phrase() phrase.Phrase {
	if pt.LastPhrase == nil {
		return nil
	}
	return pt.LastPhrase.Phrase
}

// Length returns the total number of target words in the translation,
// walking the Back chain.
func (pt *PartialTranslation) Length() int {
	n := 0
	for cur := pt; cur != nil; cur = cur.Back {
		n += len(cur.Phrase())
	}
	return n
}

// LastWords returns the final num target words of the translation. If
// backward is true they are returned in reverse (most recent word first);
// otherwise in normal reading order. Ported from
// PartialTranslation::getLastWords / _getLastWords / _getLastWordsBackward.
func (pt *PartialTranslation) LastWords(num int, backward bool) phrase.Phrase {
	words := make(phrase.Phrase, 0, num)
	if backward {
		pt.lastWordsBackward(&words, num)
	} else {
		pt.lastWordsForward(&words, num)
	}
	return words
}

func (pt *PartialTranslation) lastWordsForward(words *phrase.Phrase, num int) {
	if pt.LastPhrase == nil {
		return
	}
	ph := pt.Phrase()
	if num > len(ph) && pt.Back != nil {
		pt.Back.lastWordsForward(words, num-len(ph))
	}
	start := 0
	if num < len(ph) {
		start = len(ph) - num
	}
	*words = append(*words, ph[start:]...)
}

func (pt *PartialTranslation) lastWordsBackward(words *phrase.Phrase, num int) {
	cur := pt
	for cur != nil && cur.LastPhrase != nil && num > 0 {
		ph := cur.Phrase()
		for i := len(ph) - 1; i >= 0 && num > 0; i-- {
			*words = append(*words, ph[i])
			num--
		}
		cur = cur.Back
	}
}

// EntirePhrase returns the whole target-side translation built so far, in
// reading order.
func (pt *PartialTranslation) EntirePhrase() phrase.Phrase {
	return pt.LastWords(pt.Length(), false)
}

// SameLastWords reports whether pt and other share the same final num
// target words. isRecombinable() calls this on the hot path; the original
// decoder avoids materializing either side's word list by walking its
// linked list and reverse phrase iterators in lockstep. Go's allocator
// makes that micro-optimization far less valuable than it was in the
// original's C++, so this instead compares the two backward-order word
// lists directly, which is easier to verify and just as correct.
func (pt *PartialTranslation) SameLastWords(other *PartialTranslation, num int) bool {
	a := pt.LastWords(num, true)
	b := other.LastWords(num, true)
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
