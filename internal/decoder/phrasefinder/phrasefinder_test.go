// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phrasefinder

import (
	"context"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

func buildTable(n int) *phrase.Table {
	tbl := phrase.NewTable(n)
	for i := 0; i < n; i++ {
		for length := 1; i+length <= n; length++ {
			tbl.Add(i, length, phrase.New(coverage.NewRange(uint32(i), uint32(i+length)), phrase.Phrase{1}))
		}
	}
	return tbl
}

func newState(arena *state.Arena, sourceLen uint32, covered []coverage.Range, lastPhrase *phrase.Info) *state.PartialTranslation {
	pt := state.NewInitial(sourceLen, nil)
	pt.SourceWordsNotCovered = covered
	pt.LastPhrase = lastPhrase
	return pt
}

func TestFindPhrasesNoLimit(t *testing.T) {
	tbl := buildTable(4)
	rf := New(tbl, 4, Config{DistLimit: NoMaxDistortion})
	arena := state.NewArena()

	pt := newState(arena, 4, coverage.Set{coverage.NewRange(0, 4)}, phrase.New(coverage.NewRange(0, 0), nil))
	got := rf.FindPhrases(decodectx.New(context.Background(), 0, true), pt)
	if len(got) == 0 {
		t.Fatal("expected candidates with no distortion limit")
	}
}

func TestFindPhrasesStrictDistortionLimit(t *testing.T) {
	tbl := buildTable(6)
	rf := New(tbl, 6, Config{DistLimit: 1})
	ctx := decodectx.New(context.Background(), 0, true)

	lastPhrase := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{1})
	pt := newState(state.NewArena(), 6, coverage.Set{coverage.NewRange(1, 6)}, lastPhrase)

	got := rf.FindPhrases(ctx, pt)
	for _, c := range got {
		jump := int(c.SrcWords.Start) - int(lastPhrase.SrcWords.End)
		if jump < 0 {
			jump = -jump
		}
		if jump > 1 {
			t.Errorf("candidate %v exceeds distortion limit 1 from last phrase end %d", c.SrcWords, lastPhrase.SrcWords.End)
		}
	}
	if len(got) == 0 {
		t.Fatal("expected at least the adjacent candidate to survive")
	}
}

func TestRespectsDistortionLimitSwapException(t *testing.T) {
	rf := New(nil, 6, Config{DistLimit: 0, DistPhraseSwap: true})
	lastPhrase := phrase.New(coverage.NewRange(2, 4), nil)
	pt := &state.PartialTranslation{LastPhrase: lastPhrase}

	// Candidate ends exactly where lastPhrase starts: a swap, allowed
	// even though the naive jump (2) exceeds DistLimit (0).
	swapCandidate := coverage.NewRange(0, 2)
	if !rf.respectsDistortionLimit(pt, swapCandidate) {
		t.Error("expected an adjacent-phrase swap to be allowed regardless of distortion limit")
	}
}

func TestRespectsDistortionLimitRejectsFarJump(t *testing.T) {
	rf := New(nil, 10, Config{DistLimit: 1})
	lastPhrase := phrase.New(coverage.NewRange(0, 1), nil)
	pt := &state.PartialTranslation{LastPhrase: lastPhrase}

	farCandidate := coverage.NewRange(5, 6)
	if rf.respectsDistortionLimit(pt, farCandidate) {
		t.Error("expected a far jump beyond the distortion limit to be rejected")
	}
}
