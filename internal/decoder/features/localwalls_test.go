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
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

func TestLocalWallsOnlyAppliesWithinItsZone(t *testing.T) {
	w := NewStrictLocalWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{
		SentenceLength: 8,
		LocalWalls:     []feature.LocalWall{{Pos: 4, Zone: coverage.NewRange(2, 6)}},
	})

	// Uncovered word 1 (outside the zone) before the wall, covered word
	// 5 (inside the zone) after it: since word 1 is outside [2,6), this
	// must NOT count as crossing the local wall.
	outsideZoneCrossing := &state.PartialTranslation{
		SourceWordsNotCovered: coverage.Set{coverage.NewRange(1, 2)},
	}
	if got := w.PartialScore(outsideZoneCrossing); got != 0 {
		t.Errorf("PartialScore(crossing outside zone) = %v, want 0", got)
	}

	// Uncovered word 3 (inside the zone, before the wall) while word 5
	// (inside the zone, after the wall) is covered: a genuine crossing.
	insideZoneCrossing := &state.PartialTranslation{
		SourceWordsNotCovered: coverage.Set{coverage.NewRange(3, 4)},
	}
	if got := w.PartialScore(insideZoneCrossing); got != -1.0 {
		t.Errorf("PartialScore(crossing inside zone) = %v, want -1", got)
	}
}

func TestLocalWallsPrecomputeFutureScoreStraddle(t *testing.T) {
	w := NewStrictLocalWalls("")
	w.NewSourceSentence(feature.NewSentenceInfo{
		SentenceLength: 8,
		LocalWalls:     []feature.LocalWall{{Pos: 4, Zone: coverage.NewRange(2, 6)}},
	})
	straddling := phrase.New(coverage.NewRange(3, 5), nil)
	if got := w.PrecomputeFutureScore(straddling); got != -1.0 {
		t.Errorf("PrecomputeFutureScore(straddle) = %v, want -1", got)
	}
}
