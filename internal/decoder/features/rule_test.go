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

func TestRuleUnmarkedPhraseHasNoOpinion(t *testing.T) {
	r := NewRule("NE", -10)
	r.NewSourceSentence(feature.NewSentenceInfo{})
	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{7})
	if got := r.PrecomputeFutureScore(pi); got != 0 {
		t.Errorf("PrecomputeFutureScore = %v, want 0", got)
	}
}

func TestRuleMatchingMarkReturnsItsLogProb(t *testing.T) {
	r := NewRule("NE", -10)
	r.NewSourceSentence(feature.NewSentenceInfo{
		Marks: []feature.Mark{
			{ClassName: "NE", SrcWords: coverage.NewRange(0, 1), TargetPhrase: phrase.Phrase{7}, LogProb: -0.5},
			{ClassName: "other", SrcWords: coverage.NewRange(0, 1), TargetPhrase: phrase.Phrase{99}, LogProb: -2},
		},
	})
	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{7})
	if got := r.PrecomputeFutureScore(pi); got != -0.5 {
		t.Errorf("PrecomputeFutureScore = %v, want -0.5", got)
	}
}

func TestRuleMarkedRangeWithDifferentTargetPaysLogZero(t *testing.T) {
	r := NewRule("NE", -10)
	r.NewSourceSentence(feature.NewSentenceInfo{
		Marks: []feature.Mark{
			{ClassName: "NE", SrcWords: coverage.NewRange(0, 1), TargetPhrase: phrase.Phrase{7}, LogProb: -0.5},
		},
	})
	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{8})
	if got := r.PrecomputeFutureScore(pi); got != -10 {
		t.Errorf("PrecomputeFutureScore = %v, want -10 (logZero)", got)
	}
}

func TestRuleScoreReplaysPrecompute(t *testing.T) {
	r := NewRule("NE", -10)
	r.NewSourceSentence(feature.NewSentenceInfo{
		Marks: []feature.Mark{
			{ClassName: "NE", SrcWords: coverage.NewRange(0, 1), TargetPhrase: phrase.Phrase{7}, LogProb: -0.5},
		},
	})
	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{7})
	pt := &state.PartialTranslation{LastPhrase: pi}
	if got := r.Score(pt); got != -0.5 {
		t.Errorf("Score = %v, want -0.5", got)
	}
	if got := r.FutureScore(pt); got != 0 {
		t.Errorf("FutureScore = %v, want 0", got)
	}
}
