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
	"context"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// fakeNNJMClient implements llms.Model and always replies with a fixed
// log-probability string, regardless of the rendered prompt.
type fakeNNJMClient struct {
	reply string
}

func (f fakeNNJMClient) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f fakeNNJMClient) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, nil
}

func TestNNJMScoreParsesModelReply(t *testing.T) {
	client := fakeNNJMClient{reply: "-2.5"}
	voc := fakeVocabulary{words: map[phrase.WordID]string{1: "le", 2: "chat"}}
	n := NewNNJM(client, voc, []byte("test-signing-key"), 2, nil)
	n.NewSourceSentence(feature.NewSentenceInfo{SourceSentence: []string{"the", "cat"}})

	root := state.NewInitial(2, nil)
	pi := phrase.New(coverage.NewRange(0, 2), phrase.Phrase{1, 2})
	pt := state.Extend(root, pi, nil, nil)

	if got := n.Score(pt); got != -2.5 {
		t.Errorf("Score = %v, want -2.5", got)
	}
}

func TestNNJMScoreFloorsOnUnparsableReply(t *testing.T) {
	client := fakeNNJMClient{reply: "not a number"}
	voc := fakeVocabulary{words: map[phrase.WordID]string{1: "le"}}
	n := NewNNJM(client, voc, []byte("test-signing-key"), 2, nil)
	n.NewSourceSentence(feature.NewSentenceInfo{SourceSentence: []string{"the"}})

	root := state.NewInitial(1, nil)
	pi := phrase.New(coverage.NewRange(0, 1), phrase.Phrase{1})
	pt := state.Extend(root, pi, nil, nil)

	if got := n.Score(pt); got != logAlmostZero {
		t.Errorf("Score = %v, want %v (unparsable reply floors to logAlmostZero)", got, logAlmostZero)
	}
}

func TestNNJMEmptyPhraseScoresZero(t *testing.T) {
	client := fakeNNJMClient{reply: "-1"}
	n := NewNNJM(client, fakeVocabulary{}, []byte("k"), 2, nil)
	pt := &state.PartialTranslation{LastPhrase: phrase.Empty}
	if got := n.Score(pt); got != 0 {
		t.Errorf("Score(empty phrase) = %v, want 0", got)
	}
}

func TestNNJMIsRecombinableComparesTrailingContext(t *testing.T) {
	n := NewNNJM(fakeNNJMClient{}, fakeVocabulary{}, []byte("k"), 1, nil)
	root := state.NewInitial(2, nil)
	a := state.Extend(root, phrase.New(coverage.NewRange(0, 1), phrase.Phrase{7}), nil, nil)
	b := state.Extend(root, phrase.New(coverage.NewRange(0, 1), phrase.Phrase{7}), nil, nil)
	c := state.Extend(root, phrase.New(coverage.NewRange(0, 1), phrase.Phrase{8}), nil, nil)

	if !n.IsRecombinable(a, b) {
		t.Error("IsRecombinable(a, b) = false, want true")
	}
	if n.IsRecombinable(a, c) {
		t.Error("IsRecombinable(a, c) = true, want false")
	}
}
