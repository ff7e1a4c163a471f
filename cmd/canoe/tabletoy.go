// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/features"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
	"github.com/AleutianAI/canoe-go/internal/storage"
)

// phraseTableFile is the JSON-on-disk phrase table shape the CLI loads.
// Phrase-table construction itself is an external collaborator the
// decoding core never prescribes a format for; this is that collaborator
// for the standalone binary, not a core decoder module — callers
// embedding the translate package directly supply their own
// *phrase.Table and model.Weighted slice however their own phrase-table
// build pipeline produces them.
type phraseTableFile struct {
	SourceVocab map[string]int `json:"source_vocab"`
	TargetVocab []string       `json:"target_vocab"`
	Entries     []struct {
		Start            int       `json:"start"`
		Length           int       `json:"length"`
		Target           []int     `json:"target"`
		PhraseTransProb  float64   `json:"phrase_trans_prob"`
		ForwardTransProb float64   `json:"forward_trans_prob"`
		AdirProb         float64   `json:"adir_prob"`
		LexDisProbs      []float32 `json:"lex_dis_probs,omitempty"`
	} `json:"entries"`
}

// loadPhraseTable reads path as JSON and constructs the phrase.Table and
// translate.Vocabulary a decode/serve/repl invocation needs. A
// "gs://bucket/object" path is fetched from remote storage instead of
// local disk, per SPEC_FULL.md's "Remote model storage" DOMAIN STACK
// entry; this is a one-time startup read, never inside the per-sentence
// decode loop.
func loadPhraseTable(path string, sourceLength int) (*phrase.Table, translate.Vocabulary, error) {
	var data []byte
	var err error
	if storage.IsRemote(path) {
		data, err = storage.ReadObject(context.Background(), path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("canoe: reading phrase table %s: %w", path, err)
	}

	var pf phraseTableFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, nil, fmt.Errorf("canoe: parsing phrase table %s: %w", path, err)
	}

	table := phrase.NewTable(sourceLength)
	for _, e := range pf.Entries {
		target := make(phrase.Phrase, len(e.Target))
		for i, id := range e.Target {
			target[i] = phrase.WordID(id)
		}
		info := phrase.New(coverage.NewRange(uint32(e.Start), uint32(e.Start+e.Length)), target)
		info.PhraseTransProb = e.PhraseTransProb
		info.ForwardTransProb = e.ForwardTransProb
		info.AdirProb = e.AdirProb
		info.LexDisProbs = e.LexDisProbs
		table.Add(e.Start, e.Length, info)
	}

	voc := make(translate.MapVocabulary, len(pf.TargetVocab))
	for i, w := range pf.TargetVocab {
		voc[phrase.WordID(i)] = w
	}
	return table, voc, nil
}

// sourceWordIDs maps whitespace-tokenized source words to the vocabulary
// ids recorded in a phraseTableFile, for callers that want numeric
// source ids (currently unused by the decoder itself, which only indexes
// the phrase table by source position, but kept available for a feature
// function that needs the source words as ids rather than strings).
func sourceWordIDs(vocab map[string]int, words []string) []int {
	ids := make([]int, len(words))
	for i, w := range words {
		ids[i] = vocab[w]
	}
	return ids
}

// translationModel is the minimal phrase-table-score feature every CLI
// decode run needs to actually prefer one candidate phrase over another:
// spec.md scopes "actual implementation of ... translation-model ...
// feature functions" out as an external collaborator, so this lives in
// the CLI binary rather than internal/decoder/features, exactly the kind
// of concrete Function implementation that package's contract expects
// its caller to supply. It simply sums the three log-probabilities
// already carried on phrase.Info.
type translationModel struct {
	feature.Base
}

func (translationModel) Name() string { return "translation_model" }

func (translationModel) NewSourceSentence(feature.NewSentenceInfo) {}

func (translationModel) PrecomputeFutureScore(pi *phrase.Info) float64 {
	return pi.PhraseTransProb + pi.ForwardTransProb + pi.AdirProb
}

func (translationModel) FutureScore(pt *state.PartialTranslation) float64 {
	if pt.Complete() {
		return 0
	}
	return 0
}

func (t translationModel) PartialFutureScore(pt *state.PartialTranslation) float64 {
	return t.FutureScore(pt)
}

func (translationModel) Score(pt *state.PartialTranslation) float64 {
	lp := pt.LastPhrase
	if lp == nil {
		return 0
	}
	return lp.PhraseTransProb + lp.ForwardTransProb + lp.AdirProb
}

func (translationModel) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

func (translationModel) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool {
	return true
}

// defaultFeatures builds the feature set every subcommand decodes with
// absent a richer, externally supplied set: the translation model above
// plus the length penalty and uniform segmentation models, whose
// constructors need no external model object. A real deployment supplies
// its own NGramLM/IBM1Forward/NNJM-backed set through the same
// []model.Weighted shape translate.New accepts; this is the CLI's
// zero-configuration default, not a claim that these are the only
// features a production decode would run.
func defaultFeatures() []model.Weighted {
	return []model.Weighted{
		{Function: translationModel{}, Weight: 1.0},
		{Function: features.Length{}, Weight: -1.0},
		{Function: features.NewUniformSegmentation(), Weight: 1.0},
	}
}
