// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package translate is the single entry point every serving surface
// (the REST/WebSocket service, the NATS sentence-orchestration workers,
// the CLI, and the MCP tool) calls into: it wires a phrase.Table and a
// model.Model into a decodectx.Context and a search.Decode call, then
// walks the winning state's back-pointer chain into a target sentence,
// an optional N-best list, and an optional lattice dump. None of this
// has a dedicated file in the retrieval pack to port from, since
// spec.md §1 keeps phrase-table construction, feature-function
// implementations, and CLI/config loading as external collaborators
// with only their interfaces specified — this is exactly that
// collaborator, grounded on how the teacher's own services
// (services/trace.Service, services/trace/agent) expose a single
// request-scoped "run the core, return a result" method rather than
// leaving every HTTP handler to rebuild the plumbing itself.
package translate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/canoe-go/internal/decoder/config"
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/lattice"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/search"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
	"github.com/AleutianAI/canoe-go/internal/telemetry"
)

var tracer = telemetry.Tracer("canoe.translate")

// Vocabulary resolves target-language word ids back to surface forms so
// a decoded Phrase can be rendered as text. Implementations are supplied
// by whatever built the phrase table (out of scope here, per spec.md §1(a)).
type Vocabulary interface {
	Word(id phrase.WordID) string
}

// MapVocabulary is the simplest possible Vocabulary: a fixed id->string
// table, good enough for the decoder's own tests and small embedded
// demo phrase tables (defaults.yaml ships none; callers supply their own).
type MapVocabulary map[phrase.WordID]string

func (v MapVocabulary) Word(id phrase.WordID) string {
	if s, ok := v[id]; ok {
		return s
	}
	return "<unk:" + strconv.FormatUint(uint64(id), 10) + ">"
}

// Request is everything one decode call needs beyond the shared,
// read-only phrase table and model: the source sentence itself and the
// sentence-scoped feature inputs (walls/zones/marks/forced reference)
// spec.md §4.1's NewSrcSentInfo carries.
type Request struct {
	SentenceID int
	Source     []string
	Info       feature.NewSentenceInfo
}

// Result is what one decode call hands back to any serving surface:
// the best target sentence, its score, an optional N-best list, an
// optional lattice overlay (nil unless the configuration asked for one),
// and the per-sentence counters spec.md §6 requires at verbosity >= 2.
type Result struct {
	Best      string
	BestScore float64
	NBest     []string
	Lattice   *lattice.Overlay
	Stats     Stats
}

// Stats mirrors spec.md §6's per-sentence counter list.
type Stats struct {
	StatesAdded     uint32
	PrunedAtPush    uint32
	PrunedAtPop     uint32
	Recombined      uint32
	Kept            uint32
	Hyperedges      uint32 // only meaningful under cube pruning
	PartiallyScored uint32 // only meaningful under cube pruning
	FullyEvaluated  uint32 // only meaningful under cube pruning
}

// Decoder bundles one sentence-independent model + phrase-table pair so
// repeated Decode calls (across sentences in a batch, or across workers
// in the NATS pool) don't reconstruct the weighted feature list every
// time. It holds nothing mutable per sentence: Decode's decodectx.Context
// and state.Arena are allocated fresh per call, matching spec.md §5's
// "per-sentence decoder owns its hypothesis stacks" resource model.
type Decoder struct {
	cfg   *config.Configuration
	model *model.Model
	voc   Vocabulary
}

// New builds a Decoder from a loaded Configuration, a weighted feature
// set, and a Vocabulary for rendering output phrases as text.
func New(cfg *config.Configuration, features []model.Weighted, voc Vocabulary) *Decoder {
	return &Decoder{cfg: cfg, model: model.New(features), voc: voc}
}

// Decode translates one source sentence against table, returning the
// best hypothesis plus (depending on configuration) an N-best list and
// a lattice. ctx carries cancellation for the surrounding call (an HTTP
// request, a NATS message handler); per spec.md §5 decoding itself never
// suspends, so ctx is only consulted before the call begins, never
// polled mid-search.
func (d *Decoder) Decode(ctx context.Context, table *phrase.Table, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "translate.Decode", otelTraceAttrs(req)...)
	start := time.Now()
	defer span.End()

	result, err := d.decode(ctx, table, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	telemetry.RecordDecode(telemetry.DecodeStats(result.Stats), time.Since(start))
	return result, nil
}

func otelTraceAttrs(req Request) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithAttributes(
			attribute.Int("canoe.sentence_id", req.SentenceID),
			attribute.Int("canoe.source_length", len(req.Source)),
		),
	}
}

// decode holds spec.md §4.4/§4.5's actual driver call; split out of
// Decode so the span/metrics wrapper above stays a thin, reusable shell
// regardless of which decoder variant config.ToSearchOptions selects.
func (d *Decoder) decode(ctx context.Context, table *phrase.Table, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	if len(req.Source) == 0 {
		return nil, fmt.Errorf("translate: empty source sentence")
	}

	d.model.NewSourceSentence(req.Info)

	dctx := decodectx.New(ctx, req.SentenceID, d.cfg.AllowNonITG())

	var finder phrasefinder.Finder
	if d.cfg.ForcedDecoding {
		finder = phrasefinder.NewForced(table, len(req.Source), d.cfg.ToPhraseFinderConfig(), req.Info.ForcedReference, d.cfg.ForcedDecodingNZ)
	} else {
		finder = phrasefinder.New(table, len(req.Source), d.cfg.ToPhraseFinderConfig())
	}

	opts := d.cfg.ToSearchOptions()
	final := search.Decode(dctx, d.model, finder, table, uint32(len(req.Source)), opts)

	if final.IsEmpty() {
		return nil, fmt.Errorf("translate: no complete hypothesis found for sentence %d", req.SentenceID)
	}

	states := make([]*state.State, 0, final.Size())
	for !final.IsEmpty() {
		states = append(states, final.Pop())
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("translate: stack decoder produced zero states")
	}

	best := states[0]
	result := &Result{
		Best:      d.renderState(best),
		BestScore: best.Score,
		Stats: Stats{
			PrunedAtPush: final.NumPrunedAtPush(),
			PrunedAtPop:  final.NumPrunedAtPop(),
			Recombined:   final.NumRecombined(),
			Kept:         final.NumRecombKept(),
		},
	}

	if d.cfg.NBestSize > 0 {
		n := int(d.cfg.NBestSize)
		if n > len(states) {
			n = len(states)
		}
		for _, s := range states[:n] {
			result.NBest = append(result.NBest, d.renderState(s))
		}
	}

	if d.cfg.LatticeOut {
		result.Lattice = lattice.Build(states, d.cfg.LatticeScoreFloor)
	}

	return result, nil
}

// renderState walks s's back-pointer chain from the initial empty state
// to s, concatenating every LastPhrase's target words through d.voc.
func (d *Decoder) renderState(s *state.State) string {
	var phrases []phrase.Phrase
	for pt := s.Trans; pt != nil && pt.Back != nil; pt = pt.Back {
		phrases = append(phrases, pt.LastPhrase.Phrase)
	}
	var words []string
	for i := len(phrases) - 1; i >= 0; i-- {
		for _, id := range phrases[i] {
			words = append(words, d.voc.Word(id))
		}
	}
	return strings.Join(words, " ")
}
