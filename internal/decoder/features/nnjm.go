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
	gocontext "context"
	"fmt"
	"strconv"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
	"github.com/AleutianAI/canoe-go/internal/telemetry"
)

// nnjmTracer spans every outbound call to the externally hosted joint
// model, per SPEC_FULL.md §0's "spans around ... external-feature calls".
var nnjmTracer = telemetry.Tracer("canoe.features.nnjm")

// NNJMVocabulary resolves target-vocabulary word ids back to surface
// forms so an externally hosted neural joint model can be queried with
// readable text instead of opaque integer ids.
type NNJMVocabulary interface {
	TargetWord(id phrase.WordID) string
}

// NNJM scores a target phrase using an externally hosted neural joint
// model reached through an llms.Model client: the preceding target-word
// context and the candidate phrase are rendered as a scoring prompt, and
// the model's single-number reply is parsed back into a log
// probability. Every scoring request is signed with a shared secret so
// the hosting endpoint can distinguish this decoder's traffic from
// anyone else's; that secret is kept inside a memguard.Enclave so it
// only exists in readable process memory for the instant a request is
// being built, not for the lifetime of a whole decode.
//
// There is no dedicated NNJM feature file anywhere in the retrieval
// pack — the original decoder predates neural joint models entirely —
// so this is new functionality grounded on the shared Function contract
// the rest of this package follows, wired to the llms.Model and
// memguard.Enclave APIs already present in this module's dependency
// set.
type NNJM struct {
	feature.Base

	client      llms.Model
	voc         NNJMVocabulary
	signingKey  *memguard.Enclave
	contextSize int
	srcSent     []string

	// limiter bounds how often Score may actually call out to client,
	// matching spec.md's "Rate-limited external calls" ambient concern
	// for every NNJM invocation: a hyperedge or hypothesis stack can
	// easily ask for thousands of phrase scores in one sentence, and
	// none of them may paper over a provider throttling this decoder's
	// traffic.
	limiter *rate.Limiter
}

// NewNNJM constructs an NNJM feature that queries client for a window of
// contextSize preceding target words per scored phrase, signing every
// request with signingKey. limiter bounds the request rate to client;
// pass rate.NewLimiter(rate.Inf, 0) for no limit.
func NewNNJM(client llms.Model, voc NNJMVocabulary, signingKey []byte, contextSize int, limiter *rate.Limiter) *NNJM {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &NNJM{
		client:      client,
		voc:         voc,
		signingKey:  memguard.NewEnclave(signingKey),
		contextSize: contextSize,
		limiter:     limiter,
	}
}

func (*NNJM) Name() string { return "nnjm" }

func (n *NNJM) NewSourceSentence(info feature.NewSentenceInfo) {
	n.srcSent = info.SourceSentence
}

// PrecomputeFutureScore has no context-independent bound: the joint
// model's score depends on preceding target context, not on the phrase
// pair alone.
func (*NNJM) PrecomputeFutureScore(*phrase.Info) float64 { return 0 }

func (*NNJM) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore (always 0).
func (n *NNJM) PartialFutureScore(pt *state.PartialTranslation) float64 { return n.FutureScore(pt) }

// Score queries the externally hosted model for the log probability of
// the phrase just appended, given up to contextSize preceding target
// words. A request that fails outright (the endpoint is unreachable, or
// its reply can't be parsed as a number) scores as logAlmostZero rather
// than aborting the whole decode, matching the defensive-score-floor
// idiom IBM1Forward uses for an unseen word.
func (n *NNJM) Score(pt *state.PartialTranslation) float64 {
	ph := pt.Phrase()
	if len(ph) == 0 {
		return 0
	}

	var context []string
	if pt.Back != nil {
		context = n.renderWords(pt.Back.LastWords(n.contextSize, false))
	}
	target := n.renderWords(ph)

	prompt, err := n.signedPrompt(context, target)
	if err != nil {
		return logAlmostZero
	}

	ctx, span := nnjmTracer.Start(gocontext.Background(), "nnjm.Score")
	defer span.End()
	if err := n.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return logAlmostZero
	}

	reply, err := llms.GenerateFromSinglePrompt(ctx, n.client, prompt)
	if err != nil {
		span.RecordError(err)
		return logAlmostZero
	}

	lp, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return logAlmostZero
	}
	return lp
}

func (n *NNJM) renderWords(ph phrase.Phrase) []string {
	words := make([]string, len(ph))
	for i, w := range ph {
		words[i] = n.voc.TargetWord(w)
	}
	return words
}

// signedPrompt renders the scoring request as a single prompt string,
// opening the signing key only for the duration of computing its
// signature so it spends as little time as possible outside the
// enclave.
func (n *NNJM) signedPrompt(context []string, target []string) (string, error) {
	buf, err := n.signingKey.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	signature := buf.String()

	return fmt.Sprintf(
		"[request-signature:%s] Given source sentence %q and preceding target context %q, "+
			"reply with only the natural-log probability of the candidate target phrase %q, "+
			"as a single floating-point number.",
		signature, strings.Join(n.srcSent, " "), strings.Join(context, " "), strings.Join(target, " "),
	), nil
}

// ComputeRecombHash is always 0: recombination for this feature is
// decided by IsRecombinable comparing the trailing context words
// directly, the same way NGramLM does.
func (*NNJM) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

// IsRecombinable reports whether pt1 and pt2 share the same trailing
// contextSize target words, the only context a future query could ever
// use to score them differently.
func (n *NNJM) IsRecombinable(pt1, pt2 *state.PartialTranslation) bool {
	return pt1.SameLastWords(pt2, n.contextSize)
}

// LMLikeContextNeeded overrides feature.Base's default: this feature
// needs contextSize trailing target words of context from the previous
// state.
func (n *NNJM) LMLikeContextNeeded() uint32 { return uint32(n.contextSize) }
