// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrate provides the coarse-grained, one-worker-per-sentence
// parallelism spec.md §5 explicitly delegates to an external caller
// ("[the core] does not prescribe a threading model for processing
// multiple source sentences concurrently ... orchestrated externally").
// It publishes source sentences onto a NATS subject and runs a bounded
// pool of decode workers that each pull one sentence, decode it
// single-threadedly via translate.Decoder (spec.md §5's per-sentence
// model is never violated — concurrency only ever exists *between*
// sentences, never inside one), and publish the result back.
//
// Grounded on the teacher's own worker-pool idiom
// (services/trace/agent/routing/embedder.go's errgroup + semaphore
// warm-up) generalized from an in-process fan-out to a NATS-mediated
// one, since spec.md names an explicit external orchestrator rather than
// an in-process goroutine pool.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

// SentenceSubject and ResultSubject name the NATS subjects a Producer
// publishes requests to and a Pool publishes results on.
const (
	SentenceSubject  = "canoe.decode.sentence"
	ResultSubjectFmt = "canoe.decode.result.%d"
)

// SentenceJob is one unit of work published to SentenceSubject.
type SentenceJob struct {
	SentenceID int      `json:"sentence_id"`
	Source     []string `json:"source"`
}

// SentenceResult is published to the per-sentence result subject once a
// worker finishes decoding, successfully or not.
type SentenceResult struct {
	SentenceID int     `json:"sentence_id"`
	Best       string  `json:"best,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// Producer publishes one SentenceJob per source sentence to
// SentenceSubject, for any number of Pool workers (in this process or
// another) to consume.
type Producer struct {
	nc *nats.Conn
}

// NewProducer wraps an already-connected NATS client.
func NewProducer(nc *nats.Conn) *Producer {
	return &Producer{nc: nc}
}

// Publish sends one sentence for decoding.
func (p *Producer) Publish(job SentenceJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("orchestrate: marshal job %d: %w", job.SentenceID, err)
	}
	return p.nc.Publish(SentenceSubject, data)
}

// Pool runs Concurrency decode workers, each single-threadedly decoding
// one sentence at a time via Decoder, pulled from a shared NATS
// subscription. Concurrency is enforced with a semaphore exactly the way
// the teacher's tool-embedding warm-up bounds its Ollama fan-out,
// composed with golang.org/x/sync/errgroup to wait for every in-flight
// decode. Workers never return an error: handle reports each decode
// failure on the result subject instead.
type Pool struct {
	nc          *nats.Conn
	table       *phrase.Table
	decoder     *translate.Decoder
	concurrency int
	logger      *slog.Logger
}

// NewPool constructs a worker pool that decodes against the given shared,
// read-only phrase table and decoder (spec.md §5: "the phrase table and
// feature weights are read-only during decoding and may be shared across
// sentence workers").
func NewPool(nc *nats.Conn, table *phrase.Table, decoder *translate.Decoder, concurrency int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{nc: nc, table: table, decoder: decoder, concurrency: concurrency, logger: logger}
}

// Run subscribes to SentenceSubject and processes jobs until ctx is
// cancelled; it returns at once if the subscription cannot be made.
// Otherwise it returns after every in-flight decode finishes.
func (p *Pool) Run(ctx context.Context) error {
	jobs := make(chan SentenceJob, p.concurrency*4)

	sub, err := p.nc.Subscribe(SentenceSubject, func(msg *nats.Msg) {
		var job SentenceJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			p.logger.Warn("orchestrate: dropping malformed job", slog.String("error", err.Error()))
			return
		}
		select {
		case jobs <- job:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("orchestrate: subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.concurrency)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case job, ok := <-jobs:
				if !ok {
					return nil
				}
				sem <- struct{}{}
				g.Go(func() error {
					defer func() { <-sem }()
					p.handle(gctx, job)
					return nil
				})
			}
		}
	})

	<-ctx.Done()
	close(jobs)
	return g.Wait()
}

// handle decodes one sentence and publishes its SentenceResult. A decode
// failure is reported on the result subject, not returned as a pool
// error: spec.md's soft-rejection model treats a single sentence's
// failure as local to that sentence, never as a reason to abort sibling
// decodes.
func (p *Pool) handle(ctx context.Context, job SentenceJob) {
	req := translate.Request{
		SentenceID: job.SentenceID,
		Source:     job.Source,
		Info:       feature.NewSentenceInfo{SourceSentence: job.Source, SentenceLength: uint32(len(job.Source))},
	}
	result := SentenceResult{SentenceID: job.SentenceID}

	res, err := p.decoder.Decode(ctx, p.table, req)
	if err != nil {
		result.Err = err.Error()
	} else {
		result.Best = res.Best
		result.Score = res.BestScore
	}

	data, merr := json.Marshal(result)
	if merr != nil {
		p.logger.Error("orchestrate: marshal result", slog.Int("sentence_id", job.SentenceID), slog.String("error", merr.Error()))
		return
	}
	subject := fmt.Sprintf(ResultSubjectFmt, job.SentenceID)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("orchestrate: publish result", slog.Int("sentence_id", job.SentenceID), slog.String("error", err.Error()))
	}
}
