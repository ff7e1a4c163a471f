// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache persists compiled phrase-table ranges and n-gram
// language-model probabilities in BadgerDB between process restarts,
// the decoder's analogue of the teacher's routing-embedding cache
// (services/trace/agent/routing/router_cache.go). spec.md §1(a) keeps
// phrase-table *construction* out of scope; this package is the
// storage layer that construction step would read from and write to,
// so repeated decodes of the same model don't re-parse multi-gigabyte
// phrase-table text files every time a worker in internal/orchestrate
// starts up.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
)

// rangeKeyPrefix and ngramKeyPrefix mirror router_cache.go's versioned
// key-prefix convention, so a future storage-layout change can coexist
// with old entries during a rollout instead of silently misreading them.
const (
	rangeKeyPrefix = "canoe/phrase/v1/"
	ngramKeyPrefix = "canoe/ngram/v1/"
)

var errCacheMiss = errors.New("cache miss")

// phraseInfoDTO is the gob-friendly projection of phrase.Info persisted
// to disk. Annotations is intentionally omitted: it carries
// feature-owned interface{} payloads (word alignments, rule classes)
// that would need every feature package to register its concrete type
// with gob, and no feature in this port needs annotations to survive a
// cache round-trip — LoadRange's caller re-attaches them on cache hit
// paths the way it would on a freshly parsed entry.
type phraseInfoDTO struct {
	SrcStart, SrcEnd  uint32
	Phrase            phrase.Phrase
	PhraseTransProb   float64
	PhraseTransProbs  []float32
	ForwardTransProb  float64
	ForwardTransProbs []float32
	AdirProb          float64
	AdirProbs         []float32
	LexDisProbs       []float32
}

func toDTO(pi *phrase.Info) phraseInfoDTO {
	return phraseInfoDTO{
		SrcStart:          pi.SrcWords.Start,
		SrcEnd:            pi.SrcWords.End,
		Phrase:            pi.Phrase,
		PhraseTransProb:   pi.PhraseTransProb,
		PhraseTransProbs:  pi.PhraseTransProbs,
		ForwardTransProb:  pi.ForwardTransProb,
		ForwardTransProbs: pi.ForwardTransProbs,
		AdirProb:          pi.AdirProb,
		AdirProbs:         pi.AdirProbs,
		LexDisProbs:       pi.LexDisProbs,
	}
}

func (d phraseInfoDTO) toInfo() *phrase.Info {
	pi := phrase.New(coverage.NewRange(d.SrcStart, d.SrcEnd), d.Phrase)
	pi.PhraseTransProb = d.PhraseTransProb
	pi.PhraseTransProbs = d.PhraseTransProbs
	pi.ForwardTransProb = d.ForwardTransProb
	pi.ForwardTransProbs = d.ForwardTransProbs
	pi.AdirProb = d.AdirProb
	pi.AdirProbs = d.AdirProbs
	pi.LexDisProbs = d.LexDisProbs
	return pi
}

// Store persists compiled phrase-table ranges and n-gram probabilities,
// keyed by a caller-supplied model version string so switching phrase
// tables or weights never serves stale entries from a previous model.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions are
// per-goroutine.
type Store struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) a BadgerDB store at path. Pass
// logger as nil to use slog.Default().
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := dgbadger.DefaultOptions(path).WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open BadgerDB at %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func rangeKey(modelVersion string, r coverage.Range) []byte {
	return []byte(fmt.Sprintf("%s%s/%d-%d", rangeKeyPrefix, modelVersion, r.Start, r.End))
}

// LoadRange retrieves the cached candidate list for source range r under
// modelVersion. Returns (nil, false, nil) on a clean cache miss.
func (s *Store) LoadRange(ctx context.Context, modelVersion string, r coverage.Range) ([]*phrase.Info, bool, error) {
	raw, err := s.get(ctx, rangeKey(modelVersion, r))
	if errors.Is(err, errCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: load range %v: %w", r, err)
	}

	var dtos []phraseInfoDTO
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&dtos); err != nil {
		return nil, false, fmt.Errorf("cache: decode range %v: %w", r, err)
	}
	out := make([]*phrase.Info, len(dtos))
	for i, d := range dtos {
		out[i] = d.toInfo()
	}
	return out, true, nil
}

// SaveRange persists candidates for source range r under modelVersion.
func (s *Store) SaveRange(ctx context.Context, modelVersion string, r coverage.Range, candidates []*phrase.Info) error {
	dtos := make([]phraseInfoDTO, len(candidates))
	for i, c := range candidates {
		dtos[i] = toDTO(c)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dtos); err != nil {
		return fmt.Errorf("cache: encode range %v: %w", r, err)
	}
	return s.set(ctx, rangeKey(modelVersion, r), buf.Bytes())
}

func ngramKey(modelVersion, context string) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", ngramKeyPrefix, modelVersion, context))
}

// LoadNGram retrieves a cached n-gram log-probability for the given
// context string (e.g. "the cat sat"). Returns (0, false, nil) on miss.
func (s *Store) LoadNGram(ctx context.Context, modelVersion, context_ string) (float64, bool, error) {
	raw, err := s.get(ctx, ngramKey(modelVersion, context_))
	if errors.Is(err, errCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache: load ngram %q: %w", context_, err)
	}
	var lp float64
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&lp); err != nil {
		return 0, false, fmt.Errorf("cache: decode ngram %q: %w", context_, err)
	}
	return lp, true, nil
}

// SaveNGram persists a log-probability for the given n-gram context.
func (s *Store) SaveNGram(ctx context.Context, modelVersion, context_ string, logProb float64) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(logProb); err != nil {
		return fmt.Errorf("cache: encode ngram %q: %w", context_, err)
	}
	return s.set(ctx, ngramKey(modelVersion, context_), buf.Bytes())
}

func (s *Store) get(ctx context.Context, key []byte) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return raw, nil
}

func (s *Store) set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *dgbadger.Txn) error {
		return txn.Set(key, value)
	})
}

// Stats reports coarse counters for a cache-dump inspection tool,
// mirroring cmd/routing_cache_dump's summary output.
type Stats struct {
	RangeEntries int
	NGramEntries int
}

// Inspect walks every key under both prefixes and counts them, without
// decoding values — the decoder-domain equivalent of
// cmd/routing_cache_dump's read-only summary pass.
func (s *Store) Inspect() (Stats, error) {
	var stats Stats
	err := s.db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(rangeKeyPrefix)); it.ValidForPrefix([]byte(rangeKeyPrefix)); it.Next() {
			stats.RangeEntries++
		}
		for it.Seek([]byte(ngramKeyPrefix)); it.ValidForPrefix([]byte(ngramKeyPrefix)); it.Next() {
			stats.NGramEntries++
		}
		return nil
	})
	return stats, err
}
