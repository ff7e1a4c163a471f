// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level promauto collectors, declared once at process start,
// matching the teacher's own "Namespace: ..., package-level var block"
// metrics idiom wherever it touches Prometheus directly.
var (
	decodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "decodes_total",
		Help:      "Number of sentences decoded.",
	})
	decodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "canoe",
		Name:      "decode_duration_seconds",
		Help:      "Wall-clock time to decode one sentence.",
		Buckets:   prometheus.DefBuckets,
	})
	statesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "states_added_total",
		Help:      "DecoderStates pushed onto any hypothesis stack (spec.md §6).",
	})
	prunedAtPushTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "pruned_at_push_total",
		Help:      "DecoderStates discarded at push time.",
	})
	prunedAtPopTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "pruned_at_pop_total",
		Help:      "DecoderStates discarded at pop time.",
	})
	recombinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "recombined_total",
		Help:      "DecoderStates merged into an equivalent incumbent.",
	})
	keptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "kept_total",
		Help:      "DecoderStates surviving recombination and pruning.",
	})
	hyperedgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "hyperedges_total",
		Help:      "Hyperedges built by the cube-pruning decoder.",
	})
	partiallyScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "partially_scored_total",
		Help:      "HyperedgeItems given a heuristic score during KBest.",
	})
	fullyEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canoe",
		Name:      "fully_evaluated_total",
		Help:      "HyperedgeItems fully scored during KBest.",
	})
)

// DecodeStats is telemetry's own copy of translate.Stats's fields: this
// package must not import internal/decoder/translate (translate already
// imports this package to record spans/metrics around Decode), so the
// caller converts its own Stats value into this one field-for-field.
type DecodeStats struct {
	StatesAdded     uint32
	PrunedAtPush    uint32
	PrunedAtPop     uint32
	Recombined      uint32
	Kept            uint32
	Hyperedges      uint32
	PartiallyScored uint32
	FullyEvaluated  uint32
}

// RecordDecode updates every package-level Prometheus collector for one
// completed sentence decode. Safe to call unconditionally: promauto
// collectors work whether or not Setup installed a non-default
// MeterProvider, since they talk to the global Prometheus registry
// directly rather than through the OTel metrics API.
func RecordDecode(stats DecodeStats, elapsed time.Duration) {
	decodesTotal.Inc()
	decodeDuration.Observe(elapsed.Seconds())
	statesAddedTotal.Add(float64(stats.StatesAdded))
	prunedAtPushTotal.Add(float64(stats.PrunedAtPush))
	prunedAtPopTotal.Add(float64(stats.PrunedAtPop))
	recombinedTotal.Add(float64(stats.Recombined))
	keptTotal.Add(float64(stats.Kept))
	hyperedgesTotal.Add(float64(stats.Hyperedges))
	partiallyScoredTotal.Add(float64(stats.PartiallyScored))
	fullyEvaluatedTotal.Add(float64(stats.FullyEvaluated))
}
