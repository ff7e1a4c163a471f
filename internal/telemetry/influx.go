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
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// BatchSink writes per-corpus batch-decode summaries (throughput,
// average stack size, prune rate) to an InfluxDB bucket, matching
// SPEC_FULL.md's "Metrics export to a time-series store" DOMAIN STACK
// entry: the always-on Prometheus counters above answer "what is this
// process doing right now"; this answers "how did run N over corpus X
// compare to run N-1", which needs a queryable time series keyed by
// corpus/run rather than a live scrape target.
type BatchSink struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewBatchSink creates an InfluxDB client against url, authenticated
// with token, writing into org/bucket. RecordCorpusRun writes each point
// synchronously, so nothing is buffered; Close releases the client when
// the batch run finishes.
func NewBatchSink(url, token, org, bucket string) *BatchSink {
	return &BatchSink{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
	}
}

// RecordCorpusRun writes one point summarizing a batch decode run over
// corpusName: sentence count, wall-clock elapsed, the mean final-stack
// size across sentences, and the fraction of pushed states that were
// ultimately pruned rather than kept.
func (s *BatchSink) RecordCorpusRun(ctx context.Context, corpusName string, sentences int, elapsed time.Duration, avgStackSize, pruneRate float64) error {
	writeAPI := s.client.WriteAPIBlocking(s.org, s.bucket)
	p := write.NewPoint(
		"canoe_corpus_run",
		map[string]string{"corpus": corpusName},
		map[string]interface{}{
			"sentences":       sentences,
			"elapsed_seconds": elapsed.Seconds(),
			"avg_stack_size":  avgStackSize,
			"prune_rate":      pruneRate,
			"sentences_per_s": float64(sentences) / elapsed.Seconds(),
		},
		time.Now(),
	)
	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("telemetry: writing corpus-run point to influx: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying InfluxDB client.
func (s *BatchSink) Close() {
	s.client.Close()
}
