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
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sourcegraph/go-diff/diff"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/canoe-go/internal/decoder/config"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
	"github.com/AleutianAI/canoe-go/internal/telemetry"
)

var (
	diffAgainst  string
	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string
	corpusName   string
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode source sentences, one per line, from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDecode,
	}
	cmd.Flags().StringVar(&diffAgainst, "diff", "", "path to a previous decode-run output to diff against")
	cmd.Flags().StringVar(&influxURL, "influx-url", "", "InfluxDB URL to record this batch run's throughput/pruning summary to (disabled if empty)")
	cmd.Flags().StringVar(&influxToken, "influx-token", "", "InfluxDB auth token")
	cmd.Flags().StringVar(&influxOrg, "influx-org", "", "InfluxDB organization")
	cmd.Flags().StringVar(&influxBucket, "influx-bucket", "canoe", "InfluxDB bucket")
	cmd.Flags().StringVar(&corpusName, "corpus-name", "default", "name recorded alongside this batch run's InfluxDB point")
	return cmd
}

func runDecode(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("canoe decode: %w", err)
		}
		defer f.Close()
		in = f
	}

	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	var sentences [][]string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sentences = append(sentences, strings.Fields(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("canoe decode: reading input: %w", err)
	}

	maxLen := 0
	for _, s := range sentences {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	if tablePath == "" {
		return fmt.Errorf("canoe decode: --table is required")
	}
	table, voc, err := loadPhraseTable(tablePath, maxLen)
	if err != nil {
		return err
	}

	decoder := translate.New(cfg, defaultFeatures(), voc)

	showProgress := isatty.IsTerminal(os.Stderr.Fd())
	var outputs []string
	var totalKept, totalPushed uint64
	batchStart := time.Now()
	ctx := context.Background()
	for i, src := range sentences {
		if showProgress {
			fmt.Fprintf(os.Stderr, "\rdecoding sentence %d/%d", i+1, len(sentences))
		}
		result, err := decoder.Decode(ctx, table, translate.Request{
			SentenceID: i,
			Source:     src,
			Info:       feature.NewSentenceInfo{SourceSentence: src, SentenceLength: uint32(len(src))},
		})
		if err != nil {
			slog.Error("decode failed", slog.Int("sentence_id", i), slog.String("error", err.Error()))
			outputs = append(outputs, "")
			continue
		}
		outputs = append(outputs, result.Best)
		totalKept += uint64(result.Stats.Kept)
		totalPushed += uint64(result.Stats.Kept) + uint64(result.Stats.PrunedAtPush) + uint64(result.Stats.PrunedAtPop)
	}
	if showProgress {
		fmt.Fprintln(os.Stderr)
	}
	batchElapsed := time.Since(batchStart)

	joined := strings.Join(outputs, "\n") + "\n"
	fmt.Fprint(cmd.OutOrStdout(), joined)

	if influxURL != "" && len(sentences) > 0 {
		if err := recordBatchToInflux(sentences, totalKept, totalPushed, batchElapsed); err != nil {
			slog.Warn("recording batch run to InfluxDB failed", slog.String("error", err.Error()))
		}
	}

	if diffAgainst != "" {
		return printDecodeDiff(cmd, diffAgainst, joined)
	}
	return nil
}

// recordBatchToInflux summarizes one batch decode run (mean final-stack
// size, fraction of pushed states pruned rather than kept) and writes it
// as a single InfluxDB point for cross-run throughput/quality tracking,
// per SPEC_FULL.md's "Metrics export to a time-series store" entry.
func recordBatchToInflux(sentences [][]string, totalKept, totalPushed uint64, elapsed time.Duration) error {
	sink := telemetry.NewBatchSink(influxURL, influxToken, influxOrg, influxBucket)
	defer sink.Close()

	avgStackSize := float64(totalKept) / float64(len(sentences))
	pruneRate := 0.0
	if totalPushed > 0 {
		pruneRate = 1 - float64(totalKept)/float64(totalPushed)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sink.RecordCorpusRun(ctx, corpusName, len(sentences), elapsed, avgStackSize, pruneRate)
}

func loadConfiguration() (*config.Configuration, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("canoe: reading config %s: %w", configPath, err)
	}
	return config.Load(data)
}

// printDecodeDiff renders a unified diff between a previous decode run's
// output (read from prevPath) and the current run's output, using
// sourcegraph/go-diff's FileDiff formatter rather than hand-rolling
// unified-diff syntax. The hunk itself is computed with a minimal
// longest-common-subsequence-free line comparison (good enough for
// spotting regressions between two runs of the same sentence set, not a
// general-purpose diff algorithm).
func printDecodeDiff(cmd *cobra.Command, prevPath string, current string) error {
	prevData, err := os.ReadFile(prevPath)
	if err != nil {
		return fmt.Errorf("canoe decode --diff: reading %s: %w", prevPath, err)
	}
	prevLines := strings.Split(strings.TrimRight(string(prevData), "\n"), "\n")
	curLines := strings.Split(strings.TrimRight(current, "\n"), "\n")

	var hunkLines []string
	n := len(prevLines)
	if len(curLines) > n {
		n = len(curLines)
	}
	changed := 0
	for i := 0; i < n; i++ {
		var prev, cur string
		if i < len(prevLines) {
			prev = prevLines[i]
		}
		if i < len(curLines) {
			cur = curLines[i]
		}
		if prev == cur {
			hunkLines = append(hunkLines, " "+cur)
			continue
		}
		changed++
		if i < len(prevLines) {
			hunkLines = append(hunkLines, "-"+prev)
		}
		if i < len(curLines) {
			hunkLines = append(hunkLines, "+"+cur)
		}
	}
	if changed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no differences from previous run")
		return nil
	}

	body := strings.Join(hunkLines, "\n") + "\n"
	fd := &diff.FileDiff{
		OrigName: prevPath,
		NewName:  "current",
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(len(prevLines)),
			NewStartLine:  1,
			NewLines:      int32(len(curLines)),
			Body:          []byte(body),
		}},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Errorf("canoe decode --diff: rendering diff: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
