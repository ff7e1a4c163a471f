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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/lattice"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

var latticeDensity float64

func newLatticeDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lattice-dump [sentence...]",
		Short: "Decode one sentence and print its pruned search lattice in the original text format",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLatticeDump,
	}
	cmd.Flags().Float64Var(&latticeDensity, "density", 10.0, "maximum lattice edges to keep per source word")
	return cmd
}

func runLatticeDump(cmd *cobra.Command, args []string) error {
	if tablePath == "" {
		return fmt.Errorf("canoe lattice-dump: --table is required")
	}
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	cfg.LatticeOut = true

	table, voc, err := loadPhraseTable(tablePath, len(args))
	if err != nil {
		return err
	}
	decoder := translate.New(cfg, defaultFeatures(), voc)

	result, err := decoder.Decode(context.Background(), table, translate.Request{
		Source: args,
		Info:   feature.NewSentenceInfo{SourceSentence: args, SentenceLength: uint32(len(args))},
	})
	if err != nil {
		return fmt.Errorf("canoe lattice-dump: %w", err)
	}
	if result.Lattice == nil {
		return fmt.Errorf("canoe lattice-dump: decode produced no lattice")
	}

	phraseText := func(ph phrase.Phrase) string {
		words := make([]string, len(ph))
		for i, id := range ph {
			words[i] = voc.Word(id)
		}
		return strings.Join(words, " ")
	}

	return lattice.PrintPrunedLattice(result.Lattice, latticeDensity, len(args), phraseText, cmd.OutOrStdout())
}
