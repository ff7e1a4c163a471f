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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/canoe-go/internal/cache"
)

// newCacheCmd mirrors cmd/routing_cache_dump's one-purpose "open the
// BadgerDB, print a summary, exit" shape, pointed at the phrase-table/LM
// cache instead of the routing embedding cache.
func newCacheCmd() *cobra.Command {
	var cachePath string
	cmd := &cobra.Command{
		Use:   "cache-dump",
		Short: "Print summary statistics for the on-disk phrase-table/LM cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.Open(cachePath, nil)
			if err != nil {
				return fmt.Errorf("canoe cache-dump: %w", err)
			}
			defer store.Close()

			stats, err := store.Inspect()
			if err != nil {
				return fmt.Errorf("canoe cache-dump: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "path:         %s\n", cachePath)
			fmt.Fprintf(cmd.OutOrStdout(), "range entries: %d\n", stats.RangeEntries)
			fmt.Fprintf(cmd.OutOrStdout(), "ngram entries: %d\n", stats.NGramEntries)
			return nil
		},
	}
	cmd.Flags().StringVar(&cachePath, "path", "", "BadgerDB directory to inspect")
	cmd.MarkFlagRequired("path")
	return cmd
}
