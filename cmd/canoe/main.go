// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command canoe is the phrase-based decoder's CLI: it wires a phrase
// table and configuration into internal/decoder/translate.Decoder and
// exposes decode, serve, cache-dump, lattice-dump, and repl
// subcommands. Grounded on cmd/aleutian's cobra command layout
// (cmd_chat.go's runAskCommand/runChatCommand functions registered onto
// a shared root), generalized from one flat command file into one file
// per subcommand.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	tablePath  string
	weightsKey string
	verbosity  int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "canoe",
		Short: "Phrase-based statistical machine translation decoder",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			switch {
			case verbosity >= 2:
				level = slog.LevelDebug
			case verbosity <= 0:
				level = slog.LevelWarn
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file (defaults to the embedded configuration)")
	root.PersistentFlags().StringVar(&tablePath, "table", "", "path to a JSON phrase table file")
	root.PersistentFlags().StringVar(&weightsKey, "weights", "default", "named feature-weight preset; the value is not read, and every command uses the built-in default feature weights")
	root.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 1, "log verbosity (0=warn, 1=info, 2=debug)")

	root.AddCommand(newDecodeCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newLatticeDumpCmd())
	root.AddCommand(newReplCmd())
	return root
}
