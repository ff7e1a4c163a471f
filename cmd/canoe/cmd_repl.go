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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively decode sentences and browse the N-best list",
		RunE:  runRepl,
	}
}

func runRepl(cmd *cobra.Command, args []string) error {
	if tablePath == "" {
		return fmt.Errorf("canoe repl: --table is required")
	}
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	if cfg.NBestSize == 0 {
		cfg.NBestSize = 10
	}

	table, voc, err := loadPhraseTable(tablePath, 0)
	if err != nil {
		return err
	}
	decoder := translate.New(cfg, defaultFeatures(), voc)

	for {
		var source string
		prompt := huh.NewInput().
			Title("source sentence (blank to quit)").
			Value(&source)
		if err := prompt.Run(); err != nil {
			return fmt.Errorf("canoe repl: %w", err)
		}
		source = strings.TrimSpace(source)
		if source == "" {
			return nil
		}

		words := strings.Fields(source)
		result, err := decoder.Decode(context.Background(), table, translate.Request{
			Source: words,
			Info:   feature.NewSentenceInfo{SourceSentence: words, SentenceLength: uint32(len(words))},
		})
		if err != nil {
			fmt.Printf("decode failed: %v\n\n", err)
			continue
		}

		if _, err := tea.NewProgram(newNBestModel(result)).Run(); err != nil {
			return fmt.Errorf("canoe repl: %w", err)
		}
	}
}

// nbestModel is a minimal bubbletea model that lets a user scroll
// through one decode's N-best list and its score, rendered with
// lipgloss styling, closing on any of q/esc/ctrl+c.
type nbestModel struct {
	best     string
	score    float64
	nbest    []string
	cursor   int
	titleSty lipgloss.Style
	selSty   lipgloss.Style
}

func newNBestModel(result *translate.Result) nbestModel {
	return nbestModel{
		best:     result.Best,
		score:    result.BestScore,
		nbest:    result.NBest,
		titleSty: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		selSty:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
}

func (m nbestModel) Init() tea.Cmd { return nil }

func (m nbestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.nbest)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m nbestModel) View() string {
	var b strings.Builder
	b.WriteString(m.titleSty.Render(fmt.Sprintf("best (score %.3f): %s", m.score, m.best)))
	b.WriteString("\n\n")
	for i, line := range m.nbest {
		prefix := "  "
		text := line
		if i == m.cursor {
			prefix = "> "
			text = m.selSty.Render(line)
		}
		b.WriteString(prefix + text + "\n")
	}
	b.WriteString("\n(q to quit, j/k to move)\n")
	return b.String()
}
