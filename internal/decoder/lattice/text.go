// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lattice

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// escapePhrase backslash-escapes '\' and '"' in phrase text so it can be
// embedded in a double-quoted field of the pruned lattice text format.
func escapePhrase(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// nodeLabel renders a node's id for the text dump: the dummy root prints
// as "FINAL", matching the external format's naming of the dummy root.
func nodeLabel(s *state.State) string {
	if s == root {
		return "FINAL"
	}
	return fmt.Sprintf("%d", s.Id)
}

// PrintPrunedLattice writes the density * length highest inside-outside
// scoring edges of the overlay as a line-per-node text lattice: one line
// per destination node, "(to_id (from_id \"phrase\" score) ...)", listing
// every surviving edge arriving at that node in descending score order.
// phraseText renders a phrase.Phrase as target-language text; the phrase
// shown for an edge is the phrase its origin node appended to reach it
// (From.Trans.LastPhrase), or the empty string for the edges root adds
// above the final states.
func PrintPrunedLattice(o *Overlay, density float64, length int, phraseText func(phrase.Phrase) string, w io.Writer) error {
	scored := o.InsideOutside()
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	keep := int(density * float64(length))
	if keep < 0 {
		keep = 0
	}
	if keep > len(scored) {
		keep = len(scored)
	}

	groups := make(map[*state.State][]EdgeScore)
	for _, es := range scored[:keep] {
		from := es.Edge.From
		groups[from] = append(groups[from], es)
	}

	var nodes []*state.State
	for n := range groups {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i] == root {
			return true
		}
		if nodes[j] == root {
			return false
		}
		return nodes[i].Id < nodes[j].Id
	})

	for _, n := range nodes {
		var b strings.Builder
		fmt.Fprintf(&b, "(%s", nodeLabel(n))
		for _, es := range groups[n] {
			phraseTxt := ""
			if n.Trans != nil && n.Trans.LastPhrase != nil && phraseText != nil {
				phraseTxt = phraseText(n.Trans.LastPhrase.Phrase)
			}
			fmt.Fprintf(&b, " (%s \"%s\" %v)", nodeLabel(es.Edge.To), escapePhrase(phraseTxt), es.Score)
		}
		b.WriteString(")\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
