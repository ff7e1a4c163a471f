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
	"math"
	"strings"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
)

func vocab(p phrase.Phrase) string {
	words := map[phrase.WordID]string{1: "m", 2: "f1", 3: "f2"}
	var b strings.Builder
	for i, w := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[w])
	}
	return b.String()
}

func TestPrintPrunedLatticeEmitsFinalRowAndEscapesPhrases(t *testing.T) {
	finalStates, _ := buildFixture()
	o := Build(finalStates, math.Inf(-1))

	var b strings.Builder
	if err := PrintPrunedLattice(o, 1.0, 6, vocab, &b); err != nil {
		t.Fatalf("PrintPrunedLattice returned an error: %v", err)
	}

	out := b.String()
	if !strings.HasPrefix(out, "(FINAL ") {
		t.Errorf("output does not start with the FINAL row:\n%s", out)
	}
	if !strings.Contains(out, `"f1"`) {
		t.Errorf("output missing the f1 phrase text:\n%s", out)
	}
}

func TestPrintPrunedLatticeKeepsOnlyTopDensityTimesLengthEdges(t *testing.T) {
	finalStates, _ := buildFixture()
	o := Build(finalStates, math.Inf(-1))

	var b strings.Builder
	if err := PrintPrunedLattice(o, 0, 0, vocab, &b); err != nil {
		t.Fatalf("PrintPrunedLattice returned an error: %v", err)
	}
	if b.String() != "" {
		t.Errorf("density*length = 0 should keep no edges, got:\n%s", b.String())
	}
}

func TestEscapePhraseEscapesQuotesAndBackslashes(t *testing.T) {
	got := escapePhrase(`say "hi" \ bye`)
	want := `say \"hi\" \\ bye`
	if got != want {
		t.Errorf("escapePhrase = %q, want %q", got, want)
	}
}
