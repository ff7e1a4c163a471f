// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"fmt"
	"io"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
)

// State is a single hypothesis in the search: a PartialTranslation paired
// with its accumulated Score and heuristic FutureScore, plus the list of
// weaker states that were recombined into it. The original decoder
// ref-counts States so that a state whose only owner is a now-discarded
// hypothesis stack entry gets collected immediately; Go's garbage collector
// makes that bookkeeping unnecessary, so State carries none of it. What the
// original gets from refcounting that still matters here is a stable,
// monotonically assigned Id — used for display, the deterministic
// worse-than tie-break, and future-score debugging — which an Arena
// allocates.
type State struct {
	// Id is a unique, monotonically increasing identifier assigned by the
	// Arena that created this state, scoped to one sentence's decode.
	Id uint32

	// Back is the state this one extends, or nil for the initial empty
	// state.
	Back *State

	// Trans is this state's translation prefix.
	Trans *PartialTranslation

	// Score is the accumulated model score of the translation so far.
	Score float64

	// FutureScore is Score plus the heuristic estimate of the best
	// possible score for completing the translation.
	FutureScore float64

	// Recomb holds every weaker state that was recombined into this one:
	// states reaching the same search-relevant context with a worse score,
	// kept so their count can be reported, so the lattice overlay can
	// follow their Back pointers as alternative histories, and so pruning
	// by FutureScore can still discard them later.
	Recomb []*State
}

// Arena assigns stable, monotonically increasing ids to the states created
// for a single sentence's decode, replacing the original decoder's
// per-state reference count as the mechanism for giving every state a
// unique identity across its lifetime.
type Arena struct {
	nextID uint32
}

// NewArena returns an Arena with its id counter reset to 0, matching the
// original decoder's per-sentence numStates counter.
func NewArena() *Arena {
	return &Arena{}
}

// MakeEmptyState returns the initial state for a sentence of the given
// length, with id 0, zero score, and a freshly constructed empty
// PartialTranslation.
func (a *Arena) MakeEmptyState(sourceLen uint32, usingLev bool, newShiftReduce func(sourceLen uint32) any) *State {
	var srFactory func(uint32) any
	if usingLev || newShiftReduce != nil {
		srFactory = newShiftReduce
	}
	trans := NewInitial(sourceLen, srFactory)
	if usingLev {
		trans.LevInfo = &LevenshteinInfo{Distance: 0}
	}
	return &State{
		Id:    a.nextID,
		Trans: trans,
	}
}

// Extend returns the state obtained by appending ph to prev's translation.
// Score and FutureScore are left at their zero values; the caller (a
// feature-function scoring pass) must fill them in before the state is
// usable, mirroring the original's "uninitialized memory" sentinel of
// 1234 for both fields immediately after extendDecoderState.
func (a *Arena) Extend(prev *State, ph *phrase.Info, precomputedNotCovered coverage.Set, newShiftReduce func(src coverage.Range, prevSR any) any) *State {
	a.nextID++
	return &State{
		Id:    a.nextID,
		Back:  prev,
		Trans: Extend(prev.Trans, ph, precomputedNotCovered, newShiftReduce),
	}
}

// WorseScore defines the original decoder's total order over states used
// by every hypothesis-stack comparator: a state is "worse" if its
// FutureScore is lower, or on a FutureScore tie if its Score is lower, or
// on a further tie if its Id is higher (a later-created, and therefore
// presumptively less-explored, state sorts as worse so that ties break
// deterministically and reproducibly).
func WorseScore(a, b *State) bool {
	if a.FutureScore != b.FutureScore {
		return a.FutureScore < b.FutureScore
	}
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Id > b.Id
}

// PruneRecombinedStates drops every recombined state whose FutureScore does
// not exceed threshold, returning the number discarded.
func (s *State) PruneRecombinedStates(threshold float64) int {
	kept := s.Recomb[:0]
	discarded := 0
	for _, r := range s.Recomb {
		if r.FutureScore > threshold {
			kept = append(kept, r)
		} else {
			discarded++
		}
	}
	s.Recomb = kept
	return discarded
}

// SourceLength returns the total number of source words this state's
// translation accounts for, covered plus not-yet-covered.
func (s *State) SourceLength() uint32 {
	return s.Trans.NumSourceWordsCovered + s.Trans.SourceWordsNotCovered.CountWords()
}

// Display writes a human-readable dump of the state to out, mirroring
// DecoderState::display. phraseText, when non-nil, renders a phrase.Phrase
// as target-language text (e.g. via the decoder's vocabulary); it may be
// nil to omit that line.
func (s *State) Display(out io.Writer, phraseText func(phrase.Phrase) string) {
	sourceLength := s.SourceLength()
	fmt.Fprintf(out, "%d", s.Id)
	if s.Back != nil {
		fmt.Fprintf(out, " from %d\n", s.Back.Id)
		fmt.Fprintf(out, "\tback score            %v\n", s.Back.Score)
	} else {
		fmt.Fprintln(out)
	}
	fmt.Fprint(out, "\tcoverage              ")
	if s.Back != nil {
		fmt.Fprintf(out, "%s + ", s.Back.Trans.SourceWordsNotCovered.Display(false, sourceLength))
	}
	if s.Trans.LastPhrase != nil {
		fmt.Fprintf(out, "%s = ", s.Trans.LastPhrase.SrcWords.String())
	}
	fmt.Fprintf(out, "%s\n", s.Trans.SourceWordsNotCovered.Display(false, sourceLength))
	fmt.Fprintf(out, "\tnum covered words     %d\n", s.Trans.NumSourceWordsCovered)

	if s.Trans.ContextSizes.LMContextSizeSet() {
		fmt.Fprintf(out, "\tlm context size       %d\n", s.Trans.ContextSizes.LMContextSize())
	}
	if s.Trans.ContextSizes.BiLMContextSize(1) != Unset {
		fmt.Fprint(out, "\tBiLM context size(s) ")
		for i := uint32(1); i <= maxSlot; i++ {
			size := s.Trans.ContextSizes.BiLMContextSize(i)
			if size == Unset {
				break
			}
			fmt.Fprintf(out, " %d", size)
		}
		fmt.Fprintln(out)
	}

	if phraseText != nil && s.Trans.LastPhrase != nil {
		fmt.Fprintf(out, "\ttarget phrase         %s\n", phraseText(s.Trans.LastPhrase.Phrase))
	}
}
