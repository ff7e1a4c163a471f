// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phrase

import "github.com/AleutianAI/canoe-go/internal/decoder/coverage"

// Table holds, for a single source sentence of SentenceLength words, every
// candidate Info for every source Range [i, i+len) up to MaxPhraseLength.
// The original decoder allocates a triangular array of vector<PhraseInfo*>
// sized [sentenceLength][sentenceLength-i] (CreateTriangularArray in
// canoe_general.h) and re-allocates it per sentence. Table instead stores
// candidates in one flat slice indexed by the closed-form triangular offset
//
//	offset(i, j) = i*n - i*(i-1)/2 + j,   0 <= i < n,  0 <= j < n-i
//
// where n is SentenceLength and j = len-1, avoiding the per-sentence jagged
// allocation while preserving O(1) lookup by (start, length).
type Table struct {
	sentenceLength int
	cells          [][]*Info
}

// NewTable allocates an empty Table for a sentence of the given length.
func NewTable(sentenceLength int) *Table {
	n := sentenceLength
	return &Table{
		sentenceLength: n,
		cells:          make([][]*Info, n*(n+1)/2),
	}
}

// offset computes the flat index for the cell holding candidates whose
// source range starts at i and has length j+1 (0-based j).
func (t *Table) offset(i, j int) int {
	n := t.sentenceLength
	return i*n - i*(i-1)/2 + j
}

// Add registers a candidate translation for the range [start, start+length).
func (t *Table) Add(start, length int, info *Info) {
	idx := t.offset(start, length-1)
	t.cells[idx] = append(t.cells[idx], info)
}

// Candidates returns every Info registered for the exact range [start,
// start+length).
func (t *Table) Candidates(start, length int) []*Info {
	if length <= 0 || start < 0 || start+length > t.sentenceLength {
		return nil
	}
	return t.cells[t.offset(start, length-1)]
}

// CandidatesForRange is a coverage.Range-typed convenience wrapper around
// Candidates.
func (t *Table) CandidatesForRange(r coverage.Range) []*Info {
	return t.Candidates(int(r.Start), int(r.Len()))
}

// PickByCoverage collects every candidate whose source range is wholly
// contained in the given coverage set, mirroring Portage::pickItemsByRange
// but operating directly on the flat Table rather than a raw triangular
// pointer array.
func (t *Table) PickByCoverage(set coverage.Set) []*Info {
	var result []*Info
	for _, r := range set {
		for i := r.Start; i < r.End; i++ {
			maxLen := r.End - i
			for length := uint32(1); length <= maxLen; length++ {
				result = append(result, t.Candidates(int(i), int(length))...)
			}
		}
	}
	return result
}

// SentenceLength returns the source-sentence length this table was built
// for.
func (t *Table) SentenceLength() int {
	return t.sentenceLength
}
