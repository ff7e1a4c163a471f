// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package features

import "github.com/AleutianAI/canoe-go/internal/decoder/phrase"

// AlignmentSets holds, for a single phrase pair, the target-side link
// positions for each of its source words (indexed 0..len(src)-1,
// relative to the phrase's own start, not the sentence). A source word
// with no link has an empty slice. Word-strict wall/zone features use
// this to tell a compositional straddling phrase (safe to split) from a
// non-compositional one (a wall/zone violation).
type AlignmentSets [][]int

// AlignmentAnnotationKey is the phrase.Info.Annotations key a phrase
// table loader stores a phrase's AlignmentSets under, if any were
// supplied with the table.
const AlignmentAnnotationKey = "alignment"

// alignmentSets returns pi's AlignmentSets, if it carries one covering
// at least srcLen source positions.
func alignmentSets(pi *phrase.Info, srcLen int) (AlignmentSets, bool) {
	if pi == nil {
		return nil, false
	}
	a, ok := pi.Annotation(AlignmentAnnotationKey)
	if !ok {
		return nil, false
	}
	sets, ok := a.(AlignmentSets)
	if !ok || len(sets) < srcLen {
		return nil, false
	}
	return sets, true
}

// maxLink returns the highest link position found across sets[start:end],
// or -1 if none of those source positions are linked.
func maxLink(sets AlignmentSets, start, end int) int {
	max := -1
	for i := start; i < end && i < len(sets); i++ {
		for _, link := range sets[i] {
			if link > max {
				max = link
			}
		}
	}
	return max
}

// minLink returns the lowest link position found across sets[start:end],
// or math.MaxInt if none of those source positions are linked.
func minLink(sets AlignmentSets, start, end int) int {
	min := int(^uint(0) >> 1)
	for i := start; i < end && i < len(sets); i++ {
		for _, link := range sets[i] {
			if link < min {
				min = link
			}
		}
	}
	return min
}
