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

// editDistance returns the ordinary Levenshtein edit distance between a
// and b: the minimum number of single-word insertions, deletions, or
// substitutions needed to turn a into b.
func editDistance(a, b phrase.Phrase) int {
	return editDistanceIncompleteRef(a, b, false, false, nil)
}

// editDistanceIncompleteRef computes the minimum edit distance between
// hyp and a reference ref, optionally allowing a prefix and/or suffix of
// ref to be skipped for free — modeling the case where only part of ref
// needs to match hyp.
//
//   - freeRefStart lets the alignment begin anywhere in ref, at no cost
//     for the skipped prefix (ref coverage "from anywhere").
//   - freeRefEnd lets the alignment end anywhere in ref, at no cost for
//     the skipped suffix (ref coverage that needn't reach ref's end).
//
// When minPositions is non-nil and freeRefEnd is set, *minPositions is
// set to a slice of length len(ref)+1 where index j is true iff ending
// the alignment at ref[:j] achieves the overall minimum distance.
func editDistanceIncompleteRef(hyp, ref phrase.Phrase, freeRefStart, freeRefEnd bool, minPositions *[]bool) int {
	n, m := len(hyp), len(ref)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := 0; i <= n; i++ {
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		if freeRefStart {
			dp[0][j] = 0
		} else {
			dp[0][j] = j
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := dp[i-1][j-1]
			if hyp[i-1] != ref[j-1] {
				sub++
			}
			del := dp[i-1][j] + 1
			ins := dp[i][j-1] + 1
			best := sub
			if del < best {
				best = del
			}
			if ins < best {
				best = ins
			}
			dp[i][j] = best
		}
	}

	if !freeRefEnd {
		return dp[n][m]
	}

	best := dp[n][0]
	for j := 1; j <= m; j++ {
		if dp[n][j] < best {
			best = dp[n][j]
		}
	}
	if minPositions != nil {
		positions := make([]bool, m+1)
		for j := 0; j <= m; j++ {
			positions[j] = dp[n][j] == best
		}
		*minPositions = positions
	}
	return best
}
