// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import "strings"

// Set represents a set of source-word positions as a minimal, ordered,
// pairwise-disjoint, non-touching list of Ranges. Every method here
// preserves that invariant; callers that build a Set by any other means
// must restore it before passing it to Add/Sub/Intersect.
type Set []Range

// Full returns the coverage set for an as-yet-untranslated sentence of the
// given length: a single range spanning every source word. A sentence of
// length 0 yields an empty set.
func Full(sentenceLength uint32) Set {
	if sentenceLength == 0 {
		return Set{}
	}
	return Set{NewRange(0, sentenceLength)}
}

// Equal reports structural equality: same ranges, in the same order.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Add returns the union of s with every position in r, merging any ranges
// of s that r touches or overlaps into one contiguous range. Ported
// directly from Portage::addRange (canoe_general.cc).
func (s Set) Add(r Range) Set {
	var result Set

	i := 0
	for i < len(s) && s[i].End < r.Start {
		result = append(result, s[i])
		i++
	}

	var curStart uint32
	if i == len(s) {
		curStart = r.Start
	} else if s[i].Start < r.Start {
		curStart = s[i].Start
	} else {
		curStart = r.Start
	}

	// Skip every range in s that overlaps or touches r.
	for i < len(s) && s[i].Start <= r.End {
		i++
	}

	var curEnd uint32
	if i == 0 {
		curEnd = r.End
	} else if s[i-1].End > r.End {
		curEnd = s[i-1].End
	} else {
		curEnd = r.End
	}

	result = append(result, NewRange(curStart, curEnd))
	result = append(result, s[i:]...)
	return result
}

// Sub returns s with every position in r removed. Ported directly from
// Portage::subRange.
func (s Set) Sub(r Range) Set {
	var result Set
	for _, cur := range s {
		if cur.Start > r.End || cur.End < r.Start {
			// No overlap: unaffected.
			result = append(result, cur)
			continue
		}
		if cur.Start < r.Start {
			result = append(result, NewRange(cur.Start, r.Start))
		}
		if cur.End > r.End {
			result = append(result, NewRange(r.End, cur.End))
		}
	}
	return result
}

// Intersect returns the positions in both s and r. Ported directly from
// Portage::intersectRange.
func (s Set) Intersect(r Range) Set {
	var result Set
	for _, cur := range s {
		if cur.End > r.Start && r.End > cur.Start {
			start := cur.Start
			if r.Start > start {
				start = r.Start
			}
			end := cur.End
			if r.End < end {
				end = r.End
			}
			result = append(result, NewRange(start, end))
		}
	}
	return result
}

// ContainsRange reports whether r is fully contained in one of s's ranges.
func (s Set) ContainsRange(r Range) bool {
	for _, cur := range s {
		if cur.Start <= r.Start && r.End <= cur.End {
			return true
		}
	}
	return false
}

// Disjoint reports whether r shares no position with s.
func (s Set) Disjoint(r Range) bool {
	for _, cur := range s {
		if cur.Overlaps(r) {
			return false
		}
	}
	return true
}

// CountWords returns the total number of source positions covered by s.
func (s Set) CountWords() uint32 {
	var total uint32
	for _, r := range s {
		total += r.Len()
	}
	return total
}

// CountSubRanges returns the number of contiguous subranges representable
// within s: sum over ranges of len*(len+1)/2, matching
// Portage::countSubRanges.
func (s Set) CountSubRanges() uint64 {
	var total uint64
	for _, r := range s {
		n := uint64(r.Len())
		total += n * (n + 1) / 2
	}
	return total
}

// Display renders s as a fixed-width bit vector of the given sentence
// length, '1' for covered positions and '-' for uncovered (or the reverse
// when inIs1 is false), matching Portage::displayUintSet.
func (s Set) Display(inIs1 bool, length uint32) string {
	for _, r := range s {
		if r.End > length {
			length = r.End
		}
	}
	covered, uncovered := byte('1'), byte('-')
	if !inIs1 {
		covered, uncovered = uncovered, covered
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = uncovered
	}
	for _, r := range s {
		for i := r.Start; i < r.End; i++ {
			buf[i] = covered
		}
	}
	return string(buf)
}

// String renders s as space-separated Range literals, empty ranges included
// only implicitly (an empty Set renders as "").
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// SubRanges enumerates every sub-range of s in increasing (start, length)
// order, matching Portage::pickItemsByRange's iteration order: for each
// maximal range in s, every start position, and for each start every
// length up to the end of that maximal range.
func (s Set) SubRanges() []Range {
	var out []Range
	for _, r := range s {
		for i := r.Start; i < r.End; i++ {
			for length := uint32(1); i+length <= r.End; length++ {
				out = append(out, NewRange(i, i+length))
			}
		}
	}
	return out
}
