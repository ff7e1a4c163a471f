// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coverage implements the half-open source-word Range and the
// ordered-disjoint-range CoverageSet algebra used throughout the decoder to
// track which source words a partial translation has and has not covered.
package coverage

import "fmt"

// Range is the half-open interval [Start, End) over source-word positions.
type Range struct {
	Start uint32
	End   uint32
}

// NewRange constructs the range [start, end).
func NewRange(start, end uint32) Range {
	return Range{Start: start, End: end}
}

// Len returns End - Start.
func (r Range) Len() uint32 {
	return r.End - r.Start
}

// Empty reports whether this range is the sentinel empty range (Start == End).
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Less orders ranges lexicographically on (Start, End), matching the
// original decoder's Range::operator<.
func (r Range) Less(other Range) bool {
	return r.Start < other.Start || (r.Start == other.Start && r.End < other.End)
}

// Overlaps reports whether r and other share at least one source position.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// String renders the range in the original decoder's "[start,end)" form.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}
