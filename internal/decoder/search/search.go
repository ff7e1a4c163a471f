// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search drives the two equivalent decoding algorithms offered
// by the original decoder over a single source sentence: the classic
// stack decoder (exhaustive per-state phrase extension, pruned by a
// stack.HistogramThresholdHypStack per coverage count) and the cube
// pruning decoder (Huang and Chiang's lazy best-first search over
// stack.Hyperedge matrices, via stack.CubePruningHypStack). Both are
// grounded on decoder.h/.cc and cube_pruning_decoder.h/.cc.
package search

import (
	"math"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/stack"
)

// NoMaxSize disables a stack size cap, mirroring stack.NoSizeLimit at
// this package's level.
const NoMaxSize = ^uint32(0)

// Options collects every tunable the search needs that the original
// decoder reads off its CanoeConfig: stack-pruning parameters shared by
// both algorithms, plus the handful of flags that change which search
// runs and how its final stack is sized. A later config package is
// expected to populate this from parsed YAML.
type Options struct {
	// MaxRegularStackSize caps every stack but the last at this many
	// kept states (NoMaxSize for unbounded).
	MaxRegularStackSize uint32
	// NBestSize is the number of distinct translations the caller
	// ultimately wants out of the final stack; it can shrink the final
	// stack below MaxRegularStackSize when no lattice or n-best list
	// needs every recombined alternative kept around.
	NBestSize uint32
	// PruneThreshold is the (non-log) relative threshold below the best
	// future score seen so far at which a state is discarded; must be
	// in [0, 1], 0 meaning no threshold.
	PruneThreshold float64
	// CovLimit and CovThreshold apply the same two criteria per
	// coverage set; CovLimit 0 or CovThreshold 0 disables the
	// respective check, and CovThreshold 1 keeps only the best state of
	// each coverage set beyond the Diversity floor.
	CovLimit     uint32
	CovThreshold float64
	// Diversity and DiversityStackIncrement keep at least Diversity
	// states per coverage regardless of the other criteria, up to
	// DiversityStackIncrement states beyond MaxRegularStackSize.
	Diversity               uint32
	DiversityStackIncrement uint32
	// Masse, LatticeOut, and NBestOut mirror the configuration flags
	// that force every recombined alternative to be kept (a lattice or
	// n-best list needs to report more than just the single best
	// translation per coverage).
	Masse      bool
	LatticeOut bool
	NBestOut   bool

	// UsingLev activates the Levenshtein-distance bookkeeping on every
	// PartialTranslation.
	UsingLev bool
	// NewShiftReduce constructs the initial shift-reduce parser state
	// for a sentence of the given length; nil disables the ITG
	// constraint entirely.
	NewShiftReduce func(sourceLen uint32) any
	// ExtendShiftReduce advances a shift-reduce parser state by one
	// more source range; required whenever NewShiftReduce is non-nil.
	ExtendShiftReduce func(src coverage.Range, prevSR any) any

	// CubePruning selects the cube pruning algorithm over the classic
	// stack decoder.
	CubePruning bool
}

// discardRecombined reports whether recombined alternatives can be
// dropped as soon as a better state recombines over them: true unless
// the caller needs every alternative for a lattice, n-best list, or
// "masse" (all hypotheses) output, mirroring runStackDecoder's
// discardRecomb computation.
func (o Options) discardRecombined() bool {
	return !o.Masse && !o.LatticeOut && !o.NBestOut
}

// finalStackSize returns how large the last (whole-sentence-covering)
// stack should be, mirroring runStackDecoder's last_stack_size logic:
// a single best hypothesis is enough when every recombined alternative
// is being discarded anyway; otherwise an n-best request smaller than
// the regular stack size can shrink it too.
func (o Options) finalStackSize() uint32 {
	if o.discardRecombined() {
		return 1
	}
	if !o.Masse && !o.LatticeOut && o.NBestSize != 0 && o.NBestSize < o.MaxRegularStackSize {
		return o.NBestSize
	}
	return o.MaxRegularStackSize
}

// logThreshold converts a [0, 1] relative threshold into the negative
// log-space value stack.HistogramThresholdHypStack and
// stack.CubePruningHypStack.KBest expect, matching the original's
// log(c.pruneThreshold)/log(c.covThreshold) calls: 0 (no pruning) maps
// to -Inf via math.Log(0), and 1 (keep only the best) maps to 0.
func logThreshold(relativeThreshold float64) float64 {
	return math.Log(relativeThreshold)
}

// Decode translates one source sentence by dispatching to the cube
// pruning decoder or the classic stack decoder according to
// opts.CubePruning, mirroring the two-line runDecoder wrapper in
// decoder.cc that picks between them based on CanoeConfig::bCubePruning.
// The returned stack.Hyp is the final, whole-sentence-covering stack;
// both algorithms satisfy it, so callers that only need to pop the best
// (or every) complete translation never need to know which one ran.
func Decode(
	ctx *decodectx.Context,
	m *model.Model,
	finder phrasefinder.Finder,
	table *phrase.Table,
	sourceLength uint32,
	opts Options,
) stack.Hyp {
	if opts.CubePruning {
		return RunCubePruningDecoder(m, finder, table, sourceLength, opts)
	}
	return RunStackDecoder(ctx, m, finder, sourceLength, opts)
}
