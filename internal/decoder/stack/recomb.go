// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stack implements the hypothesis stacks the search uses to
// recombine, prune, and order the states a decode produces: Hyp, the
// shared contract every stack satisfies, RecombHypStack, a pure
// recombining container with no size limit, and HistogramThresholdHypStack,
// which layers histogram, relative-threshold, and per-coverage pruning on
// top of it.
package stack

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/model"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// NoSizeLimit marks a size-bounded pruning parameter (PruneSize, CovLimit,
// DiversityStackIncrement) as unbounded.
const NoSizeLimit = ^uint32(0)

// Hyp is the interface every hypothesis stack satisfies: it takes
// ownership of pushed states, recombining and/or pruning them, and later
// gives them back through Pop in best-first order. All states must be
// pushed before the first Pop or IsEmpty call: HistogramThresholdHypStack
// builds its pop heap from the pushed states at that first call, as the
// original's popStarted flag did, and a state pushed after it is never
// popped. No stack rejects such a late push.
type Hyp interface {
	Push(s *state.State)
	Pop() *state.State
	IsEmpty() bool
	Size() uint32

	NumPruned() uint32
	NumPrunedAtPush() uint32
	NumPrunedAtPop() uint32
	NumRecombined() uint32
	NumRecombKept() uint32
	NumUnrecombined() uint32
	NumRecombPrunedAtPop() uint32
	NumCovPruned() uint32
	NumRecombCovPruned() uint32
}

// RecombHypStack recombines states that reach equivalent search-relevant
// context, keeping only the higher-scoring one as each bucket's primary
// state and chaining the rest onto its Recomb list (or discarding them
// outright, if configured to). It applies no size or score-based pruning
// of its own; HistogramThresholdHypStack layers that on top.
//
// The original implements this with a tr1::unordered_set keyed by a
// model-derived hash and equivalence functor, manually ref-counting
// discarded states. Go has no equivalent single-container primitive
// (map keys must be directly comparable, not compared through an
// arbitrary predicate), so this keeps its own hash-bucketed slices and
// resolves collisions by scanning the bucket with model.IsRecombinable,
// the same two-step hash-then-confirm shape unordered_set performs
// internally. Go's garbage collector removes the need for the refCount
// bookkeeping the original relies on to free discarded states.
type RecombHypStack struct {
	model *model.Model

	discardRecombined bool

	buckets map[uint64][]*state.State
	count   uint32

	numRecombined uint32
}

// NewRecombHypStack constructs an empty RecombHypStack that recombines
// states according to m. If discardRecombined is true, a state that loses
// a recombination is dropped immediately instead of being kept on the
// winner's Recomb list — set this only when lattice or n-best output will
// never be needed from this stack.
func NewRecombHypStack(m *model.Model, discardRecombined bool) *RecombHypStack {
	return &RecombHypStack{
		model:             m,
		discardRecombined: discardRecombined,
		buckets:           make(map[uint64][]*state.State),
	}
}

// Push adds s to the stack, recombining it with an existing equivalent
// state if one is found.
func (r *RecombHypStack) Push(s *state.State) {
	h := r.model.ComputeRecombHash(s.Trans)
	bucket := r.buckets[h]

	for i, existing := range bucket {
		if !r.model.IsRecombinable(existing.Trans, s.Trans) {
			continue
		}

		r.numRecombined++
		if existing.FutureScore < s.FutureScore {
			// s is the better hypothesis for this equivalence class; it
			// becomes the bucket's primary entry, inheriting existing's
			// recombined chain and absorbing existing onto it.
			s.Recomb = append(s.Recomb, existing.Recomb...)
			existing.Recomb = nil
			if !r.discardRecombined {
				s.Recomb = append(s.Recomb, existing)
			}
			bucket[i] = s
		} else if !r.discardRecombined {
			existing.Recomb = append(existing.Recomb, s)
		}
		return
	}

	r.buckets[h] = append(bucket, s)
	r.count++
}

// GetAllStates returns every primary (non-recombined-away) state
// currently on the stack.
func (r *RecombHypStack) GetAllStates() []*state.State {
	out := make([]*state.State, 0, r.count)
	for _, bucket := range r.buckets {
		out = append(out, bucket...)
	}
	return out
}

// Pop is not implemented: RecombHypStack alone performs no ordering
// between bucketed states, just as the original's RecombHypStack::pop()
// asserts rather than implementing an order.
func (r *RecombHypStack) Pop() *state.State {
	panic("stack: Pop called on a RecombHypStack; use HistogramThresholdHypStack")
}

func (r *RecombHypStack) IsEmpty() bool { return r.count == 0 }
func (r *RecombHypStack) Size() uint32  { return r.count }

func (r *RecombHypStack) NumPruned() uint32           { return 0 }
func (r *RecombHypStack) NumPrunedAtPush() uint32     { return 0 }
func (r *RecombHypStack) NumPrunedAtPop() uint32      { return 0 }
func (r *RecombHypStack) NumRecombined() uint32       { return r.numRecombined }
func (r *RecombHypStack) NumRecombKept() uint32       { return 0 }
func (r *RecombHypStack) NumUnrecombined() uint32     { return 0 }
func (r *RecombHypStack) NumRecombPrunedAtPop() uint32 { return 0 }
func (r *RecombHypStack) NumCovPruned() uint32        { return 0 }
func (r *RecombHypStack) NumRecombCovPruned() uint32  { return 0 }
