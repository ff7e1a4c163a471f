// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decodectx defines Context, the explicit, per-sentence-decode
// state the original decoder kept as global or static class members
// (ShiftReducer::nonITGCount, ShiftReducer::allowNonITG,
// ShiftReducer::incompleteStackCnt chief among them). Threading a Context
// value explicitly through the search instead makes it possible to decode
// multiple sentences concurrently without any shared mutable state
// between them.
package decodectx

import "context"

// Context carries the mutable bookkeeping a single sentence's decode
// needs that isn't naturally part of any one search-tree node.
type Context struct {
	// Ctx is the standard library context governing cancellation and
	// deadlines for this sentence's decode; every blocking call the
	// search makes (external NNJM lookups, cache reads) should respect
	// it.
	Ctx context.Context

	// SentenceID identifies the sentence within a batch, for logging and
	// lattice/n-best output correlation.
	SentenceID int

	// AllowNonITG replaces the original ShiftReducer::allowNonITG static
	// member: whether the shift-reduce parser may perform a reduction
	// that a binary-bracketing (ITG) grammar could not license.
	AllowNonITG bool

	// nonITGCount replaces ShiftReducer::nonITGCount: the number of
	// non-ITG reductions the shift-reduce parser has performed so far in
	// this sentence's decode. It is a count, not a remaining allowance —
	// the itg_limit configuration option is enforced by the
	// phrasefinder's respectsITG predicate comparing this count against
	// the limit, exactly as in the original.
	nonITGCount int

	// incompleteStackCnt replaces
	// ShiftReducer::incompleteStackCnt: the number of final states
	// whose shift-reduce stack did not reduce to a single element, as
	// recorded through IncrementIncompleteStackCount. The search does
	// not call that method, so the count stays 0 unless a caller does.
	incompleteStackCnt int
}

// New returns a Context for decoding a single sentence. allowNonITG
// should come from whether any distortion-limit-itg configuration is
// active for this decode.
func New(ctx context.Context, sentenceID int, allowNonITG bool) *Context {
	return &Context{
		Ctx:         ctx,
		SentenceID:  sentenceID,
		AllowNonITG: allowNonITG,
	}
}

// IncrementNonITGCount records one more non-ITG reduction.
func (c *Context) IncrementNonITGCount() {
	c.nonITGCount++
}

// NonITGCount returns the number of non-ITG reductions performed so far.
func (c *Context) NonITGCount() int {
	return c.nonITGCount
}

// DisallowNonITG replaces ShiftReducer::allowOnlyITG(): once the
// itg_limit has been reached, the phrasefinder calls this so that every
// subsequent shift-reduce step in this sentence's decode is restricted
// to ITG-licensed reductions.
func (c *Context) DisallowNonITG() {
	c.AllowNonITG = false
}

// IncrementIncompleteStackCount records one more final state whose
// shift-reduce stack never fully reduced.
func (c *Context) IncrementIncompleteStackCount() {
	c.incompleteStackCnt++
}

// IncompleteStackCount returns the running tally of final states with an
// unreduced shift-reduce stack.
func (c *Context) IncompleteStackCount() int {
	return c.incompleteStackCnt
}
