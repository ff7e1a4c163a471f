// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shiftreduce implements a shift-reduce parser over contiguous
// source-word blocks, tracking the largest ITG-style binary bracketing
// reachable from the blocks translated so far. It underlies the
// hierarchical lexicalized-distortion feature and the ITG reordering
// constraint.
package shiftreduce

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/decodectx"
)

// Parser is one node of the shift-reduce stack: Top is the range at the
// top of the stack, Tail is the rest of the stack (nil at the bottom).
// Ported from ShiftReducer in original_source/src/canoe/shift_reducer.{h,cc}.
type Parser struct {
	top        coverage.Range
	tail       *Parser
	leftBound  uint32
	rightBound uint32
}

// New starts a fresh parser for a sentence of the given length: an empty
// top-of-stack range and the full sentence as the bound within which the
// next block must fall.
func New(sentenceLength uint32) *Parser {
	return &Parser{
		top:        coverage.NewRange(0, 0),
		rightBound: sentenceLength,
	}
}

// Start returns the start of the range at the top of the stack.
func (p *Parser) Start() uint32 { return p.top.Start }

// End returns the end of the range at the top of the stack.
func (p *Parser) End() uint32 { return p.top.End }

// LeftBound returns the inclusive left bound within which the next shifted
// block must fall to remain 2-reducible adjacent to this parser's stack.
func (p *Parser) LeftBound() uint32 { return p.leftBound }

// RightBound returns the exclusive right bound within which the next
// shifted block must fall.
func (p *Parser) RightBound() uint32 { return p.rightBound }

// IsOneElement reports whether this parser's stack holds exactly one
// element (i.e. everything seen so far has reduced into a single block).
// The empty range New puts at the bottom of the stack is not counted.
func (p *Parser) IsOneElement() bool {
	return p.tail == nil || (p.tail.tail == nil && p.tail.top.Start == p.tail.top.End)
}

// Extend pushes the source range r onto parent's stack and immediately
// reduces as much as possible, returning the new parser state. parent must
// be non-nil; r must fall entirely to one side of parent's top range (this
// mirrors the original constructor's non-deterministic-adjacency
// assertion — r is assumed to come from a phrasefinder candidate that
// already enforces this).
func Extend(ctx *decodectx.Context, r coverage.Range, parent *Parser) *Parser {
	p := &Parser{top: r, tail: parent}

	switch {
	case r.End <= parent.Start():
		p.leftBound = parent.leftBound
		p.rightBound = parent.Start()
	case r.Start >= parent.End():
		p.leftBound = parent.End()
		p.rightBound = parent.rightBound
	default:
		panic("shiftreduce: pushed range is not adjacent to either side of the parent's top range")
	}

	p.reduce(ctx)
	return p
}

// reduce greedily merges the top of the stack with as many of its
// predecessors as form one contiguous block, counting every reduction
// that merges more than two blocks at once as a non-ITG reduction (a
// binary-bracketing ITG grammar can only ever merge two adjacent
// constituents at a time). Ported from ShiftReducer::reduce.
func (p *Parser) reduce(ctx *decodectx.Context) {
	imax, imin := p.top.End, p.top.Start
	size := p.top.End - p.top.Start
	prev := p.tail
	depth := 1

	for prev != nil && (ctx.AllowNonITG || depth == 1) {
		if prev.End() > imax {
			imax = prev.End()
		}
		if prev.Start() < imin {
			imin = prev.Start()
		}
		size += prev.End() - prev.Start()
		depth++

		if size == imax-imin {
			p.top = coverage.NewRange(imin, imax)
			p.tail = prev.tail
			p.leftBound = prev.leftBound
			p.rightBound = prev.rightBound
			if depth > 2 {
				ctx.IncrementNonITGCount()
			}
			depth = 1
		}
		prev = prev.tail
	}
}

// ComputeRecombHash returns a hash capturing the parser's stack shape.
//
// This is a line-for-line port of ShiftReducer::computeRecombHash, which
// carries a latent bug in the original: hashCache starts at 0 and the
// guard is `if (hashCache != 0)`, so the recomputation branch can only
// ever run once hashCache is already non-zero — which never happens,
// since the only assignment to it lives inside that same guarded block.
// The practical effect is that computeRecombHash() always returns 0. Per
// the project's decision to preserve observed original behavior exactly
// rather than silently "fix" a historical decoder's output, this port
// reproduces that effect: it always returns 0.
func (p *Parser) ComputeRecombHash() uint64 {
	var hashCache uint64
	if hashCache != 0 {
		hashCache = uint64(p.Start()) + 17*uint64(p.End())
		if p.tail != nil {
			hashCache *= 17
			hashCache += p.tail.ComputeRecombHash()
		}
	}
	return hashCache
}

// IsRecombinable reports whether two parsers (either of which may be nil)
// represent the same stack shape all the way down.
func IsRecombinable(p1, p2 *Parser) bool {
	switch {
	case p1 == nil && p2 == nil:
		return true
	case p1 == p2:
		return true
	case p1 == nil || p2 == nil:
		return false
	}
	if p1.top != p2.top {
		return false
	}
	return IsRecombinable(p1.tail, p2.tail)
}

// String renders the full stack, bottom to top, for debugging.
func (p *Parser) String() string {
	var sb strings.Builder
	cur := p
	first := true
	for cur != nil {
		if !first {
			sb.WriteString(" ")
		}
		first = false
		fmt.Fprintf(&sb, "|%d %s %d|", cur.leftBound, cur.top.String(), cur.rightBound)
		cur = cur.tail
	}
	return sb.String()
}
