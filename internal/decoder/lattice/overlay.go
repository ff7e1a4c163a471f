// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lattice wraps the search's final stack.HistogramThresholdHypStack
// (or stack.CubePruningHypStack) as a directed acyclic graph for
// inside/outside scoring, n-best extraction, and a pruned text dump. No
// file in the retrieval pack's original_source/ tree implements this
// module directly (it has no *lattice* counterpart anywhere under
// src/canoe), so its construction is grounded on the textual description
// of the overlay in the distilled specification rather than ported from a
// matching C++ source; see DESIGN.md for the resulting Open Question
// decisions this forced.
package lattice

import (
	"fmt"
	"math"

	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// root is a unique sentinel identifying the dummy node added above every
// complete, whole-sentence-covering state. It carries no Trans and is
// never dereferenced for translation content; its identity (pointer
// equality) is all the graph ever needs from it.
var root = &state.State{}

// Edge is one arc of the overlay: From's translation can be reached by
// appending some phrase to To's translation. Score is the resulting model
// score delta, floored at the Overlay's configured minimum.
type Edge struct {
	From  *state.State
	To    *state.State
	Score float64
}

// Overlay is the DAG built over one sentence's final states: root at the
// top, the initial (Back == nil) state as the unique leaf at the bottom,
// and every state reachable from the final states by following Back
// pointers and recombined siblings' Back pointers in between.
type Overlay struct {
	floor float64
	out   map[*state.State][]*Edge
	in    map[*state.State][]*Edge
	leaf  *state.State
}

// floorScore applies the overlay's configured minimum edge score, matching
// the "floored at a configurable minimum" clamp on every edge score.
func (o *Overlay) floorScore(delta float64) float64 {
	if delta < o.floor {
		return o.floor
	}
	return delta
}

func (o *Overlay) addEdge(from, to *state.State, score float64) {
	e := &Edge{From: from, To: to, Score: score}
	o.out[from] = append(o.out[from], e)
	o.in[to] = append(o.in[to], e)
}

// Build constructs the overlay for a sentence whose final (complete)
// states are finalStates — the states a caller pops (or GetAllStates
// returns) off the search's whole-sentence-covering stack. scoreFloor
// bounds how negative a single edge's score can be, matching the minimum
// edge weight the pruned text dump and inside/outside scoring use.
//
// For every node except root, one outgoing edge is added to its Back
// state (score Score - Back.Score), plus one outgoing edge per recombined
// sibling in Recomb, each arriving at that sibling's own Back state
// (scored from the sibling's own Score, not the prime's) — the
// alternative history the sibling represents is "reach Back's target
// prefix, then append the same phrase the prime itself appended". Every
// node this produces is visited exactly once (acyclicity is required of
// the search's Back chains, and is checked by StatesInInsideOrder).
func Build(finalStates []*state.State, scoreFloor float64) *Overlay {
	o := &Overlay{
		floor: scoreFloor,
		out:   make(map[*state.State][]*Edge),
		in:    make(map[*state.State][]*Edge),
	}

	visited := make(map[*state.State]bool)
	var visit func(s *state.State)
	visit = func(s *state.State) {
		if visited[s] {
			return
		}
		visited[s] = true
		if s.Back == nil {
			o.leaf = s
			return
		}
		o.addEdge(s, s.Back, o.floorScore(s.Score-s.Back.Score))
		visit(s.Back)
		// A recombined sibling's own Back is nil only if the sibling is
		// itself the sentence's unique initial state, which an Arena
		// never recombines (exactly one is ever created per sentence).
		for _, sib := range s.Recomb {
			if sib.Back == nil {
				continue
			}
			o.addEdge(s, sib.Back, o.floorScore(sib.Score-sib.Back.Score))
			visit(sib.Back)
		}
	}

	for _, fs := range finalStates {
		o.addEdge(root, fs, 0)
		visit(fs)
	}

	return o
}

// StatesInInsideOrder returns every node in the overlay, root included,
// in postorder from root (a node's descendants all precede it), matching
// states_in_inside_order's two-colour DFS. It panics if the Back/Recomb
// graph it was built from is not in fact acyclic — a two-colour DFS finds
// a gray (in-progress) node reached a second time before it has finished,
// which should never happen since Back chains strictly decrease coverage.
func (o *Overlay) StatesInInsideOrder() []*state.State {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*state.State]int)
	var order []*state.State

	var visit func(s *state.State)
	visit = func(s *state.State) {
		switch color[s] {
		case black:
			return
		case gray:
			panic("lattice: cycle detected while ordering states for inside scoring")
		}
		color[s] = gray
		for _, e := range o.out[s] {
			visit(e.To)
		}
		color[s] = black
		order = append(order, s)
	}
	visit(root)
	return order
}

// Inside returns, for every node, the best (maximum) total edge score
// along any path from the unique leaf up to that node. Inside(leaf) is 0
// by definition; every other node's value is the best of its outgoing
// edges' score plus the edge's target's own Inside value, which is always
// already known because StatesInInsideOrder visits children before
// parents.
func (o *Overlay) Inside() map[*state.State]float64 {
	order := o.StatesInInsideOrder()
	inside := make(map[*state.State]float64, len(order))
	for _, s := range order {
		edges := o.out[s]
		if len(edges) == 0 {
			inside[s] = 0
			continue
		}
		best := math.Inf(-1)
		for _, e := range edges {
			if v := e.Score + inside[e.To]; v > best {
				best = v
			}
		}
		inside[s] = best
	}
	return inside
}

// Outside returns, for every node, the best total edge score along any
// path from root down to that node. Outside(root) is 0; every other
// node's value is the best, over every edge arriving at it, of that
// edge's origin's own Outside value plus the edge's score. Nodes are
// processed in reverse inside order (root first), so an edge's origin
// always already has a known Outside value by the time it is used.
func (o *Overlay) Outside() map[*state.State]float64 {
	order := o.StatesInInsideOrder()
	outside := make(map[*state.State]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		s := order[i]
		if s == root {
			outside[s] = 0
			continue
		}
		edges := o.in[s]
		best := math.Inf(-1)
		for _, e := range edges {
			if v := outside[e.From] + e.Score; v > best {
				best = v
			}
		}
		outside[s] = best
	}
	return outside
}

// EdgeScore pairs an Edge with its best total-path score: the best
// complete root-to-leaf path score among every path using that edge.
type EdgeScore struct {
	Edge  *Edge
	Score float64
}

// InsideOutside scores every edge in the overlay by the best total
// root-to-leaf path passing through it (Outside(From) + Score +
// Inside(To)), and checks the standard inside-outside consistency
// invariant: Outside(leaf) must equal Inside(root) to within a 1e-8
// relative tolerance, since both are the score of the single best
// complete translation. A mismatch beyond that tolerance means the
// overlay was built from an inconsistent set of states (a bug upstream in
// search, not a condition callers can recover from), so InsideOutside
// panics rather than returning a silently wrong pruned lattice.
func (o *Overlay) InsideOutside() []EdgeScore {
	inside := o.Inside()
	outside := o.Outside()

	if o.leaf != nil {
		a, b := outside[o.leaf], inside[root]
		tol := 1e-8 * math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
		if math.Abs(a-b) > tol {
			panic(fmt.Sprintf("lattice: outside(leaf)=%v and inside(root)=%v disagree beyond tolerance", a, b))
		}
	}

	var scored []EdgeScore
	for _, edges := range o.out {
		for _, e := range edges {
			scored = append(scored, EdgeScore{
				Edge:  e,
				Score: outside[e.From] + e.Score + inside[e.To],
			})
		}
	}
	return scored
}
