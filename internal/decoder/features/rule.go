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

import (
	"github.com/AleutianAI/canoe-go/internal/decoder/coverage"
	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/state"
)

// ruleTarget is one candidate target phrase marked for a source range,
// with the log probability a Rule assigns to choosing it.
type ruleTarget struct {
	phrase  phrase.Phrase
	logProb float64
}

// Rule rewards or penalizes a decoder-wide set of marked translations
// belonging to a single named rule class: source ranges explicitly
// annotated with preferred target phrases and the log probability each
// should receive. Phrases with no mark at all are left alone (0, i.e.
// log(1)); a marked source range translated by something other than one
// of its marked target phrases pays logZero. Ported from RuleFeature in
// rule_feature.{h,cc}.
type Rule struct {
	feature.Base

	className string
	logZero   float64
	rules     map[coverage.Range][]ruleTarget
}

// NewRule constructs a Rule feature for the given class name, charging
// logZero to any phrase covering a marked source range with a target
// phrase not among that range's marks.
func NewRule(className string, logZero float64) *Rule {
	return &Rule{className: className, logZero: logZero}
}

func (r *Rule) Name() string { return "rule:" + r.className }

// NewSourceSentence keeps only the marks belonging to this feature's
// class, indexed by source range.
func (r *Rule) NewSourceSentence(info feature.NewSentenceInfo) {
	r.rules = make(map[coverage.Range][]ruleTarget)
	for _, m := range info.Marks {
		if m.ClassName != r.className {
			continue
		}
		r.rules[m.SrcWords] = append(r.rules[m.SrcWords], ruleTarget{phrase: m.TargetPhrase, logProb: m.LogProb})
	}
}

// PrecomputeFutureScore is this feature's entire contribution: look up
// the phrase's source range among this sentence's marks for this class,
// and if found, look up its target phrase among that range's marked
// targets.
func (r *Rule) PrecomputeFutureScore(pi *phrase.Info) float64 {
	targets, ok := r.rules[pi.SrcWords]
	if !ok {
		return 0.0
	}
	for _, t := range targets {
		if phrasesEqual(t.phrase, pi.Phrase) {
			return t.logProb
		}
	}
	return r.logZero
}

// Score replays PrecomputeFutureScore against the phrase just appended.
func (r *Rule) Score(pt *state.PartialTranslation) float64 {
	return r.PrecomputeFutureScore(pt.LastPhrase)
}

func (*Rule) FutureScore(*state.PartialTranslation) float64 { return 0 }

// PartialFutureScore delegates to FutureScore (always 0).
func (r *Rule) PartialFutureScore(pt *state.PartialTranslation) float64 { return r.FutureScore(pt) }

func (*Rule) ComputeRecombHash(*state.PartialTranslation) uint64 { return 0 }

func (*Rule) IsRecombinable(*state.PartialTranslation, *state.PartialTranslation) bool { return true }

func phrasesEqual(a, b phrase.Phrase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
