// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the decoder's tunable options — the
// single surface named in the external interface table: stack pruning,
// distortion limits, the stack-vs-cube-pruning choice, forced decoding,
// n-best/lattice/masse output, and verbosity. It mirrors the shape of the
// trace service's own YAML-plus-embedded-defaults config loader
// (services/trace/config/prefilter_config.go), swapping that package's
// hand-rolled field-by-field validation for struct-tag validation via
// go-playground/validator, and adds the bridging methods
// (ToSearchOptions, ToPhraseFinderConfig, AllowNonITG) that turn one
// Configuration into every downstream package's own option type.
package config

import (
	_ "embed"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/search"
)

//go:embed defaults.yaml
var defaultYAML []byte

// MaxYAMLFileSize bounds how large a configuration file Load will accept,
// guarding against a misdirected multi-gigabyte file being read whole into
// memory before validation ever gets a chance to reject it.
const MaxYAMLFileSize = 1 << 20 // 1 MiB

// Configuration is the full set of tunables the external interface table
// names, in the units the option table describes: relative (non-log)
// beam fractions for the threshold fields, source-word counts for the
// distortion fields, and plain booleans for every on/off switch.
type Configuration struct {
	// MaxStackSize caps every regular stack's kept states; 0 means no
	// cap.
	MaxStackSize uint32 `yaml:"max_stack_size"`
	// PruneThreshold is the per-stack relative beam: a fraction in
	// (0, 1] below the best future score seen so far at which a state is
	// discarded. A value outside that range produces a positive
	// log-space threshold, one of the configuration errors Validate
	// rejects.
	PruneThreshold float64 `yaml:"prune_threshold" validate:"gt=0,lte=1"`
	// CovLimit and CovThreshold apply the same two criteria per distinct
	// source-coverage value; CovLimit 0 disables the cap. CovThreshold
	// must lie in (0, 1], so the per-coverage relative beam always
	// applies; at 1 it keeps only the best state of each coverage value.
	CovLimit     uint32  `yaml:"cov_limit"`
	CovThreshold float64 `yaml:"cov_threshold" validate:"gt=0,lte=1"`
	// Diversity and DiversityStackIncrement guarantee at least Diversity
	// states survive per coverage regardless of the other pruning
	// criteria, at the cost of up to DiversityStackIncrement extra pops.
	Diversity               uint32 `yaml:"diversity"`
	DiversityStackIncrement uint32 `yaml:"diversity_stack_increment"`

	// DistLimit is the maximum distortion distance in source-word
	// positions; -1 (phrasefinder.NoMaxDistortion) means unlimited.
	DistLimit int `yaml:"dist_limit" validate:"gte=-1"`
	// DistLimitExt and DistLimitSimple select which distortion-limit
	// variant phrasefinder applies; at most one should be set, checked
	// by Validate since the option table presents them as alternatives,
	// not independent flags.
	DistLimitExt    bool `yaml:"dist_limit_ext"`
	DistLimitSimple bool `yaml:"dist_limit_simple"`
	// DistPhraseSwap always permits an adjacent-phrase swap even when it
	// would otherwise fail the distortion-limit test.
	DistPhraseSwap bool `yaml:"dist_phrase_swap"`
	// ITGLimit and DistLimitITG enable the ITG (binary bracketing)
	// reordering constraint, with ITGLimit as the number of non-ITG
	// reductions tolerated once it's on.
	ITGLimit     int  `yaml:"itg_limit" validate:"gte=0"`
	DistLimitITG bool `yaml:"dist_limit_itg"`
	// LevLimit is the maximum Levenshtein distance permitted for forced
	// alignment during forced decoding, as a percentage of source
	// length.
	LevLimit int `yaml:"lev_limit" validate:"gte=0,lte=100"`

	// CubePruning selects the cube pruning decoder over the classic
	// stack decoder.
	CubePruning bool `yaml:"cube_pruning"`
	// ForcedDecoding and ForcedDecodingNZ select the forced-translation
	// phrase finder (NZ additionally disallows null/empty target
	// phrases).
	ForcedDecoding   bool `yaml:"forced_decoding"`
	ForcedDecodingNZ bool `yaml:"forced_decoding_nz"`

	// NBestSize, LatticeOut, Masse, and NBestOut together decide whether
	// recombined alternatives are kept (a lattice or n-best list needs
	// more than the single best translation per coverage) and how large
	// the final stack needs to be.
	NBestSize  uint32 `yaml:"nbest_size"`
	LatticeOut bool   `yaml:"lattice_out"`
	Masse      bool   `yaml:"masse"`
	NBestOut   bool   `yaml:"nbest_out"`

	// Verbosity is 0-4: nothing, counters, per-stack, per-hypothesis,
	// per-hyperedge-item.
	Verbosity int `yaml:"verbosity" validate:"gte=0,lte=4"`

	// LatticeScoreFloor bounds how negative a single lattice edge's
	// score can be, feeding lattice.Build directly.
	LatticeScoreFloor float64 `yaml:"lattice_score_floor" validate:"lte=0"`
}

// Default returns the built-in configuration embedded at build time,
// matching prefilter_config.go's GetPreFilterConfig default path. It
// panics if the embedded defaults.yaml fails to parse or validate, since
// that would mean this binary was built wrong, not that the caller passed
// bad input.
func Default() *Configuration {
	cfg, err := Load(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults.yaml is invalid: %v", err))
	}
	return cfg
}

// Load parses and validates a Configuration from YAML bytes, matching
// LoadPreFilterConfig's shape: a size guard, yaml.Unmarshal, then
// validation, wrapping every failure with which step produced it.
func Load(data []byte) (*Configuration, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("config: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("config: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return &cfg, nil
}

var structValidator = validator.New()

// Validate checks every struct-tag constraint via go-playground/validator,
// then the handful of cross-field rules the tags can't express: at most
// one of DistLimitExt/DistLimitSimple, and ForcedDecodingNZ implying
// ForcedDecoding. A fatal, process-aborting "invalid configuration" error
// in the original decoder (e.g. a positive prune_threshold, which this
// method's PruneThreshold tag catches as "not in (0, 1]") corresponds to
// Validate returning a non-nil error here; callers are expected to treat
// it as fatal at startup rather than attempt to recover from it mid-run.
func (c *Configuration) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}
	if c.DistLimitExt && c.DistLimitSimple {
		return fmt.Errorf("dist_limit_ext and dist_limit_simple are mutually exclusive")
	}
	if c.ForcedDecodingNZ && !c.ForcedDecoding {
		return fmt.Errorf("forced_decoding_nz requires forced_decoding")
	}
	return nil
}

// ToPhraseFinderConfig builds the phrasefinder.Config this Configuration
// implies, translating DistLimit's -1 sentinel through unchanged (both
// packages use the same value for "no limit").
func (c *Configuration) ToPhraseFinderConfig() phrasefinder.Config {
	return phrasefinder.Config{
		DistLimit:       c.DistLimit,
		DistLimitExt:    c.DistLimitExt,
		DistLimitSimple: c.DistLimitSimple,
		DistPhraseSwap:  c.DistPhraseSwap,
		ITGLimit:        c.ITGLimit,
		DistLimitITG:    c.DistLimitITG,
	}
}

// AllowNonITG reports whether the shift-reduce parser may perform a
// reduction a binary-bracketing grammar could not license, for
// decodectx.New's allowNonITG parameter: true exactly when the ITG
// constraint is active, since that constraint is what bounds (rather
// than forbids outright) the number of non-ITG reductions permitted.
func (c *Configuration) AllowNonITG() bool {
	return c.DistLimitITG
}

// ToSearchOptions builds the search.Options this Configuration implies.
// UsingLev, NewShiftReduce, and ExtendShiftReduce are left at their zero
// values; a caller wiring up forced decoding or the ITG constraint sets
// those itself, since they're constructors tied to a specific sentence
// length and shift-reduce grammar rather than simple scalar options.
func (c *Configuration) ToSearchOptions() search.Options {
	maxStackSize := c.MaxStackSize
	if maxStackSize == 0 {
		maxStackSize = search.NoMaxSize
	}
	return search.Options{
		MaxRegularStackSize:     maxStackSize,
		NBestSize:               c.NBestSize,
		PruneThreshold:          c.PruneThreshold,
		CovLimit:                c.CovLimit,
		CovThreshold:            c.CovThreshold,
		Diversity:               c.Diversity,
		DiversityStackIncrement: c.DiversityStackIncrement,
		Masse:                   c.Masse,
		LatticeOut:              c.LatticeOut,
		NBestOut:                c.NBestOut,
		CubePruning:             c.CubePruning,
	}
}
