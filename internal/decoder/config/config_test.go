// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"strings"
	"testing"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrasefinder"
	"github.com/AleutianAI/canoe-go/internal/decoder/search"
)

func TestDefaultLoadsAndValidatesTheEmbeddedYAML(t *testing.T) {
	cfg := Default()
	if cfg.MaxStackSize != 100 {
		t.Errorf("MaxStackSize = %d, want 100", cfg.MaxStackSize)
	}
	if cfg.DistLimit != phrasefinder.NoMaxDistortion {
		t.Errorf("DistLimit = %d, want %d (no limit)", cfg.DistLimit, phrasefinder.NoMaxDistortion)
	}
}

func TestLoadRejectsEmptyData(t *testing.T) {
	if _, err := Load(nil); err == nil {
		t.Fatal("Load(nil) succeeded, want an error")
	}
}

func TestLoadRejectsOversizedData(t *testing.T) {
	huge := make([]byte, MaxYAMLFileSize+1)
	if _, err := Load(huge); err == nil {
		t.Fatal("Load of an oversized file succeeded, want an error")
	}
}

func TestValidateRejectsPruneThresholdOutsideZeroOne(t *testing.T) {
	cfg := *Default()
	cfg.PruneThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted prune_threshold = 1.5, want an error (would yield a positive log-threshold)")
	}

	cfg.PruneThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted prune_threshold = 0, want an error")
	}

	cfg.PruneThreshold = -0.1
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted a negative prune_threshold, want an error")
	}
}

func TestValidateRejectsConflictingDistortionVariants(t *testing.T) {
	cfg := *Default()
	cfg.DistLimitExt = true
	cfg.DistLimitSimple = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted both dist_limit_ext and dist_limit_simple, want an error")
	}
}

func TestValidateRejectsForcedDecodingNZWithoutForcedDecoding(t *testing.T) {
	cfg := *Default()
	cfg.ForcedDecoding = false
	cfg.ForcedDecodingNZ = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted forced_decoding_nz without forced_decoding, want an error")
	}
}

func TestToSearchOptionsMapsEveryScalarField(t *testing.T) {
	cfg := *Default()
	cfg.MaxStackSize = 0
	cfg.CubePruning = true
	cfg.Masse = true

	opts := cfg.ToSearchOptions()
	if opts.MaxRegularStackSize != search.NoMaxSize {
		t.Errorf("MaxRegularStackSize = %d, want search.NoMaxSize when MaxStackSize is 0", opts.MaxRegularStackSize)
	}
	if !opts.CubePruning {
		t.Error("CubePruning not carried through to search.Options")
	}
	if !opts.Masse {
		t.Error("Masse not carried through to search.Options")
	}
}

func TestToPhraseFinderConfigMapsDistortionFields(t *testing.T) {
	cfg := *Default()
	cfg.DistLimit = 5
	cfg.DistPhraseSwap = true

	pf := cfg.ToPhraseFinderConfig()
	if pf.DistLimit != 5 {
		t.Errorf("DistLimit = %d, want 5", pf.DistLimit)
	}
	if !pf.DistPhraseSwap {
		t.Error("DistPhraseSwap not carried through to phrasefinder.Config")
	}
}

func TestAllowNonITGTracksDistLimitITG(t *testing.T) {
	cfg := *Default()
	cfg.DistLimitITG = false
	if cfg.AllowNonITG() {
		t.Error("AllowNonITG() = true, want false when dist_limit_itg is off")
	}
	cfg.DistLimitITG = true
	if !cfg.AllowNonITG() {
		t.Error("AllowNonITG() = false, want true when dist_limit_itg is on")
	}
}

func TestValidateErrorMentionsFieldName(t *testing.T) {
	cfg := *Default()
	cfg.Verbosity = 9
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted verbosity = 9, want an error")
	}
	if !strings.Contains(err.Error(), "Verbosity") {
		t.Errorf("error %q does not mention the offending field", err.Error())
	}
}
