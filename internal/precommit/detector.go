// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package precommit

import (
	"os"
	"strconv"

	"codeproof/internal/config"
)

// Exit codes returned by the CLI
const (
	ExitPass    = 0
	ExitBlocked = 1
	ExitError   = 2
)

// ProfileName is the config profile applied inside a hook
const ProfileName = "precommit"

// indicators are checked in order; the first one set wins
var indicators = []string{
	"PRE_COMMIT",
	"_PRE_COMMIT_RUNNING",
	"CODEPROOF_PRECOMMIT",
	"GIT_INDEX_FILE",
}

// PrecommitDetector handles detection of pre-commit environment and provides optimized configuration
type PrecommitDetector struct {
	isPrecommitEnv bool
	indicator      string
	config         *PrecommitConfig
}

// PrecommitConfig contains pre-commit specific configuration settings
type PrecommitConfig struct {
	QuietMode   bool
	NoColor     bool
	ScanMode    config.ScanMode
	Format      string
	ProfileName string
}

// NewPrecommitDetector creates a detector from the process environment
func NewPrecommitDetector() *PrecommitDetector {
	return NewPrecommitDetectorWithLookup(false, os.LookupEnv)
}

// NewPrecommitDetectorWithFlag creates a detector with explicit flag override
func NewPrecommitDetectorWithFlag(explicitMode bool) *PrecommitDetector {
	return NewPrecommitDetectorWithLookup(explicitMode, os.LookupEnv)
}

// NewPrecommitDetectorWithLookup reads indicators through lookup, so tests
// do not have to mutate the process environment
func NewPrecommitDetectorWithLookup(explicitMode bool, lookup func(string) (string, bool)) *PrecommitDetector {
	detector := &PrecommitDetector{}
	detector.detectEnvironment(lookup)
	if explicitMode && !detector.isPrecommitEnv {
		detector.isPrecommitEnv = true
		detector.indicator = "--precommit"
	}
	detector.generateOptimizedConfig(lookup)
	return detector
}

// IsPrecommitEnvironment returns true if running in a pre-commit environment
func (pd *PrecommitDetector) IsPrecommitEnvironment() bool {
	return pd.isPrecommitEnv
}

// Indicator names the variable (or flag) that triggered detection
func (pd *PrecommitDetector) Indicator() string {
	return pd.indicator
}

// GetOptimizedConfig returns pre-commit optimized configuration settings
func (pd *PrecommitDetector) GetOptimizedConfig() *PrecommitConfig {
	return pd.config
}

// GetSuggestedProfile returns the suggested profile name for pre-commit environment
func (pd *PrecommitDetector) GetSuggestedProfile() string {
	if pd.config != nil && pd.isPrecommitEnv {
		return pd.config.ProfileName
	}
	return ""
}

func (pd *PrecommitDetector) detectEnvironment(lookup func(string) (string, bool)) {
	for _, name := range indicators {
		if v, ok := lookup(name); ok && v != "" {
			pd.isPrecommitEnv = true
			pd.indicator = name
			return
		}
	}
	pd.isPrecommitEnv = false
}

func (pd *PrecommitDetector) generateOptimizedConfig(lookup func(string) (string, bool)) {
	cfg := &PrecommitConfig{
		QuietMode:   pd.isPrecommitEnv,
		NoColor:     pd.isPrecommitEnv,
		ScanMode:    config.ScanModeStaged,
		Format:      "text",
		ProfileName: ProfileName,
	}

	// CODEPROOF_PRECOMMIT_QUIET=false keeps warn-level logs visible inside the hook
	if v, ok := lookup("CODEPROOF_PRECOMMIT_QUIET"); ok {
		if quiet, err := strconv.ParseBool(v); err == nil {
			cfg.QuietMode = quiet
		}
	}

	pd.config = cfg
}

// ApplyProfile overlays a configured profile onto the detected settings
func (pc *PrecommitConfig) ApplyProfile(p *config.Profile) {
	if p == nil {
		return
	}
	if p.ScanMode != "" {
		pc.ScanMode = p.ScanMode
	}
	if p.Format != "" {
		pc.Format = p.Format
	}
	pc.NoColor = pc.NoColor || p.NoColor
}

// ExitCode maps a run outcome to a process exit code. System errors win over
// findings; blocking findings fail only while enforcement is on.
func ExitCode(blocked bool, hasErrors bool, enforcement bool) int {
	if hasErrors {
		return ExitError
	}
	if blocked && enforcement {
		return ExitBlocked
	}
	return ExitPass
}
