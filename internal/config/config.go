// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeproof/internal/paths"
	"codeproof/internal/rules"

	"gopkg.in/yaml.v3"
)

// ScanMode selects which files the resolver returns
type ScanMode string

const (
	ScanModeStaged ScanMode = "staged"
	ScanModeFull   ScanMode = "full"
)

// Enforcement controls whether blocking findings fail the run
type Enforcement string

const (
	EnforcementEnabled  Enforcement = "enabled"
	EnforcementDisabled Enforcement = "disabled"
)

const (
	DefaultMaxFileSize     int64 = 1 << 20
	DefaultReviewerTimeout       = 5 * time.Second
	DefaultReviewBatchSize       = 25
)

// Config is the closed set of project options. Unknown keys are rejected
// by the schema before decoding.
type Config struct {
	ProjectID   string      `yaml:"project_id"`
	ProjectType string      `yaml:"project_type"`
	ScanMode    ScanMode    `yaml:"scan_mode"`
	Enforcement Enforcement `yaml:"enforcement"`

	Features struct {
		// Reporting writes a JSON report under .codeproof/reports after each run
		Reporting bool `yaml:"reporting"`
		// AIEscalation sends escalations to the configured reviewer
		AIEscalation bool `yaml:"ai_escalation"`
	} `yaml:"features"`

	Scan struct {
		MaxFileSizeBytes int64    `yaml:"max_file_size_bytes"`
		Workers          int      `yaml:"workers"`
		ExcludePatterns  []string `yaml:"exclude_patterns"`
	} `yaml:"scan"`

	SeverityRules struct {
		Block []string `yaml:"block"`
		Warn  []string `yaml:"warn"`
		Allow []string `yaml:"allow"`
	} `yaml:"severity_rules"`

	Reviewer struct {
		EndpointURL string        `yaml:"endpoint_url"`
		Timeout     time.Duration `yaml:"timeout"`
		APIKeyEnv   string        `yaml:"api_key_env"`
		BatchSize   int           `yaml:"batch_size"`
	} `yaml:"reviewer"`

	Remediation struct {
		GitignoreEntries []string `yaml:"gitignore_entries"`
	} `yaml:"remediation"`

	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile bundles presentation settings for a scanning scenario
type Profile struct {
	ScanMode    ScanMode `yaml:"scan_mode"`
	Format      string   `yaml:"format"`
	NoColor     bool     `yaml:"no_color"`
	Description string   `yaml:"description"`
}

func defaultPrecommitProfile() Profile {
	return Profile{
		ScanMode:    ScanModeStaged,
		Format:      "text",
		NoColor:     true,
		Description: "Optimized for pre-commit hooks: staged files only, no color",
	}
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{
		ScanMode:    ScanModeStaged,
		Enforcement: EnforcementEnabled,
		Profiles:    map[string]Profile{"precommit": defaultPrecommitProfile()},
	}
	cfg.Features.Reporting = true
	cfg.Features.AIEscalation = false
	cfg.Scan.MaxFileSizeBytes = DefaultMaxFileSize
	cfg.Reviewer.Timeout = DefaultReviewerTimeout
	cfg.Reviewer.BatchSize = DefaultReviewBatchSize
	cfg.Remediation.GitignoreEntries = []string{".env", ".env.local", paths.BackupDirName + "/"}
	return cfg
}

// LoadConfig loads configuration from the specified file path. An empty path
// returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("configuration %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if _, ok := config.Profiles["precommit"]; !ok {
		config.Profiles["precommit"] = defaultPrecommitProfile()
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// configCandidates are checked in order inside the project root
var configCandidates = []string{
	"codeproof.yaml",
	"codeproof.yml",
	".codeproof.yaml",
	".codeproof.yml",
	"codeproof.config.json",
}

// FindConfigFile looks for a project config under root, then the user config dir
func FindConfigFile(root string) string {
	for _, name := range configCandidates {
		candidate := filepath.Join(root, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	if userConfig := paths.GetConfigFile(); fileExists(userConfig) {
		return userConfig
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks semantic constraints the schema cannot express
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	switch config.ScanMode {
	case ScanModeStaged, ScanModeFull:
	default:
		return fmt.Errorf("unknown scan_mode %q", config.ScanMode)
	}
	switch config.Enforcement {
	case EnforcementEnabled, EnforcementDisabled:
	default:
		return fmt.Errorf("unknown enforcement %q", config.Enforcement)
	}

	if config.Scan.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("scan.max_file_size_bytes must be positive")
	}
	if config.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers cannot be negative")
	}
	if config.Reviewer.Timeout <= 0 {
		return fmt.Errorf("reviewer.timeout must be positive")
	}
	if config.Features.AIEscalation && config.Reviewer.EndpointURL == "" {
		return fmt.Errorf("features.ai_escalation requires reviewer.endpoint_url")
	}

	known := make(map[string]bool)
	for _, id := range rules.Default().IDs() {
		known[id] = true
	}
	for _, list := range [][]string{config.SeverityRules.Block, config.SeverityRules.Warn, config.SeverityRules.Allow} {
		for _, id := range list {
			if !known[id] {
				return fmt.Errorf("severity_rules references unknown rule %q", id)
			}
		}
	}

	for _, pattern := range config.Scan.ExcludePatterns {
		if err := paths.ValidatePath(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}

	return nil
}

// SeverityOverrides converts severity_rules into the rule package form
func (c *Config) SeverityOverrides() rules.SeverityOverrides {
	return rules.SeverityOverrides{
		Block: c.SeverityRules.Block,
		Warn:  c.SeverityRules.Warn,
		Allow: c.SeverityRules.Allow,
	}
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// GetPrecommitProfile returns the pre-commit profile, falling back to the built-in one
func (c *Config) GetPrecommitProfile() *Profile {
	if profile := c.GetProfile("precommit"); profile != nil {
		return profile
	}
	p := defaultPrecommitProfile()
	return &p
}

// EnforcementEnabled reports whether blocking findings should fail the run
func (c *Config) EnforcementEnabled() bool {
	return c.Enforcement != EnforcementDisabled
}

// LoadConfigOrDefault loads configuration from configFile (or searches root
// when configFile is empty). Load failures fall back to defaults and are
// returned alongside so the caller can log them.
func LoadConfigOrDefault(configFile, root string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile(root)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}
