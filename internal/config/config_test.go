// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ScanMode != ScanModeStaged {
		t.Errorf("expected default scan_mode=staged, got %q", cfg.ScanMode)
	}
	if !cfg.Features.Reporting {
		t.Error("expected reporting enabled by default")
	}
	if cfg.Features.AIEscalation {
		t.Error("expected ai_escalation disabled by default")
	}
	if cfg.Reviewer.Timeout != DefaultReviewerTimeout {
		t.Errorf("expected reviewer timeout %v, got %v", DefaultReviewerTimeout, cfg.Reviewer.Timeout)
	}
	if _, ok := cfg.Profiles["precommit"]; !ok {
		t.Error("expected 'precommit' profile to exist in defaults")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, "codeproof.yaml", `
project_id: demo
scan_mode: full
features:
  ai_escalation: true
reviewer:
  endpoint_url: http://localhost:9000/review
  timeout: 2s
severity_rules:
  warn: [secret.password]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ScanMode != ScanModeFull {
		t.Errorf("expected scan_mode=full, got %q", cfg.ScanMode)
	}
	if !cfg.Features.Reporting {
		t.Error("reporting default must survive a partial features block")
	}
	if cfg.Reviewer.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Reviewer.Timeout)
	}
	if got := cfg.SeverityOverrides().Warn; len(got) != 1 || got[0] != "secret.password" {
		t.Errorf("unexpected warn overrides: %v", got)
	}
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := writeConfig(t, "codeproof.config.json", `{"project_id": "x", "scan_mode": "staged", "enforcement": "disabled"}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EnforcementEnabled() {
		t.Error("expected enforcement to be disabled")
	}
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	tests := map[string]string{
		"top level":  "scanMode: full\n",
		"nested":     "features:\n  secret_remediation: true\n",
		"bad enum":   "scan_mode: everything\n",
		"bad format": "profiles:\n  ci:\n    format: csv\n",
		"bad type":   "reviewer:\n  timeout: 5\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, "codeproof.yaml", content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected schema error")
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Errorf("expected SchemaError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadConfig_SemanticValidation(t *testing.T) {
	tests := map[string]string{
		"unknown rule":          "severity_rules:\n  block: [secret.nope]\n",
		"escalation w/o target": "features:\n  ai_escalation: true\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, "codeproof.yaml", content)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := writeConfig(t, "codeproof.yaml", "")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("empty config should load defaults, got %v", err)
	}
	if cfg.ScanMode != ScanModeStaged {
		t.Errorf("expected defaults, got scan_mode=%q", cfg.ScanMode)
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "bad.yaml", ":::invalid yaml:::")

	cfg, err := LoadConfigOrDefault(path, "")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
	if err == nil {
		t.Error("expected the load error to be reported")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("CODEPROOF_CONFIG_DIR", t.TempDir())
	root := t.TempDir()
	if got := FindConfigFile(root); got != "" {
		t.Fatalf("expected no config, got %q", got)
	}

	jsonPath := filepath.Join(root, "codeproof.config.json")
	if err := os.WriteFile(jsonPath, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(root, "codeproof.yaml")
	if err := os.WriteFile(yamlPath, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(root); got != yamlPath {
		t.Errorf("expected yaml config to take precedence, got %q", got)
	}
}
