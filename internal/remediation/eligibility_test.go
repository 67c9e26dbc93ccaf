// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package remediation

import (
	"path/filepath"
	"testing"

	"codeproof/internal/finding"

	"github.com/stretchr/testify/assert"
)

func TestIsEligiblePath(t *testing.T) {
	cases := map[string]bool{
		"src/app.js":                  true,
		"config/settings.json":        true,
		"server.ts":                   true,
		"README.md":                   false,
		"docs/Readme.rst":             false,
		"CHANGELOG":                   false,
		"notes.txt":                   false,
		"src/app.test.js":             false,
		"src/app.spec.ts":             false,
		"config.example.js":           false,
		"test/helpers.js":             false,
		"src/__tests__/a.js":          false,
		"fixtures/keys.js":            false,
		"node_modules/pkg/index.js":   false,
		".codeproof-backup/x/a.js":    false,
		".env":                        false,
		".env.production":             false,
		"packages/api/.env":           false,
		"notebooks/analysis.ipynb":    false,
		"src/mocks/client.js":         false,
		"src/contest/entry.js":        true,
		"src/specification/parser.js": true,
	}
	for path, want := range cases {
		assert.Equal(t, want, IsEligiblePath(path), path)
	}
}

func TestFilterEligible(t *testing.T) {
	root := t.TempDir()
	findings := []finding.Finding{
		{RuleID: "secret.github_token", Severity: finding.SeverityBlock, FilePath: filepath.Join(root, "src", "a.js")},
		{RuleID: "secret.github_token", Severity: finding.SeverityBlock, FilePath: filepath.Join(root, "README.md")},
		{RuleID: "secret.github_token", Severity: finding.SeverityWarn, FilePath: filepath.Join(root, "src", "b.js")},
		{RuleID: "code.dangerous_eval", Severity: finding.SeverityBlock, FilePath: filepath.Join(root, "src", "c.js")},
	}

	kept, skipped := FilterEligible(findings, root)
	assert.Len(t, kept, 1)
	assert.Equal(t, filepath.Join(root, "src", "a.js"), kept[0].FilePath)
	assert.Equal(t, 1, skipped)
}
