// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package remediation

import (
	"strings"

	"codeproof/internal/finding"
	"codeproof/internal/paths"
	"codeproof/internal/remediation/naming"

	ignore "github.com/sabhiram/go-gitignore"
)

// ineligiblePatterns select files that are never rewritten. Paths are
// lower-cased before matching.
var ineligiblePatterns = []string{
	paths.BackupDirName + "/",
	"node_modules/",
	".git/",
	"*.md",
	"*.txt",
	"*.rst",
	"*.ipynb",
	"*readme*",
	"*changelog*",
	"*.example.*",
	"*.sample.*",
	"*.test.*",
	"*.spec.*",
	"test/",
	"tests/",
	"__tests__/",
	"spec/",
	"mock/",
	"mocks/",
	"fixtures/",
	// the ledger itself
	".env",
	".env.*",
}

var ineligible = ignore.CompileIgnoreLines(ineligiblePatterns...)

// IsEligiblePath reports whether a root-relative path may be rewritten
func IsEligiblePath(rel string) bool {
	return !ineligible.MatchesPath(strings.ToLower(rel))
}

// FilterEligible keeps blocking secret findings in files that may be
// rewritten. The second result counts findings filtered out.
func FilterEligible(findings []finding.Finding, root string) ([]finding.Finding, int) {
	out := make([]finding.Finding, 0, len(findings))
	skipped := 0
	for _, f := range findings {
		if !naming.Eligible(f) {
			continue
		}
		if !IsEligiblePath(paths.Relative(root, f.FilePath)) {
			skipped++
			continue
		}
		out = append(out, f)
	}
	return out, skipped
}
