// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"strings"
	"testing"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/formatters"
	"codeproof/internal/report"

	"github.com/stretchr/testify/assert"
)

func sampleReport() *report.Report {
	return &report.Report{
		ReportID:  "rep-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ScanMode:  "staged",
		Blocks: []report.Item{{
			FindingID: "a", RuleID: "secret.aws_access_key", Severity: finding.SeverityBlock, Confidence: finding.ConfidenceHigh,
			FilePath: "src/aws.js", Line: 2, Snippet: finding.RedactedMask, Explanation: "Possible AWS access key detected.",
		}},
		Warnings: []report.Item{
			{FindingID: "b", RuleID: "config.debug_true", Severity: finding.SeverityWarn, Confidence: finding.ConfidenceHigh,
				FilePath: ".env", Line: 1, Snippet: "DEBUG=true", Explanation: "Insecure DEBUG flag enabled."},
			{FindingID: "c", RuleID: "code.dangerous_eval", Severity: finding.SeverityWarn, Confidence: finding.ConfidenceLow,
				FilePath: "src/run.js", Line: 7, Snippet: "eval(x)", Explanation: "looks like a test helper"},
		},
		AIReviewed: []report.ReviewedItem{{
			Item:    report.Item{FindingID: "c", RuleID: "code.dangerous_eval", FilePath: "src/run.js", Line: 7},
			Verdict: "warn", Confidence: 0.4, Explanation: "looks like a test helper", SuggestedFix: "use JSON.parse",
		}},
		Summary:      report.Summary{FilesScanned: 3, Findings: 3, Blocks: 1, Warnings: 2, AIReviewed: 1},
		FinalVerdict: report.VerdictBlocked,
	}
}

func TestFormat_Sections(t *testing.T) {
	out, err := NewFormatter().Format(sampleReport(), formatters.FormatterOptions{NoColor: true})
	assert.NoError(t, err)

	assert.Contains(t, out, "CRITICAL ISSUES FOUND (1):")
	assert.Contains(t, out, "SECRET.AWS_ACCESS_KEY")
	assert.Contains(t, out, "File: src/aws.js:2")
	assert.Contains(t, out, "HIGH RISK WARNINGS (1):")
	assert.NotContains(t, out, "OTHER WARNINGS")
	assert.Contains(t, out, "AI-REVIEWED FINDINGS (1):")
	assert.Contains(t, out, "CODE.DANGEROUS_EVAL [WARNING]")
	assert.Contains(t, out, "Fix: use JSON.parse")
	assert.Contains(t, out, "Verdict: blocked")
	assert.NotContains(t, out, "\x1b[")
}

func TestFormat_VerboseShowsLowConfidenceAndSnippets(t *testing.T) {
	out, err := NewFormatter().Format(sampleReport(), formatters.FormatterOptions{NoColor: true, Verbose: true})
	assert.NoError(t, err)
	assert.Contains(t, out, "OTHER WARNINGS (1):")
	assert.Contains(t, out, "Code: DEBUG=true")
}

func TestFormat_Precommit(t *testing.T) {
	out, err := NewFormatter().Format(sampleReport(), formatters.FormatterOptions{NoColor: true, PrecommitMode: true})
	assert.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, ".env: 0 blocking, 1 warning", lines[0])
	assert.Contains(t, out, "src/aws.js: 1 blocking, 0 warning")
	assert.Contains(t, out, "Commit blocked.")

	clean, err := NewFormatter().Format(&report.Report{FinalVerdict: report.VerdictAllowed}, formatters.FormatterOptions{PrecommitMode: true})
	assert.NoError(t, err)
	assert.Empty(t, clean)
}

func TestRegistered(t *testing.T) {
	_, ok := formatters.Get("text")
	assert.True(t, ok)
}
