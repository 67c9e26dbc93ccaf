// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package finding

import (
	"sort"
	"strings"
)

// Severity is the gate classification of a finding
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

// ParseSeverity normalizes a verdict string. Anything other than block is a warning.
func ParseSeverity(s string) Severity {
	if strings.EqualFold(strings.TrimSpace(s), string(SeverityBlock)) {
		return SeverityBlock
	}
	return SeverityWarn
}

// Confidence is the coarse confidence bucket attached to a finding
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// HighConfidenceThreshold is the minimum reviewer score treated as high confidence
const HighConfidenceThreshold = 0.75

// ConfidenceFromScore maps a reviewer score in [0,1] to a bucket
func ConfidenceFromScore(score float64) Confidence {
	if score >= HighConfidenceThreshold {
		return ConfidenceHigh
	}
	return ConfidenceLow
}

// SecretNamespace prefixes every secret rule id
const SecretNamespace = "secret."

// Finding is a single rule match. Findings are values; consumers copy rather
// than mutate them.
type Finding struct {
	ID         string     `json:"findingId" yaml:"finding_id"`
	RuleID     string     `json:"ruleId" yaml:"rule_id"`
	Severity   Severity   `json:"severity" yaml:"severity"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
	FilePath   string     `json:"filePath" yaml:"file_path"`
	Line       int        `json:"line" yaml:"line"`
	Snippet    string     `json:"snippet" yaml:"snippet"`
	Message    string     `json:"message" yaml:"message"`

	// Match is the raw matched text. It is never serialized.
	Match string `json:"-" yaml:"-"`

	// ordering keys for the canonical sort
	FileIndex int `json:"-" yaml:"-"`
	RuleIndex int `json:"-" yaml:"-"`
	Offset    int `json:"-" yaml:"-"`
}

// IsSecret reports whether the finding came from a secret rule
func (f Finding) IsSecret() bool {
	return strings.HasPrefix(f.RuleID, SecretNamespace)
}

// RedactedMask replaces secret snippets anywhere findings leave the process
const RedactedMask = "***"

// RedactedSnippet returns the snippet with secret material masked
func (f Finding) RedactedSnippet() string {
	if f.IsSecret() {
		return RedactedMask
	}
	return f.Snippet
}

// Decision is an external verdict overlaid on a finding
type Decision struct {
	FindingID    string  `json:"findingId" yaml:"finding_id"`
	Verdict      string  `json:"verdict" yaml:"verdict"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
	Explanation  string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SuggestedFix string  `json:"suggestedFix,omitempty" yaml:"suggested_fix,omitempty"`
}

// Reviewed pairs a finding with the decision that overrode it
type Reviewed struct {
	Finding  Finding  `json:"finding" yaml:"finding"`
	Decision Decision `json:"decision" yaml:"decision"`
}

// Suppressed is a finding hidden by a suppression rule
type Suppressed struct {
	Finding       Finding `json:"finding" yaml:"finding"`
	SuppressionID string  `json:"suppressionId" yaml:"suppression_id"`
	Reason        string  `json:"reason" yaml:"reason"`
	Expired       bool    `json:"expired,omitempty" yaml:"expired,omitempty"`
}

// SortCanonical orders findings by file, then rule, then offset
func SortCanonical(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.FileIndex != b.FileIndex {
			return a.FileIndex < b.FileIndex
		}
		if a.RuleIndex != b.RuleIndex {
			return a.RuleIndex < b.RuleIndex
		}
		return a.Offset < b.Offset
	})
}
