// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"codeproof/internal/finding"
)

// SeverityOverrides re-classifies findings by rule id after scanning.
// Allow wins over Block, which wins over Warn.
type SeverityOverrides struct {
	Block []string
	Warn  []string
	Allow []string
}

// Empty reports whether no override is configured
func (o SeverityOverrides) Empty() bool {
	return len(o.Block) == 0 && len(o.Warn) == 0 && len(o.Allow) == 0
}

// Apply returns a new slice with overrides applied and allowed rules removed
func (o SeverityOverrides) Apply(findings []finding.Finding) []finding.Finding {
	if o.Empty() {
		return findings
	}
	block := toSet(o.Block)
	warn := toSet(o.Warn)
	allow := toSet(o.Allow)

	out := make([]finding.Finding, 0, len(findings))
	for _, f := range findings {
		switch {
		case allow[f.RuleID]:
			continue
		case block[f.RuleID]:
			f.Severity = finding.SeverityBlock
		case warn[f.RuleID]:
			f.Severity = finding.SeverityWarn
		}
		out = append(out, f)
	}
	return out
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
