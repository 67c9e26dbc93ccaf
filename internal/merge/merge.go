// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"codeproof/internal/finding"
)

// Result is the outcome of overlaying decisions on baseline findings
type Result struct {
	BlockFindings []finding.Finding  `json:"blockFindings" yaml:"block_findings"`
	WarnFindings  []finding.Finding  `json:"warnFindings" yaml:"warn_findings"`
	AIReviewed    []finding.Reviewed `json:"aiReviewed" yaml:"ai_reviewed"`
	ExitCode      int                `json:"exitCode" yaml:"exit_code"`
}

// Blocked reports whether any finding blocks the commit
func (r Result) Blocked() bool {
	return len(r.BlockFindings) > 0
}

// Merge overlays decisions on baseline findings. The inputs are not modified.
// Decisions for unknown findings are ignored and only the first decision for
// a finding is used.
func Merge(baseline []finding.Finding, decisions []finding.Decision) Result {
	byID := make(map[string]finding.Decision, len(decisions))
	for _, d := range decisions {
		if _, seen := byID[d.FindingID]; seen {
			continue
		}
		byID[d.FindingID] = d
	}

	result := Result{
		BlockFindings: []finding.Finding{},
		WarnFindings:  []finding.Finding{},
		AIReviewed:    []finding.Reviewed{},
	}

	for _, f := range baseline {
		effective := f
		if d, ok := byID[f.ID]; ok {
			effective.Severity = finding.ParseSeverity(d.Verdict)
			effective.Confidence = finding.ConfidenceFromScore(d.Confidence)
			result.AIReviewed = append(result.AIReviewed, finding.Reviewed{Finding: f, Decision: d})
		}

		if effective.Severity == finding.SeverityBlock {
			result.BlockFindings = append(result.BlockFindings, effective)
		} else {
			result.WarnFindings = append(result.WarnFindings, effective)
		}
	}

	if len(result.BlockFindings) > 0 {
		result.ExitCode = 1
	}
	return result
}
