// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

import (
	"encoding/json"
	"fmt"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/formatters"
	"codeproof/internal/report"
	"codeproof/internal/rules"
)

// Formatter implements the formatters.Formatter interface for SARIF output
type Formatter struct {
	ruleManager *RuleManager
}

// NewFormatter creates a new SARIF formatter instance
func NewFormatter() *Formatter {
	return &Formatter{ruleManager: NewRuleManager(rules.Default())}
}

// Name returns the name of the formatter
func (f *Formatter) Name() string {
	return "sarif"
}

// Description returns a brief description of the formatter
func (f *Formatter) Description() string {
	return "SARIF 2.1.0 format for integration with GitHub code scanning and IDEs"
}

// FileExtension returns the recommended file extension for SARIF files
func (f *Formatter) FileExtension() string {
	return ".sarif"
}

// Format converts a report to SARIF 2.1.0
func (f *Formatter) Format(r *report.Report, options formatters.FormatterOptions) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no report to format")
	}

	out, err := json.MarshalIndent(f.buildReport(r), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal SARIF report: %w", err)
	}
	return string(out), nil
}

func (f *Formatter) buildReport(r *report.Report) *SARIFReport {
	reviewed := make(map[string]bool, len(r.AIReviewed))
	for _, rv := range r.AIReviewed {
		reviewed[rv.Item.FindingID] = true
	}

	results := make([]SARIFResult, 0, len(r.Blocks)+len(r.Warnings)+len(r.Suppressed))
	for _, item := range r.Blocks {
		results = append(results, f.mapItem(item, LevelError, reviewed[item.FindingID]))
	}
	for _, item := range r.Warnings {
		level := LevelWarning
		if item.Confidence == finding.ConfidenceLow {
			level = LevelNote
		}
		results = append(results, f.mapItem(item, level, reviewed[item.FindingID]))
	}
	for _, s := range r.Suppressed {
		if s.Expired {
			continue
		}
		result := f.mapItem(s.Item, LevelNone, false)
		result.Suppressions = []SARIFSuppression{{
			Kind:          SuppressionKindExternal,
			Status:        "accepted",
			Justification: s.Reason,
		}}
		result.Properties["suppressionId"] = s.SuppressionID
		results = append(results, result)
	}

	invocation := SARIFInvocation{
		ExecutionSuccessful: true,
		EndTimeUTC:          r.Timestamp.UTC().Format(time.RFC3339),
	}
	if r.ReviewError != "" {
		invocation.ToolNotifications = []SARIFNotification{{
			Level:   LevelWarning,
			Message: SARIFMessage{Text: "secondary review unavailable: " + r.ReviewError},
		}}
	}

	run := SARIFRun{
		Tool: SARIFTool{Driver: SARIFDriver{
			Name:            ToolName,
			Version:         r.ToolVersion,
			SemanticVersion: r.ToolVersion,
			Rules:           f.ruleManager.GetAllRules(),
		}},
		Invocations: []SARIFInvocation{invocation},
		Results:     results,
		Properties: map[string]interface{}{
			"reportId":     r.ReportID,
			"scanMode":     r.ScanMode,
			"finalVerdict": string(r.FinalVerdict),
		},
	}

	return &SARIFReport{
		Schema:  SARIFSchemaURL,
		Version: SARIFVersion,
		Runs:    []SARIFRun{run},
	}
}

func (f *Formatter) mapItem(item report.Item, level string, aiReviewed bool) SARIFResult {
	result := SARIFResult{
		RuleID:  item.RuleID,
		Level:   level,
		Message: SARIFMessage{Text: item.Explanation},
		Locations: []SARIFLocation{{
			PhysicalLocation: SARIFPhysicalLocation{
				ArtifactLocation: SARIFArtifactLocation{URI: item.FilePath, URIBaseID: "%SRCROOT%"},
				Region:           SARIFRegion{StartLine: max(item.Line, 1), Snippet: &SARIFSnippet{Text: item.Snippet}},
			},
		}},
		Properties: map[string]interface{}{
			"findingId":  item.FindingID,
			"severity":   string(item.Severity),
			"confidence": string(item.Confidence),
		},
	}
	if aiReviewed {
		result.Properties["aiReviewed"] = true
	}
	if i, ok := f.ruleManager.RuleIndex(item.RuleID); ok {
		result.RuleIndex = &i
	}
	return result
}

// init registers the SARIF formatter with the global formatter registry
func init() {
	formatters.Register(NewFormatter())
}
