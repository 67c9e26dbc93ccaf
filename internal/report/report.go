// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"codeproof/internal/finding"
	"codeproof/internal/merge"
	"codeproof/internal/parallel"
	"codeproof/internal/paths"
	"codeproof/internal/version"

	"github.com/google/uuid"
)

// Verdict is the overall outcome of a run
type Verdict string

const (
	VerdictBlocked             Verdict = "blocked"
	VerdictAllowedWithWarnings Verdict = "allowed_with_warnings"
	VerdictAllowed             Verdict = "allowed"
)

// MaxSnippetLength bounds report snippets
const MaxSnippetLength = 200

// timestampLayout names report files; lexical order is chronological
const timestampLayout = "2006-01-02-15-04-05"

// Item is a finding as it appears in a report
type Item struct {
	FindingID   string             `json:"findingId" yaml:"finding_id"`
	RuleID      string             `json:"ruleId" yaml:"rule_id"`
	Severity    finding.Severity   `json:"severity" yaml:"severity"`
	Confidence  finding.Confidence `json:"confidence" yaml:"confidence"`
	FilePath    string             `json:"filePath" yaml:"file_path"`
	Line        int                `json:"lineNumber" yaml:"line_number"`
	Snippet     string             `json:"codeSnippet" yaml:"code_snippet"`
	Explanation string             `json:"explanation" yaml:"explanation"`
}

// ReviewedItem pairs the baseline item with the decision that overrode it
type ReviewedItem struct {
	Item         Item    `json:"finding" yaml:"finding"`
	Verdict      string  `json:"verdict" yaml:"verdict"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
	Explanation  string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SuggestedFix string  `json:"suggestedFix,omitempty" yaml:"suggested_fix,omitempty"`
}

// SuppressedItem is a finding hidden by a suppression rule
type SuppressedItem struct {
	Item          Item   `json:"finding" yaml:"finding"`
	SuppressionID string `json:"suppressionId" yaml:"suppression_id"`
	Reason        string `json:"reason" yaml:"reason"`
	Expired       bool   `json:"expired,omitempty" yaml:"expired,omitempty"`
}

// Summary holds the report counters
type Summary struct {
	FilesScanned int     `json:"filesScanned" yaml:"files_scanned"`
	FilesSkipped int     `json:"filesSkipped" yaml:"files_skipped"`
	Findings     int     `json:"findings" yaml:"findings"`
	Blocks       int     `json:"blocks" yaml:"blocks"`
	Warnings     int     `json:"warnings" yaml:"warnings"`
	AIReviewed   int     `json:"aiReviewed" yaml:"ai_reviewed"`
	Suppressed   int     `json:"suppressed" yaml:"suppressed"`
	FinalVerdict Verdict `json:"finalVerdict" yaml:"final_verdict"`
}

// Report is the document every output format is rendered from
type Report struct {
	ReportID     string           `json:"reportId" yaml:"report_id"`
	Timestamp    time.Time        `json:"timestamp" yaml:"timestamp"`
	Tool         string           `json:"tool" yaml:"tool"`
	ToolVersion  string           `json:"toolVersion" yaml:"tool_version"`
	ProjectID    string           `json:"projectId,omitempty" yaml:"project_id,omitempty"`
	ProjectType  string           `json:"projectType,omitempty" yaml:"project_type,omitempty"`
	ScanMode     string           `json:"scanMode" yaml:"scan_mode"`
	Summary      Summary          `json:"summary" yaml:"summary"`
	Blocks       []Item           `json:"blockFindings" yaml:"block_findings"`
	Warnings     []Item           `json:"warnFindings" yaml:"warn_findings"`
	AIReviewed   []ReviewedItem   `json:"aiReviewed" yaml:"ai_reviewed"`
	Suppressed   []SuppressedItem `json:"suppressed" yaml:"suppressed"`
	ReviewError  string           `json:"reviewError,omitempty" yaml:"review_error,omitempty"`
	FinalVerdict Verdict          `json:"finalVerdict" yaml:"final_verdict"`
}

// Input collects everything a report is built from
type Input struct {
	Root        string
	ProjectID   string
	ProjectType string
	ScanMode    string

	Merge        merge.Result
	Suppressed   []finding.Suppressed
	Expired      []finding.Suppressed
	FilesScanned int
	Skipped      []parallel.FileError
	ReviewErr    error

	// Now and NewID default to time.Now and uuid.NewString
	Now   func() time.Time
	NewID func() string
}

// Build assembles a report. Secret snippets are masked and file paths are
// made relative to Root.
func Build(in Input) *Report {
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	newID := uuid.NewString
	if in.NewID != nil {
		newID = in.NewID
	}

	r := &Report{
		ReportID:    newID(),
		Timestamp:   now().UTC(),
		Tool:        "codeproof",
		ToolVersion: version.Short(),
		ProjectID:   in.ProjectID,
		ProjectType: in.ProjectType,
		ScanMode:    in.ScanMode,
		Blocks:      make([]Item, 0, len(in.Merge.BlockFindings)),
		Warnings:    make([]Item, 0, len(in.Merge.WarnFindings)),
		AIReviewed:  make([]ReviewedItem, 0, len(in.Merge.AIReviewed)),
		Suppressed:  make([]SuppressedItem, 0, len(in.Suppressed)+len(in.Expired)),
	}

	explanations := make(map[string]string, len(in.Merge.AIReviewed))
	for _, rv := range in.Merge.AIReviewed {
		if rv.Decision.Explanation != "" {
			explanations[rv.Finding.ID] = rv.Decision.Explanation
		}
	}

	for _, f := range in.Merge.BlockFindings {
		r.Blocks = append(r.Blocks, newItem(in.Root, f, explanations[f.ID]))
	}
	for _, f := range in.Merge.WarnFindings {
		r.Warnings = append(r.Warnings, newItem(in.Root, f, explanations[f.ID]))
	}
	for _, rv := range in.Merge.AIReviewed {
		r.AIReviewed = append(r.AIReviewed, ReviewedItem{
			Item:         newItem(in.Root, rv.Finding, ""),
			Verdict:      string(finding.ParseSeverity(rv.Decision.Verdict)),
			Confidence:   rv.Decision.Confidence,
			Explanation:  rv.Decision.Explanation,
			SuggestedFix: rv.Decision.SuggestedFix,
		})
	}
	for _, s := range in.Suppressed {
		r.Suppressed = append(r.Suppressed, newSuppressedItem(in.Root, s))
	}
	for _, s := range in.Expired {
		r.Suppressed = append(r.Suppressed, newSuppressedItem(in.Root, s))
	}

	if in.ReviewErr != nil {
		r.ReviewError = in.ReviewErr.Error()
	}

	r.FinalVerdict = verdictFor(len(r.Blocks), len(r.Warnings))
	r.Summary = Summary{
		FilesScanned: in.FilesScanned,
		FilesSkipped: len(in.Skipped),
		Findings:     len(r.Blocks) + len(r.Warnings),
		Blocks:       len(r.Blocks),
		Warnings:     len(r.Warnings),
		AIReviewed:   len(r.AIReviewed),
		Suppressed:   len(in.Suppressed),
		FinalVerdict: r.FinalVerdict,
	}
	return r
}

func verdictFor(blocks, warnings int) Verdict {
	switch {
	case blocks > 0:
		return VerdictBlocked
	case warnings > 0:
		return VerdictAllowedWithWarnings
	default:
		return VerdictAllowed
	}
}

func newItem(root string, f finding.Finding, explanation string) Item {
	if explanation == "" {
		explanation = f.Message
	}
	return Item{
		FindingID:   f.ID,
		RuleID:      f.RuleID,
		Severity:    f.Severity,
		Confidence:  f.Confidence,
		FilePath:    paths.Relative(root, f.FilePath),
		Line:        f.Line,
		Snippet:     TrimSnippet(f.RedactedSnippet()),
		Explanation: explanation,
	}
}

func newSuppressedItem(root string, s finding.Suppressed) SuppressedItem {
	return SuppressedItem{
		Item:          newItem(root, s.Finding, ""),
		SuppressionID: s.SuppressionID,
		Reason:        s.Reason,
		Expired:       s.Expired,
	}
}

// TrimSnippet trims whitespace and bounds s to MaxSnippetLength runes plus an ellipsis
func TrimSnippet(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxSnippetLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxSnippetLength]) + "..."
}

// FileName returns the report file name: <timestamp>-<id>.json
func (r *Report) FileName() string {
	return fmt.Sprintf("%s-%s.json", r.Timestamp.Format(timestampLayout), r.ReportID)
}

// Write stores the report as indented JSON under the project reports
// directory and returns the file path
func Write(r *Report, root string) (string, error) {
	dir := paths.ReportsDir(root)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
