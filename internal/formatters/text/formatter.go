// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"codeproof/internal/finding"
	"codeproof/internal/formatters"
	"codeproof/internal/report"

	"github.com/fatih/color"
)

const divider = "--------------------------------------------------"

// Formatter implements text-based output formatting
type Formatter struct{}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colored sections"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// palette is built per call so NoColor never leaks into global state
type palette struct {
	red, yellow, cyan, green, dim, bold *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		red:    color.New(color.FgRed, color.Bold),
		yellow: color.New(color.FgYellow, color.Bold),
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		dim:    color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.red, p.yellow, p.cyan, p.green, p.dim, p.bold} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{p.red, p.yellow, p.cyan, p.green, p.dim, p.bold} {
			c.EnableColor()
		}
	}
	return p
}

func (f *Formatter) Format(r *report.Report, options formatters.FormatterOptions) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no report to format")
	}
	p := newPalette(options.NoColor)

	if options.PrecommitMode {
		return f.formatPrecommitOutput(r, p), nil
	}

	var b strings.Builder

	if len(r.Blocks) > 0 {
		p.red.Fprintf(&b, "CRITICAL ISSUES FOUND (%d):\n\n", len(r.Blocks))
		for _, item := range r.Blocks {
			f.appendItem(&b, p, item, options.Verbose)
		}
	}

	highRisk, lowRisk := splitByConfidence(r.Warnings)
	if len(highRisk) > 0 {
		p.yellow.Fprintf(&b, "HIGH RISK WARNINGS (%d):\n\n", len(highRisk))
		for _, item := range highRisk {
			f.appendItem(&b, p, item, options.Verbose)
		}
	}
	if len(lowRisk) > 0 && options.Verbose {
		p.dim.Fprintf(&b, "OTHER WARNINGS (%d):\n\n", len(lowRisk))
		for _, item := range lowRisk {
			f.appendItem(&b, p, item, true)
		}
	}

	if len(r.AIReviewed) > 0 {
		p.cyan.Fprintf(&b, "AI-REVIEWED FINDINGS (%d):\n\n", len(r.AIReviewed))
		for _, rv := range r.AIReviewed {
			verdict := "WARNING"
			if rv.Verdict == string(finding.SeverityBlock) {
				verdict = "BLOCKED"
			}
			fmt.Fprintf(&b, "  * %s [%s]\n", strings.ToUpper(rv.Item.RuleID), verdict)
			fmt.Fprintf(&b, "    File: %s:%d\n", rv.Item.FilePath, rv.Item.Line)
			if rv.Explanation != "" {
				fmt.Fprintf(&b, "    Analysis: %s\n", rv.Explanation)
			}
			if rv.SuggestedFix != "" {
				fmt.Fprintf(&b, "    Fix: %s\n", rv.SuggestedFix)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Suppressed) > 0 && (options.ShowSuppressed || options.Verbose) {
		p.dim.Fprintf(&b, "SUPPRESSED (%d):\n\n", len(r.Suppressed))
		for _, s := range r.Suppressed {
			status := "active"
			if s.Expired {
				status = "expired"
			}
			p.dim.Fprintf(&b, "  * %s %s:%d [%s, %s] %s\n",
				strings.ToUpper(s.Item.RuleID), s.Item.FilePath, s.Item.Line, s.SuppressionID, status, s.Reason)
		}
		b.WriteString("\n")
	}

	if r.ReviewError != "" {
		p.yellow.Fprintf(&b, "Secondary review unavailable, baseline severities kept: %s\n\n", r.ReviewError)
	}

	f.appendSummary(&b, p, r)
	return b.String(), nil
}

func (f *Formatter) appendItem(b *strings.Builder, p palette, item report.Item, verbose bool) {
	fmt.Fprintf(b, "  * %s\n", strings.ToUpper(item.RuleID))
	fmt.Fprintf(b, "    File: %s:%d\n", item.FilePath, item.Line)
	fmt.Fprintf(b, "    Issue: %s\n", item.Explanation)
	if verbose && item.Snippet != "" {
		p.dim.Fprintf(b, "    Code: %s\n", item.Snippet)
	}
	b.WriteString("\n")
}

func (f *Formatter) appendSummary(b *strings.Builder, p palette, r *report.Report) {
	b.WriteString(divider + "\n")
	fmt.Fprintf(b, "Files scanned: %d", r.Summary.FilesScanned)
	if r.Summary.FilesSkipped > 0 {
		fmt.Fprintf(b, " (%d skipped)", r.Summary.FilesSkipped)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "Blocking: %d  Warnings: %d  AI-reviewed: %d  Suppressed: %d\n",
		r.Summary.Blocks, r.Summary.Warnings, r.Summary.AIReviewed, r.Summary.Suppressed)

	switch r.FinalVerdict {
	case report.VerdictBlocked:
		p.red.Fprintf(b, "Verdict: %s\n", r.FinalVerdict)
	case report.VerdictAllowedWithWarnings:
		p.yellow.Fprintf(b, "Verdict: %s\n", r.FinalVerdict)
	default:
		p.green.Fprintf(b, "Verdict: %s\n", r.FinalVerdict)
	}
}

func splitByConfidence(items []report.Item) (high, low []report.Item) {
	for _, item := range items {
		if item.Confidence == finding.ConfidenceHigh {
			high = append(high, item)
		} else {
			low = append(low, item)
		}
	}
	return high, low
}

// formatPrecommitOutput prints one line per finding grouped by file. A clean
// run prints nothing.
func (f *Formatter) formatPrecommitOutput(r *report.Report, p palette) string {
	if len(r.Blocks) == 0 && len(r.Warnings) == 0 {
		return ""
	}

	type entry struct {
		item  report.Item
		block bool
	}
	byFile := make(map[string][]entry)
	for _, item := range r.Blocks {
		byFile[item.FilePath] = append(byFile[item.FilePath], entry{item, true})
	}
	for _, item := range r.Warnings {
		byFile[item.FilePath] = append(byFile[item.FilePath], entry{item, false})
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, file := range files {
		entries := byFile[file]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].item.Line < entries[j].item.Line })

		blocks := 0
		for _, e := range entries {
			if e.block {
				blocks++
			}
		}
		fmt.Fprintf(&b, "%s: %d blocking, %d warning\n", file, blocks, len(entries)-blocks)
		for _, e := range entries {
			tag := p.yellow.Sprint("warn ")
			if e.block {
				tag = p.red.Sprint("block")
			}
			fmt.Fprintf(&b, "  line %d: %s %s (%s)\n", e.item.Line, tag, e.item.RuleID, e.item.Explanation)
		}
	}

	if len(r.Blocks) > 0 {
		b.WriteString("\nCommit blocked. Remove the flagged values, run `codeproof move-secret`, ")
		b.WriteString("or suppress false positives with `codeproof suppress`.\n")
	}
	return b.String()
}

func init() {
	formatters.Register(NewFormatter())
}
