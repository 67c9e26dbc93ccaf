// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package help renders the rule catalog for the command line
package help

import (
	"fmt"
	"io"
	"text/tabwriter"

	"codeproof/internal/finding"
	"codeproof/internal/rules"

	"github.com/fatih/color"
)

// categoryNotes explain what each category means for the commit
var categoryNotes = map[rules.Category]string{
	rules.CategorySecret:    "Credentials committed to source. Blocking secrets can be moved with `codeproof move-secret`.",
	rules.CategoryDangerous: "Code that evaluates dynamic input. Reviewed rather than blocked unless configured otherwise.",
	rules.CategoryConfig:    "Settings that should not reach production builds.",
}

// System prints rule help to a writer
type System struct {
	out    io.Writer
	colors map[string]*color.Color
}

// NewSystem creates a help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	h := &System{
		out: out,
		colors: map[string]*color.Color{
			"title":  color.New(color.FgWhite, color.Bold),
			"header": color.New(color.FgBlue, color.Bold),
			"item":   color.New(color.FgCyan),
			"block":  color.New(color.FgRed),
			"warn":   color.New(color.FgYellow),
		},
	}
	for _, c := range h.colors {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return h
}

func (h *System) severityColor(def rules.RuleDefinition) *color.Color {
	if def.Severity == finding.SeverityBlock {
		return h.colors["block"]
	}
	return h.colors["warn"]
}

// ShowRules lists every rule in catalog order
func (h *System) ShowRules(set *rules.Set) {
	h.colors["title"].Fprintf(h.out, "Rules (%d)\n\n", set.Len())

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RULE\tSEVERITY\tCONFIDENCE\tREVIEW\tDESCRIPTION")
	for _, def := range set.Rules() {
		review := "-"
		if def.Escalates() {
			review = "escalated"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", def.ID, def.Severity, def.BaseConfidence, review, def.Message)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Use `codeproof rules <id>` for details. Severities can be changed with severity_rules in the config file.")
}

// ShowRule prints one rule in detail
func (h *System) ShowRule(set *rules.Set, id string) error {
	def, ok := set.Get(id)
	if !ok {
		return fmt.Errorf("unknown rule %q", id)
	}

	h.colors["title"].Fprintln(h.out, def.ID)
	fmt.Fprintln(h.out, def.Message)
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "DETAILS:")
	fmt.Fprintf(h.out, "  Category:   %s\n", def.Category)
	fmt.Fprintf(h.out, "  Severity:   %s\n", h.severityColor(def).Sprint(def.Severity))
	fmt.Fprintf(h.out, "  Confidence: %s\n", def.BaseConfidence)
	fmt.Fprint(h.out, "  Pattern:    ")
	h.colors["item"].Fprintln(h.out, def.Pattern.String())
	if def.Escalates() {
		fmt.Fprintln(h.out, "  Matches are sent for secondary review when ai_escalation is enabled.")
	}
	if note := categoryNotes[def.Category]; note != "" {
		fmt.Fprintln(h.out)
		fmt.Fprintf(h.out, "  %s\n", note)
	}
	return nil
}
