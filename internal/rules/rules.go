// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"regexp"

	"codeproof/internal/finding"
)

// Category groups rules and fixes their evaluation order
type Category string

const (
	CategorySecret    Category = "secret"
	CategoryDangerous Category = "dangerous"
	CategoryConfig    Category = "config"
)

// RuleDefinition is a compiled, read-only detection rule
type RuleDefinition struct {
	ID             string
	Pattern        *regexp.Regexp
	Severity       finding.Severity
	BaseConfidence finding.Confidence
	Category       Category
	Message        string
}

// Escalates reports whether matches of this rule are eligible for secondary review
func (r RuleDefinition) Escalates() bool {
	return r.Category != CategorySecret || r.BaseConfidence != finding.ConfidenceHigh
}

type ruleSpec struct {
	id         string
	pattern    string
	severity   finding.Severity
	confidence finding.Confidence
	category   Category
	message    string
}

// Order matters: earlier rules claim spans first. Provider-specific
// token shapes precede generic assignments.
var defaultSpecs = []ruleSpec{
	{"secret.aws_access_key", `\b(AKIA|ASIA)[0-9A-Z]{16}\b`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible AWS access key detected."},
	{"secret.openai_api_key", `\bsk-[a-zA-Z0-9]{20,}\b`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible OpenAI API key detected."},
	{"secret.stripe_api_key", `\b(sk|pk)_(live|test)_[a-zA-Z0-9]{24,}\b`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible Stripe API key detected."},
	{"secret.github_token", `\bgh[pousr]_[A-Za-z0-9_]{36,}\b`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible GitHub token detected."},
	{"secret.password_assignment", `(?i)\b[A-Z_]*PASSWORD[A-Z_]*\s*[:=]\s*['"][^'"\n]{6,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Hardcoded password detected."},
	{"secret.password", `(?i)\b(password|passwd|pwd)\s*[:=]\s*['"][^'"\n]{6,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Hardcoded password detected."},
	{"secret.api_key_assignment", `(?i)\b[A-Z_]*API[_-]?KEY[A-Z_]*\s*[:=]\s*['"][A-Za-z0-9\-_]{8,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible API key detected."},
	{"secret.generic_api_key", `(?i)\bapi[_-]?key\s*[:=]\s*['"][A-Za-z0-9\-_]{8,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible API key detected."},
	{"secret.token_assignment", `(?i)\b[A-Z_]*TOKEN[A-Z_]*\s*[:=]\s*['"][^'"\n]{8,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible token detected."},
	{"secret.generic_token", `(?i)\b(token|secret)\s*[:=]\s*['"][^'"\n]{8,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible secret material detected."},
	{"secret.secret_assignment", `(?i)\b[A-Z_]*SECRET[A-Z_]*\s*[:=]\s*['"][^'"\n]{8,}['"]`, finding.SeverityBlock, finding.ConfidenceHigh, CategorySecret, "Possible secret detected."},

	{"code.dangerous_eval", `\b(eval|exec)\s*\(`, finding.SeverityWarn, finding.ConfidenceHigh, CategoryDangerous, "Dangerous function usage detected."},

	{"config.debug_true", `(?i)\bDEBUG\s*=\s*true\b`, finding.SeverityWarn, finding.ConfidenceHigh, CategoryConfig, "Insecure DEBUG flag enabled."},
	{"config.node_env_development", `(?i)\bNODE_ENV\s*=\s*development\b`, finding.SeverityWarn, finding.ConfidenceHigh, CategoryConfig, "NODE_ENV set to development."},
}

var categoryRank = map[Category]int{
	CategorySecret:    0,
	CategoryDangerous: 1,
	CategoryConfig:    2,
}

// Set is the ordered rule catalog
type Set struct {
	rules []RuleDefinition
}

// Default compiles the built-in catalog. Patterns are constants, so a compile
// failure is a programming error.
func Default() *Set {
	set, err := compile(defaultSpecs)
	if err != nil {
		panic(err)
	}
	return set
}

func compile(specs []ruleSpec) (*Set, error) {
	set := &Set{rules: make([]RuleDefinition, 0, len(specs))}
	lastRank := 0
	for _, spec := range specs {
		rank, ok := categoryRank[spec.category]
		if !ok {
			return nil, fmt.Errorf("rule %s: unknown category %q", spec.id, spec.category)
		}
		if rank < lastRank {
			return nil, fmt.Errorf("rule %s: category %s out of order", spec.id, spec.category)
		}
		lastRank = rank

		re, err := regexp.Compile(spec.pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.id, err)
		}
		set.rules = append(set.rules, RuleDefinition{
			ID:             spec.id,
			Pattern:        re,
			Severity:       spec.severity,
			BaseConfidence: spec.confidence,
			Category:       spec.category,
			Message:        spec.message,
		})
	}
	return set, nil
}

// Rules returns a copy of the ordered rule list
func (s *Set) Rules() []RuleDefinition {
	out := make([]RuleDefinition, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules
func (s *Set) Len() int {
	return len(s.rules)
}

// Get looks a rule up by id
func (s *Set) Get(id string) (RuleDefinition, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return RuleDefinition{}, false
}

// IDs lists rule ids in evaluation order
func (s *Set) IDs() []string {
	ids := make([]string, len(s.rules))
	for i, r := range s.rules {
		ids[i] = r.ID
	}
	return ids
}
