// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package naming groups secret findings by literal value and assigns each
// group an environment variable name.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"codeproof/internal/finding"
)

var (
	// ErrNoLiteral means no quoted value could be located for a finding
	ErrNoLiteral = errors.New("no quoted literal found")

	// ErrAmbiguousLiteral means the line holds several literals and none contains the match
	ErrAmbiguousLiteral = errors.New("multiple literals on line")
)

var (
	literalPattern    = regexp.MustCompile("\"([^\"\\n]*)\"|'([^'\\n]*)'|`([^`\\n]*)`")
	identifierPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)["']?\s*[:=]`)
)

// SecretGroup is one literal value and every finding that contains it
type SecretGroup struct {
	Value    string
	Findings []finding.Finding
}

// Dropped is a finding that cannot be migrated safely
type Dropped struct {
	Finding finding.Finding
	Reason  error
}

// Eligible reports whether a finding may be moved at all
func Eligible(f finding.Finding) bool {
	return f.IsSecret() && f.Severity == finding.SeverityBlock
}

// Group collapses eligible findings by literal value. Groups keep the order
// in which each value was first seen; findings keep encounter order.
func Group(findings []finding.Finding) ([]SecretGroup, []Dropped) {
	var (
		groups  []SecretGroup
		dropped []Dropped
		index   = make(map[string]int)
	)
	for _, f := range findings {
		if !Eligible(f) {
			continue
		}
		value, err := ExtractLiteral(f.Match, f.Snippet)
		if err != nil {
			dropped = append(dropped, Dropped{Finding: f, Reason: err})
			continue
		}
		i, ok := index[value]
		if !ok {
			i = len(groups)
			index[value] = i
			groups = append(groups, SecretGroup{Value: value})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}
	return groups, dropped
}

type literal struct {
	value      string
	start, end int
}

func literals(s string) []literal {
	var out []literal
	for _, m := range literalPattern.FindAllStringSubmatchIndex(s, -1) {
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				out = append(out, literal{value: s[m[2*g]:m[2*g+1]], start: m[0], end: m[1]})
				break
			}
		}
	}
	return out
}

// ExtractLiteral locates the secret value for a finding. The first quoted
// literal inside the raw match wins; otherwise the snippet literal that
// contains the match, or the only literal on the line.
func ExtractLiteral(match, snippet string) (string, error) {
	for _, lit := range literals(match) {
		if lit.value != "" {
			return lit.value, nil
		}
	}

	lits := literals(snippet)
	if match != "" {
		for _, lit := range lits {
			if strings.Contains(lit.value, match) {
				return lit.value, nil
			}
		}
	}

	var nonEmpty []literal
	for _, lit := range lits {
		if lit.value != "" {
			nonEmpty = append(nonEmpty, lit)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return "", ErrNoLiteral
	case 1:
		return nonEmpty[0].value, nil
	default:
		return "", fmt.Errorf("%w (%d)", ErrAmbiguousLiteral, len(nonEmpty))
	}
}
