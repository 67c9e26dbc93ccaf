// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// UsedNames is the set of variable names already taken in this run,
// seeded from the keys already present in the environment file
type UsedNames map[string]struct{}

// NewUsedNames returns a set containing keys
func NewUsedNames(keys ...string) UsedNames {
	u := make(UsedNames, len(keys))
	for _, k := range keys {
		u.Add(k)
	}
	return u
}

func (u UsedNames) Has(name string) bool {
	_, ok := u[name]
	return ok
}

func (u UsedNames) Add(name string) {
	u[name] = struct{}{}
}

// Claim returns base, or base with the first free numeric suffix, and
// records the result
func (u UsedNames) Claim(base string) string {
	name := base
	for n := 1; u.Has(name); n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	u.Add(name)
	return name
}

// identifier substrings checked in order; the first hit names the variable
var identifierNames = []struct {
	needles []string
	name    string
}{
	{[]string{"OPENAI", "OPEN_AI"}, "OPENAI_API_KEY"},
	{[]string{"AWS_SECRET", "SECRET_ACCESS"}, "AWS_SECRET_ACCESS_KEY"},
	{[]string{"AWS_ACCESS", "ACCESS_KEY"}, "AWS_ACCESS_KEY"},
	{[]string{"STRIPE"}, "STRIPE_API_KEY"},
	{[]string{"GITHUB"}, "GITHUB_TOKEN"},
	{[]string{"JWT"}, "JWT_SECRET"},
	{[]string{"API_KEY", "APIKEY"}, "API_KEY"},
	{[]string{"TOKEN"}, "AUTH_TOKEN"},
	{[]string{"PASSWORD"}, "PASSWORD"},
	{[]string{"SECRET"}, "SECRET"},
}

// rule id substrings used when the line has no assignment
var ruleNames = []struct {
	needle string
	name   string
}{
	{"aws_access", "AWS_ACCESS_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"stripe", "STRIPE_API_KEY"},
	{"github", "GITHUB_TOKEN"},
	{"api_key", "API_KEY"},
	{"token", "AUTH_TOKEN"},
	{"password", "PASSWORD"},
}

// BaseName derives the unsuffixed variable name for a finding
func BaseName(ruleID, snippet string) string {
	if m := identifierPattern.FindStringSubmatch(snippet); m != nil {
		ident := ToScreamingSnake(m[1])
		for _, entry := range identifierNames {
			for _, needle := range entry.needles {
				if strings.Contains(ident, needle) {
					return entry.name
				}
			}
		}
		return ident
	}
	for _, entry := range ruleNames {
		if strings.Contains(ruleID, entry.needle) {
			return entry.name
		}
	}
	return "SECRET"
}

// GenerateVarName returns a unique name for the secret and claims it in used
func GenerateVarName(ruleID, snippet string, used UsedNames) string {
	return used.Claim(BaseName(ruleID, snippet))
}

// ToScreamingSnake upper-cases an identifier, splitting camelCase words
func ToScreamingSnake(ident string) string {
	runes := []rune(ident)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
