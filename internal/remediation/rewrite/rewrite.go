// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rewrite replaces secret literals in source files with
// environment references. Matching is literal: comments and strings are
// rewritten alike.
package rewrite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// JSONWarning is attached to every JSON file that was changed
const JSONWarning = "JSON env interpolation may require dotenv-expand or manual setup"

var scriptExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
}

// Result describes the outcome for one file
type Result struct {
	Success bool
	Changes int
	Err     error
	Warning string
}

// IsScriptFile reports whether path is rewritten quote-aware
func IsScriptFile(path string) bool {
	return scriptExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsJSONFile reports whether path gets a ${VAR} placeholder
func IsJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Apply performs the replacement on content and returns the new text and
// the number of replacements
func Apply(path, content, secret, ref, varName string) (string, int, string) {
	quoted := regexp.QuoteMeta(secret)

	switch {
	case IsScriptFile(path):
		delims := []string{`"`, `'`}
		if !strings.Contains(secret, "${") {
			delims = append(delims, "`")
		}
		changes := 0
		for _, d := range delims {
			re := regexp.MustCompile(regexp.QuoteMeta(d) + quoted + regexp.QuoteMeta(d))
			n := len(re.FindAllStringIndex(content, -1))
			if n > 0 {
				content = re.ReplaceAllLiteralString(content, ref)
				changes += n
			}
		}
		return content, changes, ""

	case IsJSONFile(path):
		re := regexp.MustCompile(`"` + quoted + `"`)
		n := len(re.FindAllStringIndex(content, -1))
		if n == 0 {
			return content, 0, ""
		}
		return re.ReplaceAllLiteralString(content, `"${`+varName+`}"`), n, JSONWarning

	default:
		re := regexp.MustCompile(quoted)
		n := len(re.FindAllStringIndex(content, -1))
		if n == 0 {
			return content, 0, ""
		}
		return re.ReplaceAllLiteralString(content, ref), n, ""
	}
}

// Replace rewrites path in place. A file with no occurrence is left
// untouched and reported as a success with zero changes.
func Replace(path, secret, ref, varName string) Result {
	if secret == "" {
		return Result{Err: errors.New("secret value cannot be empty")}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to stat %s: %w", path, err)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to read %s: %w", path, err)}
	}

	updated, changes, warning := Apply(path, string(data), secret, ref, varName)
	if changes == 0 {
		return Result{Success: true}
	}

	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return Result{Err: fmt.Errorf("failed to write %s: %w", path, err)}
	}
	return Result{Success: true, Changes: changes, Warning: warning}
}
