// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"codeproof/internal/paths"

	ignore "github.com/sabhiram/go-gitignore"
)

// GitignoreHeader precedes the first block of entries added to a file that
// mentions no env file yet
const GitignoreHeader = "# Environment variables"

// DefaultGitignoreEntries keeps secrets and backups out of version control
var DefaultGitignoreEntries = []string{".env", ".env.local", paths.BackupDirName + "/"}

// GitignoreResult reports what EnsureGitignore changed
type GitignoreResult struct {
	Created bool
	Added   []string
}

// EnsureGitignore appends the entries not already covered by the file.
// Coverage is decided by gitignore matching, so an existing ".env*" line
// covers ".env" and ".env.local".
func EnsureGitignore(path string, entries []string) (GitignoreResult, error) {
	var res GitignoreResult
	if len(entries) == 0 {
		entries = DefaultGitignoreEntries
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Created = true
	case err != nil:
		return res, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		lines = append(lines, strings.TrimSpace(strings.TrimSuffix(line, "\r")))
	}
	matcher := ignore.CompileIgnoreLines(lines...)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || covered(entry, lines, matcher) {
			continue
		}
		res.Added = append(res.Added, entry)
	}
	if len(res.Added) == 0 {
		return res, nil
	}

	var b strings.Builder
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	if !strings.Contains(content, ".env") {
		if content != "" {
			b.WriteByte('\n')
		}
		b.WriteString(GitignoreHeader + "\n")
	}
	for _, entry := range res.Added {
		b.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return GitignoreResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return GitignoreResult{}, fmt.Errorf("failed to update %s: %w", path, err)
	}
	return res, f.Close()
}

func covered(entry string, lines []string, matcher *ignore.GitIgnore) bool {
	for _, line := range lines {
		if line == entry || strings.TrimSuffix(line, "/") == strings.TrimSuffix(entry, "/") {
			return true
		}
	}
	probe := entry
	if strings.HasSuffix(entry, "/") {
		probe = entry + "probe"
	}
	return matcher.MatchesPath(probe)
}
