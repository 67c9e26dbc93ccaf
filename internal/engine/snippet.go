// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxSnippetLength bounds the stored line context
const MaxSnippetLength = 200

// snippetLead is how much text before the match is kept when a line is truncated
const snippetLead = 60

// lineIndex answers offset → line queries for one file
type lineIndex struct {
	newlines []int
}

func newLineIndex(content string) lineIndex {
	var nl []int
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			nl = append(nl, i)
		}
	}
	return lineIndex{newlines: nl}
}

// line returns the 1-based line of offset: newlines before it, plus one
func (li lineIndex) line(offset int) int {
	return sort.SearchInts(li.newlines, offset) + 1
}

// extractSnippet returns the trimmed source line(s) spanned by [start,end),
// bounded to MaxSnippetLength around the match
func extractSnippet(content string, start, end int) string {
	lineStart := strings.LastIndexByte(content[:start], '\n') + 1
	lineEnd := len(content)
	if i := strings.IndexByte(content[end:], '\n'); i >= 0 {
		lineEnd = end + i
	}
	line := content[lineStart:lineEnd]
	if len(line) <= MaxSnippetLength {
		return strings.TrimSpace(line)
	}

	relStart := start - lineStart
	from := max(0, relStart-snippetLead)
	to := min(len(line), from+MaxSnippetLength)
	for from > 0 && !utf8.RuneStart(line[from]) {
		from--
	}
	for to < len(line) && !utf8.RuneStart(line[to]) {
		to--
	}
	return strings.TrimSpace(line[from:to])
}
