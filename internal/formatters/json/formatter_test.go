// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"strings"
	"testing"

	"codeproof/internal/formatters"
	"codeproof/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	r := &report.Report{ReportID: "rep-1", ScanMode: "full", FinalVerdict: report.VerdictAllowed}

	out, err := NewFormatter().Format(r, formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "\n  "), "expected indented output")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "rep-1", decoded["reportId"])
	assert.Equal(t, "allowed", decoded["finalVerdict"])

	compact, err := NewFormatter().Format(r, formatters.FormatterOptions{PrecommitMode: true})
	require.NoError(t, err)
	assert.NotContains(t, compact, "\n")
}

func TestFormat_NilReport(t *testing.T) {
	_, err := NewFormatter().Format(nil, formatters.FormatterOptions{})
	assert.Error(t, err)
}
