// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"testing"

	"codeproof/internal/formatters"
	"codeproof/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormat(t *testing.T) {
	r := &report.Report{
		ReportID:     "rep-1",
		Blocks:       []report.Item{{RuleID: "secret.github_token", FilePath: "ci.yml", Line: 4}},
		FinalVerdict: report.VerdictBlocked,
	}

	out, err := NewFormatter().Format(r, formatters.FormatterOptions{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "rep-1", decoded["report_id"])
	assert.Equal(t, "blocked", decoded["final_verdict"])

	blocks, ok := decoded["block_findings"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocks, 1)
	assert.Equal(t, "secret.github_token", blocks[0].(map[string]interface{})["rule_id"])
}
