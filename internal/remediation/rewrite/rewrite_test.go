// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "sk-abc123def456ghi789jkl"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestReplace_Script(t *testing.T) {
	path := writeTemp(t, "client.ts",
		"const a = \""+secret+"\";\nconst b = '"+secret+"';\nconst c = `"+secret+"`;\n// "+secret+"\n")

	res := Replace(path, secret, "process.env.OPENAI_API_KEY", "OPENAI_API_KEY")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Changes)
	assert.Empty(t, res.Warning)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"const a = process.env.OPENAI_API_KEY;\nconst b = process.env.OPENAI_API_KEY;\nconst c = process.env.OPENAI_API_KEY;\n// "+secret+"\n",
		string(data), "unquoted occurrences are left alone in scripts")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestReplace_Idempotent(t *testing.T) {
	path := writeTemp(t, "a.js", "const k = \""+secret+"\";\n")

	first := Replace(path, secret, "process.env.K", "K")
	require.Equal(t, 1, first.Changes)
	after, err := os.ReadFile(path)
	require.NoError(t, err)

	second := Replace(path, secret, "process.env.K", "K")
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.Changes)

	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(after), string(again))
}

func TestReplace_TemplateWithInterpolationSkipped(t *testing.T) {
	value := "pre-${x}-post"
	content := "a = `" + value + "`;\nb = \"" + value + "\";\n"
	out, n, _ := Apply("x.js", content, value, "process.env.V", "V")
	assert.Equal(t, 1, n)
	assert.Equal(t, "a = `"+value+"`;\nb = process.env.V;\n", out)
}

func TestReplace_JSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{"apiKey": "`+secret+`", "other": "`+secret+`"}`)

	res := Replace(path, secret, "process.env.API_KEY", "API_KEY")
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Changes)
	assert.Equal(t, JSONWarning, res.Warning)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"apiKey": "${API_KEY}", "other": "${API_KEY}"}`, string(data))
}

func TestReplace_PlainText(t *testing.T) {
	path := writeTemp(t, "settings.yaml", "key: "+secret+"\nbackup: "+secret+"\n")

	res := Replace(path, secret, "process.env.KEY", "KEY")
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Changes)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key: process.env.KEY\nbackup: process.env.KEY\n", string(data))
}

func TestReplace_MetacharactersAreLiteral(t *testing.T) {
	value := "a.b*c$1(d)"
	out, n, _ := Apply("x.js", `k = "`+value+`"; j = "aXbbbc$1(d)";`, value, "process.env.$1", "V")
	assert.Equal(t, 1, n)
	assert.Equal(t, `k = process.env.$1; j = "aXbbbc$1(d)";`, out)
}

func TestReplace_NoMatchLeavesFileUntouched(t *testing.T) {
	path := writeTemp(t, "a.js", "const x = 1;\n")
	before, err := os.Stat(path)
	require.NoError(t, err)

	res := Replace(path, secret, "process.env.K", "K")
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Changes)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestReplace_Errors(t *testing.T) {
	res := Replace(filepath.Join(t.TempDir(), "missing.js"), secret, "r", "V")
	assert.False(t, res.Success)
	assert.Error(t, res.Err)

	res = Replace(writeTemp(t, "a.js", "x"), "", "r", "V")
	assert.Error(t, res.Err)
}
