// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 13, 14, 15, 0, time.Local)

func TestCreateBackupDir(t *testing.T) {
	root := t.TempDir()

	dir, err := CreateBackupDir(root, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".codeproof-backup", "2026-05-04-13-14-15"), dir)
	assert.DirExists(t, dir)

	again, err := CreateBackupDir(root, fixedNow)
	require.NoError(t, err)
	assert.NotEqual(t, dir, again)
	assert.Equal(t, dir+"-1", again)
}

func TestBackupFiles_MirrorsPathsAndModes(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "lib", "a.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("const a = 1;\n"), 0o750))
	top := filepath.Join(root, "b.json")
	require.NoError(t, os.WriteFile(top, []byte("{}"), 0o600))

	dir, err := CreateBackupDir(root, fixedNow)
	require.NoError(t, err)

	m := BackupFiles([]string{src, top}, root, dir)
	assert.True(t, m.OK())
	assert.Equal(t, []string{"src/lib/a.js", "b.json"}, m.Files)

	copied := filepath.Join(dir, "src", "lib", "a.js")
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "const a = 1;\n", string(data))

	info, err := os.Stat(copied)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestBackupFiles_RecordsFailures(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.js")
	require.NoError(t, os.WriteFile(good, []byte("x"), 0o644))

	dir, err := CreateBackupDir(root, fixedNow)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "elsewhere.js")
	m := BackupFiles([]string{good, filepath.Join(root, "gone.js"), outside}, root, dir)

	assert.False(t, m.OK())
	assert.Equal(t, []string{"good.js"}, m.Files)
	assert.Len(t, m.Failures, 2)
	assert.Contains(t, m.Failures, "gone.js")
	assert.Contains(t, m.FailedPaths(), "gone.js")
}

func TestDisplayPath(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, ".codeproof-backup/x", DisplayPath(filepath.Join(root, ".codeproof-backup", "x"), root))
}
