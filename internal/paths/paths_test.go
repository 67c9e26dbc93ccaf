// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"
)

func TestRelative(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "app")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "src", "a.js"), "src/a.js"},
		{root, "."},
		{filepath.Join(root, "..", "other", "b.js"), "/work/other/b.js"},
	}
	for _, tt := range tests {
		if got := Relative(root, tt.path); got != tt.want {
			t.Errorf("Relative(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestProjectLocations(t *testing.T) {
	root := filepath.Join("work", "app")
	if got := BackupRoot(root); got != filepath.Join(root, ".codeproof-backup") {
		t.Errorf("BackupRoot = %q", got)
	}
	if got := ReportsDir(root); got != filepath.Join(root, ".codeproof", "reports") {
		t.Errorf("ReportsDir = %q", got)
	}
	if got := EnvFile(root); got != filepath.Join(root, ".env") {
		t.Errorf("EnvFile = %q", got)
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("src/a.js"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePath("bad\x00path"); err == nil {
		t.Error("expected error for null byte")
	}
}
