// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// BackupDirName is the hidden directory under the project root that holds remediation backups
	BackupDirName = ".codeproof-backup"

	// StateDirName holds generated reports and is never scanned
	StateDirName = ".codeproof"

	// SuppressionsFileName is the project-level suppression file
	SuppressionsFileName = ".codeproof-suppressions.yaml"

	EnvFileName       = ".env"
	GitignoreFileName = ".gitignore"
	ManifestFileName  = "package.json"
)

// GetConfigDir returns the user-level codeproof configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("CODEPROOF_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "codeproof")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codeproof"
	}
	return filepath.Join(home, ".codeproof")
}

// GetConfigFile returns the path to the user-level config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// BackupRoot returns the backup root for a project
func BackupRoot(root string) string {
	return filepath.Join(root, BackupDirName)
}

// ReportsDir returns the directory generated reports are written to
func ReportsDir(root string) string {
	return filepath.Join(root, StateDirName, "reports")
}

// SuppressionsFile returns the suppression file for a project
func SuppressionsFile(root string) string {
	return filepath.Join(root, SuppressionsFileName)
}

func EnvFile(root string) string {
	return filepath.Join(root, EnvFileName)
}

func GitignoreFile(root string) string {
	return filepath.Join(root, GitignoreFileName)
}

func ManifestFile(root string) string {
	return filepath.Join(root, ManifestFileName)
}

// Relative returns path relative to root using forward slashes. Paths outside
// root are returned cleaned but otherwise untouched.
func Relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}

// ValidatePath rejects paths the filesystem layer cannot represent
func ValidatePath(path string) error {
	if strings.ContainsRune(path, 0) {
		return &PathValidationError{Path: path, Reason: "contains null byte"}
	}
	return nil
}

// PathValidationError represents a path validation error
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Reason
}
