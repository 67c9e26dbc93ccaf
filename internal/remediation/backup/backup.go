// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package backup mirrors files into a timestamped directory before they are
// rewritten. Backups are never pruned.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codeproof/internal/observability"
	"codeproof/internal/paths"
)

// TimestampLayout names backup directories
const TimestampLayout = "2006-01-02-15-04-05"

// Manifest records what one backup run copied
type Manifest struct {
	Dir string
	// Files are root-relative, slash-separated paths that were copied
	Files []string
	// Failures maps a root-relative path to the reason it was not copied
	Failures map[string]string
}

// OK reports whether every file was backed up
func (m Manifest) OK() bool {
	return len(m.Failures) == 0
}

// FailedPaths returns the failed paths in sorted order
func (m Manifest) FailedPaths() []string {
	out := make([]string, 0, len(m.Failures))
	for p := range m.Failures {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Manager creates backup trees under one project root
type Manager struct {
	root     string
	observer *observability.StandardObserver
}

// NewManager creates a Manager. A nil observer disables timing records.
func NewManager(root string, observer *observability.StandardObserver) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("project root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	return &Manager{root: abs, observer: observer}, nil
}

// GetComponentName returns the component name for observability
func (m *Manager) GetComponentName() string {
	return "backup_manager"
}

// CreateBackupDir creates <root>/.codeproof-backup/<timestamp>. A directory
// left by an earlier run in the same second gets a numeric suffix so no run
// reuses another's tree.
func (m *Manager) CreateBackupDir(now time.Time) (string, error) {
	base := paths.BackupRoot(m.root)
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup root: %w", err)
	}

	name := now.Format(TimestampLayout)
	dir := filepath.Join(base, name)
	for n := 1; ; n++ {
		err := os.Mkdir(dir, 0o700)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create backup directory: %w", err)
		}
		dir = filepath.Join(base, fmt.Sprintf("%s-%d", name, n))
	}
}

// BackupFiles copies every path into dir, mirroring its root-relative
// location and file mode. Failures are recorded per file.
func (m *Manager) BackupFiles(files []string, dir string) Manifest {
	finishTiming := m.observer.StartTiming(m.GetComponentName(), "backup_files", dir)

	manifest := Manifest{Dir: dir, Failures: make(map[string]string)}
	for _, path := range files {
		rel, err := m.mirroredPath(path)
		if err != nil {
			manifest.Failures[filepath.ToSlash(path)] = err.Error()
			continue
		}
		if err := copyFile(path, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			manifest.Failures[rel] = err.Error()
			continue
		}
		manifest.Files = append(manifest.Files, rel)
	}

	finishTiming(manifest.OK(), map[string]interface{}{
		"files":    len(manifest.Files),
		"failures": len(manifest.Failures),
	})
	return manifest
}

// mirroredPath returns path relative to the root, refusing anything that
// would land outside the backup tree
func (m *Manager) mirroredPath(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, path)
	}
	rel, err := filepath.Rel(m.root, filepath.Clean(abs))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the project root", path)
	}
	return filepath.ToSlash(rel), nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync backup file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}

	// umask may have narrowed the mode at create time
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to preserve permissions: %w", err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// CreateBackupDir creates a fresh timestamped backup directory under root
func CreateBackupDir(root string, now time.Time) (string, error) {
	m, err := NewManager(root, nil)
	if err != nil {
		return "", err
	}
	return m.CreateBackupDir(now)
}

// BackupFiles copies paths under root into dir
func BackupFiles(files []string, root, dir string) Manifest {
	m, err := NewManager(root, nil)
	if err != nil {
		failures := make(map[string]string, len(files))
		for _, f := range files {
			failures[filepath.ToSlash(f)] = err.Error()
		}
		return Manifest{Dir: dir, Failures: failures}
	}
	return m.BackupFiles(files, dir)
}

// DisplayPath returns dir relative to root for messages
func DisplayPath(dir, root string) string {
	return paths.Relative(root, dir)
}
