// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package targets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// StagedLister supplies the staged file list, relative to root
type StagedLister interface {
	StagedFiles(ctx context.Context, root string) ([]string, error)
}

// GitStagedLister asks git for files added, copied, modified or renamed in the index
type GitStagedLister struct {
	// GitBinary defaults to "git" on PATH
	GitBinary string
}

func (g GitStagedLister) binary() string {
	if g.GitBinary == "" {
		return "git"
	}
	return g.GitBinary
}

// StagedFiles runs git diff --cached in root
func (g GitStagedLister) StagedFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, g.binary(), "diff", "--cached", "--name-only", "--diff-filter=ACMR", "-z")
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff --cached failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return splitNul(out), nil
}

// TopLevel returns the working tree root containing dir
func (g GitStagedLister) TopLevel(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary(), "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git working tree: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func splitNul(out []byte) []string {
	var files []string
	for _, part := range bytes.Split(out, []byte{0}) {
		if name := strings.TrimSpace(string(part)); name != "" {
			files = append(files, name)
		}
	}
	return files
}

// StaticLister returns a fixed list, used when the caller already knows the files
type StaticLister []string

func (s StaticLister) StagedFiles(ctx context.Context, root string) ([]string, error) {
	return []string(s), nil
}
