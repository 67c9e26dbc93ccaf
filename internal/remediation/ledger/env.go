// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ledger records moved secrets. The environment file and the
// ignore file are only ever appended to.
package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// EnvEntry is one KEY=VALUE line
type EnvEntry struct {
	Key   string
	Value string
}

// ReadEnvKeys returns the keys defined in an env file, in file order. A
// missing file has no keys.
func ReadEnvKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var keys []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return keys, nil
}

// formatValue quotes values that a dotenv parser would otherwise split or
// truncate
func formatValue(v string) string {
	if !strings.ContainsAny(v, " \t#\"'\\`$") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// AppendEnv adds entries with a single append-mode write. The file is
// created with mode 0600 when missing; existing content is never rewritten.
func AppendEnv(path string, entries []EnvEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	needsNewline, err := lacksTrailingNewline(path)
	if err != nil {
		return err
	}
	if needsNewline {
		buf.WriteByte('\n')
	}
	for _, e := range entries {
		if e.Key == "" || strings.ContainsAny(e.Key, "=\n ") {
			return fmt.Errorf("invalid environment key %q", e.Key)
		}
		if strings.ContainsAny(e.Value, "\r\n") {
			return fmt.Errorf("value for %s spans multiple lines", e.Key)
		}
		fmt.Fprintf(&buf, "%s=%s\n", e.Key, formatValue(e.Value))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// lacksTrailingNewline reports whether path is a non-empty file whose last
// byte is not a newline
func lacksTrailingNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return last[0] != '\n', nil
}
