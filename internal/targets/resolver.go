// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package targets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"codeproof/internal/config"
	"codeproof/internal/logging"
	"codeproof/internal/observability"
	"codeproof/internal/paths"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// alwaysExcluded applies in both modes, including to explicitly staged paths
var alwaysExcluded = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"bower_components/",
	"jspm_packages/",
	".venv/",
	paths.BackupDirName + "/",
	paths.StateDirName + "/",
}

const sniffLen = 8000

// Options configures a Resolver
type Options struct {
	Root            string
	Mode            config.ScanMode
	MaxFileSize     int64
	ExcludePatterns []string
	Staged          StagedLister
	Logger          *zap.SugaredLogger
	Observer        *observability.StandardObserver
}

// Resolver turns a scan mode into the list of files to inspect
type Resolver struct {
	root        string
	mode        config.ScanMode
	maxFileSize int64
	patterns    []string
	excluded    *ignore.GitIgnore
	staged      StagedLister
	logger      *zap.SugaredLogger
	observer    *observability.StandardObserver
}

// NewResolver validates options and compiles the exclusion matcher
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("resolver root cannot be empty")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = config.DefaultMaxFileSize
	}
	staged := opts.Staged
	if staged == nil {
		staged = GitStagedLister{}
	}

	patterns := append(append([]string{}, alwaysExcluded...), opts.ExcludePatterns...)

	return &Resolver{
		root:        root,
		mode:        opts.Mode,
		maxFileSize: maxSize,
		patterns:    patterns,
		excluded:    ignore.CompileIgnoreLines(patterns...),
		staged:      staged,
		logger:      logging.OrNop(opts.Logger),
		observer:    opts.Observer,
	}, nil
}

// Root returns the absolute scan root
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns absolute, de-duplicated paths eligible for scanning. An
// empty list means there is nothing to do.
func (r *Resolver) Resolve(ctx context.Context) ([]string, error) {
	var finishTiming func(bool, map[string]interface{})
	if r.observer != nil {
		finishTiming = r.observer.StartTiming("resolver", "resolve", r.root)
	}

	var (
		files []string
		err   error
	)
	switch r.mode {
	case config.ScanModeFull:
		files, err = r.walk(ctx)
	case config.ScanModeStaged, "":
		files, err = r.fromStaged(ctx)
	default:
		err = fmt.Errorf("unknown scan mode %q", r.mode)
	}

	if finishTiming != nil {
		finishTiming(err == nil, map[string]interface{}{
			"mode":  string(r.mode),
			"files": len(files),
		})
	}
	return files, err
}

func (r *Resolver) fromStaged(ctx context.Context) ([]string, error) {
	listed, err := r.staged.StagedFiles(ctx, r.root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(listed))
	files := make([]string, 0, len(listed))
	for _, name := range listed {
		abs := name
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.root, name)
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			continue
		}
		seen[abs] = true

		rel, ok := r.relative(abs)
		if !ok {
			r.logger.Debugw("staged path outside root skipped", "path", abs)
			continue
		}
		if r.isExcluded(rel, false) {
			r.logger.Debugw("excluded path skipped", "path", rel)
			continue
		}
		info, err := os.Lstat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if r.eligible(abs, info) {
			files = append(files, abs)
		}
	}
	return files, nil
}

func (r *Resolver) walk(ctx context.Context) ([]string, error) {
	matcher := r.excluded
	if extra := readGitignore(filepath.Join(r.root, paths.GitignoreFileName)); len(extra) > 0 {
		lines := append(append([]string{}, r.patterns...), extra...)
		matcher = ignore.CompileIgnoreLines(lines...)
	}

	var files []string
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable directory or entry
			r.logger.Debugw("walk error skipped", "path", path, "error", err)
			if d != nil && d.IsDir() && path != r.root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == r.root {
			return nil
		}

		rel, _ := r.relative(path)
		if d.IsDir() {
			if r.isExcluded(rel, true) || matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if r.isExcluded(rel, false) || matcher.MatchesPath(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if r.eligible(path, info) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Resolver) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (r *Resolver) isExcluded(rel string, isDir bool) bool {
	if isDir {
		return r.excluded.MatchesPath(rel + "/")
	}
	return r.excluded.MatchesPath(rel)
}

func (r *Resolver) eligible(path string, info fs.FileInfo) bool {
	if info.Size() > r.maxFileSize {
		r.logger.Debugw("file exceeds size limit", "path", path, "size", info.Size())
		return false
	}
	binary, err := IsBinary(path)
	if err != nil {
		r.logger.Debugw("unreadable file skipped", "path", path, "error", err)
		return false
	}
	return !binary
}

// IsBinary sniffs the head of a file. A NUL byte, or invalid UTF-8 with a high
// share of control bytes, marks it binary.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return looksBinary(buf[:n]), nil
}

func looksBinary(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	control := 0
	for _, b := range head {
		if b == 0 {
			return true
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != '\b' {
			control++
		}
	}
	if utf8.Valid(head) {
		return false
	}
	return control*10 > len(head)*3
}

func readGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(string(data), "\n")
}
