// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package remediation moves hard-coded secrets into the project's env file
// and rewrites the source to read them back from the environment.
package remediation

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/logging"
	"codeproof/internal/observability"
	"codeproof/internal/paths"
	"codeproof/internal/remediation/backup"
	"codeproof/internal/remediation/envref"
	"codeproof/internal/remediation/ledger"
	"codeproof/internal/remediation/naming"
	"codeproof/internal/remediation/rewrite"

	"github.com/fatih/semgroup"
	"go.uber.org/zap"
)

// DefaultConcurrency bounds how many files are rewritten at once
const DefaultConcurrency = 8

// Options configures a Manager
type Options struct {
	Root string
	// Convention overrides package.json detection when set
	Convention       *envref.Convention
	GitignoreEntries []string
	Concurrency      int
	Logger           *zap.SugaredLogger
	Observer         *observability.StandardObserver
	Now              func() time.Time
}

// Manager plans and applies a secret move for one project
type Manager struct {
	root             string
	convention       envref.Convention
	gitignoreEntries []string
	concurrency      int
	backups          *backup.Manager
	logger           *zap.SugaredLogger
	observer         *observability.StandardObserver
	now              func() time.Time
}

// Occurrence is one finding with the reference that will replace it
type Occurrence struct {
	Finding   finding.Finding
	Reference string
	Key       string
}

// PlannedSecret is a literal value that will be moved
type PlannedSecret struct {
	VarName     string
	Value       string
	Occurrences []Occurrence
	// Keys are the env keys written for this secret, in first-use order
	Keys []string
}

// PublicKeys returns the keys that a browser bundle can read
func (p PlannedSecret) PublicKeys() []string {
	var out []string
	for _, k := range p.Keys {
		if envref.IsPublicKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// SkippedSecret is a group left alone because its key already exists
type SkippedSecret struct {
	VarName string
	Key     string
	Count   int
}

// Plan is the previewable result of grouping and naming
type Plan struct {
	Root       string
	Convention envref.Convention
	Secrets    []PlannedSecret
	Skipped    []SkippedSecret
	Dropped    []naming.Dropped
	// Ineligible counts secret findings in files that are never rewritten
	Ineligible int
	// Files are the absolute paths that will be backed up and rewritten
	Files []string
}

// Empty reports whether there is nothing to move
func (p *Plan) Empty() bool {
	return len(p.Secrets) == 0
}

// EnvEntries returns the lines the ledger will append
func (p *Plan) EnvEntries() []ledger.EnvEntry {
	var out []ledger.EnvEntry
	for _, s := range p.Secrets {
		for _, k := range s.Keys {
			out = append(out, ledger.EnvEntry{Key: k, Value: s.Value})
		}
	}
	return out
}

// FileChange reports rewrites in one file
type FileChange struct {
	Path     string
	Changes  int
	Warnings []string
}

// Summary reports what Apply did
type Summary struct {
	VariablesAdded int
	FilesModified  int
	Replacements   int
	BackupDir      string
	Backup         backup.Manifest
	Changes        []FileChange
	Gitignore      ledger.GitignoreResult
	Failures       []*Error
	Warnings       []string
}

// NewManager validates options and detects the env convention
func NewManager(opts Options) (*Manager, error) {
	if opts.Root == "" {
		return nil, NewError(ErrorConfiguration, "project root cannot be empty", "", "remediation_manager", nil)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, NewError(ErrorConfiguration, "failed to resolve project root", opts.Root, "remediation_manager", err)
	}
	backups, err := backup.NewManager(root, opts.Observer)
	if err != nil {
		return nil, NewError(ErrorConfiguration, "failed to create backup manager", root, "remediation_manager", err)
	}

	m := &Manager{
		root:             root,
		gitignoreEntries: opts.GitignoreEntries,
		concurrency:      opts.Concurrency,
		backups:          backups,
		logger:           logging.OrNop(opts.Logger),
		observer:         opts.Observer,
		now:              opts.Now,
	}
	if opts.Convention != nil {
		m.convention = *opts.Convention
	} else {
		m.convention = envref.DetectStrategy(root)
	}
	if m.concurrency <= 0 {
		m.concurrency = DefaultConcurrency
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// GetComponentName returns the component name for observability
func (m *Manager) GetComponentName() string {
	return "remediation_manager"
}

// Convention returns the env access convention in use
func (m *Manager) Convention() envref.Convention {
	return m.convention
}

// Plan groups eligible findings by value, names each group and decides
// the reference for every occurrence. Nothing is written.
func (m *Manager) Plan(findings []finding.Finding) (*Plan, error) {
	eligible, ineligible := FilterEligible(findings, m.root)
	groups, dropped := naming.Group(eligible)

	for _, d := range dropped {
		m.logger.Warnw("secret cannot be moved automatically",
			"file", paths.Relative(m.root, d.Finding.FilePath), "line", d.Finding.Line, "reason", d.Reason)
	}

	envPath := paths.EnvFile(m.root)
	existing, err := ledger.ReadEnvKeys(envPath)
	if err != nil {
		return nil, NewError(ErrorLedger, "failed to read env file", envPath, m.GetComponentName(), err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, k := range existing {
		existingSet[k] = true
	}
	used := naming.NewUsedNames(existing...)

	plan := &Plan{
		Root:       m.root,
		Convention: m.convention,
		Dropped:    dropped,
		Ineligible: ineligible,
	}
	planned := make(map[string]bool)
	files := make(map[string]bool)

	for _, g := range groups {
		first := g.Findings[0]
		varName := naming.GenerateVarName(first.RuleID, first.Snippet, used)

		secret := PlannedSecret{VarName: varName, Value: g.Value}
		var clash string
		for _, f := range g.Findings {
			rel := paths.Relative(m.root, f.FilePath)
			key := envref.KeyFor(varName, m.convention, rel)
			if existingSet[key] || (planned[key] && !contains(secret.Keys, key)) {
				clash = key
				break
			}
			if !contains(secret.Keys, key) {
				secret.Keys = append(secret.Keys, key)
			}
			secret.Occurrences = append(secret.Occurrences, Occurrence{
				Finding:   f,
				Reference: envref.Reference(varName, m.convention, rel),
				Key:       key,
			})
		}
		if clash != "" {
			m.logger.Warnw("variable already exists in env file, secret left in place", "key", clash)
			plan.Skipped = append(plan.Skipped, SkippedSecret{VarName: varName, Key: clash, Count: len(g.Findings)})
			continue
		}

		for _, k := range secret.Keys {
			planned[k] = true
		}
		for _, o := range secret.Occurrences {
			files[o.Finding.FilePath] = true
		}
		plan.Secrets = append(plan.Secrets, secret)
	}

	for f := range files {
		plan.Files = append(plan.Files, f)
	}
	sort.Strings(plan.Files)
	return plan, nil
}

type replacement struct {
	value, ref, varName string
}

// Apply backs up every planned file, appends the env file, then rewrites
// files concurrently. A single backup failure aborts before anything is
// written. Rewrite failures are recorded per file and do not stop the run.
func (m *Manager) Apply(ctx context.Context, plan *Plan) (*Summary, error) {
	summary := &Summary{}
	if plan == nil || plan.Empty() {
		return summary, nil
	}

	finishTiming := func(bool, map[string]interface{}) {}
	if m.observer != nil {
		finishTiming = m.observer.StartTiming(m.GetComponentName(), "apply", m.root)
	}

	// phase 1: backup
	dir, err := m.backups.CreateBackupDir(m.now())
	if err != nil {
		finishTiming(false, nil)
		return summary, NewError(ErrorBackup, "failed to create backup directory", paths.BackupRoot(m.root), m.GetComponentName(), err)
	}
	summary.BackupDir = dir
	summary.Backup = m.backups.BackupFiles(plan.Files, dir)
	if !summary.Backup.OK() {
		for _, p := range summary.Backup.FailedPaths() {
			summary.Failures = append(summary.Failures,
				NewError(ErrorBackup, summary.Backup.Failures[p], p, "backup_manager", nil))
		}
		finishTiming(false, map[string]interface{}{"backup_failures": len(summary.Backup.Failures)})
		return summary, ErrBackupIncomplete
	}

	// the env file is written before any source so rewritten code never
	// references a missing key
	envPath := paths.EnvFile(m.root)
	entries, err := m.pendingEntries(envPath, plan)
	if err != nil {
		finishTiming(false, nil)
		return summary, NewError(ErrorLedger, "failed to read env file", envPath, "ledger", err)
	}
	if err := ledger.AppendEnv(envPath, entries); err != nil {
		finishTiming(false, nil)
		return summary, NewError(ErrorLedger, "failed to update env file", envPath, "ledger", err)
	}
	summary.VariablesAdded = len(entries)

	// phase 2: rewrite
	byFile := make(map[string][]replacement)
	for _, s := range plan.Secrets {
		for _, o := range s.Occurrences {
			path := o.Finding.FilePath
			r := replacement{value: s.Value, ref: o.Reference, varName: s.VarName}
			if !containsReplacement(byFile[path], r) {
				byFile[path] = append(byFile[path], r)
			}
		}
	}

	var mu sync.Mutex
	g := semgroup.NewGroup(ctx, int64(m.concurrency))
	for _, path := range plan.Files {
		path := path
		reps := byFile[path]
		g.Go(func() error {
			change := FileChange{Path: path}
			var failure *Error
			for _, r := range reps {
				res := rewrite.Replace(path, r.value, r.ref, r.varName)
				if res.Err != nil {
					failure = NewError(ErrorRewrite, "failed to rewrite file", path, "rewriter", res.Err)
					break
				}
				change.Changes += res.Changes
				if res.Warning != "" && !contains(change.Warnings, res.Warning) {
					change.Warnings = append(change.Warnings, res.Warning)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Changes = append(summary.Changes, change)
			if failure != nil {
				summary.Failures = append(summary.Failures, failure)
				m.logger.Warnw("rewrite failed", "file", paths.Relative(m.root, path), "error", failure.Cause)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	sort.Slice(summary.Changes, func(i, j int) bool { return summary.Changes[i].Path < summary.Changes[j].Path })
	sort.SliceStable(summary.Failures, func(i, j int) bool { return summary.Failures[i].FilePath < summary.Failures[j].FilePath })
	for _, c := range summary.Changes {
		if c.Changes > 0 {
			summary.FilesModified++
			summary.Replacements += c.Changes
		}
		for _, w := range c.Warnings {
			summary.Warnings = append(summary.Warnings, paths.Relative(m.root, c.Path)+": "+w)
		}
	}

	if waitErr != nil {
		finishTiming(false, nil)
		return summary, fmt.Errorf("rewrite interrupted: %w", waitErr)
	}

	gitignore := paths.GitignoreFile(m.root)
	res, err := ledger.EnsureGitignore(gitignore, m.gitignoreEntries)
	if err != nil {
		// secrets are already moved; a stale ignore file is reported, not fatal
		m.logger.Warnw("failed to update ignore file", "error", err)
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("failed to update .gitignore: %v", err))
	}
	summary.Gitignore = res

	finishTiming(len(summary.Failures) == 0, map[string]interface{}{
		"variables":    summary.VariablesAdded,
		"files":        summary.FilesModified,
		"replacements": summary.Replacements,
	})
	return summary, nil
}

// pendingEntries drops keys that are already present, so a plan applied
// twice does not duplicate env lines
func (m *Manager) pendingEntries(envPath string, plan *Plan) ([]ledger.EnvEntry, error) {
	existing, err := ledger.ReadEnvKeys(envPath)
	if err != nil {
		return nil, err
	}
	var out []ledger.EnvEntry
	for _, e := range plan.EnvEntries() {
		if contains(existing, e.Key) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsReplacement(list []replacement, r replacement) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
