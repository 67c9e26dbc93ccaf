// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"codeproof/internal/config"
	"codeproof/internal/core"
	"codeproof/internal/metrics"
	"codeproof/internal/paths"
	"codeproof/internal/precommit"
	"codeproof/internal/remediation"
	"codeproof/internal/remediation/backup"
	"codeproof/internal/remediation/envref"
	"codeproof/internal/remediation/rewrite"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type moveSecretFlags struct {
	dryRun      bool
	force       bool
	metricsFile string
}

func (a *app) moveSecretCmd() *cobra.Command {
	var flags moveSecretFlags
	cmd := &cobra.Command{
		Use:   "move-secret [path]",
		Short: "Move hard-coded secrets into .env and reference them from code",
		Long: `Scan the whole project, group blocking secrets by value and replace every
occurrence with an environment reference. Originals are backed up under
` + paths.BackupDirName + ` before any file is changed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.moveSecret(cmd, args, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "show the preview without changing files")
	cmd.Flags().BoolVar(&flags.force, "force", false, "skip the confirmation prompt")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write remediation metrics in Prometheus text format to this file")
	return cmd
}

type palette struct {
	title, warn, ok, dim, bad *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title: color.New(color.FgCyan, color.Bold),
		warn:  color.New(color.FgYellow),
		ok:    color.New(color.FgGreen),
		dim:   color.New(color.FgHiBlack),
		bad:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.title, p.warn, p.ok, p.dim, p.bad} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (a *app) moveSecret(cmd *cobra.Command, args []string, flags moveSecretFlags) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return err
	}
	logger, observer, err := a.newLogger(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scan, err := core.ScanProject(cmd.Context(), core.ScanConfig{
		Root:     root,
		Config:   cfg,
		ScanMode: config.ScanModeFull,
		Logger:   logger,
		Observer: observer,
	})
	if err != nil {
		return err
	}

	manager, err := remediation.NewManager(remediation.Options{
		Root:             scan.Root,
		GitignoreEntries: cfg.Remediation.GitignoreEntries,
		Concurrency:      cfg.Scan.Workers,
		Logger:           logger,
		Observer:         observer,
	})
	if err != nil {
		return err
	}
	plan, err := manager.Plan(scan.All())
	if err != nil {
		return err
	}

	p := newPalette(a.colorEnabled(a.stdout, false))
	printPreview(a.stdout, plan, p)
	if plan.Empty() {
		fmt.Fprintln(a.stdout, "No secrets eligible for automatic remediation.")
		return nil
	}
	if flags.dryRun {
		fmt.Fprintln(a.stdout, "Dry run: no files were changed.")
		return nil
	}
	if !flags.force {
		ok, err := a.confirm(fmt.Sprintf("Move %d secret(s) into %s?", len(plan.Secrets), paths.EnvFileName))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.stdout, "Aborted: no files were changed.")
			return nil
		}
	}

	summary, applyErr := manager.Apply(cmd.Context(), plan)

	if flags.metricsFile != "" {
		collector := metrics.NewCollector()
		collector.RecordRemediation(summary.VariablesAdded, summary.Replacements, len(summary.Backup.Failures))
		if err := collector.WriteTextfile(flags.metricsFile); err != nil {
			logger.Warnw("failed to write metrics", "file", flags.metricsFile, "error", err)
		}
	}

	if errors.Is(applyErr, remediation.ErrBackupIncomplete) {
		p.bad.Fprintln(a.stdout, "Backup failed; no files were modified:")
		for _, f := range summary.Failures {
			fmt.Fprintf(a.stdout, "  %s: %s\n", f.FilePath, f.Message)
		}
		return applyErr
	}
	if applyErr != nil {
		return applyErr
	}

	printSummary(a.stdout, root, summary, p)
	if len(summary.Failures) > 0 {
		a.exitCode = precommit.ExitError
	}
	return nil
}

func printPreview(w io.Writer, plan *remediation.Plan, p palette) {
	if len(plan.Secrets) > 0 {
		p.title.Fprintf(w, "Secrets to move (%d):\n", len(plan.Secrets))
		fmt.Fprintf(w, "Environment access: %s\n\n", describeConvention(plan.Convention))
	}
	for _, s := range plan.Secrets {
		fmt.Fprintf(w, "  %s\n", strings.Join(s.Keys, ", "))
		for _, o := range s.Occurrences {
			rel := paths.Relative(plan.Root, o.Finding.FilePath)
			fmt.Fprintf(w, "    %s:%d -> %s\n", rel, o.Finding.Line, o.Reference)
			if rewrite.IsJSONFile(rel) {
				p.warn.Fprintf(w, "      %s\n", rewrite.JSONWarning)
			}
		}
		if public := s.PublicKeys(); len(public) > 0 {
			p.warn.Fprintf(w, "    Warning: %s is exposed to client bundles; rotate the secret and move it server-side\n",
				strings.Join(public, ", "))
		}
	}

	if len(plan.Skipped) > 0 {
		fmt.Fprintln(w)
		p.warn.Fprintf(w, "Skipped (%d): key already defined in %s\n", len(plan.Skipped), paths.EnvFileName)
		for _, s := range plan.Skipped {
			fmt.Fprintf(w, "  %s (%d occurrence(s))\n", s.Key, s.Count)
		}
	}
	if len(plan.Dropped) > 0 {
		fmt.Fprintln(w)
		p.warn.Fprintf(w, "Needs manual review (%d):\n", len(plan.Dropped))
		for _, d := range plan.Dropped {
			fmt.Fprintf(w, "  %s:%d %v\n", paths.Relative(plan.Root, d.Finding.FilePath), d.Finding.Line, d.Reason)
		}
	}
	if plan.Ineligible > 0 {
		p.dim.Fprintf(w, "%d finding(s) in docs, tests or fixtures were left alone\n", plan.Ineligible)
	}
	fmt.Fprintln(w)
}

func describeConvention(c envref.Convention) string {
	switch c.Strategy {
	case envref.StrategyImportMeta:
		return "import.meta.env (prefix " + c.Prefix + ")"
	case envref.StrategyNext:
		return "process.env (prefix " + c.Prefix + " in client files)"
	default:
		if c.Prefix != "" {
			return "process.env (prefix " + c.Prefix + ")"
		}
		return "process.env"
	}
}

func printSummary(w io.Writer, root string, s *remediation.Summary, p palette) {
	p.ok.Fprintln(w, "Secrets moved.")
	fmt.Fprintf(w, "  Variables added: %d\n", s.VariablesAdded)
	fmt.Fprintf(w, "  Files modified:  %d\n", s.FilesModified)
	fmt.Fprintf(w, "  Replacements:    %d\n", s.Replacements)
	fmt.Fprintf(w, "  Backup:          %s\n", backup.DisplayPath(s.BackupDir, root))
	if len(s.Gitignore.Added) > 0 {
		fmt.Fprintf(w, "  %s now ignores: %s\n", paths.GitignoreFileName, strings.Join(s.Gitignore.Added, ", "))
	}
	for _, warning := range s.Warnings {
		p.warn.Fprintf(w, "  Warning: %s\n", warning)
	}
	for _, f := range s.Failures {
		p.bad.Fprintf(w, "  Failed: %s: %v\n", paths.Relative(root, f.FilePath), f.Cause)
	}
}

// confirm asks a yes/no question on stdin. A non-interactive stdin is an
// error so a hook never blocks waiting for input.
func (a *app) confirm(question string) (bool, error) {
	if !isTerminal(a.stdin) {
		return false, errors.New("confirmation requires an interactive terminal; rerun with --force or --dry-run")
	}
	fmt.Fprintf(a.stdout, "%s [y/N] ", question)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
