// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"codeproof/internal/config"
	"codeproof/internal/core"
	"codeproof/internal/formatters"
	"codeproof/internal/metrics"
	"codeproof/internal/paths"
	"codeproof/internal/precommit"

	"github.com/spf13/cobra"
)

type runFlags struct {
	format         string
	verbose        bool
	precommit      bool
	mode           string
	metricsFile    string
	showSuppressed bool
	report         bool
}

func (a *app) runCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Scan the project and decide whether the commit may proceed",
		Long: `Scan staged files (or the whole project with --mode full), apply suppressions,
optionally escalate low-confidence findings to the configured reviewer, and
print the merged verdict.

Exit codes: 0 allowed, 1 blocked, 2 error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAudit(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", fmt.Sprintf("output format (%v)", formatters.List()))
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "show snippets and low-confidence warnings")
	cmd.Flags().BoolVar(&flags.precommit, "precommit", false, "force pre-commit mode")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "scan mode: staged or full (default from config)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&flags.showSuppressed, "show-suppressed", false, "list suppressed findings")
	cmd.Flags().BoolVar(&flags.report, "report", true, "write the JSON report under "+paths.StateDirName+"/reports when reporting is enabled")
	return cmd
}

func (a *app) runAudit(cmd *cobra.Command, args []string, flags runFlags) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return err
	}

	detector := precommit.NewPrecommitDetectorWithFlag(flags.precommit)
	inHook := detector.IsPrecommitEnvironment()
	pc := detector.GetOptimizedConfig()
	if inHook {
		pc.ApplyProfile(cfg.GetPrecommitProfile())
	}

	format := flags.format
	if inHook && !cmd.Flags().Changed("format") && pc.Format != "" {
		format = pc.Format
	}
	if _, ok := formatters.Get(format); !ok {
		return fmt.Errorf("unsupported format %q (available: %v)", format, formatters.List())
	}

	var mode config.ScanMode
	switch {
	case flags.mode != "":
		mode = config.ScanMode(flags.mode)
		if mode != config.ScanModeStaged && mode != config.ScanModeFull {
			return fmt.Errorf("invalid scan mode %q: must be staged or full", flags.mode)
		}
	case inHook:
		mode = pc.ScanMode
	}

	logger, observer, err := a.newLogger(inHook && pc.QuietMode)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if inHook {
		logger.Debugw("pre-commit mode", "indicator", detector.Indicator())
	}

	reviewer, err := core.BuildReviewer(cfg, logger, observer)
	if err != nil {
		return err
	}
	supp, err := core.LoadSuppressions(root)
	if err != nil {
		return fmt.Errorf("failed to load suppressions: %w", err)
	}

	var collector *metrics.Collector
	if flags.metricsFile != "" {
		collector = metrics.NewCollector()
	}

	res, err := core.RunAudit(cmd.Context(), core.ScanConfig{
		Root:         root,
		Config:       cfg,
		ScanMode:     mode,
		Reviewer:     reviewer,
		Suppressions: supp,
		Metrics:      collector,
		WriteReport:  flags.report,
		Logger:       logger,
		Observer:     observer,
	})
	if err != nil {
		return err
	}

	out, err := formatters.Export(format, res.Report, formatters.FormatterOptions{
		Verbose:        flags.verbose,
		NoColor:        !a.colorEnabled(a.stdout, inHook && pc.NoColor),
		PrecommitMode:  inHook,
		ShowSuppressed: flags.showSuppressed,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(a.stdout, out)

	if res.ReportPath != "" && !inHook {
		fmt.Fprintf(a.stderr, "Report written to %s\n", paths.Relative(root, res.ReportPath))
	}

	if collector != nil {
		if err := collector.WriteTextfile(flags.metricsFile); err != nil {
			logger.Warnw("failed to write metrics", "file", flags.metricsFile, "error", err)
		}
	}

	if res.Blocked() && !cfg.EnforcementEnabled() {
		fmt.Fprintln(a.stderr, "Enforcement is disabled; the commit is not blocked.")
	}
	a.exitCode = precommit.ExitCode(res.Blocked(), false, cfg.EnforcementEnabled())
	return nil
}
