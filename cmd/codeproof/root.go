// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeproof/internal/config"
	"codeproof/internal/logging"
	"codeproof/internal/observability"
	"codeproof/internal/precommit"
	"codeproof/internal/version"

	// formatters register themselves
	_ "codeproof/internal/formatters/json"
	_ "codeproof/internal/formatters/sarif"
	_ "codeproof/internal/formatters/text"
	_ "codeproof/internal/formatters/yaml"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// app carries the streams and the exit code across subcommands
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile string
	debug      bool
	quiet      bool
	noColor    bool

	exitCode int
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codeproof",
		Short:         "Pre-commit scanner for hard-coded secrets and risky patterns",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to the config file (default: search the project root)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.runCmd(), a.moveSecretCmd(), a.suppressCmd(), a.rulesCmd(), a.versionCmd())
	return root
}

// execute runs the command line and returns the process exit code
func (a *app) execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return precommit.ExitError
	}
	return a.exitCode
}

// projectRoot returns the absolute path of the optional path argument
func projectRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func (a *app) loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadConfigOrDefault(a.configFile, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) newLogger(quiet bool) (*zap.SugaredLogger, *observability.StandardObserver, error) {
	logger, err := logging.New(logging.Options{Debug: a.debug, Quiet: a.quiet || quiet})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	level := observability.ObservabilityMetrics
	if a.debug {
		level = observability.ObservabilityDebug
	}
	return logger, observability.NewStandardObserver(level, logger), nil
}

// colorEnabled is false when disabled by flag or when w is not a terminal
func (a *app) colorEnabled(w io.Writer, disabled bool) bool {
	if a.noColor || disabled {
		return false
	}
	return isTerminal(w)
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
