// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"

	"codeproof/internal/config"
	"codeproof/internal/core"
	"codeproof/internal/suppressions"

	"github.com/spf13/cobra"
)

func (a *app) suppressCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "suppress",
		Short: "Manage the project suppression file",
	}
	cmd.PersistentFlags().StringVarP(&root, "path", "p", ".", "project root")

	open := func() (string, *suppressions.SuppressionManager, error) {
		abs, err := projectRoot([]string{root})
		if err != nil {
			return "", nil, err
		}
		manager, err := core.LoadSuppressions(abs)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load suppressions: %w", err)
		}
		return abs, manager, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, manager, err := open()
			if err != nil {
				return err
			}
			listSuppressions(a.stdout, manager.ListSuppressions())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a suppression rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, manager, err := open()
			if err != nil {
				return err
			}
			if err := manager.RemoveSuppression(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed suppression rule %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, manager, err := open()
			if err != nil {
				return err
			}
			removed, err := manager.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Cleaned up %d expired suppression rule(s)\n", removed)
			return nil
		},
	})

	var reason string
	enable := &cobra.Command{
		Use:   "enable <id|hash>",
		Short: "Enable a suppression rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, manager, err := open()
			if err != nil {
				return err
			}
			if err := manager.EnableSuppression(args[0], reason); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Enabled suppression %s\n", args[0])
			return nil
		},
	}
	enable.Flags().StringVar(&reason, "reason", "", "replace the rule's reason")
	cmd.AddCommand(enable)

	var (
		genReason  string
		genEnabled bool
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Record a suppression rule for every current finding",
		Long: `Scan the whole project and add a rule for each finding not yet covered.
New rules are disabled unless --enable is given, so they can be reviewed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, manager, err := open()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(abs)
			if err != nil {
				return err
			}
			logger, observer, err := a.newLogger(false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			scan, err := core.ScanProject(cmd.Context(), core.ScanConfig{
				Root:     abs,
				Config:   cfg,
				ScanMode: config.ScanModeFull,
				Logger:   logger,
				Observer: observer,
			})
			if err != nil {
				return err
			}
			added, updated, err := manager.GenerateSuppressionRules(scan.All(), genReason, genEnabled)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added %d rule(s), refreshed %d in %s\n", added, updated, manager.GetConfigPath())
			return nil
		},
	}
	generate.Flags().StringVar(&genReason, "reason", "generated baseline", "reason recorded on new rules")
	generate.Flags().BoolVar(&genEnabled, "enable", false, "create the new rules enabled")
	cmd.AddCommand(generate)

	return cmd
}

func listSuppressions(w io.Writer, rules []suppressions.SuppressionRule) {
	if len(rules) == 0 {
		fmt.Fprintln(w, "No suppression rules found.")
		return
	}

	fmt.Fprintf(w, "Found %d suppression rule(s):\n\n", len(rules))
	for _, rule := range rules {
		state := "enabled"
		if !rule.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "ID: %s (%s)\n", rule.ID, state)
		fmt.Fprintf(w, "Hash: %s\n", rule.Hash)
		fmt.Fprintf(w, "Reason: %s\n", rule.Reason)
		if rule.CreatedBy != "" {
			fmt.Fprintf(w, "Created By: %s\n", rule.CreatedBy)
		}
		fmt.Fprintf(w, "Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
		if rule.ExpiresAt != nil {
			fmt.Fprintf(w, "Expires At: %s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		if len(rule.Metadata) > 0 {
			keys := make([]string, 0, len(rule.Metadata))
			for k := range rule.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(w, "Metadata:")
			for _, k := range keys {
				fmt.Fprintf(w, "  %s: %s\n", k, rule.Metadata[k])
			}
		}
		fmt.Fprintln(w, "---")
	}
}
