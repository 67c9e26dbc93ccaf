// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"codeproof/internal/help"
	"codeproof/internal/rules"

	"github.com/spf13/cobra"
)

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules [id]",
		Short: "List the detection rules or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := help.NewSystem(a.stdout, !a.colorEnabled(a.stdout, false))
			if len(args) == 0 {
				h.ShowRules(rules.Default())
				return nil
			}
			return h.ShowRule(rules.Default(), args[0])
		},
	}
}
