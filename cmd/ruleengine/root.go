// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/kidase/ruleengine/internal/logging"
	"github.com/kidase/ruleengine/internal/rule"
)

// Global flags available to all subcommands.
var (
	configFile string
	logFormat  string
)

// NewRootCmd creates the root command for the rule engine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ruleengine",
		Short: "ruleengine - validate, evaluate, and inspect conditional rule DSL documents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetDefault("ruleengine", rule.EngineVersion.String(), logFormat)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "engine config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log output format: json or text")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newGenSchemaCmd())

	return cmd
}
