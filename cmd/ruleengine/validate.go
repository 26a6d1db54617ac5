// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kidase/ruleengine/internal/rule"
)

func newValidateCmd() *cobra.Command {
	var rulePath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rule DSL document and print any issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rulePath, cmd.Flags())
		},
	}
	cmd.Flags().StringVar(&rulePath, "rule", "", "path to a JSON rule document (required)")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func runValidate(rulePath string, flags *pflag.FlagSet) error {
	raw, err := os.ReadFile(rulePath)
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}

	if err := rule.ValidateAgainstSchema(raw); err != nil {
		fmt.Printf("schema validation failed: %v\n", err)
	}

	var dsl rule.DSLRule
	if err := json.Unmarshal(raw, &dsl); err != nil {
		return fmt.Errorf("decode rule JSON: %w", err)
	}

	cfg, err := rule.LoadEngineConfig(configFile, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	engine := rule.NewEngine(cfg, nil)

	result := engine.Validate(dsl)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}
