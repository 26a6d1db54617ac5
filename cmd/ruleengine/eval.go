// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kidase/ruleengine/internal/rule"
)

func newEvalCmd() *cobra.Command {
	var rulePath, contextPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a rule DSL document against a context document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rulePath, contextPath, cmd.Flags())
		},
	}
	cmd.Flags().StringVar(&rulePath, "rule", "", "path to a JSON rule document (required)")
	cmd.Flags().StringVar(&contextPath, "context", "", "path to a JSON RuleContext document (required)")
	_ = cmd.MarkFlagRequired("rule")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func runEval(rulePath, contextPath string, flags *pflag.FlagSet) error {
	var dsl rule.DSLRule
	if err := decodeJSONFile(rulePath, &dsl); err != nil {
		return fmt.Errorf("decode rule: %w", err)
	}

	var ruleCtx rule.RuleContext
	if err := decodeJSONFile(contextPath, &ruleCtx); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}

	cfg, err := rule.LoadEngineConfig(configFile, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	engine := rule.NewEngine(cfg, nil)

	result, err := engine.EvaluateRule(context.Background(), dsl, ruleCtx)
	if err != nil {
		return fmt.Errorf("evaluate rule: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func decodeJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
