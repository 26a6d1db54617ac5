// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kidase/ruleengine/internal/rule"
)

func newGenSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Generate the JSON Schema for the rule DSL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenSchema(outPath)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", filepath.Join("schemas", "dsl-rule.schema.json"), "output path")
	return cmd
}

func runGenSchema(outPath string) error {
	schema, err := rule.GenerateSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Printf("Generated %s\n", outPath)
	return nil
}
