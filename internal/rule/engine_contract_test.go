// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kidase/ruleengine/internal/rule"
)

var _ = Describe("Engine", func() {
	var engine *rule.Engine

	BeforeEach(func() {
		engine = rule.NewEngine(rule.DefaultEngineConfig(), nil)
	})

	Context("a rule whose when-clause matches", func() {
		It("returns the then outcome with computed values applied", func() {
			r := rule.DSLRule{
				ID:   "visibility-window",
				When: map[string]any{"vars.count": map[string]any{"$between": []any{float64(10), float64(20)}}},
				Then: map[string]any{
					"visible": true,
					"label":   map[string]any{"$concat": []any{"count is ", "$ref:vars.count"}},
				},
			}
			ctx := rule.RuleContext{Vars: map[string]any{"count": "15"}}

			result, err := engine.EvaluateRule(context.Background(), r, ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Matched).To(BeTrue())
			Expect(result.Outcome["visible"]).To(BeTrue())
			Expect(result.Outcome["label"]).To(Equal("count is 15"))
		})
	})

	Context("a rule whose when-clause does not match", func() {
		It("falls back to the otherwise outcome", func() {
			r := rule.DSLRule{
				ID:        "fallback",
				When:      map[string]any{"vars.flag": true},
				Then:      map[string]any{"visible": true},
				Otherwise: map[string]any{"visible": false},
			}
			ctx := rule.RuleContext{Vars: map[string]any{"flag": false}}

			result, err := engine.EvaluateRule(context.Background(), r, ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Matched).To(BeFalse())
			Expect(result.Outcome["visible"]).To(BeFalse())
		})
	})

	Context("repeated evaluation of the same rule", func() {
		It("reuses the cached AST without changing the decision", func() {
			r := rule.DSLRule{
				ID:   "cached",
				When: map[string]any{"vars.x": map[string]any{"$gt": float64(0)}},
				Then: map[string]any{"visible": true},
			}
			ctx := rule.RuleContext{Vars: map[string]any{"x": float64(1)}}

			first, err := engine.EvaluateRule(context.Background(), r, ctx)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				again, err := engine.EvaluateRule(context.Background(), r, ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Matched).To(Equal(first.Matched))
			}
		})
	})

	Context("evaluating a batch with one invalid rule", func() {
		It("continues the batch by default and records the failure per-rule", func() {
			rules := []rule.DSLRule{
				{ID: "bad", When: map[string]any{"vars.x": map[string]any{"$bogus": float64(1)}}, Then: map[string]any{}},
				{ID: "good", When: map[string]any{"vars.x": true}, Then: map[string]any{"visible": true}},
			}
			ctx := rule.RuleContext{Vars: map[string]any{"x": true}}

			results, err := engine.EvaluateAll(context.Background(), rules, ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Matched).To(BeFalse())
			Expect(results[0].Outcome).To(HaveKey("error"))
			Expect(results[1].Matched).To(BeTrue())
		})
	})

	Context("registering a custom operator", func() {
		It("clears the AST cache so subsequent evaluations see the new operator", func() {
			r := rule.DSLRule{
				ID:   "custom-op",
				When: map[string]any{"vars.x": map[string]any{"$isPositive": nil}},
				Then: map[string]any{"visible": true},
			}
			ctx := rule.RuleContext{Vars: map[string]any{"x": float64(3)}}

			_, err := engine.EvaluateRule(context.Background(), r, ctx)
			Expect(err).To(HaveOccurred())

			engine.RegisterOperator("$isPositive", func(left, right any) bool {
				f, ok := left.(float64)
				return ok && f > 0
			})

			result, err := engine.EvaluateRule(context.Background(), r, ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Matched).To(BeTrue())
		})
	})
})
