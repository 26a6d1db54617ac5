// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"strings"

	"github.com/kidase/ruleengine/internal/rule/operator"
)

// Evaluator walks a NormalizedRule's AST against a context to produce a
// match decision plus computed outcome values (spec.md §4.6). It also
// implements clauseEvaluator so the Expression Evaluator's $cond/$lookup
// can re-enter boolean evaluation on synthetic clauses.
type Evaluator struct {
	operators   *operator.Registry
	normalizer  *Normalizer
	expressions *ExpressionEvaluator
	maxDepth    int
}

// NewEvaluator wires an Evaluator and its companion ExpressionEvaluator
// together. scripts may be nil to disable $script.
func NewEvaluator(reg *operator.Registry, scripts *scriptRunner, maxDepth int) *Evaluator {
	ev := &Evaluator{
		operators:  reg,
		normalizer: NewNormalizer(reg),
		maxDepth:   maxDepth,
	}
	ev.expressions = NewExpressionEvaluator(reg, ev, scripts, maxDepth)
	return ev
}

// Evaluate runs rule against context, producing the public result
// (spec.md §4.6's entry point, §6's EvaluationResult shape).
func (ev *Evaluator) Evaluate(rule *NormalizedRule, ctx RuleContext) (*EvaluationResult, error) {
	ctxMap := ctx.AsMap()

	matched, err := ev.evalNode(rule.AST, ctxMap)
	if err != nil {
		return nil, ErrEvaluation(rule.ID, err)
	}

	prefix := "then"
	outcome := rule.Then
	if !matched {
		prefix = "otherwise"
		outcome = rule.Otherwise
	}
	if outcome == nil {
		outcome = map[string]any{}
	}

	computed := make(map[string]any)
	for key, expr := range rule.Expressions {
		outKey, ok := strings.CutPrefix(key, prefix+".")
		if !ok {
			continue
		}
		val, err := ev.expressions.Evaluate(rule.ID, expr, ctxMap, 0)
		if err != nil {
			return nil, err
		}
		computed[outKey] = val
	}

	finalOutcome := make(map[string]any, len(outcome))
	for k, v := range outcome {
		finalOutcome[k] = v
	}
	for k, v := range computed {
		finalOutcome[k] = v
	}

	return &EvaluationResult{
		RuleID:         rule.ID,
		Matched:        matched,
		Outcome:        finalOutcome,
		ComputedValues: computed,
	}, nil
}

// evaluateClause implements clauseEvaluator: lowers a raw clause map (never
// pre-normalized — $cond/$lookup clauses are evaluated fresh each time per
// spec.md §5's "not cached") and walks the resulting AST.
func (ev *Evaluator) evaluateClause(ruleID string, clause map[string]any, ctx map[string]any, depth int) (bool, error) {
	if depth > ev.maxDepth {
		return false, ErrRecursionExceeded(ruleID, ev.maxDepth)
	}
	node, err := ev.normalizer.buildClause(ruleID, "$", clause)
	if err != nil {
		return false, err
	}
	return ev.evalNode(node, ctx)
}

// evalNode walks one AST node, short-circuiting $and/$or per spec.md §4.6
// and §5 ("never evaluate more children than necessary").
func (ev *Evaluator) evalNode(node *Node, ctx map[string]any) (bool, error) {
	switch node.Kind {
	case NodeComparison:
		return ev.evalComparison(node, ctx)
	case NodeLogical:
		return ev.evalLogical(node, ctx)
	case NodeDiff:
		return ev.evalDiff(node, ctx)
	case NodeNthDayAfter:
		return ev.evalNthDayAfter(node, ctx)
	default:
		return false, nil
	}
}

func (ev *Evaluator) evalComparison(node *Node, ctx map[string]any) (bool, error) {
	left, _ := resolvePath(ctx, node.Path)
	right := resolveValue(ctx, node.Value)
	pred, err := ev.operators.Get(node.Operator)
	if err != nil {
		return false, err
	}
	return pred(left, right), nil
}

func (ev *Evaluator) evalLogical(node *Node, ctx map[string]any) (bool, error) {
	switch node.LogicalOperator {
	case LogicalAnd:
		for _, child := range node.Children {
			v, err := ev.evalNode(child, ctx)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case LogicalOr:
		for _, child := range node.Children {
			v, err := ev.evalNode(child, ctx)
			if err != nil {
				return false, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	case LogicalNot:
		v, err := ev.evalNode(node.Children[0], ctx)
		if err != nil {
			return false, err
		}
		return !v, nil
	default:
		return false, nil
	}
}

func (ev *Evaluator) evalDiff(node *Node, ctx map[string]any) (bool, error) {
	fromVal := resolveValue(ctx, node.From)
	toVal := resolveValue(ctx, node.To)

	fromDate, ok := parseDate(fromVal)
	if !ok {
		return false, nil
	}
	toDate, ok := parseDate(toVal)
	if !ok {
		return false, nil
	}

	diff := dateDiff(fromDate, toDate, node.Unit)
	pred, err := ev.operators.Get(node.Operator)
	if err != nil {
		return false, err
	}
	right := resolveValue(ctx, node.Value)
	return pred(float64(diff), right), nil
}

func (ev *Evaluator) evalNthDayAfter(node *Node, ctx map[string]any) (bool, error) {
	fromVal := resolveValue(ctx, node.From)
	fromDate, ok := parseDate(fromVal)
	if !ok {
		return false, nil
	}

	target := nthWeekdayAfter(fromDate, node.DayOfWeek, node.Nth)
	pred, err := ev.operators.Get(node.Operator)
	if err != nil {
		return false, err
	}
	right := resolveValue(ctx, node.Value)
	return pred(isoDate(target), right), nil
}
