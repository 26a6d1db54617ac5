// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"github.com/kidase/ruleengine/internal/rule/operator"
)

// clauseEvaluator is the seam $cond and $lookup re-enter the boolean
// evaluator through, without expression.go importing evaluator.go's
// concrete Evaluator type (they're mutually dependent; Evaluator wires
// itself in as this interface at construction).
type clauseEvaluator interface {
	evaluateClause(ruleID string, clause map[string]any, ctx map[string]any, depth int) (bool, error)
}

// ExpressionEvaluator produces values (not booleans) for embedded
// expressions inside `then`/`otherwise` (spec.md §4.5).
type ExpressionEvaluator struct {
	operators *operator.Registry
	clauses   clauseEvaluator
	scripts   *scriptRunner
	maxDepth  int
}

// NewExpressionEvaluator builds an ExpressionEvaluator. maxDepth bounds
// $cond re-entry (spec.md §5, default 32).
func NewExpressionEvaluator(reg *operator.Registry, clauses clauseEvaluator, scripts *scriptRunner, maxDepth int) *ExpressionEvaluator {
	return &ExpressionEvaluator{operators: reg, clauses: clauses, scripts: scripts, maxDepth: maxDepth}
}

// Evaluate computes expr's value against ctx. expr may be a literal, an
// array (evaluated element-wise), or a single-key "$op" object.
func (e *ExpressionEvaluator) Evaluate(ruleID string, expr any, ctx map[string]any, depth int) (any, error) {
	if depth > e.maxDepth {
		return nil, ErrRecursionExceeded(ruleID, e.maxDepth)
	}

	switch x := expr.(type) {
	case map[string]any:
		if !isExpressionShape(x) {
			// Not an expression shape (e.g. multi-key object) — treat as a
			// literal map, resolving any nested expression values.
			return e.evaluateLiteralMap(ruleID, x, ctx, depth)
		}
		for opName, arg := range x {
			return e.evaluateOp(ruleID, opName, arg, ctx, depth)
		}
		return nil, nil // unreachable: isExpressionShape guarantees len==1
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			v, err := e.Evaluate(ruleID, item, ctx, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case string:
		rv := classifyValue(x)
		if rv.Kind == ValueRef {
			v, _ := resolvePath(ctx, rv.Path)
			return v, nil
		}
		return x, nil
	default:
		return expr, nil
	}
}

func (e *ExpressionEvaluator) evaluateLiteralMap(ruleID string, m map[string]any, ctx map[string]any, depth int) (any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		rv, err := e.Evaluate(ruleID, v, ctx, depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

func (e *ExpressionEvaluator) evaluateOp(ruleID, opName string, arg any, ctx map[string]any, depth int) (any, error) {
	switch opName {
	case "$add", "$sub", "$mul", "$div":
		return e.evaluateArithmetic(ruleID, opName, arg, ctx, depth)
	case "$concat":
		return e.evaluateConcat(ruleID, arg, ctx, depth)
	case "$min", "$max":
		return e.evaluateMinMax(ruleID, opName, arg, ctx, depth)
	case "$coalesce":
		return e.evaluateCoalesce(ruleID, arg, ctx, depth)
	case "$ref":
		return e.evaluateRef(arg, ctx)
	case "$cond":
		return e.evaluateCond(ruleID, arg, ctx, depth)
	case "$lookup":
		return e.evaluateLookup(ruleID, arg, ctx, depth)
	case "$script":
		return e.evaluateScript(ruleID, arg, ctx, depth)
	default:
		return nil, ErrUnknownOperator(opName)
	}
}

func (e *ExpressionEvaluator) evaluateArgs(ruleID string, arg any, ctx map[string]any, depth int) ([]any, error) {
	list, ok := arg.([]any)
	if !ok {
		return nil, ErrEvaluation(ruleID, ErrNormalization(ruleID, "", "expression operator requires an array argument"))
	}
	out := make([]any, len(list))
	for i, item := range list {
		v, err := e.Evaluate(ruleID, item, ctx, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *ExpressionEvaluator) evaluateArithmetic(ruleID, op string, arg any, ctx map[string]any, depth int) (any, error) {
	args, err := e.evaluateArgs(ruleID, arg, ctx, depth)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return float64(0), nil
	}
	result := operator.Numeric(args[0])
	for _, a := range args[1:] {
		n := operator.Numeric(a)
		switch op {
		case "$add":
			result += n
		case "$sub":
			result -= n
		case "$mul":
			result *= n
		case "$div":
			if n == 0 {
				return float64(0), nil
			}
			result /= n
		}
	}
	return result, nil
}

func (e *ExpressionEvaluator) evaluateConcat(ruleID string, arg any, ctx map[string]any, depth int) (any, error) {
	args, err := e.evaluateArgs(ruleID, arg, ctx, depth)
	if err != nil {
		return nil, err
	}
	out := ""
	for _, a := range args {
		out += operator.Stringify(a)
	}
	return out, nil
}

func (e *ExpressionEvaluator) evaluateMinMax(ruleID, op string, arg any, ctx map[string]any, depth int) (any, error) {
	args, err := e.evaluateArgs(ruleID, arg, ctx, depth)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, nil
	}
	best := operator.Numeric(args[0])
	for _, a := range args[1:] {
		n := operator.Numeric(a)
		if (op == "$min" && n < best) || (op == "$max" && n > best) {
			best = n
		}
	}
	return best, nil
}

func (e *ExpressionEvaluator) evaluateCoalesce(ruleID string, arg any, ctx map[string]any, depth int) (any, error) {
	args, err := e.evaluateArgs(ruleID, arg, ctx, depth)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

func (e *ExpressionEvaluator) evaluateRef(arg any, ctx map[string]any) (any, error) {
	path, ok := arg.(string)
	if !ok {
		return nil, nil
	}
	v, _ := resolvePath(ctx, path)
	return v, nil
}

// evaluateCond implements $cond by re-entering the boolean evaluator on a
// synthetic clause (spec.md §4.5/§5: id "__cond__", not cached).
func (e *ExpressionEvaluator) evaluateCond(ruleID string, arg any, ctx map[string]any, depth int) (any, error) {
	condArg, ok := arg.(map[string]any)
	if !ok {
		return nil, ErrEvaluation(ruleID, ErrNormalization(ruleID, "$cond", "$cond requires an object with if/then/else"))
	}
	ifClause, ok := condArg["if"].(map[string]any)
	if !ok {
		return nil, ErrEvaluation(ruleID, ErrNormalization(ruleID, "$cond.if", "$cond.if must be a clause object"))
	}

	matched, err := e.clauses.evaluateClause("__cond__", ifClause, ctx, depth+1)
	if err != nil {
		return nil, err
	}
	if matched {
		return e.Evaluate(ruleID, condArg["then"], ctx, depth+1)
	}
	return e.Evaluate(ruleID, condArg["else"], ctx, depth+1)
}

// evaluateLookup implements $lookup: iterate `in`, binding "$" to the
// current element for `where`, returning the first match or nil.
func (e *ExpressionEvaluator) evaluateLookup(ruleID string, arg any, ctx map[string]any, depth int) (any, error) {
	lookupArg, ok := arg.(map[string]any)
	if !ok {
		return nil, ErrEvaluation(ruleID, ErrNormalization(ruleID, "$lookup", "$lookup requires an object with in/where"))
	}

	listVal, err := e.Evaluate(ruleID, lookupArg["in"], ctx, depth+1)
	if err != nil {
		return nil, err
	}
	items, ok := listVal.([]any)
	if !ok {
		return nil, nil
	}
	whereClause, ok := lookupArg["where"].(map[string]any)
	if !ok {
		return nil, ErrEvaluation(ruleID, ErrNormalization(ruleID, "$lookup.where", "$lookup.where must be a clause object"))
	}

	iterCtx := make(map[string]any, len(ctx)+1)
	for k, v := range ctx {
		iterCtx[k] = v
	}
	for _, item := range items {
		iterCtx["$"] = item
		matched, err := e.clauses.evaluateClause(ruleID, whereClause, iterCtx, depth+1)
		if err != nil {
			return nil, err
		}
		if matched {
			return item, nil
		}
	}
	return nil, nil
}
