// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kidase/ruleengine/internal/rule/operator"
)

// Normalizer lowers DSLRule surface syntax into a NormalizedRule carrying a
// tagged AST (spec.md §4.3). It holds a reference to the operator registry
// so unknown-operator checks happen at normalization time, matching
// spec.md §8's "unknown operator in `when` → NormalizationError".
type Normalizer struct {
	operators *operator.Registry
}

// NewNormalizer builds a Normalizer bound to reg.
func NewNormalizer(reg *operator.Registry) *Normalizer {
	return &Normalizer{operators: reg}
}

// Normalize lowers dsl into a NormalizedRule. The When clause is compiled
// into an AST; Then/Otherwise are walked for embedded expressions.
func (n *Normalizer) Normalize(dsl DSLRule) (*NormalizedRule, error) {
	if len(dsl.When) == 0 {
		return nil, ErrNormalization(dsl.ID, "when", "empty clause")
	}

	ast, err := n.buildClause(dsl.ID, "when", dsl.When)
	if err != nil {
		return nil, err
	}

	expressions := make(map[string]any)
	collectExpressions(dsl.Then, "then", expressions)
	collectExpressions(dsl.Otherwise, "otherwise", expressions)

	return &NormalizedRule{
		ID:            dsl.ID,
		AST:           ast,
		Then:          dsl.Then,
		Otherwise:     dsl.Otherwise,
		Expressions:   expressions,
		SchemaVersion: GrammarVersion,
	}, nil
}

// buildClause lowers one clause mapping into an AST node, per spec.md §4.3's
// numbered algorithm. path is the dotted location used in error reporting.
func (n *Normalizer) buildClause(ruleID, path string, clause map[string]any) (*Node, error) {
	if len(clause) == 0 {
		return nil, ErrNormalization(ruleID, path, "empty clause")
	}

	if raw, ok := clause["$diff"]; ok {
		return n.buildDiff(ruleID, path+".$diff", raw)
	}
	if raw, ok := clause["$nthDayAfter"]; ok {
		return n.buildNthDayAfter(ruleID, path+".$nthDayAfter", raw)
	}

	keys := sortedKeys(clause)
	var children []*Node
	for _, key := range keys {
		val := clause[key]
		childPath := path + "." + key

		switch {
		case key == "$and" || key == "$or":
			list, ok := val.([]any)
			if !ok || len(list) == 0 {
				return nil, ErrNormalization(ruleID, childPath, "logical operator requires a non-empty array")
			}
			kids := make([]*Node, 0, len(list))
			for i, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, ErrNormalization(ruleID, fmt.Sprintf("%s[%d]", childPath, i), "array element must be a clause object")
				}
				kid, err := n.buildClause(ruleID, fmt.Sprintf("%s[%d]", childPath, i), sub)
				if err != nil {
					return nil, err
				}
				kids = append(kids, kid)
			}
			op := LogicalAnd
			if key == "$or" {
				op = LogicalOr
			}
			children = append(children, &Node{Kind: NodeLogical, LogicalOperator: op, Children: kids})

		case key == "$not":
			sub, ok := val.(map[string]any)
			if !ok {
				return nil, ErrNormalization(ruleID, childPath, "$not requires a clause object")
			}
			kid, err := n.buildClause(ruleID, childPath, sub)
			if err != nil {
				return nil, err
			}
			children = append(children, &Node{Kind: NodeLogical, LogicalOperator: LogicalNot, Children: []*Node{kid}})

		default:
			nodes, err := n.buildFieldComparisons(ruleID, key, childPath, val)
			if err != nil {
				return nil, err
			}
			children = append(children, nodes...)
		}
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return &Node{Kind: NodeLogical, LogicalOperator: LogicalAnd, Children: children}, nil
}

// buildFieldComparisons handles one "path: condition" entry, which is either
// a shorthand literal (implicit $eq) or an operator object with one or more
// $op entries.
func (n *Normalizer) buildFieldComparisons(ruleID, fieldPath, errPath string, val any) ([]*Node, error) {
	opObj, ok := val.(map[string]any)
	if !ok {
		return []*Node{{
			Kind:     NodeComparison,
			Path:     fieldPath,
			Operator: "$eq",
			Value:    classifyValue(val),
		}}, nil
	}

	if len(opObj) == 0 {
		return nil, ErrNormalization(ruleID, errPath, "empty operator object")
	}

	keys := sortedKeys(opObj)
	nodes := make([]*Node, 0, len(keys))
	for _, opName := range keys {
		if !n.operators.Has(opName) || !operator.IsComparisonOperator(opName) {
			return nil, ErrNormalization(ruleID, errPath+"."+opName, fmt.Sprintf("unknown operator %q", opName))
		}
		nodes = append(nodes, &Node{
			Kind:     NodeComparison,
			Path:     fieldPath,
			Operator: opName,
			Value:    classifyValue(opObj[opName]),
		})
	}
	return nodes, nil
}

func (n *Normalizer) buildDiff(ruleID, path string, raw any) (*Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNormalization(ruleID, path, "$diff must be an object")
	}

	unitStr, _ := m["unit"].(string)
	unit := DiffUnit(unitStr)
	switch unit {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
	default:
		return nil, ErrNormalization(ruleID, path+".unit", fmt.Sprintf("invalid unit %q", unitStr))
	}

	from, hasFrom := m["from"]
	to, hasTo := m["to"]
	if !hasFrom || !hasTo {
		return nil, ErrNormalization(ruleID, path, "$diff requires from and to")
	}

	opName, opVal, err := extractOperator(ruleID, path, m, "from", "to", "unit")
	if err != nil {
		return nil, err
	}
	if !n.operators.Has(opName) || !operator.IsComparisonOperator(opName) {
		return nil, ErrNormalization(ruleID, path+"."+opName, fmt.Sprintf("unknown or non-comparison operator %q", opName))
	}

	return &Node{
		Kind:     NodeDiff,
		From:     classifyValue(from),
		To:       classifyValue(to),
		Unit:     unit,
		Operator: opName,
		Value:    classifyValue(opVal),
	}, nil
}

func (n *Normalizer) buildNthDayAfter(ruleID, path string, raw any) (*Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNormalization(ruleID, path, "$nthDayAfter must be an object")
	}

	from, hasFrom := m["from"]
	if !hasFrom {
		return nil, ErrNormalization(ruleID, path, "$nthDayAfter requires from")
	}

	dayOfWeek, err := parseDayOfWeek(m["day"])
	if err != nil {
		return nil, ErrNormalization(ruleID, path+".day", err.Error())
	}

	nth, ok := toPositiveInt(m["nth"])
	if !ok {
		return nil, ErrNormalization(ruleID, path+".nth", "nth must be a positive integer")
	}

	opName, opVal, err := extractOperator(ruleID, path, m, "from", "day", "nth")
	if err != nil {
		return nil, err
	}
	if !n.operators.Has(opName) || !operator.IsComparisonOperator(opName) {
		return nil, ErrNormalization(ruleID, path+"."+opName, fmt.Sprintf("unknown or non-comparison operator %q", opName))
	}

	return &Node{
		Kind:      NodeNthDayAfter,
		From:      classifyValue(from),
		DayOfWeek: dayOfWeek,
		Nth:       nth,
		Operator:  opName,
		Value:     classifyValue(opVal),
	}, nil
}

// extractOperator finds the single non-reserved key in m, which must be the
// comparison operator for a $diff/$nthDayAfter clause.
func extractOperator(ruleID, path string, m map[string]any, reserved ...string) (string, any, error) {
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[r] = true
	}
	keys := sortedKeys(m)
	for _, k := range keys {
		if !skip[k] {
			return k, m[k], nil
		}
	}
	return "", nil, ErrNormalization(ruleID, path, "missing comparison operator")
}

var weekdayNames = map[string]int{
	"Sun": 0, "Mon": 1, "Tue": 2, "Wed": 3, "Thu": 4, "Fri": 5, "Sat": 6,
}

func parseDayOfWeek(v any) (int, error) {
	switch x := v.(type) {
	case string:
		if d, ok := weekdayNames[x]; ok {
			return d, nil
		}
		return 0, fmt.Errorf("unrecognized weekday %q", x)
	case float64:
		d := int(x)
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("weekday out of range: %v", x)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("day must be a weekday name or 0-6 integer")
	}
}

func toPositiveInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 1 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// classifyValue turns a raw DSL value into a ResolvedValue: "$ref:PATH"
// strings become references, arrays become ValueArray, everything else is
// a literal (spec.md §3, "Values").
func classifyValue(v any) ResolvedValue {
	switch x := v.(type) {
	case string:
		if path, ok := strings.CutPrefix(x, "$ref:"); ok {
			return RefValue(path)
		}
		return LiteralValue(x)
	case []any:
		items := make([]ResolvedValue, len(x))
		for i, item := range x {
			items[i] = classifyValue(item)
		}
		return ArrayValue(items)
	default:
		return LiteralValue(v)
	}
}

// collectExpressions walks an outcome map's top-level entries, extracting
// any value shaped as an embedded expression (a single-key object whose key
// begins with "$") into dst under "<prefix>.<key>" (spec.md §4.3).
func collectExpressions(outcome map[string]any, prefix string, dst map[string]any) {
	for key, val := range outcome {
		if m, ok := val.(map[string]any); ok && isExpressionShape(m) {
			dst[prefix+"."+key] = m
		}
	}
}

func isExpressionShape(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return strings.HasPrefix(k, "$")
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
