// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidase/ruleengine/internal/rule/operator"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(operator.NewRegistry())
}

func TestNormalizeShorthandEquality(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID:   "r1",
		When: map[string]any{"slide.isDisabled": true},
		Then: map[string]any{"visible": true},
	})
	require.NoError(t, err)
	require.Equal(t, NodeComparison, nr.AST.Kind)
	assert.Equal(t, "slide.isDisabled", nr.AST.Path)
	assert.Equal(t, "$eq", nr.AST.Operator)
	assert.Equal(t, true, nr.AST.Value.Value)
}

func TestNormalizeImplicitAnd(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID: "r1",
		When: map[string]any{
			"vars.count":      map[string]any{"$between": []any{float64(10), float64(20)}},
			"slide.isVisible": true,
		},
		Then: map[string]any{"visible": true},
	})
	require.NoError(t, err)
	require.Equal(t, NodeLogical, nr.AST.Kind)
	assert.Equal(t, LogicalAnd, nr.AST.LogicalOperator)
	assert.Len(t, nr.AST.Children, 2)
}

func TestNormalizeNotWrapsSingleChild(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID:   "r1",
		When: map[string]any{"$not": map[string]any{"vars.count": map[string]any{"$between": []any{float64(10), float64(20)}}}},
		Then: map[string]any{"visible": true},
	})
	require.NoError(t, err)
	require.Equal(t, NodeLogical, nr.AST.Kind)
	assert.Equal(t, LogicalNot, nr.AST.LogicalOperator)
	require.Len(t, nr.AST.Children, 1)
	assert.Equal(t, NodeComparison, nr.AST.Children[0].Kind)
}

func TestNormalizeDiffClause(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID: "r1",
		When: map[string]any{
			"$diff": map[string]any{
				"from": "2026-02-01", "to": "2026-02-08", "unit": "days", "$lte": float64(7),
			},
		},
		Then: map[string]any{"visible": true},
	})
	require.NoError(t, err)
	require.Equal(t, NodeDiff, nr.AST.Kind)
	assert.Equal(t, UnitDays, nr.AST.Unit)
	assert.Equal(t, "$lte", nr.AST.Operator)
}

func TestNormalizeNthDayAfterClause(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID: "r1",
		When: map[string]any{
			"$nthDayAfter": map[string]any{
				"from": "2026-02-01", "day": "Sun", "nth": float64(1), "$eq": "2026-02-08",
			},
		},
		Then: map[string]any{"visible": true},
	})
	require.NoError(t, err)
	require.Equal(t, NodeNthDayAfter, nr.AST.Kind)
	assert.Equal(t, 0, nr.AST.DayOfWeek)
	assert.Equal(t, 1, nr.AST.Nth)
}

func TestNormalizeEmptyClauseFails(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize(DSLRule{ID: "r1", When: map[string]any{}})
	assert.Error(t, err)
}

func TestNormalizeUnknownOperatorFails(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize(DSLRule{
		ID:   "r1",
		When: map[string]any{"vars.count": map[string]any{"$bogus": float64(1)}},
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNormalizationFailed))
}

func TestCollectExpressions(t *testing.T) {
	n := newTestNormalizer()
	nr, err := n.Normalize(DSLRule{
		ID:   "r1",
		When: map[string]any{"vars.x": map[string]any{"$gt": float64(0)}},
		Then: map[string]any{
			"label": map[string]any{"$cond": map[string]any{
				"if":   map[string]any{"vars.x": map[string]any{"$gt": float64(10)}},
				"then": "big",
				"else": "small",
			}},
		},
	})
	require.NoError(t, err)
	_, ok := nr.Expressions["then.label"]
	assert.True(t, ok)
}

func TestClassifyValueRef(t *testing.T) {
	rv := classifyValue("$ref:vars.count")
	assert.Equal(t, ValueRef, rv.Kind)
	assert.Equal(t, "vars.count", rv.Path)
}
