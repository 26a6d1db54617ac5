// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig()
	return NewEngine(cfg, nil)
}

func TestEngineValidate(t *testing.T) {
	e := newTestEngine(t)
	result := e.Validate(DSLRule{ID: "r1", When: map[string]any{"vars.x": true}, Then: map[string]any{}})
	assert.True(t, result.Valid)
}

func TestEngineNormalizeCaches(t *testing.T) {
	e := newTestEngine(t)
	rule := DSLRule{ID: "r1", When: map[string]any{"vars.x": true}, Then: map[string]any{}}

	nr1, err := e.Normalize(context.Background(), rule)
	require.NoError(t, err)
	nr2, err := e.Normalize(context.Background(), rule)
	require.NoError(t, err)
	assert.Same(t, nr1, nr2)
	assert.Equal(t, 1, e.cache.len())
}

func TestEngineEvaluateRule(t *testing.T) {
	e := newTestEngine(t)
	rule := DSLRule{
		ID:   "r1",
		When: map[string]any{"vars.count": map[string]any{"$gt": float64(10)}},
		Then: map[string]any{"visible": true},
	}
	res, err := e.EvaluateRule(context.Background(), rule, RuleContext{Vars: map[string]any{"count": float64(15)}})
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestEngineEvaluateAllContinuesOnError(t *testing.T) {
	e := newTestEngine(t)
	rules := []DSLRule{
		{ID: "bad", When: map[string]any{"vars.x": map[string]any{"$bogus": float64(1)}}, Then: map[string]any{}},
		{ID: "good", When: map[string]any{"vars.x": true}, Then: map[string]any{"visible": true}},
	}
	results, err := e.EvaluateAll(context.Background(), rules, RuleContext{Vars: map[string]any{"x": true}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bad", results[0].RuleID)
	assert.False(t, results[0].Matched)
	assert.Contains(t, results[0].Outcome, "error")
	assert.True(t, results[1].Matched)
}

func TestEngineEvaluateAllAbortsWhenContinueOnErrorFalse(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ContinueOnError = false
	e := NewEngine(cfg, nil)

	rules := []DSLRule{
		{ID: "bad", When: map[string]any{"vars.x": map[string]any{"$bogus": float64(1)}}, Then: map[string]any{}},
		{ID: "good", When: map[string]any{"vars.x": true}, Then: map[string]any{"visible": true}},
	}
	_, err := e.EvaluateAll(context.Background(), rules, RuleContext{Vars: map[string]any{"x": true}})
	assert.Error(t, err)
}

func TestEngineEvaluateMatchedFiltersUnmatched(t *testing.T) {
	e := newTestEngine(t)
	rules := []DSLRule{
		{ID: "a", When: map[string]any{"vars.x": true}, Then: map[string]any{"v": 1}},
		{ID: "b", When: map[string]any{"vars.x": false}, Then: map[string]any{"v": 2}},
	}
	matched, err := e.EvaluateMatched(context.Background(), rules, RuleContext{Vars: map[string]any{"x": true}})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "a", matched[0].RuleID)
}

func TestEngineInvalidateAndClearCache(t *testing.T) {
	e := newTestEngine(t)
	rule := DSLRule{ID: "r1", When: map[string]any{"vars.x": true}, Then: map[string]any{}}
	_, err := e.Normalize(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.len())

	e.InvalidateRule("r1")
	assert.Equal(t, 0, e.cache.len())

	_, err = e.Normalize(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.len())

	e.ClearCache()
	assert.Equal(t, 0, e.cache.len())
}

func TestEngineRegisterOperatorClearsCache(t *testing.T) {
	e := newTestEngine(t)
	rule := DSLRule{ID: "r1", When: map[string]any{"vars.x": true}, Then: map[string]any{}}
	_, err := e.Normalize(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.len())

	e.RegisterOperator("$always", func(left, right any) bool { return true })
	assert.Equal(t, 0, e.cache.len())
	assert.True(t, e.operators.Has("$always"))
}

func TestEngineResolvePath(t *testing.T) {
	e := newTestEngine(t)
	ctx := RuleContext{Vars: map[string]any{"count": float64(5)}}
	v, ok := e.ResolvePath(ctx, "vars.count")
	assert.True(t, ok)
	assert.Equal(t, float64(5), v)
}

func TestBuildContextFlattensVariablesAndStampsMeta(t *testing.T) {
	fixedNow := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)
	ctx := BuildContext(BuildContextInput{
		Variables: map[string]any{"{{PRIEST_NAME}}": "Fr. Yared"},
		Now:       fixedNow,
	})
	assert.Equal(t, "Fr. Yared", ctx.Vars["{{PRIEST_NAME}}"])
	assert.Equal(t, "Fr. Yared", ctx.Vars["PRIEST_NAME"])
	assert.Equal(t, "Sat", ctx.Meta["dayOfWeek"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), ctx.Meta["now"])
}
