// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalEqual(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		right    any
		expected bool
	}{
		{"equal numbers", float64(1), float64(1), true},
		{"number vs numeric string", float64(15), "15", false},
		{"null vs null", nil, nil, true},
		{"bool vs bool", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, canonicalEqual(tt.left, tt.right))
		})
	}
}

func TestNumericCoercion(t *testing.T) {
	assert.Equal(t, float64(15), Numeric("15"))
	assert.Equal(t, float64(0), Numeric("not-a-number"))
	assert.Equal(t, float64(1), Numeric(true))
	assert.Equal(t, float64(0), Numeric(false))
	assert.Equal(t, float64(3.5), Numeric(3.5))
}

func TestOpEqNe(t *testing.T) {
	assert.True(t, opEq(float64(1), float64(1)))
	assert.True(t, opEq("a", "a"))
	assert.False(t, opEq("a", "b"))
	assert.True(t, opNe("a", "b"))
}

func TestOpComparisons(t *testing.T) {
	assert.True(t, opGt(float64(10), float64(5)))
	assert.True(t, opGte(float64(5), float64(5)))
	assert.True(t, opLt("5", "10")) // numeric coerce: "5" -> 5 < "10" -> 10
	assert.True(t, opLte(float64(5), float64(5)))
}

func TestOpInNin(t *testing.T) {
	list := []any{"a", "b", "c"}
	assert.True(t, opIn("b", list))
	assert.False(t, opIn("z", list))
	assert.False(t, opNin("b", list))
	assert.True(t, opNin("z", list))
	assert.True(t, opNin("z", "not-a-list"))
}

func TestOpExists(t *testing.T) {
	assert.True(t, opExists("value", true))
	assert.False(t, opExists(nil, true))
	assert.True(t, opExists(nil, false))
	assert.False(t, opExists("value", false))
}

func TestOpRegex(t *testing.T) {
	assert.True(t, opRegex("hello123", "^hello[0-9]+$"))
	assert.False(t, opRegex("hello", "^[0-9]+$"))
	assert.False(t, opRegex("hello", "(unclosed"))
}

func TestOpContains(t *testing.T) {
	assert.True(t, opContains("hello world", "world"))
	assert.False(t, opContains("hello", "world"))
	assert.True(t, opContains([]any{"a", "b"}, "b"))
	assert.False(t, opContains([]any{"a", "b"}, "z"))
}

func TestOpStartsEndsWith(t *testing.T) {
	assert.True(t, opStartsWith("hello world", "hello"))
	assert.False(t, opStartsWith("hello world", "world"))
	assert.True(t, opEndsWith("hello world", "world"))
}

func TestOpBetween(t *testing.T) {
	assert.True(t, opBetween(float64(15), []any{float64(10), float64(20)}))
	assert.False(t, opBetween(float64(25), []any{float64(10), float64(20)}))
	assert.True(t, opBetween("2026-06-15", []any{"2026-01-01", "2026-12-31"}))
	assert.False(t, opBetween(float64(5), []any{"bad"}))
}

func TestOpAll(t *testing.T) {
	assert.True(t, opAll([]any{"a", "b", "c"}, []any{"a", "c"}))
	assert.False(t, opAll([]any{"a", "b"}, []any{"a", "z"}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Has("$eq"))
	assert.True(t, r.Has("$between"))
	assert.False(t, r.Has("$nonexistent"))

	_, err := r.Get("$nonexistent")
	assert.Error(t, err)

	r.Register("$custom", func(left, right any) bool { return true })
	assert.True(t, r.Has("$custom"))

	assert.True(t, IsComparisonOperator("$eq"))
	assert.False(t, IsComparisonOperator("$and"))
}
