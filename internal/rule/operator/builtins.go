// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package operator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// registerBuiltins installs the operators spec.md §3/§4.1 requires every
// engine to ship: $eq,$ne,$gt,$gte,$lt,$lte,$in,$nin,$exists,$regex,
// $contains,$startsWith,$endsWith,$between,$all.
func registerBuiltins(r *Registry) {
	r.Register("$eq", opEq)
	r.Register("$ne", opNe)
	r.Register("$gt", opGt)
	r.Register("$gte", opGte)
	r.Register("$lt", opLt)
	r.Register("$lte", opLte)
	r.Register("$in", opIn)
	r.Register("$nin", opNin)
	r.Register("$exists", opExists)
	r.Register("$regex", opRegex)
	r.Register("$contains", opContains)
	r.Register("$startsWith", opStartsWith)
	r.Register("$endsWith", opEndsWith)
	r.Register("$between", opBetween)
	r.Register("$all", opAll)
}

// --- canonical / numeric coercion (spec.md §3 invariants 6–7, §4.1) ---

// Canonical projects v onto {nil, bool, float64, string} so $eq/$ne compare
// like values like values: null/undefined -> nil, bool -> bool, number ->
// float64, everything else stringifies.
func Canonical(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return x
	default:
		return stringify(v)
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Numeric coerces v for $gt/$gte/$lt/$lte: numbers pass through, booleans
// become 0/1, strings parse as decimals (NaN -> 0), anything else is 0.
func Numeric(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Stringify renders v's canonical form as a string, used by expression
// operators like $concat that must join heterogeneous values.
func Stringify(v any) string {
	return stringify(Canonical(v))
}

func canonicalEqual(a, b any) bool {
	ca, cb := Canonical(a), Canonical(b)
	return ca == cb
}

// --- comparison builtins ---

func opEq(left, right any) bool { return canonicalEqual(left, right) }
func opNe(left, right any) bool { return !canonicalEqual(left, right) }

func opGt(left, right any) bool  { return Numeric(left) > Numeric(right) }
func opGte(left, right any) bool { return Numeric(left) >= Numeric(right) }
func opLt(left, right any) bool  { return Numeric(left) < Numeric(right) }
func opLte(left, right any) bool { return Numeric(left) <= Numeric(right) }

func opIn(left, right any) bool {
	list, ok := right.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if canonicalEqual(left, item) {
			return true
		}
	}
	return false
}

func opNin(left, right any) bool {
	list, ok := right.([]any)
	if !ok {
		// spec.md §4.1: "nin is true when right is not a list".
		return true
	}
	for _, item := range list {
		if canonicalEqual(left, item) {
			return false
		}
	}
	return true
}

func opExists(left, right any) bool {
	want, ok := right.(bool)
	if !ok {
		want = true
	}
	present := left != nil
	return present == want
}

func opRegex(left, right any) bool {
	str, ok1 := left.(string)
	pattern, ok2 := right.(string)
	if !ok1 || !ok2 {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(str)
}

func opContains(left, right any) bool {
	if lStr, ok := left.(string); ok {
		if rStr, ok := right.(string); ok {
			return strings.Contains(lStr, rStr)
		}
		return false
	}
	if list, ok := left.([]any); ok {
		for _, item := range list {
			if canonicalEqual(item, right) {
				return true
			}
		}
	}
	return false
}

func opStartsWith(left, right any) bool {
	lStr, ok1 := left.(string)
	rStr, ok2 := right.(string)
	if !ok1 || !ok2 {
		return false
	}
	return strings.HasPrefix(lStr, rStr)
}

func opEndsWith(left, right any) bool {
	lStr, ok1 := left.(string)
	rStr, ok2 := right.(string)
	if !ok1 || !ok2 {
		return false
	}
	return strings.HasSuffix(lStr, rStr)
}

func opBetween(left, right any) bool {
	bounds, ok := right.([]any)
	if !ok || len(bounds) != 2 {
		return false
	}
	lo, hi := bounds[0], bounds[1]

	loStr, loIsStr := lo.(string)
	hiStr, hiIsStr := hi.(string)
	leftStr, leftIsStr := left.(string)

	if loIsStr && hiIsStr && leftIsStr {
		return leftStr >= loStr && leftStr <= hiStr
	}

	v := Numeric(left)
	return v >= Numeric(lo) && v <= Numeric(hi)
}

func opAll(left, right any) bool {
	leftList, ok1 := left.([]any)
	rightList, ok2 := right.([]any)
	if !ok1 || !ok2 {
		return false
	}
	for _, want := range rightList {
		found := false
		for _, have := range leftList {
			if canonicalEqual(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
