// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import "strings"

// resolvePath walks a dotted path (e.g. "slide.lineId", "vars.PRIEST_NAME")
// against the context map produced by RuleContext.AsMap, returning the
// value found and whether the full path resolved (spec.md §4.2).
//
// Each segment after the first indexes into a map[string]any; the first
// segment must be one of the five recognized roots. A missing root, a
// missing key at any depth, or indexing through a non-map value all report
// ok=false rather than erroring — unresolved references are a normal
// outcome (spec.md §4.2, "unresolved references resolve to undefined").
func resolvePath(ctx map[string]any, path string) (any, bool) {
	cur, present := walkPath(ctx, path)
	return cur, present && cur != nil
}

// walkPath performs the actual segment-by-segment descent, reporting
// whether the full path chain was present regardless of whether the value
// found there is nil. resolvePath and pathExists both build on this; they
// differ only in whether a present-but-nil value counts as found.
func walkPath(ctx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")

	cur, ok := ctx[segments[0]]
	if !ok {
		return nil, false
	}
	if len(segments) == 1 {
		return cur, true
	}

	for _, seg := range segments[1:] {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// pathExists reports whether path is present in ctx at all, and if so,
// whether the value stored there is null — distinguishing "present but
// null/undefined" from "absent" (spec.md §4.2), unlike resolvePath's ok
// result, which collapses both into false.
func pathExists(ctx map[string]any, path string) (present bool, isNull bool) {
	v, present := walkPath(ctx, path)
	return present, present && v == nil
}

// asMap adapts the handful of shapes a context node can take into a
// map[string]any for further descent: a literal map, or a struct value
// addressed via json-tag marshaling is NOT supported here — RuleContext's
// nested fields (Presentation, Slide, Settings) are expected to already be
// map[string]any (hosts build contexts from decoded JSON), matching
// spec.md §3's RuleContext definition.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// resolveValue resolves a ResolvedValue against ctx: literals pass through
// unchanged, references resolve via resolvePath (undefined -> nil), and
// arrays resolve element-wise (spec.md §3/§4.2).
func resolveValue(ctx map[string]any, rv ResolvedValue) any {
	switch rv.Kind {
	case ValueLiteral:
		return rv.Value
	case ValueRef:
		v, _ := resolvePath(ctx, rv.Path)
		return v
	case ValueArray:
		out := make([]any, len(rv.Items))
		for i, item := range rv.Items {
			out[i] = resolveValue(ctx, item)
		}
		return out
	default:
		return nil
	}
}
