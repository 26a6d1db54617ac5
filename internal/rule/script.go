// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// safeLibrary is a Lua standard library deemed safe for a sandboxed
// expression: no os/io/debug/package access.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// scriptRunner evaluates $script expressions (SPEC_FULL.md §10.3) in a
// fresh sandboxed Lua state per call, time-boxed by timeout.
type scriptRunner struct {
	libraries []safeLibrary
	timeout   time.Duration
}

// newScriptRunner builds a scriptRunner with the default safe library set.
func newScriptRunner(timeout time.Duration) *scriptRunner {
	return &scriptRunner{libraries: defaultSafeLibraries(), timeout: timeout}
}

func (s *scriptRunner) newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range s.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	return L, nil
}

// run evaluates a Lua expression against a table of args, returning a DSL
// value (string/float64/bool/nil). Any Lua error or timeout yields
// (nil, nil) — $script never fails the enclosing rule (spec.md §7 kind 4's
// "coercion mismatches never throw", extended to scripted expressions).
func (s *scriptRunner) run(expr string, args map[string]any) (any, error) {
	L, err := s.newState()
	if err != nil {
		return nil, nil
	}
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	L.SetContext(ctx)

	argsTable := L.NewTable()
	for k, v := range args {
		argsTable.RawSetString(k, toLuaValue(L, v))
	}
	L.SetGlobal("args", argsTable)

	if err := L.DoString("return (" + expr + ")"); err != nil {
		return nil, nil
	}
	if L.GetTop() == 0 {
		return nil, nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLuaValue(ret), nil
}

func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []any:
		t := L.NewTable()
		for i, item := range x {
			t.RawSetInt(i+1, toLuaValue(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

func fromLuaValue(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LNilType:
		return nil
	default:
		// Tables, functions, userdata: not a representable DSL value.
		return nil
	}
}

// evaluateScript resolves $script's args sub-expressions, then runs the Lua
// expression against them.
func (e *ExpressionEvaluator) evaluateScript(ruleID string, arg any, ctx map[string]any, depth int) (any, error) {
	scriptArg, ok := arg.(map[string]any)
	if !ok {
		return nil, nil
	}
	expr, ok := scriptArg["lua"].(string)
	if !ok {
		return nil, nil
	}

	resolvedArgs := make(map[string]any)
	if rawArgs, ok := scriptArg["args"].(map[string]any); ok {
		for k, v := range rawArgs {
			rv, err := e.Evaluate(ruleID, v, ctx, depth+1)
			if err != nil {
				return nil, err
			}
			resolvedArgs[k] = rv
		}
	}

	if e.scripts == nil {
		return nil, nil
	}
	return e.scripts.run(expr, resolvedArgs)
}
