// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package rule implements a declarative conditional rule engine: a JSON DSL
// is normalized into a tagged AST, cached, and evaluated against a layered
// runtime context to produce a visibility decision plus computed output
// values.
package rule

import "encoding/json"

// DSLRule is the JSON surface form of a rule, as authored by a host.
type DSLRule struct {
	ID        string         `json:"id" jsonschema:"required,minLength=1"`
	When      map[string]any `json:"when" jsonschema:"required"`
	Then      map[string]any `json:"then" jsonschema:"required"`
	Otherwise map[string]any `json:"otherwise,omitempty"`

	// EngineVersion is an optional semver constraint (e.g. ">=1.2.0") that
	// this rule requires of the running engine. Empty means unconstrained.
	EngineVersion string `json:"engineVersion,omitempty"`
}

// --- AST node tagged variants (spec.md §3, "AST Node") ---

// NodeKind tags which variant an Node holds.
type NodeKind int

const (
	NodeComparison NodeKind = iota
	NodeLogical
	NodeDiff
	NodeNthDayAfter
)

var nodeKindStrings = [...]string{"comparison", "logical", "diff", "nthDayAfter"}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindStrings) {
		return nodeKindStrings[k]
	}
	return "unknown"
}

// LogicalOp identifies which logical connective a NodeLogical node applies.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "$and"
	LogicalOr  LogicalOp = "$or"
	LogicalNot LogicalOp = "$not"
)

// DiffUnit is the unit of a $diff clause's date arithmetic.
type DiffUnit string

const (
	UnitDays   DiffUnit = "days"
	UnitWeeks  DiffUnit = "weeks"
	UnitMonths DiffUnit = "months"
	UnitYears  DiffUnit = "years"
)

// Node is a tagged AST node. Exactly one of the variant-specific fields is
// populated, selected by Kind. Modeled as a single struct (rather than an
// interface with four implementations) so the evaluator's dispatch is one
// switch over Kind, not a type switch over unrelated types. The compiler
// does not check that switch for exhaustiveness: a Kind with no case falls
// to the evaluator's default branch, which evaluates to false.
type Node struct {
	Kind NodeKind

	// NodeComparison
	Path     string
	Operator string
	Value    ResolvedValue

	// NodeLogical
	LogicalOperator LogicalOp
	Children        []*Node

	// NodeDiff
	From ResolvedValue
	To   ResolvedValue
	Unit DiffUnit
	// Operator/Value reused from comparison fields above.

	// NodeNthDayAfter
	// From reused from diff fields above.
	DayOfWeek int // 0=Sun..6=Sat
	Nth       int
	// Operator/Value reused from comparison fields above.
}

// ResolvedValueKind tags which variant a ResolvedValue holds.
type ResolvedValueKind int

const (
	ValueLiteral ResolvedValueKind = iota
	ValueRef
	ValueArray
)

// ResolvedValue is a DSL value after classification into literal, reference,
// or list, ready for context-time resolution (spec.md §3).
type ResolvedValue struct {
	Kind  ResolvedValueKind
	Value any             // ValueLiteral
	Path  string          // ValueRef
	Items []ResolvedValue // ValueArray
}

// LiteralValue builds a literal ResolvedValue.
func LiteralValue(v any) ResolvedValue { return ResolvedValue{Kind: ValueLiteral, Value: v} }

// RefValue builds a reference ResolvedValue for the given dotted path.
func RefValue(path string) ResolvedValue { return ResolvedValue{Kind: ValueRef, Path: path} }

// ArrayValue builds an array ResolvedValue from the given items.
func ArrayValue(items []ResolvedValue) ResolvedValue {
	return ResolvedValue{Kind: ValueArray, Items: items}
}

// NormalizedRule is the lowered form of a DSLRule retained by the AST cache
// (spec.md §3, "NormalizedRule").
type NormalizedRule struct {
	ID        string
	AST       *Node
	Then      map[string]any
	Otherwise map[string]any

	// Expressions maps "then.KEY" / "otherwise.KEY" to the extracted
	// expression sub-tree for that outcome key (spec.md §4.3).
	Expressions map[string]any

	// SchemaVersion stamps the grammar/AST shape version at normalization
	// time (SPEC_FULL.md §10.1), mirroring the teacher's GrammarVersion.
	SchemaVersion int
}

// RuleContext is the evaluation environment (spec.md §3, "RuleContext").
// Implementers must preserve these top-level key names verbatim; rule
// authors write paths like "slide.lineId" or "vars.PRIEST_NAME" against
// them.
type RuleContext struct {
	Presentation any            `json:"presentation,omitempty"`
	Slide        any            `json:"slide,omitempty"`
	Vars         map[string]any `json:"vars,omitempty"`
	Settings     any            `json:"settings,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// AsMap renders the context as a plain map keyed by the five recognized
// top-level names, the shape the resolver and $ref-path walk operate over.
func (c RuleContext) AsMap() map[string]any {
	return map[string]any{
		"presentation": c.Presentation,
		"slide":        c.Slide,
		"vars":         c.Vars,
		"settings":     c.Settings,
		"meta":         c.Meta,
	}
}

// EvaluationResult is the public result of evaluating one rule (spec.md §6).
type EvaluationResult struct {
	RuleID         string         `json:"ruleId"`
	Matched        bool           `json:"matched"`
	Outcome        map[string]any `json:"outcome"`
	ComputedValues map[string]any `json:"computedValues"`
}

// ValidationIssue is one structural or semantic problem found by the
// Validator (spec.md §4.4).
type ValidationIssue struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Severity distinguishes blocking from advisory validation issues.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationResult is the public result of validating a DSLRule (spec.md §6).
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// MarshalOutcome renders an outcome map deterministically for logging/CLI
// output; it is not used by the evaluation path itself.
func MarshalOutcome(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
