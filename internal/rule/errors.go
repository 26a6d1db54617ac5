// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import "github.com/samber/oops"

// Error codes for rule engine failures (spec.md §6, "Error surface").
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeNormalizationFailed = "NORMALIZATION_FAILED"
	CodeUnknownOperator     = "UNKNOWN_OPERATOR"
	CodeEvaluationFailed    = "EVALUATION_FAILED"
	CodeRecursionExceeded   = "RECURSION_DEPTH_EXCEEDED"
)

// ErrValidationFailed wraps a ValidationResult's errors into a single error
// a caller can treat as fatal for the rule.
func ErrValidationFailed(ruleID string, issues []ValidationIssue) error {
	return oops.Code(CodeValidationFailed).
		With("rule_id", ruleID).
		With("issues", issues).
		Errorf("rule %q failed validation", ruleID)
}

// ErrNormalization reports a structural problem found while lowering a DSL
// rule into an AST (spec.md §4.3: empty clause, bad $diff.unit, etc.).
func ErrNormalization(ruleID, path, reason string) error {
	return oops.Code(CodeNormalizationFailed).
		With("rule_id", ruleID).
		With("path", path).
		Errorf("normalize %q: %s", path, reason)
}

// ErrUnknownOperator reports an unrecognized expression operator. Raised at
// evaluation time for expression operators inside `then`/`otherwise`, and
// only for the branch that is chosen. Unknown operators in `when` clauses
// are rejected earlier, at normalization, with CodeNormalizationFailed.
func ErrUnknownOperator(operator string) error {
	return oops.Code(CodeUnknownOperator).
		With("operator", operator).
		Errorf("unknown operator %q", operator)
}

// ErrEvaluation wraps an uncaught internal failure inside the evaluator
// (spec.md §7 kind 6), preserving the cause.
func ErrEvaluation(ruleID string, cause error) error {
	return oops.Code(CodeEvaluationFailed).
		With("rule_id", ruleID).
		Wrap(cause)
}

// ErrRecursionExceeded reports that $cond re-entry exceeded the configured
// depth limit (spec.md §5, default 32).
func ErrRecursionExceeded(ruleID string, limit int) error {
	return oops.Code(CodeRecursionExceeded).
		With("rule_id", ruleID).
		With("limit", limit).
		Errorf("recursion depth exceeded")
}

// IsCode reports whether err is an oops error carrying the given code.
func IsCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}
