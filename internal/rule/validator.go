// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kidase/ruleengine/internal/rule/operator"
)

// Validator performs structural and semantic validation of a DSLRule
// without fully normalizing it (spec.md §4.4). It shares the operator
// registry with the Normalizer so "unknown operator" checks agree.
type Validator struct {
	operators *operator.Registry
}

// NewValidator builds a Validator bound to reg.
func NewValidator(reg *operator.Registry) *Validator {
	return &Validator{operators: reg}
}

// Validate checks dsl and returns every issue found; it never stops at the
// first problem (spec.md §4.4: "{ valid, issues: [...] }").
func (v *Validator) Validate(dsl DSLRule) ValidationResult {
	var issues []ValidationIssue
	add := func(path, msg string, sev Severity) {
		issues = append(issues, ValidationIssue{Path: path, Message: msg, Severity: sev})
	}

	if strings.TrimSpace(dsl.ID) == "" {
		add("id", "id must be a non-empty string", SeverityError)
	}
	if len(dsl.When) == 0 {
		add("when", "when must be present and non-empty", SeverityError)
	} else {
		v.validateClause("when", dsl.When, &issues)
	}

	v.validateOutcome("then", dsl.Then, &issues)
	v.validateOutcome("otherwise", dsl.Otherwise, &issues)

	if dsl.EngineVersion != "" {
		if err := checkEngineVersion(dsl.EngineVersion); err != nil {
			add("engineVersion", err.Error(), SeverityError)
		}
	}

	valid := true
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			valid = false
			break
		}
	}
	if issues == nil {
		issues = []ValidationIssue{}
	}
	return ValidationResult{Valid: valid, Issues: issues}
}

func (v *Validator) validateClause(path string, clause map[string]any, issues *[]ValidationIssue) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}

	if len(clause) == 0 {
		add(path, "clause must not be empty", SeverityError)
		return
	}

	if raw, ok := clause["$diff"]; ok {
		v.validateDiff(path+".$diff", raw, issues)
		return
	}
	if raw, ok := clause["$nthDayAfter"]; ok {
		v.validateNthDayAfter(path+".$nthDayAfter", raw, issues)
		return
	}

	for key, val := range clause {
		childPath := path + "." + key
		switch {
		case key == "$and" || key == "$or":
			list, ok := val.([]any)
			if !ok || len(list) == 0 {
				add(childPath, "logical operator requires a non-empty array", SeverityError)
				continue
			}
			for i, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					add(fmt.Sprintf("%s[%d]", childPath, i), "array element must be a clause object", SeverityError)
					continue
				}
				v.validateClause(fmt.Sprintf("%s[%d]", childPath, i), sub, issues)
			}
		case key == "$not":
			sub, ok := val.(map[string]any)
			if !ok {
				add(childPath, "$not requires a clause object", SeverityError)
				continue
			}
			v.validateClause(childPath, sub, issues)
		default:
			v.validateFieldCondition(childPath, val, issues)
		}
	}
}

func (v *Validator) validateFieldCondition(path string, val any, issues *[]ValidationIssue) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}

	opObj, ok := val.(map[string]any)
	if !ok {
		return // shorthand literal equality, always valid
	}
	if len(opObj) == 0 {
		add(path, "empty operator object", SeverityError)
		return
	}
	for opName, opVal := range opObj {
		opPath := path + "." + opName
		if !v.operators.Has(opName) || !operator.IsComparisonOperator(opName) {
			add(opPath, fmt.Sprintf("unknown comparison operator %q", opName), SeverityError)
			continue
		}
		if opName == "$between" {
			list, ok := opVal.([]any)
			if !ok || len(list) != 2 {
				add(opPath, "$between requires a 2-element array", SeverityError)
			}
		}
		if opName == "$regex" {
			if pattern, ok := opVal.(string); ok {
				if _, err := regexp.Compile(pattern); err != nil {
					add(opPath, fmt.Sprintf("regex does not compile: %s", err), SeverityWarning)
				}
			}
		}
	}
}

func (v *Validator) validateDiff(path string, raw any, issues *[]ValidationIssue) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}
	m, ok := raw.(map[string]any)
	if !ok {
		add(path, "$diff must be an object", SeverityError)
		return
	}
	if _, ok := m["from"]; !ok {
		add(path+".from", "$diff requires from", SeverityError)
	}
	if _, ok := m["to"]; !ok {
		add(path+".to", "$diff requires to", SeverityError)
	}
	unit, _ := m["unit"].(string)
	switch DiffUnit(unit) {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
	default:
		add(path+".unit", fmt.Sprintf("invalid unit %q", unit), SeverityError)
	}
	v.validateReservedOperator(path, m, issues, "from", "to", "unit")
}

func (v *Validator) validateNthDayAfter(path string, raw any, issues *[]ValidationIssue) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}
	m, ok := raw.(map[string]any)
	if !ok {
		add(path, "$nthDayAfter must be an object", SeverityError)
		return
	}
	if _, ok := m["from"]; !ok {
		add(path+".from", "$nthDayAfter requires from", SeverityError)
	}
	if _, err := parseDayOfWeek(m["day"]); err != nil {
		add(path+".day", err.Error(), SeverityError)
	}
	if _, ok := toPositiveInt(m["nth"]); !ok {
		add(path+".nth", "nth must be a positive integer", SeverityError)
	}
	v.validateReservedOperator(path, m, issues, "from", "day", "nth")
}

func (v *Validator) validateReservedOperator(path string, m map[string]any, issues *[]ValidationIssue, reserved ...string) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[r] = true
	}
	found := false
	for k := range m {
		if skip[k] {
			continue
		}
		found = true
		if !v.operators.Has(k) || !operator.IsComparisonOperator(k) {
			add(path+"."+k, fmt.Sprintf("unknown or non-comparison operator %q", k), SeverityError)
		}
	}
	if !found {
		add(path, "missing comparison operator", SeverityError)
	}
}

// validateOutcome walks a then/otherwise map, warning (not erroring) on
// unknown expression operators — spec.md §4.4: "warning for unknown
// expression operators if expressions are permissive".
func (v *Validator) validateOutcome(prefix string, outcome map[string]any, issues *[]ValidationIssue) {
	for key, val := range outcome {
		v.validateExpressionValue(prefix+"."+key, val, issues)
	}
}

func (v *Validator) validateExpressionValue(path string, val any, issues *[]ValidationIssue) {
	add := func(p, msg string, sev Severity) {
		*issues = append(*issues, ValidationIssue{Path: p, Message: msg, Severity: sev})
	}
	switch x := val.(type) {
	case map[string]any:
		if !isExpressionShape(x) {
			return
		}
		for opName, arg := range x {
			if !isKnownExpressionOperator(opName) {
				add(path, fmt.Sprintf("unknown expression operator %q", opName), SeverityWarning)
				continue
			}
			v.validateExpressionValue(path, arg, issues)
		}
	case []any:
		for i, item := range x {
			v.validateExpressionValue(fmt.Sprintf("%s[%d]", path, i), item, issues)
		}
	}
}

func isKnownExpressionOperator(name string) bool {
	switch name {
	case "$add", "$sub", "$mul", "$div", "$concat", "$min", "$max",
		"$coalesce", "$ref", "$cond", "$lookup", "$script":
		return true
	default:
		return false
	}
}
