// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package operator holds the named comparison predicates the rule engine's
// AST comparison nodes dispatch to (spec.md §4.1).
package operator

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Predicate is a binary comparison over already-resolved values: the field
// value (left) and the rule-authored value (right).
type Predicate func(left, right any) bool

// Registry manages operator registration and lookup. It is safe for
// concurrent use, though the engine's contract (spec.md §5) only requires
// this for the window around RegisterOperator calls.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewRegistry creates a registry pre-populated with the built-in operators.
func NewRegistry() *Registry {
	r := &Registry{predicates: make(map[string]Predicate)}
	registerBuiltins(r)
	return r
}

// Register inserts or overwrites the predicate for name. Per spec.md §4.1
// this always succeeds — re-registering an existing name overwrites it,
// which is how RegisterOperator (engine facade) replaces a built-in.
func (r *Registry) Register(name string, fn Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = fn
}

// Get returns the predicate for name, or an UnknownOperator error if no
// operator by that name has been registered.
func (r *Registry) Get(name string) (Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.predicates[name]
	if !ok {
		return nil, oops.Code("UNKNOWN_OPERATOR").With("operator", name).Errorf("unknown operator %q", name)
	}
	return fn, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.predicates[name]
	return ok
}

// Names returns the sorted set of registered operator names, without
// exposing the map.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsComparisonOperator reports whether name has the shape of a comparison
// operator: any "$"-prefixed name other than the logical operators
// $and/$or/$not (which the normalizer handles separately and which $diff's
// own operator field must not be — spec.md §4.3). It does not check that
// name is registered; callers pair it with Has.
func IsComparisonOperator(name string) bool {
	return strings.HasPrefix(name, "$") && !isLogicalName(name)
}

func isLogicalName(name string) bool {
	switch name {
	case "$and", "$or", "$not":
		return true
	default:
		return false
	}
}
