// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// GrammarVersion stamps the AST shape produced by the Normalizer (analogous
// to the teacher's dsl.GrammarVersion). Bump when a Node/ResolvedValue
// field is added or reinterpreted in a way that changes cached-AST
// behavior (spec.md §3 invariant 3).
const GrammarVersion = 1

// EngineVersion is this build's semver identity, checked against a rule's
// optional EngineVersion constraint (SPEC_FULL.md §10.1).
var EngineVersion = semver.MustParse("1.0.0")

// checkEngineVersion validates constraint (e.g. ">=1.2.0") against
// EngineVersion. An empty constraint is always satisfied. Returns a plain
// error describing the mismatch; the Validator turns this into a
// ValidationIssue (SPEC_FULL.md §10.1: incompatible rules fail validation,
// not normalization).
func checkEngineVersion(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid engineVersion constraint %q: %w", constraint, err)
	}
	if !c.Check(EngineVersion) {
		return fmt.Errorf("engine version %s does not satisfy %q", EngineVersion.String(), constraint)
	}
	return nil
}
