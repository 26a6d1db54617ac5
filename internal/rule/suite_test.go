// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule_test

import (
	"testing"

	"go.uber.org/goleak"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// TestMain verifies the AST cache's TTL bookkeeping and the expression
// evaluator's $script sandbox don't leak goroutines across the package's
// test run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRuleEngineContract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rule Engine Contract Suite")
}
