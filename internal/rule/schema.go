// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaState holds the compiled DSLRule schema, built once and reused
// across GenerateSchema/ValidateAgainstSchema calls.
type schemaState struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

var globalSchemaState = &schemaState{}

// SchemaID is the $id stamped onto the generated JSON Schema document.
const SchemaID = "https://ruleengine.dev/schemas/dsl-rule.schema.json"

// GenerateSchema reflects DSLRule into a JSON Schema document, used by
// `cmd/ruleengine gen-schema` to publish a contract hosts can validate
// authored rules against before ever constructing a DSLRule value.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&DSLRule{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Rule Engine DSL Rule"
	schema.Description = "Schema for the conditional rule engine's JSON rule surface syntax"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("schema").Hint("failed to marshal schema").Wrap(err)
	}
	return append(data, '\n'), nil
}

// ValidateAgainstSchema checks raw (a JSON-encoded rule document) against
// the generated DSLRule schema. This is a structural pre-check, distinct
// from Validator.Validate's semantic checks (operator names, clause
// completeness) — it catches malformed JSON shapes before a DSLRule value
// is even decoded.
func ValidateAgainstSchema(raw []byte) error {
	if len(raw) == 0 {
		return oops.In("schema").New("rule document is empty")
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return oops.In("schema").Hint("invalid JSON").Wrap(err)
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return oops.In("schema").Hint("failed to compile schema").Wrap(err)
	}
	if err := sch.Validate(data); err != nil {
		return oops.In("schema").Hint("schema validation failed").Wrap(err)
	}
	return nil
}

func getCompiledSchema() (*jschema.Schema, error) {
	globalSchemaState.once.Do(func() {
		globalSchemaState.schema, globalSchemaState.err = compileSchema()
	})
	return globalSchemaState.schema, globalSchemaState.err
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.In("schema").Hint("failed to parse schema JSON").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("dsl-rule.schema.json", schemaData); err != nil {
		return nil, oops.In("schema").Hint("failed to add schema resource").Wrap(err)
	}
	return c.Compile("dsl-rule.schema.json")
}

// ResetSchemaCache clears the cached compiled schema. Used by tests.
func ResetSchemaCache() {
	globalSchemaState = &schemaState{}
}
