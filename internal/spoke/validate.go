package spoke

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
)

// SchemaValidator compiles and caches JSON Schemas for tool input
// validation, per the tagged dispatch table's declared inputSchema.
type SchemaValidator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator returns an empty validator; schemas compile lazily on
// first use of a given qualified tool name.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks arguments against the named tool's inputSchema,
// compiling and caching it on first use. A compile failure or a schema
// mismatch both return a KindInvalidParams error.
func (v *SchemaValidator) Validate(qualifiedName string, schema json.RawMessage, arguments json.RawMessage) error {
	compiled, err := v.compile(qualifiedName, schema)
	if err != nil {
		return ferrors.Wrap(ferrors.KindInvalidParams, "schema for "+qualifiedName+" failed to compile", err)
	}
	if compiled == nil {
		return nil
	}

	var instance any
	if err := json.Unmarshal(arguments, &instance); err != nil {
		return ferrors.Wrap(ferrors.KindInvalidParams, "arguments are not valid JSON", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return ferrors.Wrap(ferrors.KindInvalidParams, fmt.Sprintf("arguments for %s failed validation", qualifiedName), err)
	}
	return nil
}

func (v *SchemaValidator) compile(qualifiedName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[qualifiedName]; ok {
		return s, nil
	}

	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	resourceName := "mem://" + qualifiedName + ".json"
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	v.compiled[qualifiedName] = compiled
	return compiled, nil
}
