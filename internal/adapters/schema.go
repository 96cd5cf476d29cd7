package adapters

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/arogya-path/kernel/internal/domain"
)

//go:embed schemas
var schemaFS embed.FS

var (
	schemaOnce  sync.Once
	schemaCache map[string]*jsonschema.Schema
	schemaErr   error
)

// loadSchemas compiles every embedded schema once, on first use, rather
// than re-parsing the same JSON Schema document on every adapter call.
func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			schemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		for _, entry := range entries {
			data, err := schemaFS.ReadFile("schemas/" + entry.Name())
			if err != nil {
				schemaErr = err
				return
			}
			if err := compiler.AddResource(entry.Name(), bytes.NewReader(data)); err != nil {
				schemaErr = fmt.Errorf("add schema resource %s: %w", entry.Name(), err)
				return
			}
		}
		schemaCache = make(map[string]*jsonschema.Schema, len(entries))
		for _, entry := range entries {
			sch, err := compiler.Compile(entry.Name())
			if err != nil {
				schemaErr = fmt.Errorf("compile schema %s: %w", entry.Name(), err)
				return
			}
			schemaCache[entry.Name()] = sch
		}
	})
	return schemaCache, schemaErr
}

// validateAgainstSchema decodes raw JSON into a generic document and
// checks it against the named embedded schema, so a malformed adapter
// response is caught at the boundary as an InfrastructureError instead of
// propagating a zero-valued struct into the validator.
func validateAgainstSchema(schemaName string, raw []byte) error {
	schemas, err := loadSchemas()
	if err != nil {
		return &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: fmt.Errorf("load adapter schemas: %w", err)}
	}
	sch, ok := schemas[schemaName]
	if !ok {
		return &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: fmt.Errorf("unknown schema %s", schemaName)}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: fmt.Errorf("decode response for schema %s: %w", schemaName, err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: fmt.Errorf("response failed schema %s: %w", schemaName, err)}
	}
	return nil
}
