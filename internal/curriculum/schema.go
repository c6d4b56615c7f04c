package curriculum

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed curriculum.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// SchemaError lists the JSON Schema violations of a curriculum document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "curriculum schema: " + strings.Join(e.Violations, "; ")
}

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// validateSchema checks a generically decoded document against the embedded schema.
func validateSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile curriculum schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate curriculum: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &SchemaError{Violations: violations}
}
