// Package schema validates raw workflow documents against the workflow JSON schema
// before they are decoded into models.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchema []byte

// ErrInvalidDocument is wrapped by every schema violation.
var ErrInvalidDocument = errors.New("workflow document does not match schema")

// ValidationError lists the individual schema violations of a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

var (
	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
)

func workflowDocumentSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(workflowSchema))
	})

	return compiled, compileErr
}

// Raw returns the workflow document schema.
func Raw() []byte {
	return workflowSchema
}

// ValidateWorkflow checks a JSON workflow document. Structural graph rules
// (single start node, edges referencing nodes) are left to models.Workflow.Validate.
func ValidateWorkflow(document []byte) error {
	return validate(gojsonschema.NewBytesLoader(document))
}

// ValidateWorkflowValue checks an already decoded document such as map[string]any.
func ValidateWorkflowValue(document any) error {
	return validate(gojsonschema.NewGoLoader(document))
}

func validate(loader gojsonschema.JSONLoader) error {
	s, err := workflowDocumentSchema()
	if err != nil {
		return fmt.Errorf("failed to compile workflow schema: %w", err)
	}

	result, err := s.Validate(loader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return &ValidationError{Problems: problems}
	}

	return nil
}
