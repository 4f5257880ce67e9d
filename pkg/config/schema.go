package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fixture.schema.json
var schemaJSON []byte

const schemaURL = "fixture.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the JSON Schema fixtures are validated against.
func Schema() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// FieldError is a single schema violation.
type FieldError struct {
	// Path is a JSON pointer into the document, e.g. "/rules/0/result".
	Path    string
	Message string
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Source string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	prefix := "invalid fixture"
	if e.Source != "" {
		prefix = "invalid fixture " + e.Source
	}
	return prefix + ":\n  " + strings.Join(msgs, "\n  ")
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *ValidationError) Hint() string {
	return "Run `mysqlmock validate -f <file>` and compare the fixture with the examples in the documentation."
}

func validateDocument(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("fixture schema: %w", err)
	}
	err = s.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	out := &ValidationError{}
	collectSchemaErrors(verr, out)
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Path < out.Errors[j].Path })
	return out
}

// collectSchemaErrors flattens the leaves of the validator's error tree.
func collectSchemaErrors(err *jsonschema.ValidationError, out *ValidationError) {
	if len(err.Causes) == 0 {
		out.Errors = append(out.Errors, FieldError{Path: err.InstanceLocation, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, out)
	}
}
