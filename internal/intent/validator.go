package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema is built once and reused across calls: the validator is
// pure and the schema never changes at runtime. Grounded on
// goadesign-goa-ai/registry/service.go's validatePayloadJSONAgainstSchema,
// which compiles a schema via NewCompiler/AddResource/Compile before
// calling schema.Validate on the decoded payload.
var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func schemaInstance() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var schemaDoc any
		if err := json.Unmarshal([]byte(intentJSONSchema), &schemaDoc); err != nil {
			compileErr = fmt.Errorf("intent: unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("intent.json", schemaDoc); err != nil {
			compileErr = fmt.Errorf("intent: add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("intent.json")
	})
	return compiledSchema, compileErr
}

// Validate checks payload against the closed intent schema. On success it
// returns the decoded Intent; on failure it returns a *ValidationError
// carrying one {path, message} entry per schema violation (spec §4.5, S2).
func Validate(payload []byte) (Intent, error) {
	schema, err := schemaInstance()
	if err != nil {
		return Intent{}, err
	}

	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return Intent{}, fmt.Errorf("intent: decode payload: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			return Intent{}, &ValidationError{Errors: flatten(ve)}
		}
		return Intent{}, &ValidationError{Errors: []FieldError{{Path: "", Message: err.Error()}}}
	}

	var out Intent
	if err := json.Unmarshal(payload, &out); err != nil {
		return Intent{}, fmt.Errorf("intent: decode validated payload: %w", err)
	}
	return out, nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		*target = ve
		return true
	}
	return false
}

// flatten walks a jsonschema.ValidationError's Causes tree and collects
// one {path, message} entry per leaf violation.
func flatten(ve *jsonschema.ValidationError) []FieldError {
	if ve == nil {
		return nil
	}
	if len(ve.Causes) == 0 {
		return []FieldError{{Path: strings.Join(ve.InstanceLocation, "/"), Message: ve.Error()}}
	}
	var out []FieldError
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
