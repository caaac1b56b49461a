// internal/common/validation/schema.go
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// lookupRequestSchema guards the submit/poll surface and the worker's job
// variables: whatever path a lookup enters through, the same constraints
// apply before anything touches the portal.
const lookupRequestSchema = `{
	"type": "object",
	"properties": {
		"clientName": { "type": "string", "maxLength": 255 },
		"courtLabel": { "type": "string", "minLength": 1, "maxLength": 255 },
		"caseNumber": { "type": "string", "minLength": 1, "maxLength": 20, "pattern": "^[0-9]+$" },
		"caseYear":   { "type": "integer", "minimum": 1980, "maximum": 2100 }
	},
	"required": ["courtLabel", "caseNumber", "caseYear"],
	"additionalProperties": true
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var lookupSchema = gojsonschema.NewStringLoader(lookupRequestSchema)

// ValidateLookupRequest validates a raw lookup payload against the schema.
func ValidateLookupRequest(payload []byte) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(lookupSchema, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}

// ValidateLookupRequestObject marshals any value and validates it.
func ValidateLookupRequestObject(v interface{}) (*ValidationResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for validation: %w", err)
	}
	return ValidateLookupRequest(raw)
}

// ErrorSummary flattens validation errors into one message.
func (r *ValidationResult) ErrorSummary() string {
	if r.Valid || len(r.Errors) == 0 {
		return ""
	}
	s := ""
	for i, e := range r.Errors {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return s
}
