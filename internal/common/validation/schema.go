package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

// MaxQueryLength bounds the free-text query accepted by the API.
const MaxQueryLength = 1000

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins the individual errors; it is only meaningful when !Valid.
func (r *ValidationResult) Error() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile checks that a schema document is itself valid.
func Compile(schema map[string]interface{}) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// ValidateDocument validates raw JSON bytes. Malformed JSON is reported as
// a single INVALID_JSON error rather than a Go error.
func (s *Schema) ValidateDocument(doc []byte) *ValidationResult {
	if !json.Valid(doc) {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: "document is not valid JSON",
				Code:    "INVALID_JSON",
			}},
		}
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "VALIDATION_ERROR",
			}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		}
	}
	return &ValidationResult{Valid: false, Errors: errs}
}

// ValidateQuery checks the analytics query parameter. Empty text is allowed
// and left for the classifier to reject.
func ValidateQuery(query string) *ValidationResult {
	errs := []ValidationError{}

	if !utf8.ValidString(query) {
		errs = append(errs, ValidationError{
			Field:   "query",
			Message: "value must be valid UTF-8",
			Code:    "INVALID_ENCODING",
		})
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		errs = append(errs, ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("value must be at most %d characters", MaxQueryLength),
			Code:    "MAX_LENGTH_VIOLATION",
		})
	}

	return &ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
