package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used by all entity Validate
// methods. Struct tags drive the field-level rules; cross-field lifecycle
// invariants are checked separately by each entity.
var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes a single invalid field on an entity.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the field-level error list returned by every
// repository write before any row is touched. It satisfies error so it
// can flow through the usual %w chains.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a ValidationErrors list.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// checkStruct runs tag validation on v and converts the result into a
// ValidationErrors list. Returns nil when v is valid.
func checkStruct(v any) ValidationErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Field: "_", Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return out
}
