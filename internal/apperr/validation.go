package apperr

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationDetails maps each failed field to the rule it broke.
func ValidationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = e.Tag()
	}
	return details
}

// FromValidator converts a validator error into a validation Error.
func FromValidator(message string, err error) *Error {
	if err == nil {
		return nil
	}
	return Validation(message, ValidationDetails(err))
}
