package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validationMessage turns validator errors into a field -> message map the
// widget can show. Other errors pass through as plain strings.
func validationMessage(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	fields := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			fields[field] = "field is required"
		case "oneof":
			fields[field] = "must be one of: " + e.Param()
		case "min":
			fields[field] = "must be at least " + e.Param() + " characters"
		case "max":
			fields[field] = "must be at most " + e.Param()
		default:
			fields[field] = "validation failed on " + e.Tag()
		}
	}
	return fields
}
