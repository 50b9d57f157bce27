package jsonresponse

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationError renders a binding error. Field validation failures get a
// readable per-field message instead of the raw validator output.
func ValidationError(err error) jsonError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return Error(err)
	}

	field := ve[0]

	var msg string

	switch field.Tag() {
	case "required":
		msg = field.Field() + " is required"
	case "alphanum":
		msg = field.Field() + " must contain only letters and numbers"
	case "email":
		msg = field.Field() + " must be a valid email address"
	case "min":
		msg = field.Field() + " must be at least " + field.Param()
	case "max":
		msg = field.Field() + " must be at most " + field.Param()
	default:
		msg = field.Field() + " is invalid"
	}

	return jsonError{Error: msg}
}
