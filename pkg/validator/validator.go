package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON (or form) name so messages match the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// Validate validates a struct using go-playground/validator tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors}
		}
		return err
	}
	return nil
}

// validateVar validates a single value against a tag string.
func validateVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors, name: field}
		}
		return err
	}
	return nil
}

// Check validates a client-side draft. A failure is returned as an
// apperrors validation error whose message names the first bad field.
func Check(s any) error {
	return asAppError(Validate(s))
}

// CheckVar validates a single value and returns failures in the same shape
// as Check.
func CheckVar(field string, value any, tag string) error {
	return asAppError(validateVar(field, value, tag))
}

func asAppError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return apperrors.Validation(ve.First())
	}
	return err
}

// ValidationError wraps validator.ValidationErrors with a user-friendly message.
type ValidationError struct {
	Errors validator.ValidationErrors

	// name overrides the field name for Var checks, which have none.
	name string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", e.field(err), msgForTag(err)))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns a map of field names to error messages.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, err := range e.Errors {
		fields[e.field(err)] = msgForTag(err)
	}
	return fields
}

// First returns a sentence describing the first failing field, suitable for
// showing to a user, e.g. "title must be at most 100 characters".
func (e *ValidationError) First() string {
	if len(e.Errors) == 0 {
		return ""
	}
	fe := e.Errors[0]
	return e.field(fe) + " " + msgForTag(fe)
}

func (e *ValidationError) field(fe validator.FieldError) string {
	if e.name != "" {
		return e.name
	}
	return fe.Field()
}

func msgForTag(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	isNumber := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		isNumber = true
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		switch {
		case isList:
			return fmt.Sprintf("must have at least %s items", fe.Param())
		case isNumber:
			return fmt.Sprintf("must be at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		switch {
		case isList:
			return fmt.Sprintf("must have at most %s items", fe.Param())
		case isNumber:
			return fmt.Sprintf("must be at most %s", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "required_unless", "required_if":
		return "is required"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
