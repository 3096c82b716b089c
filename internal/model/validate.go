package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = NewValidator()

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the message against the closed per-type schema.
func (m *OutboundMessage) Validate() error {
	if m == nil {
		return &ValidationError{Reason: "message is required"}
	}
	if !m.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported message type %q", m.Type)}
	}
	return AsValidationError(validate.Struct(m))
}

// AsValidationError converts validator failures into a ValidationError naming
// the first offending field. Other errors pass through untouched.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &ValidationError{Field: field, Reason: reason}
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return &ValidationError{Reason: invalid.Error()}
	}
	return err
}
