package handlers

import (
	"github.com/go-playground/validator/v10"

	"uk.co.dudmesh.viberrelay/internal/model"
)

type selfValidating interface {
	Validate() error
}

// Validator plugs go-playground/validator into echo's Context.Validate.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: model.NewValidator()}
}

func (v *Validator) Validate(i interface{}) error {
	if s, ok := i.(selfValidating); ok {
		return s.Validate()
	}
	return model.AsValidationError(v.validate.Struct(i))
}
