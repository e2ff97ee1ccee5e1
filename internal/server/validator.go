package server

import (
	"reflect"

	"ctchen222/galactic-tictactoe/internal/validator"

	playground "github.com/go-playground/validator/v10"
)

// structValidator lets gin's binding run the shared validator, so request
// models are checked against their `validate` tags.
type structValidator struct {
	validate *playground.Validate
}

func newStructValidator() *structValidator {
	return &structValidator{validate: validator.GetValidator()}
}

func (v *structValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.ValidateStruct(value.Elem().Interface())
	case reflect.Struct:
		return v.validate.Struct(obj)
	default:
		return nil
	}
}

func (v *structValidator) Engine() any {
	return v.validate
}
