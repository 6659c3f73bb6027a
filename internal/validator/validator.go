package validator

import (
	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	return &CustomValidator{validator: v}
}

// Validate checks the request struct. The contract is deliberately
// loose: confirmation number and both name fields must be present and
// non-empty, nothing more. Airlines vary too much in confirmation
// formats to validate beyond that here.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
