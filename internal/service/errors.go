package service

import (
	"errors"
	"fmt"

	"go-inventory-pos/pkg/validator"
)

// Error kinds every service reports. Callers classify with errors.Is;
// the wrapped message carries the detail.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorage           = errors.New("storage failure")
)

// validate runs struct validation and reports the first failure as ErrInvalidInput.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, errs[0].Error())
	}
	return nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
