package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

// Error renders the failure the way API clients see it.
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("field '%s' failed on tag '%s'", e.FailedField, e.Tag)
}

var validate = validator.New()

// maxPrice is the first value that no longer fits decimal(12,2).
var maxPrice = decimal.New(1, 10)

func init() {
	// Rejects strings that are empty after trimming whitespace
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// Prices must fit decimal(12,2): at most two fractional digits, below 1e10
	validate.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		d := fieldDecimal(fl)
		return d.Equal(d.Round(2)) && d.Abs().LessThan(maxPrice)
	})

	// Prices are decimal.Decimal; validate them as float64 so gte/lte tags apply
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// fieldDecimal recovers the decimal behind a field that the custom type func
// already turned into a float64.
func fieldDecimal(fl validator.FieldLevel) decimal.Decimal {
	parent := fl.Parent()
	for parent.Kind() == reflect.Ptr && !parent.IsNil() {
		parent = parent.Elem()
	}
	if parent.Kind() == reflect.Struct {
		f := parent.FieldByName(fl.StructFieldName())
		for f.Kind() == reflect.Ptr && !f.IsNil() {
			f = f.Elem()
		}
		if f.IsValid() && f.CanInterface() {
			if d, ok := f.Interface().(decimal.Decimal); ok {
				return d
			}
		}
	}
	return decimal.NewFromFloat(fl.Field().Float())
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "request", Tag: "struct"}}
		}
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}
