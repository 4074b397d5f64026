package core

// validation.go checks product payloads before any store call.
//
// Rules are declared as validator struct tags on ProductInput. All tags run,
// then the single error reported is chosen by rule precedence:
//
//  1. required fields (name, description, category, price, barcode, availability)
//  2. price is a finite, non-negative number
//  3. availability is exactly "In Stock" or "Out of Stock"
//  4. priceUnit, when present, is a known unit
//  5. areaLocation, when present, is A1..A10
//  6. imageKeys holds at most two keys
//
// Within one rule, struct field order decides.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a user-fixable problem with the input.
type ValidationError struct {
	Field   string // JSON field name, empty for whole-body problems
	Value   string // The offending value, when useful
	Message string // Human-readable message returned to clients
}

func (e ValidationError) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON names so messages match the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
		_, ok := Price(fl.Field().String()).Float()
		return ok
	})
	mustRegister(v, "nonnegative", func(fl validator.FieldLevel) bool {
		f, _ := Price(fl.Field().String()).Float()
		return f >= 0
	})
	mustRegister(v, "availability", func(fl validator.FieldLevel) bool {
		return IsAvailability(fl.Field().String())
	})
	mustRegister(v, "priceunit", func(fl validator.FieldLevel) bool {
		return IsPriceUnit(fl.Field().String())
	})
	mustRegister(v, "arealocation", func(fl validator.FieldLevel) bool {
		return IsAreaLocation(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// rulePrecedence orders validator tags; lower runs first.
var rulePrecedence = map[string]int{
	"required":     0,
	"finite":       1,
	"nonnegative":  1,
	"availability": 2,
	"priceunit":    3,
	"arealocation": 4,
	"max":          5,
}

// Validate checks in against the product rules and returns the first
// broken rule as a ValidationError, or nil.
func Validate(in ProductInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ValidationError{Message: err.Error()}
	}

	first := fieldErrs[0]
	for _, fe := range fieldErrs[1:] {
		if precedence(fe.Tag()) < precedence(first.Tag()) {
			first = fe
		}
	}

	return ValidationError{
		Field:   first.Field(),
		Value:   fmt.Sprint(first.Value()),
		Message: ruleMessage(first),
	}
}

func precedence(tag string) int {
	if p, ok := rulePrecedence[tag]; ok {
		return p
	}
	return len(rulePrecedence)
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "finite":
		return "price must be a number"
	case "nonnegative":
		return "price must not be negative"
	case "availability":
		return "availability must be In Stock or Out of Stock"
	case "priceunit":
		return "priceUnit must be one of " + strings.Join(PriceUnits, ", ")
	case "arealocation":
		return "areaLocation must be one of " + strings.Join(AreaLocations, ", ")
	case "max":
		return fmt.Sprintf("%s can contain at most %s items", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
