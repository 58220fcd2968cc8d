// Package validation checks request and domain structs against their
// `validate` tags and reports every failing field at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalid is wrapped by every *Error so callers can match with errors.Is.
var ErrInvalid = errors.New("validation failed")

// Violation describes one failed rule on one field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result collects violations. The zero value is a passing result.
type Result struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether no rule failed.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Add appends a violation produced by hand-written checks.
func (r *Result) Add(field, rule, message string) {
	r.Violations = append(r.Violations, Violation{Field: field, Rule: rule, Message: message})
}

// Err returns nil for a passing result and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	violations := make([]Violation, len(r.Violations))
	copy(violations, r.Violations)
	return &Error{Violations: violations}
}

// Error is returned when a Result carries violations.
type Error struct {
	Violations []Violation `json:"violations"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s %s", v.Field, v.Message))
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Failf builds a single-violation error.
func Failf(field, rule, format string, args ...any) error {
	var r Result
	r.Add(field, rule, fmt.Sprintf(format, args...))
	return r.Err()
}

var validate = newValidator()

// Struct validates v against its tags.
func Struct(v any) Result {
	var result Result

	err := validate.Struct(v)
	if err == nil {
		return result
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.Add("", "invalid", err.Error())
		return result
	}

	for _, fe := range fieldErrs {
		result.Add(fieldPath(fe), fe.Tag(), message(fe))
	}
	return result
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Decimals are validated through their canonical string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "uf", isStateCode)
	mustRegister(v, "dec_gte0", decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	mustRegister(v, "dec_pct", decimalRule(func(d decimal.Decimal) bool {
		return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
	}))

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func decimalRule(check func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return check(d)
	}
}

// stateCodes lists the Brazilian federative units.
var stateCodes = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {}, "ES": {}, "GO": {},
	"MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {}, "PB": {}, "PR": {}, "PE": {}, "PI": {},
	"RJ": {}, "RN": {}, "RS": {}, "RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

// IsStateCode reports whether code is a known two-letter state code.
func IsStateCode(code string) bool {
	_, ok := stateCodes[code]
	return ok
}

func isStateCode(fl validator.FieldLevel) bool {
	return IsStateCode(fl.Field().String())
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "uf":
		return "must be a two-letter state code"
	case "dec_gte0":
		return "must not be negative"
	case "dec_pct":
		return "must be between 0 and 100"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
