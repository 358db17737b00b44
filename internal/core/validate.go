package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the validate tags of v and reports the first failing
// field as a ValidationError.
func ValidateStruct(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("", err.Error())
	}
	fe := verrs[0]
	return NewValidationError(fieldName(fe), reasonFor(fe))
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// Validate checks a card as stored: tags plus a positive limit.
func (c Card) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	return validatePositive("limitTotal", c.LimitTotal)
}

func (e Envelope) Validate() error {
	if err := ValidateStruct(e); err != nil {
		return err
	}
	return validatePositive("monthlyLimit", e.MonthlyLimit)
}

// Validate rejects unknown summary cards and repeated ones.
func (p UserPrefs) Validate() error {
	if err := ValidateStruct(p); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.SummaryOrder))
	for _, k := range p.SummaryOrder {
		if _, dup := seen[k]; dup {
			return NewValidationError("summaryOrder", "duplicate entry "+k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
