// Package validation checks user payloads before they reach storage.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const MsgInvalidEmail = "Invalid email format"

// Violation is a single field-level failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email,dotted_domain"`
}

// UpdateUserInput carries only the fields a client supplied; nil means
// "leave unchanged".
type UpdateUserInput struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,required"`
	Email *string `json:"email,omitempty" validate:"omitnil,required,email,dotted_domain"`
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// validator's email tag accepts single-label domains such as "a@b".
	if err := v.RegisterValidation("dotted_domain", dottedDomain); err != nil {
		panic(fmt.Sprintf("validation: register dotted_domain: %v", err))
	}

	return &Validator{validate: v}
}

func (v *Validator) ValidateCreate(in CreateUserInput) []Violation {
	return v.check(in)
}

func (v *Validator) ValidateUpdate(in UpdateUserInput) []Violation {
	return v.check(in)
}

func (v *Validator) check(in any) []Violation {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, Violation{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return violations
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", capitalize(fe.Field()))
	case "email", "dotted_domain":
		return MsgInvalidEmail
	default:
		return fmt.Sprintf("%s is invalid", capitalize(fe.Field()))
	}
}

func dottedDomain(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}

	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}

	domain := s[at+1:]
	return strings.Contains(strings.Trim(domain, "."), ".")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
