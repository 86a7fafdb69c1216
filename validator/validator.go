package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"toolx/entity"

	"github.com/go-playground/validator/v10"
)

// messages maps a failed tag to its message; %[1]s is the json field name, %[2]s the tag param.
var messages = map[string]string{
	"required":    "%[1]s is required",
	"len":         "%[1]s must be exactly %[2]s characters long",
	"numeric":     "%[1]s must contain digits only",
	"email":       "%[1]s must be a valid email address",
	"email_shape": "%[1]s must be a valid email address",
	"oneof":       "%[1]s must be one of: %[2]s",
}

// Validator wraps the go-playground validator and reports request problems as
// *entity.ValidationError.
type Validator struct {
	validator *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// field names in messages follow the json tags clients send
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("email_shape", validateEmailShape)

	return &Validator{validator: v}
}

// ValidateStruct checks s against its validate tags. Every failing field is listed in the
// returned error's Reason.
func (v *Validator) ValidateStruct(s interface{}) error {
	if s == nil {
		return &entity.ValidationError{Reason: "input cannot be nil"}
	}

	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &entity.ValidationError{Reason: fmt.Sprintf("validation error: %v", err)}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &entity.ValidationError{Reason: "validation failed: " + strings.Join(problems, "; ")}
}

func describe(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func validateEmailShape(fl validator.FieldLevel) bool {
	return emailShape.MatchString(fl.Field().String())
}
