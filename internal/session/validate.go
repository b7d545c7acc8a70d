package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/hackdojo/hackdojo/internal/api"
)

// custom validation tags
const (
	notBlankTag       = "notblank"
	passwordPolicyTag = "password_policy"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(passwordPolicyTag, passwordPolicy)
	return v
}

type loginInput struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

type registerInput struct {
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank,min=8,password_policy"`
	Role     string `json:"role" validate:"oneof=student parent"`
}

func validateLogin(email, password string) error {
	return toValidationError(validate.Struct(loginInput{Email: email, Password: password}))
}

func validateRegistration(email, password string, role api.Role) error {
	return toValidationError(validate.Struct(registerInput{
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     string(role),
	}))
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

// passwordPolicy requires at least one upper-case letter, one lower-case
// letter and one digit.
func passwordPolicy(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// toValidationError reports the first failing field.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &api.ValidationError{Message: err.Error(), Err: err}
	}
	fe := verrs[0]
	return &api.ValidationError{Field: fe.Field(), Message: describe(fe), Err: err}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case passwordPolicyTag:
		return "must contain upper-case and lower-case letters plus a digit"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
