// Package forms validates request payloads before they leave the process.
//
// Rules are declared with `validate` struct tags and evaluated by
// go-playground/validator. Failures are returned as an *api.Error of kind
// validation, keyed by the JSON field name, so callers handle client-side and
// server-side validation the same way.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const passwordAlphabet = "@$!%*#?&"

// Validator validates structs with lazy initialization.
type Validator struct {
	once     sync.Once
	validate *validator.Validate
}

var std Validator

// Validate checks obj against its `validate` tags using the shared Validator.
func Validate(obj any) error {
	return std.Struct(obj)
}

// Struct validates obj. Non-struct values are accepted unchanged.
func (v *Validator) Struct(obj any) error {
	if kindOfData(obj) != reflect.Struct {
		return nil
	}
	v.lazyinit()

	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], describe(fe))
	}
	return api.NewValidationError(fields)
}

func (v *Validator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.RegisterTagNameFunc(jsonName)
		_ = v.validate.RegisterValidation("username", validUsername)
		_ = v.validate.RegisterValidation("password_policy", validPassword)
	})
}

func validUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// validPassword requires at least one letter and one digit, and only
// letters, digits, and the characters in passwordAlphabet.
func validPassword(fl validator.FieldLevel) bool {
	return PasswordAllowed(fl.Field().String())
}

// PasswordAllowed reports whether s satisfies the password character policy.
func PasswordAllowed(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordAlphabet, r):
		default:
			return false
		}
	}
	return letter && digit
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "username":
		return "Username can only contain letters, numbers, and underscores."
	case "password_policy":
		return "Password must contain at least one letter and one number."
	case "eqfield":
		return "Passwords do not match."
	default:
		return fmt.Sprintf("Failed the %q rule.", fe.Tag())
	}
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// kindOfData returns the Kind of data, looking through one pointer.
func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	kind := value.Kind()
	if kind == reflect.Ptr {
		if value.IsNil() {
			return reflect.Invalid
		}
		kind = value.Elem().Kind()
	}
	return kind
}
