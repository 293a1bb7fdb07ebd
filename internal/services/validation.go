package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "username", usernamePattern)
	mustRegister(v, "slug", slugPattern)
	mustRegister(v, "hexcolor6", colorPattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// validateStruct runs the struct tag rules and returns all failures as a
// ValidationError.
func validateStruct(s interface{}) *ValidationError {
	verr := &ValidationError{}
	err := validate.Struct(s)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("non_field_errors", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), fieldMessage(fe))
	}
	return verr
}

// fieldPath drops the struct name from the namespace: "RecipeInput.ingredients[0].amount" -> "ingredients[0].amount"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "hexcolor6":
		return "Enter a color in #RRGGBB format."
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
