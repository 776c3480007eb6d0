package main

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	slugLenMin = 1
	slugLenMax = 50
)

var slugPattern = regexp.MustCompile(fmt.Sprintf("^[a-z0-9-]{%d,%d}$", slugLenMin, slugLenMax))

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return validSlug(fl.Field().String())
	})
	return v
}

func validSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

func checkSlug(slug string) error {
	if !validSlug(slug) {
		return newError(InvalidInput,
			"slug must match [a-z0-9-]+ and be %d-%d characters", slugLenMin, slugLenMax)
	}
	return nil
}

// validateStruct runs the struct tags on v and converts the first failure
// into an InvalidInput error.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return newError(InvalidInput, "invalid request")
	}
	fe := fields[0]
	switch fe.Tag() {
	case "required":
		return newError(InvalidInput, "%s is required", fe.Field())
	case "slug":
		return checkSlug(fe.Value().(string))
	case "max":
		return newError(InvalidInput, "%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return newError(InvalidInput, "%s is invalid", fe.Field())
	}
}
