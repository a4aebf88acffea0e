package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structError turns the first validator failure into a validation error
// naming the offending field, e.g. "social_links[0].url".
func structError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation(op, "invalid data")
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return apperror.Validation(op, field+" is required")
	case "max":
		return apperror.Validation(op, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "http_url":
		return apperror.Validation(op, field+" must be a valid http(s) URL")
	case "oneof":
		return apperror.Validation(op, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	default:
		return apperror.Validation(op, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
}
