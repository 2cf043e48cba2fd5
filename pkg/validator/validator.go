package validator

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// Report json field names so errors match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("clock", validateClock)

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// validateClock accepts HH:MM on a 24 hour clock.
func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}

	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = field + " is required"
		case "required_if":
			errs[field] = field + " is required when " + e.Param()
		case "required_unless":
			errs[field] = field + " is required unless " + e.Param()
		case "required_with":
			errs[field] = field + " is required together with " + e.Param()
		case "email":
			errs[field] = field + " must be a valid email address"
		case "min":
			if e.Kind() == reflect.String {
				errs[field] = field + " must be at least " + e.Param() + " characters"
			} else {
				errs[field] = field + " must be at least " + e.Param()
			}
		case "max":
			if e.Kind() == reflect.String {
				errs[field] = field + " must be at most " + e.Param() + " characters"
			} else {
				errs[field] = field + " must be at most " + e.Param()
			}
		case "gt":
			errs[field] = field + " must be greater than " + e.Param()
		case "gte":
			errs[field] = field + " must be greater than or equal to " + e.Param()
		case "lte":
			errs[field] = field + " must be less than or equal to " + e.Param()
		case "oneof":
			errs[field] = field + " must be one of: " + e.Param()
		case "datetime":
			errs[field] = field + " must match the format " + e.Param()
		case "clock":
			errs[field] = field + " must be a time in HH:MM format"
		case "uuid":
			errs[field] = field + " must be a valid UUID"
		case "latitude", "longitude":
			errs[field] = field + " must be a valid " + e.Tag()
		default:
			errs[field] = field + " is invalid"
		}
	}

	return errs
}
