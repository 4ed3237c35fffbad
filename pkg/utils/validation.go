package utils

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "mentraflow-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("minwords", wordCount(func(n, bound int) bool { return n >= bound }))
	v.RegisterValidation("maxwords", wordCount(func(n, bound int) bool { return n <= bound }))
	return v
}

// wordCount builds a string validator comparing the field's word count
// with the tag parameter.
func wordCount(cmp func(n, bound int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		bound, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return cmp(len(strings.Fields(fl.Field().String())), bound)
	}
}

// ValidateStruct validates s against its `validate` tags and returns a
// validation AppError whose details map field paths to messages.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	details := make(map[string]interface{}, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msg := formatFieldError(e)
		details[fieldPath(e)] = msg
		messages = append(messages, msg)
	}
	return apperrors.NewValidationError(strings.Join(messages, "; ")).WithDetails(details)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.Map {
			return fmt.Sprintf("%s must contain at least %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.Map {
			return fmt.Sprintf("%s must contain at most %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s items", field, e.Param())
	case "minwords":
		return fmt.Sprintf("%s must have at least %s words", field, e.Param())
	case "maxwords":
		return fmt.Sprintf("%s must have at most %s words", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
