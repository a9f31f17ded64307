package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	validatorengine "github.com/go-playground/validator/v10"
)

// Error lists the failing fields of a request payload, keyed by JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries field validation failures.
func IsValidation(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

type StructValidator struct {
	Validator *validatorengine.Validate
}

func NewStructValidator() *StructValidator {
	v := validatorengine.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &StructValidator{Validator: v}
}

func (v *StructValidator) ValidateStruct(data interface{}) error {
	err := v.Validator.Struct(data)
	if err == nil {
		return nil
	}

	var errs validatorengine.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(errs))}
	for _, e := range errs {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out.Fields[field] = describe(e)
	}
	return out
}

func describe(e validatorengine.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
