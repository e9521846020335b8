package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// Struct validates a tagged request struct and returns a map of field name
// to the first failing rule's message. A nil map means the value is valid.
// Failures are local and non-fatal: handlers return them as a 422 body and
// never reach the store.
func Struct(s interface{}) map[string]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": "invalid request"}
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		name := fieldName(fe)
		if _, seen := fields[name]; seen {
			continue // keep the first failing rule per field
		}
		fields[name] = message(fe)
	}
	return fields
}

// Var validates a single value against a tag expression
func Var(value interface{}, tag string) error {
	return v.Var(value, tag)
}

func fieldName(fe validator.FieldError) string {
	// Namespace is Struct.Field; drop the struct prefix and snake-case the rest
	parts := strings.Split(fe.Namespace(), ".")
	return toSnake(parts[len(parts)-1])
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldName(fe))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldName(fe), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fieldName(fe), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fieldName(fe))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fieldName(fe))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldName(fe), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fieldName(fe), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fieldName(fe), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fieldName(fe), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fieldName(fe))
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
