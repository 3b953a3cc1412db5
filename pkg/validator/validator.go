package validator

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// ValidateStruct validates a struct based on validate tags.
// Supported rules: required, min=N, max=N, oneof=a b c.
// min and max bound the length of strings and slices and the value of numbers.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		tag := field.Tag.Get("validate")

		if tag == "" {
			continue
		}

		name := fieldName(field)
		for _, rule := range strings.Split(tag, ",") {
			if err := validateField(name, value, rule); err != nil {
				return err
			}
		}
	}

	return nil
}

// fieldName prefers the json name so messages match the request body
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// validateField validates a single field based on a rule
func validateField(fieldName string, value reflect.Value, rule string) error {
	key, arg, _ := strings.Cut(rule, "=")
	switch key {
	case "required":
		if isZero(value) {
			return fmt.Errorf("%s is required", fieldName)
		}
	case "oneof":
		if value.Kind() == reflect.String && value.String() != "" {
			allowed := strings.Fields(arg)
			if !slices.Contains(allowed, value.String()) {
				return fmt.Errorf("%s must be one of %s", fieldName, strings.Join(allowed, ", "))
			}
		}
	case "min", "max":
		bound, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid %s rule on %s", key, fieldName)
		}
		size, unit, ok := measure(value)
		if !ok {
			return nil
		}
		if key == "min" && size < bound {
			return fmt.Errorf("%s must be at least %s%s", fieldName, arg, unit)
		}
		if key == "max" && size > bound {
			return fmt.Errorf("%s must be at most %s%s", fieldName, arg, unit)
		}
	default:
		return fmt.Errorf("unknown validation rule %q on %s", key, fieldName)
	}
	return nil
}

// measure returns what min and max compare against; nil pointers are skipped
func measure(v reflect.Value) (float64, string, bool) {
	switch v.Kind() {
	case reflect.String:
		return float64(len(v.String())), " characters", true
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(v.Len()), " items", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), "", true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), "", true
	case reflect.Float32, reflect.Float64:
		return v.Float(), "", true
	case reflect.Ptr:
		if v.IsNil() {
			return 0, "", false
		}
		return measure(v.Elem())
	}
	return 0, "", false
}

// isZero checks if a value is zero/empty
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
