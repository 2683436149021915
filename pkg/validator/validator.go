package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Validator checks struct fields against rules in their `validate` tag.
// Supported rules: required, min=N, max=N (string length), email, and
// oneof=a b c.
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type validator struct {
	tagName string
}

func New() Validator {
	return &validator{tagName: "validate"}
}

func (v *validator) Validate(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	for i := 0; i < value.NumField(); i++ {
		field := value.Type().Field(i)
		tag := field.Tag.Get(v.tagName)
		if tag == "" {
			continue
		}

		if err := v.ValidateField(field.Name, value.Field(i).Interface(), strings.Split(tag, ",")...); err != nil {
			return err
		}
	}

	return nil
}

func (v *validator) ValidateField(field string, value interface{}, rules ...string) error {
	for _, rule := range rules {
		if err := validateRule(field, value, rule); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(field string, value interface{}, rule string) error {
	switch {
	case rule == "required":
		if isZero(value) {
			return fmt.Errorf("%s is required", field)
		}
	case strings.HasPrefix(rule, "min="):
		n, err := strconv.Atoi(strings.TrimPrefix(rule, "min="))
		if err != nil {
			return fmt.Errorf("%s has a malformed min rule", field)
		}
		if str, ok := value.(string); ok && len(str) < n {
			return fmt.Errorf("%s must be at least %d characters long", field, n)
		}
	case strings.HasPrefix(rule, "max="):
		n, err := strconv.Atoi(strings.TrimPrefix(rule, "max="))
		if err != nil {
			return fmt.Errorf("%s has a malformed max rule", field)
		}
		if str, ok := value.(string); ok && len(str) > n {
			return fmt.Errorf("%s must not exceed %d characters", field, n)
		}
	case strings.HasPrefix(rule, "oneof="):
		str, ok := value.(string)
		if !ok {
			return nil
		}
		allowed := strings.Fields(strings.TrimPrefix(rule, "oneof="))
		for _, a := range allowed {
			if str == a {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
	case rule == "email":
		if str, ok := value.(string); ok && !emailPattern.MatchString(str) {
			return fmt.Errorf("%s must be a valid email", field)
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isZero(value interface{}) bool {
	v := reflect.ValueOf(value)
	return !v.IsValid() || reflect.DeepEqual(value, reflect.Zero(v.Type()).Interface())
}
