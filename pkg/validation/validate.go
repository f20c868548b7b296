package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-entityform/pkg/model"
)

// IsEmpty reports whether value counts as absent: nil, a blank string, a nil
// pointer, or an empty slice or map. Booleans and numbers are never empty.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmpty(rv.Elem().Interface())
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// Validate evaluates rules against value in model.RuleOrder and returns the
// first failure message, or "" when the value passes. Rules other than
// required skip empty values.
func Validate(rules model.RuleSet, value any, values model.Values) string {
	if len(rules) == 0 {
		return ""
	}
	empty := IsEmpty(value)
	for _, kind := range model.RuleOrder {
		rule, ok := rules[kind]
		if !ok {
			continue
		}
		if kind == model.RuleRequired {
			if empty {
				return failure(rule)
			}
			continue
		}
		if kind != model.RuleValidate && empty {
			continue
		}
		if msg := evaluate(rule, value, values); msg != "" {
			return msg
		}
	}
	return ""
}

// ValidateAll validates every field and returns the failing fields' messages
// keyed by field name. An empty map means the form is valid.
func ValidateAll(fields []model.FieldDescriptor, values model.Values) map[string]string {
	errs := make(map[string]string)
	for _, field := range fields {
		if msg := Validate(field.Rules, values[field.Name], values); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

func evaluate(rule model.Rule, value any, values model.Values) string {
	switch rule.Kind {
	case model.RuleMinLength:
		if length(value) < rule.Limit {
			return failure(rule)
		}
	case model.RuleMaxLength:
		if length(value) > rule.Limit {
			return failure(rule)
		}
	case model.RulePattern:
		if rule.Pattern != nil && !rule.Pattern.MatchString(fmt.Sprint(value)) {
			return failure(rule)
		}
	case model.RuleMin:
		n, ok := toFloat(value)
		if !ok || n < rule.Bound {
			return failure(rule)
		}
	case model.RuleMax:
		n, ok := toFloat(value)
		if !ok || n > rule.Bound {
			return failure(rule)
		}
	case model.RuleValidate:
		for _, check := range rule.Checks {
			if check == nil {
				continue
			}
			if msg := check(value, values); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// failure never returns an empty message so a failing rule is never silent.
func failure(rule model.Rule) string {
	if strings.TrimSpace(rule.Message) != "" {
		return rule.Message
	}
	return "invalid value (" + string(rule.Kind) + ")"
}

func length(value any) int {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	}
	return utf8.RuneCountInString(fmt.Sprint(value))
}

func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	}
	return 0, false
}

func presentString(value any) (string, bool) {
	if IsEmpty(value) {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	return fmt.Sprint(value), true
}
