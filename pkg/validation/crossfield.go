package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-entityform/pkg/model"
)

var (
	dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}
	timeLayouts = []string{"15:04:05", "15:04"}
)

// ConfirmPassword requires the value to equal the field named passwordField.
// It passes while passwordField is empty.
func (b *Builder) ConfirmPassword(label, passwordField string) model.RuleSet {
	message := b.msg("validation.confirmPassword", "Passwords do not match", map[string]any{"label": label})
	return b.Check(func(value any, values model.Values) string {
		other, ok := presentString(values[passwordField])
		if !ok {
			return ""
		}
		own, _ := value.(string)
		if own != other {
			return message
		}
		return ""
	})
}

// DateBefore requires the value to be strictly earlier than otherField.
func (b *Builder) DateBefore(label, otherField, otherLabel string) model.RuleSet {
	message := b.msg("validation.dateBefore", "{label} must be before {other}", map[string]any{"label": label, "other": otherLabel})
	return b.Check(compareCheck(otherField, dateLayouts, message, func(own, other time.Time) bool { return own.Before(other) }))
}

// DateAfter requires the value to be strictly later than otherField.
func (b *Builder) DateAfter(label, otherField, otherLabel string) model.RuleSet {
	message := b.msg("validation.dateAfter", "{label} must be after {other}", map[string]any{"label": label, "other": otherLabel})
	return b.Check(compareCheck(otherField, dateLayouts, message, func(own, other time.Time) bool { return own.After(other) }))
}

// TimeBefore compares clock times (HH:MM or HH:MM:SS).
func (b *Builder) TimeBefore(label, otherField, otherLabel string) model.RuleSet {
	message := b.msg("validation.timeBefore", "{label} must be earlier than {other}", map[string]any{"label": label, "other": otherLabel})
	return b.Check(compareCheck(otherField, timeLayouts, message, func(own, other time.Time) bool { return own.Before(other) }))
}

// TimeAfter compares clock times (HH:MM or HH:MM:SS).
func (b *Builder) TimeAfter(label, otherField, otherLabel string) model.RuleSet {
	message := b.msg("validation.timeAfter", "{label} must be later than {other}", map[string]any{"label": label, "other": otherLabel})
	return b.Check(compareCheck(otherField, timeLayouts, message, func(own, other time.Time) bool { return own.After(other) }))
}

// compareCheck passes when either side is missing or unparseable; only two
// present, comparable values can fail.
func compareCheck(otherField string, layouts []string, message string, ok func(own, other time.Time) bool) model.Check {
	return func(value any, values model.Values) string {
		other, hasOther := parseTime(values[otherField], layouts)
		if !hasOther {
			return ""
		}
		own, hasOwn := parseTime(value, layouts)
		if !hasOwn {
			return ""
		}
		if !ok(own, other) {
			return message
		}
		return ""
	}
}

func parseTime(value any, layouts []string) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, !v.IsZero()
	case nil:
		return time.Time{}, false
	}
	raw := strings.TrimSpace(fmt.Sprint(value))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
