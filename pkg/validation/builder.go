package validation

import (
	"regexp"
	"strconv"

	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
)

// Fixed expressions used by the pattern builders.
var (
	EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PasswordMinLength is the minimum length enforced by Password.
const PasswordMinLength = 8

// Builder produces rule sets whose messages are resolved through t.
type Builder struct {
	t i18n.Func
}

// NewBuilder returns a Builder. A nil t renders the English defaults.
func NewBuilder(t i18n.Func) *Builder {
	if t == nil {
		t = i18n.Static()
	}
	return &Builder{t: t}
}

// Rules merges several rule sets into one.
func Rules(sets ...model.RuleSet) model.RuleSet {
	return model.RuleSet{}.Merge(sets...)
}

func (b *Builder) msg(key, fallback string, params map[string]any) string {
	return i18n.Resolve(b.t, key, fallback, params)
}

// Required fails on nil, empty or whitespace-only values.
func (b *Builder) Required(label string) model.RuleSet {
	return model.RuleSet{
		model.RuleRequired: {
			Kind:    model.RuleRequired,
			Message: b.msg("validation.required", "{label} is required", map[string]any{"label": label}),
		},
	}
}

// RequiredTrue is Required for checkboxes: false counts as unchecked.
func (b *Builder) RequiredTrue(label string) model.RuleSet {
	message := b.msg("validation.required", "{label} is required", map[string]any{"label": label})
	return b.Required(label).Merge(b.Check(func(value any, _ model.Values) string {
		if checked, ok := value.(bool); ok && !checked {
			return message
		}
		return ""
	}))
}

// MinLength fails when a present value is shorter than limit.
func (b *Builder) MinLength(label string, limit int) model.RuleSet {
	return model.RuleSet{
		model.RuleMinLength: {
			Kind:    model.RuleMinLength,
			Limit:   limit,
			Message: b.msg("validation.minLength", "{label} must be at least {limit} characters", map[string]any{"label": label, "limit": limit}),
		},
	}
}

// MaxLength fails when a present value is longer than limit.
func (b *Builder) MaxLength(label string, limit int) model.RuleSet {
	return model.RuleSet{
		model.RuleMaxLength: {
			Kind:    model.RuleMaxLength,
			Limit:   limit,
			Message: b.msg("validation.maxLength", "{label} must be at most {limit} characters", map[string]any{"label": label, "limit": limit}),
		},
	}
}

// Min fails when a present numeric value is below bound.
func (b *Builder) Min(label string, bound float64) model.RuleSet {
	return model.RuleSet{
		model.RuleMin: {
			Kind:    model.RuleMin,
			Bound:   bound,
			Message: b.msg("validation.min", "{label} must be at least {bound}", map[string]any{"label": label, "bound": formatBound(bound)}),
		},
	}
}

// Max fails when a present numeric value is above bound.
func (b *Builder) Max(label string, bound float64) model.RuleSet {
	return model.RuleSet{
		model.RuleMax: {
			Kind:    model.RuleMax,
			Bound:   bound,
			Message: b.msg("validation.max", "{label} must be at most {bound}", map[string]any{"label": label, "bound": formatBound(bound)}),
		},
	}
}

// Pattern fails when a present value does not match re.
func (b *Builder) Pattern(label string, re *regexp.Regexp) model.RuleSet {
	return model.RuleSet{
		model.RulePattern: {
			Kind:    model.RulePattern,
			Pattern: re,
			Message: b.msg("validation.pattern", "{label} has an invalid format", map[string]any{"label": label}),
		},
	}
}

// Email is a pattern rule over EmailPattern.
func (b *Builder) Email(label string) model.RuleSet {
	return model.RuleSet{
		model.RulePattern: {
			Kind:    model.RulePattern,
			Pattern: EmailPattern,
			Message: b.msg("validation.email", "{label} must be a valid email address", map[string]any{"label": label}),
		},
	}
}

// Password enforces PasswordMinLength plus the complexity classes (upper,
// lower, digit, symbol). RE2 has no lookahead, so complexity is a check over
// one expression per class.
func (b *Builder) Password(label string) model.RuleSet {
	message := b.msg("validation.password", "{label} must contain an uppercase letter, a lowercase letter, a digit and a symbol", map[string]any{"label": label})
	complexity := func(value any, _ model.Values) string {
		s, ok := presentString(value)
		if !ok {
			return ""
		}
		for _, re := range []*regexp.Regexp{passwordUpper, passwordLower, passwordDigit, passwordSpecial} {
			if !re.MatchString(s) {
				return message
			}
		}
		return ""
	}
	return Rules(b.MinLength(label, PasswordMinLength), b.Check(complexity))
}

// Check wraps an arbitrary cross-field predicate as a validate rule.
func (b *Builder) Check(checks ...model.Check) model.RuleSet {
	return model.RuleSet{
		model.RuleValidate: {
			Kind:   model.RuleValidate,
			Checks: append([]model.Check(nil), checks...),
		},
	}
}

func formatBound(bound float64) string {
	return strconv.FormatFloat(bound, 'f', -1, 64)
}
