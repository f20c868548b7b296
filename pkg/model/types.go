package model

import "regexp"

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// ZeroValue returns the controlled default for the type: "" for strings,
// false for booleans, an empty slice for arrays and nil for everything else.
// Reading an unset field never yields an absent value.
func (t FieldType) ZeroValue() any {
	switch t {
	case FieldTypeString, "":
		return ""
	case FieldTypeBoolean:
		return false
	case FieldTypeArray:
		return []any{}
	default:
		return nil
	}
}

// RuleKind identifies one entry of a RuleSet.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RulePattern   RuleKind = "pattern"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RuleValidate  RuleKind = "validate"
)

// RuleOrder is the evaluation order used when a field carries several rules.
// The first failing rule provides the field's message.
var RuleOrder = []RuleKind{
	RuleRequired,
	RuleMinLength,
	RuleMaxLength,
	RulePattern,
	RuleMin,
	RuleMax,
	RuleValidate,
}

// Values is the flat value map of a form, keyed by field name (dotted paths
// address nested values).
type Values map[string]any

// Check is a cross-field predicate. It receives the field's own value plus
// the full current value map and returns an empty string when the value is
// acceptable, or the failure message otherwise.
type Check func(value any, values Values) string

// Rule is a single validation descriptor. Length rules carry their bound in
// Limit, numeric rules in Bound, pattern rules in Pattern and validate rules in
// Checks. Message is already localised.
type Rule struct {
	Kind    RuleKind       `json:"kind"`
	Limit   int            `json:"limit,omitempty"`
	Bound   float64        `json:"bound,omitempty"`
	Pattern *regexp.Regexp `json:"-"`
	Checks  []Check        `json:"-"`
	Message string         `json:"message,omitempty"`
}

// Option is a selectable choice for select, radio and multi-select inputs.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldDescriptor models an individual input inside a form.
type FieldDescriptor struct {
	Name       string    `json:"name"`
	Label      string    `json:"label,omitempty"`
	Type       FieldType `json:"type"`
	Input      string    `json:"input,omitempty"`
	Default    any       `json:"default,omitempty"`
	HelperText string    `json:"helperText,omitempty"`
	Options    []Option  `json:"options,omitempty"`
	Disabled   bool      `json:"disabled,omitempty"`
	Hidden     bool      `json:"hidden,omitempty"`
	Rules      RuleSet   `json:"-"`
}

// InitialValue returns the declared default or the type's controlled zero.
func (f FieldDescriptor) InitialValue() any {
	if f.Default != nil {
		return f.Default
	}
	return f.Type.ZeroValue()
}

// Focusable reports whether the field can receive initial focus.
func (f FieldDescriptor) Focusable() bool {
	return !f.Hidden && !f.Disabled
}
