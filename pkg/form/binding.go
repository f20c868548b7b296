package form

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-entityform/pkg/model"
)

// Binding connects one named field to a State.
type Binding struct {
	state *State
	name  string
}

// Bind returns the binding for name. Binding a name that was never
// registered is allowed; its value reads as "".
func (s *State) Bind(name string) Binding {
	return Binding{state: s, name: name}
}

// Name returns the bound field name.
func (b Binding) Name() string { return b.name }

// Field returns the registered descriptor.
func (b Binding) Field() (model.FieldDescriptor, bool) { return b.state.Field(b.name) }

// Value returns the current value, never absent.
func (b Binding) Value() any { return b.state.Value(b.name) }

// SetValue writes v. When the field already shows an error it is
// re-validated so the message tracks the edit.
func (b Binding) SetValue(v any) {
	b.state.SetValue(b.name, v)
	if b.state.Error(b.name) != "" {
		b.state.ValidateField(b.name)
	}
}

// Error returns the field's current message.
func (b Binding) Error() string { return b.state.Error(b.name) }

// Invalid reports whether the field currently has an error.
func (b Binding) Invalid() bool { return b.Error() != "" }

// HelperText returns the error message when present, otherwise the field's
// descriptive helper text.
func (b Binding) HelperText() string {
	if msg := b.Error(); msg != "" {
		return msg
	}
	field, _ := b.Field()
	return field.HelperText
}

// Text renders the current value for text inputs.
func (b Binding) Text() string {
	return textOf(b.Value())
}

func textOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}
