package form

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-entityform/pkg/model"
)

// Built-in input kinds.
const (
	InputText        = "text"
	InputEmail       = "email"
	InputPassword    = "password"
	InputPhone       = "phone"
	InputNumber      = "number"
	InputTextArea    = "textarea"
	InputSelect      = "select"
	InputMultiSelect = "multiselect"
	InputRadio       = "radio"
	InputCheckbox    = "checkbox"
	InputDate        = "date"
	InputTime        = "time"
)

// Primitive describes how a typed input turns raw text into a value.
type Primitive struct {
	Kind   string
	Secret bool
	Parse  func(raw string) (any, error)
}

// Matcher selects a primitive for fields without an explicit Input hint.
type Matcher func(field model.FieldDescriptor) bool

type inputRule struct {
	kind     string
	priority int
	order    int
	match    Matcher
}

// Inputs is the registry of input primitives. Explicit FieldDescriptor.Input
// hints win, then matchers by priority (ties by registration order), then the
// field type.
type Inputs struct {
	mu         sync.RWMutex
	primitives map[string]Primitive
	rules      []inputRule
}

// NewInputs returns a registry with the built-in primitives.
func NewInputs() *Inputs {
	r := &Inputs{primitives: make(map[string]Primitive)}
	for _, kind := range []string{InputText, InputEmail, InputPhone, InputTextArea, InputSelect, InputRadio, InputDate, InputTime} {
		r.Define(Primitive{Kind: kind, Parse: parseText})
	}
	r.Define(Primitive{Kind: InputPassword, Secret: true, Parse: parseText})
	r.Define(Primitive{Kind: InputNumber, Parse: parseNumber})
	r.Define(Primitive{Kind: InputCheckbox, Parse: parseBool})
	r.Define(Primitive{Kind: InputMultiSelect, Parse: parseList})
	return r
}

// Define registers or replaces a primitive.
func (r *Inputs) Define(p Primitive) {
	if r == nil || strings.TrimSpace(p.Kind) == "" {
		return
	}
	if p.Parse == nil {
		p.Parse = parseText
	}
	r.mu.Lock()
	r.primitives[p.Kind] = p
	r.mu.Unlock()
}

// Match routes fields accepted by matcher to kind.
func (r *Inputs) Match(kind string, priority int, matcher Matcher) {
	if r == nil || matcher == nil || kind == "" {
		return
	}
	r.mu.Lock()
	r.rules = append(r.rules, inputRule{kind: kind, priority: priority, order: len(r.rules), match: matcher})
	r.mu.Unlock()
}

// Resolve returns the primitive for field.
func (r *Inputs) Resolve(field model.FieldDescriptor) Primitive {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.primitives[field.Input]; ok {
		return p
	}
	rules := append([]inputRule(nil), r.rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, rule := range rules {
		if p, ok := r.primitives[rule.kind]; ok && rule.match(field) {
			return p
		}
	}
	if p, ok := r.primitives[kindForType(field)]; ok {
		return p
	}
	return Primitive{Kind: InputText, Parse: parseText}
}

// Control binds name in state to its resolved primitive.
func (r *Inputs) Control(state *State, name string) Control {
	field, _ := state.Field(name)
	return Control{Binding: state.Bind(name), Primitive: r.Resolve(field)}
}

func kindForType(field model.FieldDescriptor) string {
	switch field.Type {
	case model.FieldTypeBoolean:
		return InputCheckbox
	case model.FieldTypeInteger, model.FieldTypeNumber:
		return InputNumber
	case model.FieldTypeDate:
		return InputDate
	case model.FieldTypeArray:
		return InputMultiSelect
	}
	if len(field.Options) > 0 {
		return InputSelect
	}
	return InputText
}

// Control is a bound input: the field binding plus its primitive.
type Control struct {
	Binding
	Primitive
}

// SetText parses raw and stores the result. Text that does not parse is
// stored verbatim so validation can report it.
func (c Control) SetText(raw string) {
	value, err := c.Parse(raw)
	if err != nil {
		c.SetValue(raw)
		return
	}
	c.SetValue(value)
}

func parseText(raw string) (any, error) { return raw, nil }

func parseNumber(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("form: %q is not a number: %w", raw, err)
	}
	return n, nil
}

func parseBool(raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "no", "off", "0":
		return false, nil
	case "true", "yes", "on", "1":
		return true, nil
	}
	return nil, fmt.Errorf("form: %q is not a boolean", raw)
}

func parseList(raw string) (any, error) {
	out := []any{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
