package form

import (
	"sync"

	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

// ChangeFunc observes value writes on a State.
type ChangeFunc func(name string, value any)

// State tracks registered fields, their values and their current error
// messages. Values of unregistered fields are retained so a field that
// unmounts and remounts keeps its last-known value.
type State struct {
	mu         sync.RWMutex
	fields     map[string]model.FieldDescriptor
	order      []string
	values     model.Values
	errors     map[string]string
	submitting bool
	watchers   map[int]ChangeFunc
	nextWatch  int
}

// NewState registers fields and seeds their values from defaults, falling back
// to each field's initial value.
func NewState(fields []model.FieldDescriptor, defaults model.Values) *State {
	s := &State{
		fields: make(map[string]model.FieldDescriptor, len(fields)),
		values: cloneValues(defaults),
		errors: make(map[string]string),
	}
	for _, field := range fields {
		s.register(field)
	}
	return s
}

// Register adds a field. A value already held for the name is kept.
func (s *State) Register(field model.FieldDescriptor) {
	if s == nil || field.Name == "" {
		return
	}
	s.mu.Lock()
	s.register(field)
	s.mu.Unlock()
}

func (s *State) register(field model.FieldDescriptor) {
	if _, exists := s.fields[field.Name]; !exists {
		s.order = append(s.order, field.Name)
	}
	s.fields[field.Name] = field
	if _, ok := s.values[field.Name]; !ok {
		s.values[field.Name] = deepCopy(field.InitialValue())
	}
}

// Unregister removes a field from validation and focus order. Its value and
// nothing else survives.
func (s *State) Unregister(name string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[name]; !ok {
		return
	}
	delete(s.fields, name)
	delete(s.errors, name)
	for i, candidate := range s.order {
		if candidate == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Registered reports whether name is currently registered.
func (s *State) Registered(name string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fields[name]
	return ok
}

// Field returns the descriptor registered under name.
func (s *State) Field(name string) (model.FieldDescriptor, bool) {
	if s == nil {
		return model.FieldDescriptor{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	field, ok := s.fields[name]
	return field, ok
}

// Fields returns the registered descriptors in registration order.
func (s *State) Fields() []model.FieldDescriptor {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FieldDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Value returns the value held for name. Unset values resolve to the
// registered field's controlled zero, or "" for unknown names.
func (s *State) Value(name string) any {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value, ok := s.values[name]; ok && value != nil {
		return value
	}
	if field, ok := s.fields[name]; ok {
		return field.Type.ZeroValue()
	}
	return ""
}

// SetValue writes value under name. It never fails; invalid values surface
// on the next validation pass.
func (s *State) SetValue(name string, value any) {
	if s == nil || name == "" {
		return
	}
	s.mu.Lock()
	s.values[name] = value
	watchers := make([]ChangeFunc, 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(name, value)
	}
}

// Watch registers fn for every value write and returns a function removing
// it. Watchers run after the write, outside the state lock.
func (s *State) Watch(fn ChangeFunc) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[int]ChangeFunc)
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Values returns a deep copy of every held value, registered or retained.
func (s *State) Values() model.Values {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneValues(s.values)
}

// Error returns the current message for name.
func (s *State) Error(name string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[name]
}

// Errors returns a copy of the current error map.
func (s *State) Errors() map[string]string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// SetErrors merges messages into the error map. Empty messages clear.
func (s *State) SetErrors(errs map[string]string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, msg := range errs {
		if msg == "" {
			delete(s.errors, name)
			continue
		}
		s.errors[name] = msg
	}
}

// ClearErrors drops every error message.
func (s *State) ClearErrors() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.errors = make(map[string]string)
	s.mu.Unlock()
}

// Validate runs every registered field's rules against the current values,
// replaces the error map with the result and reports whether the form is
// valid. All failing fields are reported together.
func (s *State) Validate() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := make([]model.FieldDescriptor, 0, len(s.order))
	for _, name := range s.order {
		fields = append(fields, s.fields[name])
	}
	s.errors = validation.ValidateAll(fields, s.values)
	return len(s.errors) == 0
}

// ValidateField re-runs a single field's rules and stores the outcome.
func (s *State) ValidateField(name string) string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := s.fields[name]
	if !ok {
		return ""
	}
	msg := validation.Validate(field.Rules, s.values[name], s.values)
	if msg == "" {
		delete(s.errors, name)
	} else {
		s.errors[name] = msg
	}
	return msg
}

// Reset replaces every value with defaults. Nothing from the previous values
// survives; registered fields missing from defaults get their initial value.
func (s *State) Reset(defaults model.Values) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = cloneValues(defaults)
	for _, name := range s.order {
		if _, ok := s.values[name]; !ok {
			s.values[name] = deepCopy(s.fields[name].InitialValue())
		}
	}
	s.errors = make(map[string]string)
	s.submitting = false
}

// Submitting reports whether a submission is in flight.
func (s *State) Submitting() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting
}

func (s *State) setSubmitting(v bool) {
	s.mu.Lock()
	s.submitting = v
	s.mu.Unlock()
}

func cloneValues(src model.Values) model.Values {
	out := make(model.Values, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case model.Values:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
