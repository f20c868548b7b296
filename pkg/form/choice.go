package form

import "sync"

// ChoiceEventKind enumerates the inputs of the choice reducer.
type ChoiceEventKind int

const (
	// ChoiceSelect selects Option (an empty option clears the selection).
	ChoiceSelect ChoiceEventKind = iota
	// ChoiceText reports the paired text of Option changed to Text.
	ChoiceText
)

// ChoiceEvent feeds the choice reducer.
type ChoiceEvent struct {
	Kind   ChoiceEventKind
	Option string
	Text   string
}

// ChoiceState is the state of a radio group whose options are each paired
// with a text field. Selected is "" while unselected.
type ChoiceState struct {
	Selected string
	Texts    map[string]string
}

// Enabled reports whether option can be selected: its paired text is set.
func (s ChoiceState) Enabled(option string) bool {
	return s.Texts[option] != ""
}

// ReduceChoice is the Unselected -> Selected(text) -> Unselected machine.
// Selecting an option whose text is empty is ignored; emptying the text of
// the selected option unselects it.
func ReduceChoice(state ChoiceState, ev ChoiceEvent) ChoiceState {
	next := ChoiceState{Selected: state.Selected, Texts: make(map[string]string, len(state.Texts)+1)}
	for k, v := range state.Texts {
		next.Texts[k] = v
	}

	switch ev.Kind {
	case ChoiceSelect:
		if ev.Option == "" {
			next.Selected = ""
		} else if next.Enabled(ev.Option) {
			next.Selected = ev.Option
		}
	case ChoiceText:
		next.Texts[ev.Option] = ev.Text
		if ev.Text == "" && next.Selected == ev.Option {
			next.Selected = ""
		}
	}
	return next
}

// ChoiceGroup couples a radio field with per-option text fields in a State.
// Writes to either are fed to ReduceChoice and the resulting selection is
// written back to the radio field.
type ChoiceGroup struct {
	mu     sync.Mutex
	field  string
	pairs  map[string]string // option -> text field
	byText map[string]string // text field -> option
	state  ChoiceState
}

// NewChoiceGroup builds a group for radio field with option -> text field
// pairs.
func NewChoiceGroup(field string, pairs map[string]string) *ChoiceGroup {
	g := &ChoiceGroup{
		field:  field,
		pairs:  make(map[string]string, len(pairs)),
		byText: make(map[string]string, len(pairs)),
		state:  ChoiceState{Texts: make(map[string]string, len(pairs))},
	}
	for option, textField := range pairs {
		g.pairs[option] = textField
		g.byText[textField] = option
	}
	return g
}

// State returns the current reducer state.
func (g *ChoiceGroup) State() ChoiceState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := ChoiceState{Selected: g.state.Selected, Texts: make(map[string]string, len(g.state.Texts))}
	for k, v := range g.state.Texts {
		out.Texts[k] = v
	}
	return out
}

// Dispatch applies ev and returns the new state.
func (g *ChoiceGroup) Dispatch(ev ChoiceEvent) ChoiceState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = ReduceChoice(g.state, ev)
	return g.state
}

// Attach seeds the group from s and keeps it in sync. The returned function
// detaches it.
func (g *ChoiceGroup) Attach(s *State) func() {
	g.mu.Lock()
	for option, textField := range g.pairs {
		g.state.Texts[option] = textOf(s.Value(textField))
	}
	g.state = ReduceChoice(g.state, ChoiceEvent{Kind: ChoiceSelect, Option: textOf(s.Value(g.field))})
	selected := g.state.Selected
	g.mu.Unlock()
	g.sync(s, selected)

	return s.Watch(func(name string, value any) {
		var next ChoiceState
		switch {
		case name == g.field:
			next = g.Dispatch(ChoiceEvent{Kind: ChoiceSelect, Option: textOf(value)})
		case g.byText[name] != "":
			next = g.Dispatch(ChoiceEvent{Kind: ChoiceText, Option: g.byText[name], Text: textOf(value)})
		default:
			return
		}
		g.sync(s, next.Selected)
	})
}

func (g *ChoiceGroup) sync(s *State, selected string) {
	if textOf(s.Value(g.field)) != selected {
		s.SetValue(g.field, selected)
	}
}
