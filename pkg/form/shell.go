package form

import "github.com/goliatone/go-entityform/pkg/model"

// Mode names a shell variant.
type Mode string

const (
	ModeDialog Mode = "dialog"
	ModePage   Mode = "page"
)

// Shell is the closed set of presentation variants. It is chosen once when
// the container is built and receives the same content tree either way.
type Shell interface {
	Mode() Mode
	// Initial is the phase a freshly built container starts in.
	Initial() Phase
	// Frame finishes a view for this shell.
	Frame(View) View
}

// ShellFor returns the shell for mode; unknown modes get the page shell.
func ShellFor(mode Mode) Shell {
	if mode == ModeDialog {
		return DialogShell{}
	}
	return PageShell{}
}

// DialogShell renders the form inside a modal that is hidden while closed and
// offers a cancel action.
type DialogShell struct{}

func (DialogShell) Mode() Mode     { return ModeDialog }
func (DialogShell) Initial() Phase { return PhaseClosed }
func (DialogShell) Frame(v View) View {
	v.Mode = ModeDialog
	v.Visible = v.Phase != PhaseClosed
	if v.Visible {
		v.Actions = append(v.Actions, Button{Name: "cancel", Label: v.cancelLabel, Disabled: v.Phase == PhaseSubmitting})
	}
	return v
}

// PageShell renders the form inline. It is always visible.
type PageShell struct{}

func (PageShell) Mode() Mode     { return ModePage }
func (PageShell) Initial() Phase { return PhaseOpen }
func (PageShell) Frame(v View) View {
	v.Mode = ModePage
	v.Visible = true
	return v
}

// Button is an action slot.
type Button struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
	Busy     bool   `json:"busy,omitempty"`
}

// FieldView is one rendered control of the content slot.
type FieldView struct {
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Input      string         `json:"input"`
	Value      any            `json:"value"`
	Text       string         `json:"text"`
	Error      string         `json:"error,omitempty"`
	HelperText string         `json:"helperText,omitempty"`
	Options    []model.Option `json:"options,omitempty"`
	Required   bool           `json:"required,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
	Secret     bool           `json:"secret,omitempty"`
	Focused    bool           `json:"focused,omitempty"`
}

// View is the renderable snapshot of a container: its title, content and
// actions slots.
type View struct {
	Mode       Mode        `json:"mode"`
	Phase      Phase       `json:"phase"`
	Visible    bool        `json:"visible"`
	Title      string      `json:"title"`
	Content    []FieldView `json:"content"`
	Actions    []Button    `json:"actions"`
	FormErrors []string    `json:"formErrors,omitempty"`
	Summary    string      `json:"summary,omitempty"`

	cancelLabel string
}

// Title is the title slot.
func (c *Container) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Content is the content slot: one view per visible registered field.
func (c *Container) Content() []FieldView {
	c.mu.Lock()
	state, focus := c.state, c.focus
	c.mu.Unlock()
	if state == nil {
		return nil
	}

	fields := state.Fields()
	out := make([]FieldView, 0, len(fields))
	for _, field := range fields {
		if field.Hidden {
			continue
		}
		binding := state.Bind(field.Name)
		primitive := c.inputs.Resolve(field)
		view := FieldView{
			Name:       field.Name,
			Label:      field.Label,
			Input:      primitive.Kind,
			Value:      binding.Value(),
			Text:       binding.Text(),
			Error:      binding.Error(),
			HelperText: binding.HelperText(),
			Options:    field.Options,
			Required:   field.Rules.IsRequired(),
			Disabled:   field.Disabled,
			Secret:     primitive.Secret,
			Focused:    field.Name == focus,
		}
		if view.Secret {
			view.Value, view.Text = "", ""
		}
		out = append(out, view)
	}
	return out
}

// SubmitButton is the submit slot. It is disabled while submitting.
func (c *Container) SubmitButton() Button {
	busy := c.Phase() == PhaseSubmitting
	return Button{Name: "submit", Label: c.label("forms.actions.submit", "Save"), Disabled: busy, Busy: busy}
}

// ResetButton is the reset slot.
func (c *Container) ResetButton() Button {
	return Button{Name: "reset", Label: c.label("forms.actions.reset", "Reset"), Disabled: c.Phase() != PhaseOpen}
}

// Actions is the actions slot holding the submit and reset buttons.
func (c *Container) Actions() []Button {
	return []Button{c.SubmitButton(), c.ResetButton()}
}

// View assembles every slot and hands it to the shell.
func (c *Container) View() View {
	v := View{
		Phase:       c.Phase(),
		Title:       c.Title(),
		Content:     c.Content(),
		Actions:     c.Actions(),
		FormErrors:  c.FormErrors(),
		cancelLabel: c.label("forms.actions.cancel", "Cancel"),
	}
	for _, field := range v.Content {
		if field.Error != "" {
			v.Summary = c.label("forms.errors.summary", "Please correct the highlighted fields")
			break
		}
	}
	return c.shell.Frame(v)
}
