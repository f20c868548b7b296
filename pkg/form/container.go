package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
)

var (
	// ErrClosed is returned when operating on a closed dialog.
	ErrClosed = errors.New("form: container is closed")
	// ErrBusy is returned when the lifecycle cannot change mid-submit.
	ErrBusy = errors.New("form: submission in progress")
	// ErrUnmounted is returned after Unmount.
	ErrUnmounted = errors.New("form: container is unmounted")
)

// Phase is the container lifecycle position.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpen
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// MarshalText renders the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Outcome reports what a Submit call did.
type Outcome int

const (
	// SubmitInvalid means client validation failed; nothing was sent.
	SubmitInvalid Outcome = iota
	// SubmitDropped means a submission was already in flight.
	SubmitDropped
	// SubmitSucceeded means the submit function returned nil.
	SubmitSucceeded
	// SubmitFailed means the submit function returned an error.
	SubmitFailed
)

func (o Outcome) String() string {
	switch o {
	case SubmitDropped:
		return "dropped"
	case SubmitSucceeded:
		return "succeeded"
	case SubmitFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// SubmitFunc receives a copy of the validated values.
type SubmitFunc func(ctx context.Context, values model.Values) error

// FocusFunc is called with the field receiving initial focus on open.
type FocusFunc func(name string)

// Option customises a Container.
type Option func(*Container)

// WithShell selects the shell. The default is the page shell.
func WithShell(shell Shell) Option {
	return func(c *Container) {
		if shell != nil {
			c.shell = shell
		}
	}
}

// WithMode selects the shell for mode.
func WithMode(mode Mode) Option {
	return WithShell(ShellFor(mode))
}

// WithDefaults sets the values used when the container opens without
// explicit defaults.
func WithDefaults(values model.Values) Option {
	return func(c *Container) {
		c.defaults = cloneValues(values)
	}
}

// WithInputs overrides the input primitive registry.
func WithInputs(inputs *Inputs) Option {
	return func(c *Container) {
		if inputs != nil {
			c.inputs = inputs
		}
	}
}

// WithFocus installs the initial focus callback.
func WithFocus(fn FocusFunc) Option {
	return func(c *Container) {
		c.onFocus = fn
	}
}

// WithTitle sets the rendered title.
func WithTitle(title string) Option {
	return func(c *Container) {
		c.title = title
	}
}

// WithTranslator sets the function used for button labels.
func WithTranslator(t i18n.Func) Option {
	return func(c *Container) {
		c.t = t
	}
}

// WithLogger attaches a logger for lifecycle transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAttach runs fn against every fresh State the container opens. The
// returned function, when non-nil, runs when that state is discarded.
func WithAttach(fn func(*State) func()) Option {
	return func(c *Container) {
		if fn != nil {
			c.attach = append(c.attach, fn)
		}
	}
}

// WithOnUnmount runs fn once when the container is unmounted, after the
// container has detached.
func WithOnUnmount(fn func()) Option {
	return func(c *Container) {
		if fn != nil {
			c.onUnmount = append(c.onUnmount, fn)
		}
	}
}

// Container drives one form through Closed -> Open -> Submitting and back.
// Dialog containers start Closed and own no state until opened; page
// containers start Open.
type Container struct {
	mu         sync.Mutex
	shell      Shell
	phase      Phase
	fields     []model.FieldDescriptor
	defaults   model.Values
	state      *State
	submit     SubmitFunc
	inputs     *Inputs
	focus      string
	formErrors []string
	unmounted  bool
	onFocus    FocusFunc
	title      string
	attach     []func(*State) func()
	detach     []func()
	onUnmount  []func()
	t          i18n.Func
	logger     *slog.Logger
}

// New builds a container over fields. submit is called with the validated
// values; a nil submit always succeeds.
func New(fields []model.FieldDescriptor, submit SubmitFunc, options ...Option) *Container {
	c := &Container{
		shell:  PageShell{},
		fields: append([]model.FieldDescriptor(nil), fields...),
		submit: submit,
		inputs: NewInputs(),
		t:      i18n.Static(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	if c.shell.Initial() == PhaseOpen {
		if focus := c.openLocked(c.defaults); focus != "" && c.onFocus != nil {
			c.onFocus(focus)
		}
	}
	return c
}

// Mode returns the shell mode.
func (c *Container) Mode() Mode {
	return c.shell.Mode()
}

// Phase returns the lifecycle position.
func (c *Container) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// State returns the live state, or nil while closed or unmounted.
func (c *Container) State() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Bind binds name in the live state. While closed the binding reads "".
func (c *Container) Bind(name string) Binding {
	return c.State().Bind(name)
}

// Control binds name together with its input primitive.
func (c *Container) Control(name string) Control {
	return c.inputs.Control(c.State(), name)
}

// Focused returns the field that received focus on the last open.
func (c *Container) Focused() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// FormErrors returns the form-level messages of the last failed submit.
func (c *Container) FormErrors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.formErrors...)
}

// Open starts a fresh session seeded with defaults (or the container
// defaults when nil). Values from any previous session are discarded, never
// merged.
func (c *Container) Open(defaults model.Values) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	if defaults == nil {
		defaults = c.defaults
	} else {
		c.defaults = cloneValues(defaults)
	}
	focus := c.openLocked(defaults)
	onFocus := c.onFocus
	c.mu.Unlock()

	if onFocus != nil && focus != "" {
		onFocus(focus)
	}
	return nil
}

func (c *Container) openLocked(defaults model.Values) string {
	c.detachLocked()
	c.state = NewState(c.fields, defaults)
	for _, fn := range c.attach {
		if undo := fn(c.state); undo != nil {
			c.detach = append(c.detach, undo)
		}
	}
	c.phase = PhaseOpen
	c.formErrors = nil
	c.focus = ""
	for _, field := range c.fields {
		if field.Focusable() {
			c.focus = field.Name
			break
		}
	}
	c.logger.Debug("form opened", "mode", c.shell.Mode(), "focus", c.focus)
	return c.focus
}

// Close closes a dialog and destroys its state. Page containers have no
// closed phase and ignore Close.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return ErrUnmounted
	}
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}
	if c.shell.Initial() == PhaseOpen {
		return nil
	}
	c.closeLocked()
	return nil
}

func (c *Container) detachLocked() {
	for _, undo := range c.detach {
		undo()
	}
	c.detach = nil
}

func (c *Container) closeLocked() {
	c.detachLocked()
	c.state = nil
	c.phase = PhaseClosed
	c.focus = ""
	c.formErrors = nil
}

// Reset restores the current session's defaults.
func (c *Container) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.unmounted:
		return ErrUnmounted
	case c.phase == PhaseSubmitting:
		return ErrBusy
	case c.state == nil:
		return ErrClosed
	}
	c.state.Reset(c.defaults)
	c.formErrors = nil
	return nil
}

// Register adds a field to the container and, when open, to the live state.
func (c *Container) Register(field model.FieldDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	for i := range c.fields {
		if c.fields[i].Name == field.Name {
			c.fields[i] = field
			replaced = true
		}
	}
	if !replaced {
		c.fields = append(c.fields, field)
	}
	c.state.Register(field)
}

// Unregister removes a field. Its last value stays in the live state.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.fields {
		if c.fields[i].Name == name {
			c.fields = append(c.fields[:i], c.fields[i+1:]...)
			break
		}
	}
	c.state.Unregister(name)
}

// Submit validates every registered field and, when all pass, calls the
// submit function once. A Submit while another is in flight returns
// SubmitDropped and a nil error. On failure the values are retained and
// server field errors are routed onto the matching fields.
func (c *Container) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	switch {
	case c.unmounted:
		c.mu.Unlock()
		return SubmitDropped, ErrUnmounted
	case c.phase == PhaseSubmitting:
		c.mu.Unlock()
		return SubmitDropped, nil
	case c.phase == PhaseClosed:
		c.mu.Unlock()
		return SubmitDropped, ErrClosed
	}

	state := c.state
	if !state.Validate() {
		c.mu.Unlock()
		c.logger.Debug("form invalid", "fields", len(state.Errors()))
		return SubmitInvalid, nil
	}
	c.phase = PhaseSubmitting
	c.formErrors = nil
	state.setSubmitting(true)
	values := state.Values()
	submit := c.submit
	c.mu.Unlock()

	var err error
	if submit != nil {
		err = submit(ctx, values)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		// detached: nothing to update
		if err != nil {
			return SubmitFailed, err
		}
		return SubmitSucceeded, nil
	}

	state.setSubmitting(false)
	if err != nil {
		c.phase = PhaseOpen
		routed := apperr.RouteError(apperr.Normalize(err), fieldNames(state.Fields()))
		state.SetErrors(routed.First())
		c.formErrors = routed.Form
		c.logger.Debug("form submit failed", "error", err)
		return SubmitFailed, err
	}

	if c.shell.Initial() == PhaseClosed {
		c.closeLocked()
	} else {
		c.defaults = values
		state.Reset(values)
		c.phase = PhaseOpen
	}
	c.logger.Debug("form submitted", "mode", c.shell.Mode())
	return SubmitSucceeded, nil
}

// Unmount detaches the container. An in-flight submit still completes but
// its result no longer touches the container.
func (c *Container) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.closeLocked()
	hooks := c.onUnmount
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Unmounted reports whether Unmount was called.
func (c *Container) Unmounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmounted
}

func fieldNames(fields []model.FieldDescriptor) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, field.Name)
	}
	return out
}

func (c *Container) label(key, fallback string) string {
	return i18n.Resolve(c.t, key, fallback, nil)
}

func (c *Container) String() string {
	return fmt.Sprintf("form.Container{mode=%s phase=%s}", c.Mode(), c.Phase())
}
