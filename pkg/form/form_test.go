package form_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

func testFields() []model.FieldDescriptor {
	b := validation.NewBuilder(nil)
	return []model.FieldDescriptor{
		{Name: "id", Type: model.FieldTypeString, Hidden: true},
		{Name: "name", Label: "Name", Type: model.FieldTypeString, Rules: b.Required("Name")},
		{Name: "email", Label: "Email", Type: model.FieldTypeString, Input: form.InputEmail, Rules: validation.Rules(b.Required("Email"), b.Email("Email"))},
		{Name: "active", Label: "Active", Type: model.FieldTypeBoolean},
		{Name: "tags", Label: "Tags", Type: model.FieldTypeArray},
	}
}

func TestBindingDefaultsAreControlled(t *testing.T) {
	state := form.NewState(testFields(), nil)

	cases := map[string]any{
		"name":    "",
		"active":  false,
		"tags":    []any{},
		"unknown": "",
	}
	for name, want := range cases {
		if diff := cmp.Diff(want, state.Bind(name).Value()); diff != "" {
			t.Fatalf("%s default mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestBindingSetValueSurfacesOnValidation(t *testing.T) {
	state := form.NewState(testFields(), nil)
	email := state.Bind("email")

	email.SetValue("not-an-email")
	if email.Error() != "" {
		t.Fatalf("writes must not validate eagerly, got %q", email.Error())
	}
	if state.Validate() {
		t.Fatalf("expected validation to fail")
	}
	if email.Error() != "Email must be a valid email address" {
		t.Fatalf("unexpected email error %q", email.Error())
	}
	if email.HelperText() != email.Error() {
		t.Fatalf("helper text should show the error")
	}

	email.SetValue("ada@example.com")
	if email.Error() != "" {
		t.Fatalf("fixing an invalid field should clear its error, got %q", email.Error())
	}
}

func TestUnregisterKeepsLastValue(t *testing.T) {
	state := form.NewState(testFields(), nil)
	state.Bind("name").SetValue("Ada")
	state.Unregister("name")

	if state.Registered("name") {
		t.Fatalf("name should be unregistered")
	}
	if got := state.Bind("name").Value(); got != "Ada" {
		t.Fatalf("expected retained value, got %v", got)
	}

	state.Register(model.FieldDescriptor{Name: "name", Type: model.FieldTypeString})
	if got := state.Bind("name").Value(); got != "Ada" {
		t.Fatalf("re-registering must keep the last value, got %v", got)
	}
}

func TestDialogStartsClosedPageStartsOpen(t *testing.T) {
	dialog := form.New(testFields(), nil, form.WithMode(form.ModeDialog))
	if dialog.Phase() != form.PhaseClosed || dialog.State() != nil {
		t.Fatalf("dialog should start closed without state")
	}
	if v := dialog.View(); v.Visible {
		t.Fatalf("closed dialog must not be visible")
	}

	var focused string
	page := form.New(testFields(), nil, form.WithMode(form.ModePage), form.WithFocus(func(name string) { focused = name }))
	if page.Phase() != form.PhaseOpen {
		t.Fatalf("page should start open, got %s", page.Phase())
	}
	if focused != "name" {
		t.Fatalf("first focusable field should get focus, got %q", focused)
	}
}

func TestReopenDialogReplacesValues(t *testing.T) {
	c := form.New(testFields(), nil, form.WithMode(form.ModeDialog))

	a := model.Values{"id": "a", "name": "Alpha", "email": "a@example.com", "active": true}
	b := model.Values{"id": "b", "name": "Beta"}

	if err := c.Open(a); err != nil {
		t.Fatalf("open A: %v", err)
	}
	c.Bind("name").SetValue("Alpha edited")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Open(b); err != nil {
		t.Fatalf("open B: %v", err)
	}

	want := model.Values{"id": "b", "name": "Beta", "email": "", "active": false, "tags": []any{}}
	if diff := cmp.Diff(want, c.State().Values()); diff != "" {
		t.Fatalf("values leaked between sessions (-want +got):\n%s", diff)
	}
}

func TestSubmitBatchValidation(t *testing.T) {
	calls := 0
	c := form.New(testFields(), func(context.Context, model.Values) error {
		calls++
		return nil
	})

	outcome, err := c.Submit(context.Background())
	if err != nil || outcome != form.SubmitInvalid {
		t.Fatalf("expected invalid outcome, got %s %v", outcome, err)
	}
	if calls != 0 {
		t.Fatalf("submit function must not run on invalid forms")
	}

	want := map[string]string{"name": "Name is required", "email": "Email is required"}
	if diff := cmp.Diff(want, c.State().Errors()); diff != "" {
		t.Fatalf("expected every failing field at once (-want +got):\n%s", diff)
	}
	if v := c.View(); v.Summary == "" {
		t.Fatalf("expected an error summary in the view")
	}
}

func TestDialogSubmitSuccessCloses(t *testing.T) {
	var got model.Values
	c := form.New(testFields(), func(_ context.Context, values model.Values) error {
		got = values
		return nil
	}, form.WithMode(form.ModeDialog))

	if _, err := c.Submit(context.Background()); !errors.Is(err, form.ErrClosed) {
		t.Fatalf("submitting a closed dialog should fail with ErrClosed, got %v", err)
	}

	_ = c.Open(model.Values{"name": "Ada", "email": "ada@example.com"})
	outcome, err := c.Submit(context.Background())
	if err != nil || outcome != form.SubmitSucceeded {
		t.Fatalf("unexpected outcome %s %v", outcome, err)
	}
	if c.Phase() != form.PhaseClosed || c.State() != nil {
		t.Fatalf("dialog should close and drop state on success")
	}
	if got["name"] != "Ada" {
		t.Fatalf("submit received %v", got)
	}
}

func TestPageSubmitSuccessStaysOpen(t *testing.T) {
	c := form.New(testFields(), func(context.Context, model.Values) error { return nil },
		form.WithDefaults(model.Values{"name": "Ada", "email": "ada@example.com"}))

	c.Bind("name").SetValue("Ada Lovelace")
	if outcome, _ := c.Submit(context.Background()); outcome != form.SubmitSucceeded {
		t.Fatalf("expected success, got %s", outcome)
	}
	if c.Phase() != form.PhaseOpen {
		t.Fatalf("page should remain open, got %s", c.Phase())
	}

	c.Bind("name").SetValue("scratch")
	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := c.Bind("name").Value(); got != "Ada Lovelace" {
		t.Fatalf("reset should restore the submitted values, got %v", got)
	}
}

func TestSubmitFailureRetainsValuesAndRoutesFieldErrors(t *testing.T) {
	failure := apperr.FromBody(map[string]any{
		"message": "Validation failed",
		"errors":  map[string]any{"email": []any{"Email already taken"}, "base": "Try again"},
	})
	c := form.New(testFields(), func(context.Context, model.Values) error { return failure },
		form.WithMode(form.ModeDialog))
	_ = c.Open(model.Values{"name": "Ada", "email": "ada@example.com"})

	outcome, err := c.Submit(context.Background())
	if outcome != form.SubmitFailed || !errors.Is(err, failure) {
		t.Fatalf("unexpected outcome %s %v", outcome, err)
	}
	if c.Phase() != form.PhaseOpen {
		t.Fatalf("failed submit should return to open, got %s", c.Phase())
	}
	if got := c.Bind("name").Value(); got != "Ada" {
		t.Fatalf("values must survive failure, got %v", got)
	}
	if got := c.Bind("email").Error(); got != "Email already taken" {
		t.Fatalf("expected server field error, got %q", got)
	}
	if diff := cmp.Diff([]string{"Try again"}, c.FormErrors()); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentSubmitCallsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	c := form.New(testFields(), func(context.Context, model.Values) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}, form.WithDefaults(model.Values{"name": "Ada", "email": "ada@example.com"}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Submit(context.Background())
	}()
	<-started

	outcome, err := c.Submit(context.Background())
	if outcome != form.SubmitDropped || err != nil {
		t.Fatalf("second submit should be dropped silently, got %s %v", outcome, err)
	}
	if !c.State().Submitting() || !c.SubmitButton().Disabled {
		t.Fatalf("expected submitting state while in flight")
	}

	close(release)
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}
}

func TestUnmountWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := form.New(testFields(), func(context.Context, model.Values) error {
		close(started)
		<-release
		return errors.New("boom")
	}, form.WithMode(form.ModeDialog))
	_ = c.Open(model.Values{"name": "Ada", "email": "ada@example.com"})

	done := make(chan form.Outcome, 1)
	go func() {
		outcome, _ := c.Submit(context.Background())
		done <- outcome
	}()
	<-started
	c.Unmount()
	close(release)

	select {
	case outcome := <-done:
		if outcome != form.SubmitFailed {
			t.Fatalf("expected the failure to be reported to the caller, got %s", outcome)
		}
	case <-time.After(time.Second):
		t.Fatalf("submit did not settle")
	}
	if c.State() != nil || c.Phase() != form.PhaseClosed {
		t.Fatalf("detached container must not be touched by the settlement")
	}
	if err := c.Open(nil); !errors.Is(err, form.ErrUnmounted) {
		t.Fatalf("expected ErrUnmounted, got %v", err)
	}
}

func TestChoiceGroupClearsWhenTextEmptied(t *testing.T) {
	state := form.NewState([]model.FieldDescriptor{
		{Name: "contact", Type: model.FieldTypeString, Input: form.InputRadio},
		{Name: "phone", Type: model.FieldTypeString},
		{Name: "email", Type: model.FieldTypeString},
	}, nil)
	group := form.NewChoiceGroup("contact", map[string]string{"phone": "phone", "email": "email"})
	detach := group.Attach(state)
	defer detach()

	state.Bind("contact").SetValue("phone")
	if got := state.Value("contact"); got != "" {
		t.Fatalf("option without text must stay unselectable, got %v", got)
	}

	state.Bind("phone").SetValue("771644513")
	state.Bind("contact").SetValue("phone")
	if got := group.State().Selected; got != "phone" {
		t.Fatalf("expected phone selected, got %q", got)
	}

	state.Bind("phone").SetValue("")
	if got := state.Value("contact"); got != "" {
		t.Fatalf("emptying the paired text must clear the selection, got %v", got)
	}
	if group.State().Enabled("phone") {
		t.Fatalf("phone option should be disabled")
	}
}

func TestReduceChoice(t *testing.T) {
	s := form.ChoiceState{}
	s = form.ReduceChoice(s, form.ChoiceEvent{Kind: form.ChoiceText, Option: "a", Text: "x"})
	s = form.ReduceChoice(s, form.ChoiceEvent{Kind: form.ChoiceSelect, Option: "a"})
	if s.Selected != "a" {
		t.Fatalf("expected a selected, got %q", s.Selected)
	}
	s = form.ReduceChoice(s, form.ChoiceEvent{Kind: form.ChoiceText, Option: "b", Text: ""})
	if s.Selected != "a" {
		t.Fatalf("emptying another option must not clear, got %q", s.Selected)
	}
	s = form.ReduceChoice(s, form.ChoiceEvent{Kind: form.ChoiceText, Option: "a", Text: ""})
	if s.Selected != "" {
		t.Fatalf("expected unselected, got %q", s.Selected)
	}
}

func TestInputsResolveAndParse(t *testing.T) {
	inputs := form.NewInputs()
	inputs.Match(form.InputPhone, 10, func(f model.FieldDescriptor) bool { return f.Name == "mobile" })

	cases := []struct {
		field model.FieldDescriptor
		want  string
	}{
		{model.FieldDescriptor{Name: "pw", Input: form.InputPassword}, form.InputPassword},
		{model.FieldDescriptor{Name: "mobile", Type: model.FieldTypeString}, form.InputPhone},
		{model.FieldDescriptor{Name: "score", Type: model.FieldTypeNumber}, form.InputNumber},
		{model.FieldDescriptor{Name: "active", Type: model.FieldTypeBoolean}, form.InputCheckbox},
		{model.FieldDescriptor{Name: "grade", Options: []model.Option{{Label: "A", Value: "a"}}}, form.InputSelect},
		{model.FieldDescriptor{Name: "title"}, form.InputText},
	}
	for _, tc := range cases {
		if got := inputs.Resolve(tc.field).Kind; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.field.Name, tc.want, got)
		}
	}

	state := form.NewState([]model.FieldDescriptor{{Name: "score", Type: model.FieldTypeNumber}}, nil)
	ctrl := inputs.Control(state, "score")
	ctrl.SetText("12.5")
	if got := state.Value("score"); got != 12.5 {
		t.Fatalf("expected parsed number, got %v", got)
	}
	ctrl.SetText("abc")
	if got := state.Value("score"); got != "abc" {
		t.Fatalf("unparseable text should be stored verbatim, got %v", got)
	}
}

func TestViewSlots(t *testing.T) {
	c := form.New(testFields(), nil, form.WithMode(form.ModeDialog), form.WithTitle("Add Admin"))
	_ = c.Open(model.Values{"name": "Ada"})

	v := c.View()
	if !v.Visible || v.Mode != form.ModeDialog || v.Title != "Add Admin" {
		t.Fatalf("unexpected view header %+v", v)
	}
	var names []string
	for _, f := range v.Content {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"name", "email", "active", "tags"}, names); diff != "" {
		t.Fatalf("content slot mismatch (-want +got):\n%s", diff)
	}
	var actions []string
	for _, a := range v.Actions {
		actions = append(actions, a.Label)
	}
	if diff := cmp.Diff([]string{"Save", "Reset", "Cancel"}, actions); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
	if !v.Content[0].Focused || !v.Content[0].Required {
		t.Fatalf("expected name focused and required: %+v", v.Content[0])
	}
}
