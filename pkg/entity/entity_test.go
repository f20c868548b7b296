package entity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/entity"
	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/mutation"
	"github.com/goliatone/go-entityform/pkg/notify"
	"github.com/goliatone/go-entityform/pkg/query"
	"github.com/goliatone/go-entityform/pkg/validation"
)

type calls struct {
	creates []model.Values
	updates []model.Values
	ids     []string
	err     error
}

func adminConfig(c *calls) entity.Config {
	return entity.Config{
		Entity: "admin",
		Create: func(_ context.Context, payload model.Values) (model.Values, error) {
			c.creates = append(c.creates, payload)
			if c.err != nil {
				return nil, c.err
			}
			out := model.Values{"id": "a1"}
			for k, v := range payload {
				out[k] = v
			}
			return out, nil
		},
		Update: func(_ context.Context, id string, payload model.Values) (model.Values, error) {
			c.ids = append(c.ids, id)
			c.updates = append(c.updates, payload)
			return payload, c.err
		},
		BuildDefaults: entity.Shape{
			"id":       {"id", "_id"},
			"fullName": {"fullName", "full_name", "name"},
			"email":    {"email", "contact.email"},
			"phone":    {"phone", "phoneNumber", "mobile"},
		}.Func(),
		ItemLabel:     entity.LabelFrom("fullName", "email"),
		FallbackLabel: "admin",
		Invalidate:    []query.Key{{"admins"}},
		UIOnly:        []string{"confirmPassword"},
		Credentials:   []string{"password"},
	}
}

func TestShapeFirstNonEmptyCandidate(t *testing.T) {
	shape := entity.Shape{
		"fullName": {"fullName", "full_name", "name"},
		"email":    {"email", "contact.email"},
		"phone":    {"phone", "mobile"},
	}
	raw := map[string]any{
		"FullName":  "",
		"FULL_NAME": "Ada Lovelace",
		"Contact":   map[string]any{"Email": "ada@example.com"},
	}

	want := model.Values{"fullName": "Ada Lovelace", "email": "ada@example.com"}
	if diff := cmp.Diff(want, shape.Build(raw)); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestEditOmitsEmptyCredential(t *testing.T) {
	c := &calls{}
	adapter := entity.NewAdapter(mutation.New(nil, nil), adminConfig(c))

	h := adapter.Form(entity.Options{
		IsEdit:   true,
		Defaults: map[string]any{"_id": "a7", "full_name": "Ada", "email": "ada@example.com"},
	})
	if h.ID() != "a7" {
		t.Fatalf("expected id from defaults, got %q", h.ID())
	}

	values := model.Values{
		"id":              "a7",
		"fullName":        "Ada",
		"email":           "ada@example.com",
		"password":        "",
		"confirmPassword": "",
	}
	if err := h.HandleSubmit(context.Background(), values); err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := model.Values{"fullName": "Ada", "email": "ada@example.com"}
	if diff := cmp.Diff([]model.Values{want}, c.updates); diff != "" {
		t.Fatalf("update payload mismatch (-want +got):\n%s", diff)
	}
	if _, present := c.updates[0]["password"]; present {
		t.Fatalf("empty password must be absent from the edit payload")
	}
	if diff := cmp.Diff([]string{"a7"}, c.ids); diff != "" {
		t.Fatalf("update id mismatch (-want +got):\n%s", diff)
	}
	if len(c.creates) != 0 {
		t.Fatalf("edit must not create")
	}
}

func TestCreateKeepsCredentialAndStripsUIOnly(t *testing.T) {
	c := &calls{}
	var rec notify.Recorder
	var created model.Values
	adapter := entity.NewAdapter(mutation.New(nil, &rec), adminConfig(c))

	h := adapter.Form(entity.Options{OnSuccess: func(v model.Values) { created = v }})
	err := h.HandleSubmit(context.Background(), model.Values{
		"fullName":        "Grace Hopper",
		"password":        "Secret#123",
		"confirmPassword": "Secret#123",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := model.Values{"fullName": "Grace Hopper", "password": "Secret#123"}
	if diff := cmp.Diff([]model.Values{want}, c.creates); diff != "" {
		t.Fatalf("create payload mismatch (-want +got):\n%s", diff)
	}
	if created["id"] != "a1" {
		t.Fatalf("OnSuccess should receive the response, got %v", created)
	}
	last, _ := rec.Last()
	if last.Message != `Admin "Grace Hopper" was created` {
		t.Fatalf("unexpected notification %q", last.Message)
	}
}

func TestEditWithoutIDFails(t *testing.T) {
	adapter := entity.NewAdapter(mutation.New(nil, nil), adminConfig(&calls{}))
	h := adapter.Form(entity.Options{IsEdit: true})
	if err := h.HandleSubmit(context.Background(), model.Values{}); !errors.Is(err, entity.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestHandleReportsErrors(t *testing.T) {
	c := &calls{err: errors.New("offline")}
	var got *apperr.AppError
	adapter := entity.NewAdapter(mutation.New(nil, nil), adminConfig(c))
	h := adapter.Form(entity.Options{OnError: func(err *apperr.AppError) { got = err }})

	if err := h.HandleSubmit(context.Background(), model.Values{"fullName": "x"}); err == nil {
		t.Fatalf("expected an error")
	}
	if !h.IsError() || h.Error() == nil || h.IsLoading() {
		t.Fatalf("handle should report the failure")
	}
	if got == nil || got.Kind != apperr.KindTransport {
		t.Fatalf("OnError should receive a transport AppError, got %+v", got)
	}
}

func TestHandleDrivesContainer(t *testing.T) {
	c := &calls{}
	adapter := entity.NewAdapter(mutation.New(nil, nil), adminConfig(c))
	b := validation.NewBuilder(nil)
	fields := []model.FieldDescriptor{
		{Name: "fullName", Type: model.FieldTypeString, Rules: b.Required("Full name")},
		{Name: "email", Type: model.FieldTypeString, Rules: b.Email("Email")},
	}

	h := adapter.Form(entity.Options{IsEdit: true, Defaults: map[string]any{"id": "a9", "name": "Ada"}})
	container := form.New(fields, h.HandleSubmit, form.WithMode(form.ModeDialog))
	if err := container.Open(h.FormDefaultValues); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := container.Bind("fullName").Value(); got != "Ada" {
		t.Fatalf("expected shaped default, got %v", got)
	}

	outcome, err := container.Submit(context.Background())
	if err != nil || outcome != form.SubmitSucceeded {
		t.Fatalf("unexpected outcome %s %v", outcome, err)
	}
	if diff := cmp.Diff([]string{"a9"}, c.ids); diff != "" {
		t.Fatalf("update id mismatch (-want +got):\n%s", diff)
	}
}

func TestEditSendsSubmittedID(t *testing.T) {
	c := &calls{}
	adapter := entity.NewAdapter(mutation.New(nil, nil), adminConfig(c))
	h := adapter.Form(entity.Options{IsEdit: true, Defaults: map[string]any{"id": "a1", "fullName": "Ada"}})

	if err := h.HandleSubmit(context.Background(), model.Values{"id": "b2", "fullName": "Grace"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if diff := cmp.Diff([]string{"b2"}, c.ids); diff != "" {
		t.Fatalf("update id mismatch (-want +got):\n%s", diff)
	}
}

func TestShapeCaseFoldIsDeterministic(t *testing.T) {
	shape := entity.Shape{"name": {"name"}}
	raw := map[string]any{"NAME": "upper", "Name": "title", "nAME": "odd"}
	for i := 0; i < 20; i++ {
		if got := shape.Build(raw)["name"]; got != "upper" {
			t.Fatalf("expected the first key in sorted order, got %v", got)
		}
	}
}

func TestUnmountedFormSkipsCallbacks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	cfg := adminConfig(&calls{})
	cfg.Create = func(context.Context, model.Values) (model.Values, error) {
		close(started)
		<-release
		return model.Values{"id": "a1", "fullName": "Ada"}, nil
	}
	adapter := entity.NewAdapter(mutation.New(nil, nil), cfg)

	succeeded := make(chan model.Values, 1)
	h := adapter.Form(entity.Options{OnSuccess: func(v model.Values) { succeeded <- v }})
	fields := []model.FieldDescriptor{{Name: "fullName", Type: model.FieldTypeString}}
	container := form.New(fields, h.HandleSubmit, form.WithOnUnmount(h.Detach))
	container.Bind("fullName").SetValue("Ada")

	done := make(chan form.Outcome, 1)
	go func() {
		outcome, _ := container.Submit(context.Background())
		done <- outcome
	}()
	<-started
	container.Unmount()
	close(release)

	select {
	case outcome := <-done:
		if outcome != form.SubmitSucceeded {
			t.Fatalf("expected the request to settle, got %s", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("submit did not settle")
	}
	select {
	case v := <-succeeded:
		t.Fatalf("OnSuccess ran after unmount with %v", v)
	default:
	}
}

func TestLabels(t *testing.T) {
	if got := entity.JoinLabel("firstName", "lastName")(model.Values{"firstName": "Ada", "lastName": "Lovelace"}); got != "Ada Lovelace" {
		t.Fatalf("unexpected joined label %q", got)
	}
	if got := entity.LabelFrom("title", "name")(map[string]any{"name": "Algebra"}); got != "Algebra" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := entity.LabelFrom("title")(42); got != "" {
		t.Fatalf("non-map items have no label, got %q", got)
	}
}
