package mutation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/mutation"
	"github.com/goliatone/go-entityform/pkg/notify"
	"github.com/goliatone/go-entityform/pkg/query"
)

type recordingCache struct {
	mu   sync.Mutex
	keys [][]query.Key
}

func (c *recordingCache) Invalidate(keys ...query.Key) {
	c.mu.Lock()
	c.keys = append(c.keys, keys)
	c.mu.Unlock()
}

type grade struct {
	ID   string
	Name string
}

type apiErr struct{ body map[string]any }

func (e *apiErr) Error() string             { return "api error" }
func (e *apiErr) ErrorBody() map[string]any { return e.body }

func localizer() i18n.Func {
	return i18n.MustLoadEmbedded().Localizer("en-US").Func()
}

func TestCreateSuccessInvalidatesNotifiesThenCallsBack(t *testing.T) {
	cache := &recordingCache{}
	var rec notify.Recorder
	o := mutation.New(cache, &rec, mutation.WithTranslator(localizer()))

	var order []string
	m := mutation.Bind(o, mutation.Descriptor[grade, grade]{
		Entity: "grade",
		Action: mutation.ActionCreate,
		Do: func(_ context.Context, in grade) (grade, error) {
			in.ID = "g1"
			return in, nil
		},
		Invalidate: []query.Key{{"grades"}},
		Label:      func(item any) string { return item.(grade).Name },
		OnSuccess: func(g grade) {
			order = append(order, "success:"+g.ID)
		},
	})

	out, err := m.Execute(context.Background(), grade{Name: "Grade 5"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.ID != "g1" {
		t.Fatalf("unexpected result %+v", out)
	}
	if diff := cmp.Diff([][]query.Key{{{"grades"}}}, cache.keys); diff != "" {
		t.Fatalf("invalidated keys mismatch (-want +got):\n%s", diff)
	}
	want := []notify.Notification{notify.Success(`Grade "Grade 5" was created`)}
	if diff := cmp.Diff(want, rec.All()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"success:g1"}, order); diff != "" {
		t.Fatalf("callback mismatch (-want +got):\n%s", diff)
	}
	if m.Pending() || m.Err() != nil {
		t.Fatalf("mutation should be idle without error")
	}
}

func TestDeleteLabelComesFromInput(t *testing.T) {
	var rec notify.Recorder
	o := mutation.New(&recordingCache{}, &rec)

	m := mutation.Bind(o, mutation.Descriptor[grade, map[string]any]{
		Entity: "grade",
		Action: mutation.ActionDelete,
		Do: func(context.Context, grade) (map[string]any, error) {
			return map[string]any{}, nil
		},
		Label: func(item any) string {
			g, ok := item.(grade)
			if !ok {
				t.Fatalf("delete label must receive the input, got %T", item)
			}
			return g.Name
		},
		FallbackLabel: "item",
	})

	if _, err := m.Execute(context.Background(), grade{ID: "g1", Name: "Grade 7"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	last, _ := rec.Last()
	if last.Message != `Grade "Grade 7" was deleted` {
		t.Fatalf("unexpected message %q", last.Message)
	}
}

func TestLabelPanicsFallBack(t *testing.T) {
	var rec notify.Recorder
	o := mutation.New(nil, &rec)
	m := mutation.Bind(o, mutation.Descriptor[string, any]{
		Entity:        "unit",
		Action:        mutation.ActionUpdate,
		Do:            func(context.Context, string) (any, error) { return nil, nil },
		Label:         func(item any) string { return item.(map[string]any)["name"].(string) },
		FallbackLabel: "unit",
	})

	if _, err := m.Execute(context.Background(), "u1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	last, _ := rec.Last()
	if last.Message != `Unit "unit" was updated` {
		t.Fatalf("unexpected message %q", last.Message)
	}
}

func TestFailureMessagePreference(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "api message field",
			err:  &apiErr{body: map[string]any{"message": "Email already taken", "errors": []any{"x"}}},
			want: "Email already taken",
		},
		{
			name: "first errors entry",
			err:  &apiErr{body: map[string]any{"errors": []any{"Name too short", "Other"}}},
			want: "Name too short",
		},
		{
			name: "transport falls back",
			err:  errors.New("connection refused"),
			want: "Could not create Student",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache := &recordingCache{}
			var rec notify.Recorder
			var got *apperr.AppError
			o := mutation.New(cache, &rec, mutation.WithTranslator(localizer()))
			m := mutation.Bind(o, mutation.Descriptor[string, string]{
				Entity:     "student",
				Action:     mutation.ActionCreate,
				Do:         func(context.Context, string) (string, error) { return "", tc.err },
				Invalidate: []query.Key{{"students"}},
				OnError:    func(err *apperr.AppError) { got = err },
			})

			_, err := m.Execute(context.Background(), "payload")
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected wrapped cause, got %v", err)
			}
			want := []notify.Notification{notify.Error(tc.want)}
			if diff := cmp.Diff(want, rec.All()); diff != "" {
				t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
			}
			if got == nil || m.Err() != got {
				t.Fatalf("OnError should receive the normalised error")
			}
			if len(cache.keys) != 0 {
				t.Fatalf("failures must not invalidate")
			}
		})
	}
}

func TestValidationErrorsDoNotNotify(t *testing.T) {
	var rec notify.Recorder
	o := mutation.New(nil, &rec)
	m := mutation.Bind(o, mutation.Descriptor[string, string]{
		Entity: "exam",
		Action: mutation.ActionCreate,
		Do: func(context.Context, string) (string, error) {
			return "", apperr.Validation(map[string]string{"title": "Title is required"})
		},
	})

	if _, err := m.Execute(context.Background(), ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(rec.All()) != 0 {
		t.Fatalf("validation errors must stay local, got %+v", rec.All())
	}
}

func TestGraphDerivedInvalidation(t *testing.T) {
	g := query.NewGraph()
	g.Declare("unit", query.Key{"units"})
	g.Declare("lesson", query.Key{"lessons"}, "unit")

	cache := &recordingCache{}
	o := mutation.New(cache, nil, mutation.WithGraph(g))
	m := mutation.Bind(o, mutation.Descriptor[string, string]{
		Entity: "unit",
		Action: mutation.ActionUpdate,
		Do:     func(_ context.Context, in string) (string, error) { return in, nil },
	})
	if _, err := m.Execute(context.Background(), "u1"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := [][]query.Key{{{"units"}, {"lessons"}}}
	if diff := cmp.Diff(want, cache.keys); diff != "" {
		t.Fatalf("invalidated keys mismatch (-want +got):\n%s", diff)
	}
}

func TestMutationRefreshesLiveQueries(t *testing.T) {
	client := query.NewClient()
	var items []string
	var mu sync.Mutex
	list := func(context.Context, map[string]string) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), items...), nil
	}
	q := client.Resolve(query.Options{Key: query.Key{"competitions"}, GetList: list})
	client.Wait()

	o := mutation.New(client, nil)
	m := mutation.Bind(o, mutation.Descriptor[string, string]{
		Entity: "competition",
		Action: mutation.ActionCreate,
		Do: func(_ context.Context, name string) (string, error) {
			mu.Lock()
			items = append(items, name)
			mu.Unlock()
			return name, nil
		},
		Invalidate: []query.Key{{"competitions"}},
	})
	if _, err := m.Execute(context.Background(), "Spelling bee"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	client.Wait()

	if diff := cmp.Diff([]string{"Spelling bee"}, q.Snapshot().Data); diff != "" {
		t.Fatalf("list did not refresh (-want +got):\n%s", diff)
	}
}
