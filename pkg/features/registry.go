// Package features binds each managed entity's form spec, REST resource,
// query key and mutations into ready-to-mount forms and reads.
package features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/goliatone/go-entityform/pkg/entity"
	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/formspec"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/mutation"
	"github.com/goliatone/go-entityform/pkg/notify"
	"github.com/goliatone/go-entityform/pkg/query"
	"github.com/goliatone/go-entityform/pkg/transport/rest"
)

var (
	// ErrUnknownFeature is returned for an entity with no registered feature.
	ErrUnknownFeature = errors.New("features: unknown entity")
	// ErrMissingParent is returned when a scoped feature is written without
	// its parent id.
	ErrMissingParent = errors.New("features: parent id required")
)

// Option customises a Registry.
type Option func(*Registry)

// WithFeatures replaces the built-in feature list.
func WithFeatures(features ...Feature) Option {
	return func(r *Registry) {
		r.pending = append([]Feature(nil), features...)
	}
}

// WithTranslator localises labels, titles and notifications.
func WithTranslator(t i18n.Func) Option {
	return func(r *Registry) {
		if t != nil {
			r.t = t
		}
	}
}

// WithLogger sets the logger shared with the query client and orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithQueryClient shares an existing read cache.
func WithQueryClient(c *query.Client) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// Registry owns the read cache, the dependency graph and the mutation
// orchestrator of every feature.
type Registry struct {
	specs        *formspec.Set
	api          *rest.Client
	notifier     notify.Notifier
	t            i18n.Func
	logger       *slog.Logger
	cache        *query.Client
	graph        *query.Graph
	orchestrator *mutation.Orchestrator
	features     map[string]Feature
	pending      []Feature
}

// New builds a registry. Every feature must have a form spec in specs.
func New(specs *formspec.Set, api *rest.Client, notifier notify.Notifier, options ...Option) (*Registry, error) {
	if specs == nil {
		return nil, errors.New("features: form specs are required")
	}
	r := &Registry{
		specs:    specs,
		api:      api,
		notifier: notifier,
		t:        i18n.Static(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending:  Defaults(),
		features: make(map[string]Feature),
	}
	for _, option := range options {
		if option != nil {
			option(r)
		}
	}
	if r.cache == nil {
		r.cache = query.NewClient(query.WithLogger(r.logger))
	}
	r.graph = query.NewGraph()

	for _, f := range r.pending {
		if _, ok := specs.Spec(f.Entity); !ok {
			return nil, fmt.Errorf("features: %s has no form spec", f.Entity)
		}
		if _, dup := r.features[f.Entity]; dup {
			return nil, fmt.Errorf("features: duplicate feature %s", f.Entity)
		}
		if len(f.Key) == 0 {
			f.Key = query.Key{f.Entity}
		}
		r.features[f.Entity] = f
		r.graph.Declare(f.Entity, f.Key, f.Reads...)
	}
	r.pending = nil

	r.orchestrator = mutation.New(r.cache, notifier,
		mutation.WithTranslator(r.t),
		mutation.WithLogger(r.logger),
		mutation.WithGraph(r.graph),
	)
	return r, nil
}

// Feature returns the feature registered for entity.
func (r *Registry) Feature(entityName string) (Feature, error) {
	f, ok := r.features[entityName]
	if !ok {
		return Feature{}, fmt.Errorf("%w: %s", ErrUnknownFeature, entityName)
	}
	return f, nil
}

// Entities lists the registered entities in name order.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.features))
	for name := range r.features {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cache returns the read cache.
func (r *Registry) Cache() *query.Client {
	return r.cache
}

// Graph returns the declared read dependencies.
func (r *Registry) Graph() *query.Graph {
	return r.graph
}

// Fields compiles the entity's field descriptors for mode.
func (r *Registry) Fields(entityName string, mode formspec.Mode) ([]model.FieldDescriptor, error) {
	spec, ok := r.specs.Spec(entityName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, entityName)
	}
	return spec.Compile(r.t, mode), nil
}

func (r *Registry) resource(f Feature, parent string) (*rest.Resource, error) {
	if r.api == nil {
		return nil, errors.New("features: no API client configured")
	}
	if f.Scoped() && parent == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingParent, f.Entity)
	}
	return r.api.Resource(f.Path).Within(parent), nil
}

// scopedKey is the key of a feature's reads, narrowed to parent when scoped.
func scopedKey(f Feature, parent string) query.Key {
	if f.Scoped() && parent != "" {
		return f.Key.With(parent)
	}
	return f.Key
}

// List resolves the entity's collection read. Scoped features without a
// parent resolve disabled and never fetch.
func (r *Registry) List(entityName, parent string, params map[string]string, onChange func(query.Snapshot)) (*query.Query, error) {
	f, err := r.Feature(entityName)
	if err != nil {
		return nil, err
	}
	return r.cache.Resolve(query.Options{
		Key:      scopedKey(f, parent),
		Params:   params,
		Disabled: f.Scoped() && parent == "",
		OnChange: onChange,
		GetList: func(ctx context.Context, params map[string]string) (any, error) {
			res, err := r.resource(f, parent)
			if err != nil {
				return nil, err
			}
			return res.List(ctx, params)
		},
	}), nil
}

// Item resolves a single-entity read.
func (r *Registry) Item(entityName, parent, id string, onChange func(query.Snapshot)) (*query.Query, error) {
	f, err := r.Feature(entityName)
	if err != nil {
		return nil, err
	}
	return r.cache.Resolve(query.Options{
		Key:      scopedKey(f, parent),
		ID:       id,
		Disabled: id == "" || (f.Scoped() && parent == ""),
		OnChange: onChange,
		GetSingle: func(ctx context.Context, id string) (any, error) {
			res, err := r.resource(f, parent)
			if err != nil {
				return nil, err
			}
			return res.Get(ctx, id)
		},
	}), nil
}

// Adapter binds the entity's create and update requests under parent.
func (r *Registry) Adapter(entityName, parent string) (*entity.Adapter, error) {
	f, err := r.Feature(entityName)
	if err != nil {
		return nil, err
	}
	spec, _ := r.specs.Spec(entityName)

	cfg := entity.Config{
		Entity:        f.Entity,
		ItemLabel:     f.Label,
		FallbackLabel: f.FallbackLabel,
		UIOnly:        spec.UIOnly(),
		Credentials:   spec.Credentials(),
		Create: func(ctx context.Context, payload model.Values) (model.Values, error) {
			res, err := r.resource(f, parent)
			if err != nil {
				return nil, err
			}
			return res.Create(ctx, payload)
		},
		Update: func(ctx context.Context, id string, payload model.Values) (model.Values, error) {
			res, err := r.resource(f, parent)
			if err != nil {
				return nil, err
			}
			return res.Update(ctx, id, payload)
		},
	}
	if len(f.Shape) > 0 {
		cfg.BuildDefaults = f.Shape.Func()
	}
	return entity.NewAdapter(r.orchestrator, cfg), nil
}

// FormOptions configures one mounted form.
type FormOptions struct {
	entity.Options
	// Parent scopes the form of a scoped feature.
	Parent string
	// Mode selects the shell; page when empty.
	Mode  form.Mode
	Focus form.FocusFunc
}

// Form is a mounted container together with its submission handle.
type Form struct {
	*form.Container
	Handle *entity.Handle
}

// Form builds the container for entityName with submissions dispatched to
// create or update.
func (r *Registry) Form(ctx context.Context, entityName string, opts FormOptions) (*Form, error) {
	f, err := r.Feature(entityName)
	if err != nil {
		return nil, err
	}
	if f.Scoped() && opts.Parent == "" {
		if v, ok := opts.Defaults[f.ParentField].(string); ok {
			opts.Parent = v
		}
		if opts.Parent == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingParent, f.Entity)
		}
	}
	adapter, err := r.Adapter(entityName, opts.Parent)
	if err != nil {
		return nil, err
	}

	mode := formspec.ModeCreate
	titleKey, titleFallback := "forms.title.create", "Add {entity}"
	if opts.IsEdit {
		mode = formspec.ModeEdit
		titleKey, titleFallback = "forms.title.edit", "Edit {entity}"
	}
	fields, err := r.Fields(entityName, mode)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		target, ok := f.Lookups[fields[i].Name]
		if !ok {
			continue
		}
		options, err := r.LookupOptions(ctx, target)
		if err != nil {
			r.logger.Warn("lookup options unavailable", "entity", f.Entity, "field", fields[i].Name, "source", target, "error", err)
			continue
		}
		fields[i].Options = options
	}

	handle := adapter.Form(opts.Options)
	if f.Scoped() {
		if _, ok := handle.FormDefaultValues[f.ParentField]; !ok {
			handle.FormDefaultValues[f.ParentField] = opts.Parent
		}
	}

	shellMode := opts.Mode
	if shellMode == "" {
		shellMode = form.ModePage
	}
	title := i18n.Resolve(r.t, titleKey, titleFallback, map[string]any{
		"entity": mutation.EntityName(r.t, f.Entity),
	})
	options := []form.Option{
		form.WithShell(form.ShellFor(shellMode)),
		form.WithDefaults(handle.FormDefaultValues),
		form.WithTitle(title),
		form.WithTranslator(r.t),
		form.WithLogger(r.logger),
		form.WithFocus(opts.Focus),
		form.WithOnUnmount(handle.Detach),
	}
	spec, _ := r.specs.Spec(entityName)
	for field, pairs := range spec.Choices() {
		field, pairs := field, pairs
		options = append(options, form.WithAttach(func(s *form.State) func() {
			return form.NewChoiceGroup(field, pairs).Attach(s)
		}))
	}

	return &Form{
		Container: form.New(fields, handle.HandleSubmit, options...),
		Handle:    handle,
	}, nil
}

// LookupOptions lists entityName and turns each item into an option valued
// by its id and labelled by the feature's label function.
func (r *Registry) LookupOptions(ctx context.Context, entityName string) ([]model.Option, error) {
	f, err := r.Feature(entityName)
	if err != nil {
		return nil, err
	}
	if f.Scoped() {
		return nil, fmt.Errorf("%w: %s", ErrMissingParent, f.Entity)
	}
	q, err := r.List(entityName, "", nil, nil)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	snap, err := q.Await(ctx)
	if err != nil {
		return nil, err
	}
	items, _ := snap.Data.([]model.Values)
	options := make([]model.Option, 0, len(items))
	for _, item := range items {
		id, _ := item["id"].(string)
		if id == "" {
			continue
		}
		label := id
		if f.Label != nil {
			if l := f.Label(item); l != "" {
				label = l
			}
		}
		options = append(options, model.Option{Label: label, Value: id})
	}
	return options, nil
}

// Delete removes item, whose label and id come from the item itself.
func (r *Registry) Delete(ctx context.Context, entityName, parent string, item model.Values) error {
	f, err := r.Feature(entityName)
	if err != nil {
		return err
	}
	id, _ := item["id"].(string)
	if id == "" {
		return entity.ErrMissingID
	}
	if f.Scoped() && parent == "" {
		return fmt.Errorf("%w: %s", ErrMissingParent, f.Entity)
	}
	m := mutation.Bind(r.orchestrator, mutation.Descriptor[model.Values, model.Values]{
		Entity:        f.Entity,
		Action:        mutation.ActionDelete,
		Label:         f.Label,
		FallbackLabel: f.FallbackLabel,
		Do: func(ctx context.Context, in model.Values) (model.Values, error) {
			res, err := r.resource(f, parent)
			if err != nil {
				return nil, err
			}
			return res.Delete(ctx, id)
		},
	})
	_, err = m.Execute(ctx, item)
	return err
}
