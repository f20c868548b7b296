// Package entity wires a form container to an entity's create and update
// requests so each feature's form is configuration.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/mutation"
	"github.com/goliatone/go-entityform/pkg/query"
	"github.com/goliatone/go-entityform/pkg/validation"
)

// ErrMissingID is returned when an edit submission has no identifier.
var ErrMissingID = errors.New("entity: edit submission without an id")

// CreateFunc is the create request function.
type CreateFunc func(ctx context.Context, payload model.Values) (model.Values, error)

// UpdateFunc is the update request function.
type UpdateFunc func(ctx context.Context, id string, payload model.Values) (model.Values, error)

// Config is the per-entity configuration.
type Config struct {
	Entity        string
	Create        CreateFunc
	Update        UpdateFunc
	BuildDefaults func(raw map[string]any) model.Values
	ItemLabel     func(item any) string
	FallbackLabel string
	Invalidate    []query.Key
	// IDField names the identifier in defaults and responses ("id" when empty).
	IDField string
	// UIOnly fields exist only on the form (confirmations) and never reach
	// the request function.
	UIOnly []string
	// Credentials are omitted from edit payloads while empty.
	Credentials []string
}

func (c Config) idField() string {
	if c.IDField == "" {
		return "id"
	}
	return c.IDField
}

// Options configures one form mount.
type Options struct {
	Defaults  map[string]any
	IsEdit    bool
	ID        string
	OnSuccess func(model.Values)
	OnError   func(*apperr.AppError)
}

type updateInput struct {
	ID      string
	Payload model.Values
}

// Adapter holds the bound create and update mutations of one entity.
type Adapter struct {
	cfg    Config
	create *mutation.Mutation[model.Values, model.Values]
	update *mutation.Mutation[updateInput, model.Values]
}

// NewAdapter binds cfg to the orchestrator.
func NewAdapter(o *mutation.Orchestrator, cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	a.create = mutation.Bind(o, mutation.Descriptor[model.Values, model.Values]{
		Entity:        cfg.Entity,
		Action:        mutation.ActionCreate,
		Do:            a.doCreate,
		Invalidate:    cfg.Invalidate,
		Label:         cfg.ItemLabel,
		FallbackLabel: cfg.FallbackLabel,
	})
	a.update = mutation.Bind(o, mutation.Descriptor[updateInput, model.Values]{
		Entity:        cfg.Entity,
		Action:        mutation.ActionUpdate,
		Do:            a.doUpdate,
		Invalidate:    cfg.Invalidate,
		Label:         cfg.ItemLabel,
		FallbackLabel: cfg.FallbackLabel,
	})
	return a
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

func (a *Adapter) doCreate(ctx context.Context, payload model.Values) (model.Values, error) {
	if a.cfg.Create == nil {
		return nil, fmt.Errorf("entity: %s has no create function", a.cfg.Entity)
	}
	return a.cfg.Create(ctx, payload)
}

func (a *Adapter) doUpdate(ctx context.Context, in updateInput) (model.Values, error) {
	if a.cfg.Update == nil {
		return nil, fmt.Errorf("entity: %s has no update function", a.cfg.Entity)
	}
	return a.cfg.Update(ctx, in.ID, in.Payload)
}

// Payload strips form-only fields, the identifier, and on edit any empty
// credential, from the submitted values.
func (a *Adapter) Payload(values model.Values, isEdit bool) model.Values {
	drop := make(map[string]struct{}, len(a.cfg.UIOnly)+1)
	for _, name := range a.cfg.UIOnly {
		drop[name] = struct{}{}
	}
	drop[a.cfg.idField()] = struct{}{}

	out := make(model.Values, len(values))
	for name, value := range values {
		if _, skip := drop[name]; skip {
			continue
		}
		out[name] = value
	}
	if isEdit {
		for _, name := range a.cfg.Credentials {
			if value, ok := out[name]; ok && validation.IsEmpty(value) {
				delete(out, name)
			}
		}
	}
	return out
}

// Form prepares a submission handle for one form mount.
func (a *Adapter) Form(opts Options) *Handle {
	h := &Handle{adapter: a, opts: opts}
	switch {
	case opts.Defaults != nil && a.cfg.BuildDefaults != nil:
		h.FormDefaultValues = a.cfg.BuildDefaults(opts.Defaults)
	default:
		h.FormDefaultValues = make(model.Values, len(opts.Defaults))
		for k, v := range opts.Defaults {
			h.FormDefaultValues[k] = v
		}
	}
	if h.opts.ID == "" && opts.IsEdit {
		h.opts.ID = idOf(opts.Defaults, a.cfg.idField())
		if h.opts.ID == "" {
			h.opts.ID = idOf(h.FormDefaultValues, a.cfg.idField())
		}
	}
	return h
}

// Handle is what a form mount uses: its defaults and its submit function.
type Handle struct {
	FormDefaultValues model.Values

	adapter *Adapter
	opts    Options

	detached atomic.Bool
}

// ID returns the identifier the handle was built for. Submissions prefer
// the identifier carried in the submitted values.
func (h *Handle) ID() string {
	return h.opts.ID
}

// Detach stops OnSuccess and OnError from running for submissions that
// settle afterwards.
func (h *Handle) Detach() {
	h.detached.Store(true)
}

// HandleSubmit dispatches to update when editing and to create otherwise.
// It has the shape of form.SubmitFunc. An edit is sent for the id in
// values, falling back to the id the handle was built for.
func (h *Handle) HandleSubmit(ctx context.Context, values model.Values) error {
	a := h.adapter
	payload := a.Payload(values, h.opts.IsEdit)

	var (
		out model.Values
		err error
	)
	if h.opts.IsEdit {
		id := idOf(values, a.cfg.idField())
		if id == "" {
			id = h.opts.ID
		}
		if id == "" {
			return ErrMissingID
		}
		out, err = a.update.Execute(ctx, updateInput{ID: id, Payload: payload})
	} else {
		out, err = a.create.Execute(ctx, payload)
	}

	if h.detached.Load() {
		return err
	}
	if err != nil {
		if h.opts.OnError != nil {
			h.opts.OnError(apperr.Normalize(err))
		}
		return err
	}
	if h.opts.OnSuccess != nil {
		h.opts.OnSuccess(out)
	}
	return nil
}

func (h *Handle) current() interface {
	Pending() bool
	Err() *apperr.AppError
} {
	if h.opts.IsEdit {
		return h.adapter.update
	}
	return h.adapter.create
}

// IsLoading reports whether a submission is in flight.
func (h *Handle) IsLoading() bool { return h.current().Pending() }

// IsError reports whether the last submission failed.
func (h *Handle) IsError() bool { return h.current().Err() != nil }

// Error returns the last submission error.
func (h *Handle) Error() *apperr.AppError { return h.current().Err() }

func idOf(values map[string]any, field string) string {
	if values == nil {
		return ""
	}
	value, ok := lookup(values, field)
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
