// Package mutation runs entity writes and applies the shared settle policy:
// invalidate affected cache keys, notify once, then call back.
package mutation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-entityform/pkg/apperr"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/notify"
	"github.com/goliatone/go-entityform/pkg/query"
)

// Action is the kind of write.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Invalidator is the part of the cache a mutation touches.
type Invalidator interface {
	Invalidate(keys ...query.Key)
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithTranslator sets the message function.
func WithTranslator(t i18n.Func) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.t = t
		}
	}
}

// WithLogger attaches a logger for settle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGraph derives invalidation keys for descriptors that do not list any.
func WithGraph(g *query.Graph) Option {
	return func(o *Orchestrator) {
		o.graph = g
	}
}

// Orchestrator holds the collaborators shared by every mutation.
type Orchestrator struct {
	cache    Invalidator
	notifier notify.Notifier
	t        i18n.Func
	graph    *query.Graph
	logger   *slog.Logger
}

// New builds an Orchestrator. A nil notifier discards notifications.
func New(cache Invalidator, notifier notify.Notifier, options ...Option) *Orchestrator {
	if notifier == nil {
		notifier = notify.Discard
	}
	o := &Orchestrator{
		cache:    cache,
		notifier: notifier,
		t:        i18n.Static(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		if option != nil {
			option(o)
		}
	}
	return o
}

// Descriptor configures one write. Label receives the response for create
// and update but the original input for delete, since delete responses carry
// no entity. FallbackLabel is used when Label is nil, panics or returns "".
type Descriptor[In, Out any] struct {
	Entity        string
	Action        Action
	Do            func(ctx context.Context, input In) (Out, error)
	Invalidate    []query.Key
	Label         func(item any) string
	FallbackLabel string
	OnSuccess     func(Out)
	OnError       func(*apperr.AppError)
}

// Mutation is a Descriptor bound to an Orchestrator.
type Mutation[In, Out any] struct {
	o *Orchestrator
	d Descriptor[In, Out]

	mu      sync.Mutex
	pending int
	lastErr *apperr.AppError
}

// Bind binds d to o.
func Bind[In, Out any](o *Orchestrator, d Descriptor[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{o: o, d: d}
}

// Pending reports whether an Execute call is in flight.
func (m *Mutation[In, Out]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// Err returns the error of the last settled call, nil after a success.
func (m *Mutation[In, Out]) Err() *apperr.AppError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Execute runs the write. On success the invalidation keys are marked stale
// without waiting for refetches, one success notification is emitted and
// OnSuccess runs. On failure the error is normalised, one failure
// notification is emitted (client validation errors excepted) and OnError
// runs. Errors from the request function are returned as *apperr.AppError.
func (m *Mutation[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	if m.d.Do == nil {
		var zero Out
		return zero, fmt.Errorf("mutation: %s %s has no request function", m.d.Action, m.d.Entity)
	}

	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	out, err := m.d.Do(ctx, input)

	m.mu.Lock()
	m.pending--
	m.mu.Unlock()

	if err != nil {
		appErr := apperr.Normalize(err)
		m.fail(appErr)
		var zero Out
		return zero, appErr
	}
	m.succeed(input, out)
	return out, nil
}

func (m *Mutation[In, Out]) succeed(input In, out Out) {
	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()

	o, d := m.o, m.d
	keys := o.keysFor(d.Entity, d.Invalidate)
	if o.cache != nil && len(keys) > 0 {
		o.cache.Invalidate(keys...)
	}

	var item any = out
	if d.Action == ActionDelete {
		item = input
	}
	label := safeLabel(d.Label, item, d.FallbackLabel)

	o.notifier.Notify(notify.Success(o.message(d.Action, "success", d.Entity, label)))
	o.logger.Info("mutation settled", "entity", d.Entity, "action", d.Action, "outcome", "success", "label", label)

	if d.OnSuccess != nil {
		d.OnSuccess(out)
	}
}

func (m *Mutation[In, Out]) fail(appErr *apperr.AppError) {
	m.mu.Lock()
	m.lastErr = appErr
	m.mu.Unlock()

	o, d := m.o, m.d
	if appErr.Kind != apperr.KindValidation {
		msg := appErr.Display()
		if msg == "" {
			msg = o.message(d.Action, "error", d.Entity, "")
		}
		o.notifier.Notify(notify.Error(msg))
	}
	o.logger.Info("mutation settled", "entity", d.Entity, "action", d.Action, "outcome", "error", "kind", appErr.Kind, "status", appErr.Status)

	if d.OnError != nil {
		d.OnError(appErr)
	}
}

func (o *Orchestrator) keysFor(entity string, listed []query.Key) []query.Key {
	if len(listed) > 0 || o.graph == nil {
		return listed
	}
	keys, err := o.graph.InvalidationSet(entity)
	if err != nil {
		o.logger.Warn("mutation has no invalidation keys", "entity", entity, "error", err)
		return nil
	}
	return keys
}

// EntityName resolves the display name of entity through t.
func EntityName(t i18n.Func, entity string) string {
	return i18n.Resolve(t, "entities."+entity, cases.Title(language.English).String(entity), nil)
}

func (o *Orchestrator) message(action Action, outcome, entity, label string) string {
	params := map[string]any{"entity": EntityName(o.t, entity), "label": label}
	key := fmt.Sprintf("notifications.%s.%s", action, outcome)
	return i18n.Resolve(o.t, key, fallbackMessage(action, outcome), params)
}

func fallbackMessage(action Action, outcome string) string {
	past := map[Action]string{ActionCreate: "created", ActionUpdate: "updated", ActionDelete: "deleted"}[action]
	if outcome == "success" {
		return `{entity} "{label}" was ` + past
	}
	return "Could not " + string(action) + " {entity}"
}

func safeLabel(fn func(any) string, item any, fallback string) (label string) {
	defer func() {
		if recover() != nil {
			label = fallback
		}
		if strings.TrimSpace(label) == "" {
			label = fallback
		}
	}()
	if fn == nil {
		return fallback
	}
	return fn(item)
}
