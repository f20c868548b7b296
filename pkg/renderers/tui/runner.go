// Package tui fills and submits form containers from the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-entityform/pkg/form"
)

// DefaultMaxAttempts is the submit attempt limit of Run.
const DefaultMaxAttempts = 5

// Runner prompts for a container's fields and submits it.
type Runner struct {
	driver      PromptDriver
	theme       Theme
	maxAttempts int
}

// New builds a runner backed by survey unless another driver is supplied.
func New(options ...Option) *Runner {
	r := &Runner{maxAttempts: DefaultMaxAttempts}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(terminal.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	}
	return r
}

// Run opens c when closed, prompts every field and submits. Fields that fail
// validation, locally or on the server, are prompted again and the form is
// resubmitted until it succeeds or the attempt limit is reached.
func (r *Runner) Run(ctx context.Context, c *form.Container) (form.Outcome, error) {
	if c == nil {
		return form.SubmitDropped, ErrNoContainer
	}
	if c.Phase() == form.PhaseClosed {
		if err := c.Open(nil); err != nil {
			return form.SubmitDropped, fmt.Errorf("tui: open: %w", err)
		}
	}
	if title := c.Title(); title != "" {
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+title); err != nil {
			return form.SubmitDropped, err
		}
	}
	if err := r.Fill(ctx, c); err != nil {
		return form.SubmitDropped, err
	}

	for attempt := 1; ; attempt++ {
		outcome, err := c.Submit(ctx)
		switch outcome {
		case form.SubmitSucceeded, form.SubmitDropped:
			return outcome, err
		}

		failing := failingFields(c)
		if outcome == form.SubmitFailed && len(failing) == 0 {
			return outcome, err
		}
		if attempt >= r.maxAttempts {
			if err == nil {
				return outcome, ErrTooManyAttempts
			}
			return outcome, errors.Join(ErrTooManyAttempts, err)
		}
		for _, message := range c.FormErrors() {
			if infoErr := r.driver.Info(ctx, r.theme.ErrorPrefix+message); infoErr != nil {
				return outcome, infoErr
			}
		}
		if err := r.Fill(ctx, c, failing...); err != nil {
			return outcome, err
		}
	}
}

// Fill prompts for the named fields, or every visible enabled field when no
// names are given, writing answers through the container's controls.
func (r *Runner) Fill(ctx context.Context, c *form.Container, names ...string) error {
	only := make(map[string]struct{}, len(names))
	for _, name := range names {
		only[name] = struct{}{}
	}
	for _, view := range c.Content() {
		if view.Disabled {
			continue
		}
		if _, ok := only[view.Name]; len(only) > 0 && !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.prompt(ctx, c.Control(view.Name), view); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) prompt(ctx context.Context, control form.Control, view form.FieldView) error {
	if view.Error != "" {
		if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, view.Label, view.Error)); err != nil {
			return err
		}
	}
	message := r.theme.PromptPrefix + view.Label
	help := view.HelperText

	switch view.Input {
	case form.InputPassword:
		answer, err := r.driver.Password(ctx, InputConfig{Message: message, Help: help})
		if err != nil {
			return err
		}
		control.SetText(answer)
	case form.InputTextArea:
		answer, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: view.Text, Help: help})
		if err != nil {
			return err
		}
		control.SetText(answer)
	case form.InputCheckbox:
		current, _ := view.Value.(bool)
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: current, Help: help})
		if err != nil {
			return err
		}
		control.SetValue(answer)
	case form.InputSelect, form.InputRadio:
		return r.promptSelect(ctx, control, view, message, help)
	case form.InputMultiSelect:
		labels, values := optionLists(view)
		var defaults []int
		if current, ok := view.Value.([]any); ok {
			for _, item := range current {
				if idx := indexOf(values, fmt.Sprint(item)); idx >= 0 {
					defaults = append(defaults, idx)
				}
			}
		}
		picked, err := r.driver.MultiSelect(ctx, SelectConfig{Message: message, Options: labels, Defaults: defaults, Help: help})
		if err != nil {
			return err
		}
		control.SetText(strings.Join(defaultsFromIndices(values, picked), ","))
	default:
		answer, err := r.driver.Input(ctx, InputConfig{Message: message, Default: view.Text, Help: help})
		if err != nil {
			return err
		}
		control.SetText(answer)
	}
	return nil
}

func (r *Runner) promptSelect(ctx context.Context, control form.Control, view form.FieldView, message, help string) error {
	labels, values := optionLists(view)
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      labels,
			DefaultIndex: indexOf(values, view.Text),
			Help:         help,
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(values) {
			control.SetText(values[idx])
			return nil
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s selection", r.theme.ErrorPrefix, view.Label)); err != nil {
			return err
		}
	}
}

func optionLists(view form.FieldView) (labels, values []string) {
	for _, opt := range view.Options {
		labels = append(labels, opt.Label)
		values = append(values, opt.Value)
	}
	return labels, values
}

func failingFields(c *form.Container) []string {
	var out []string
	for _, view := range c.Content() {
		if view.Error != "" && !view.Disabled {
			out = append(out, view.Name)
		}
	}
	return out
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

func defaultsFromIndices(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
