package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-entityform/pkg/entity"
	"github.com/goliatone/go-entityform/pkg/features"
	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/renderers/tui"
)

func newListCmd(a *app) *cobra.Command {
	var (
		parent string
		search string
	)
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.registry.Feature(args[0])
			if err != nil {
				return err
			}
			var params map[string]string
			if search != "" {
				params = map[string]string{"q": search}
			}
			if f.Scoped() && parent == "" {
				return fmt.Errorf("%w: pass --parent for %s", features.ErrMissingParent, f.Entity)
			}
			q, err := a.registry.List(f.Entity, parent, params, nil)
			if err != nil {
				return err
			}
			defer q.Close()
			snap, err := q.Await(cmd.Context())
			if err != nil {
				return err
			}
			items, _ := snap.Data.([]model.Values)
			return printTable(cmd.OutOrStdout(), f.Columns, items)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	cmd.Flags().StringVarP(&search, "query", "q", "", "search text")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "show <entity> <id>",
		Short: "Show one entity as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.fetch(cmd, args[0], parent, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		parent string
		sets   []string
	)
	cmd := &cobra.Command{
		Use:   "create <entity>",
		Short: "Create an entity through its form",
		Long: `Create an entity through its form.

Without --set the form is filled interactively and fields that fail
validation are asked again. With --set the values are applied as given and
the command fails on the first invalid submit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submitForm(cmd, args[0], features.FormOptions{Parent: parent}, sets)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment (repeatable)")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		parent string
		sets   []string
	)
	cmd := &cobra.Command{
		Use:   "edit <entity> <id>",
		Short: "Edit an entity through its form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.fetch(cmd, args[0], parent, args[1])
			if err != nil {
				return err
			}
			opts := features.FormOptions{
				Parent:  parent,
				Options: entity.Options{Defaults: item, IsEdit: true, ID: args[1]},
			}
			return a.submitForm(cmd, args[0], opts, sets)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment (repeatable)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.fetch(cmd, args[0], parent, args[1])
			if err != nil {
				return err
			}
			return a.registry.Delete(cmd.Context(), args[0], parent, item)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	return cmd
}

func (a *app) fetch(cmd *cobra.Command, entityName, parent, id string) (model.Values, error) {
	f, err := a.registry.Feature(entityName)
	if err != nil {
		return nil, err
	}
	if f.Scoped() && parent == "" {
		return nil, fmt.Errorf("%w: pass --parent for %s", features.ErrMissingParent, f.Entity)
	}
	q, err := a.registry.Item(entityName, parent, id, nil)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	snap, err := q.Await(cmd.Context())
	if err != nil {
		return nil, err
	}
	item, ok := snap.Data.(model.Values)
	if !ok {
		return nil, fmt.Errorf("entityform: %s %s not loaded", entityName, id)
	}
	return item, nil
}

func (a *app) submitForm(cmd *cobra.Command, entityName string, opts features.FormOptions, sets []string) error {
	out := cmd.OutOrStdout()
	opts.OnSuccess = func(saved model.Values) {
		_ = printJSON(out, saved)
	}
	f, err := a.registry.Form(cmd.Context(), entityName, opts)
	if err != nil {
		return err
	}
	defer f.Unmount()

	if len(sets) == 0 {
		_, err := tui.New().Run(cmd.Context(), f.Container)
		return err
	}

	assignments, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	for name, raw := range assignments {
		if _, ok := f.Bind(name).Field(); !ok {
			return fmt.Errorf("entityform: %s has no field %q", entityName, name)
		}
		f.Control(name).SetText(raw)
	}
	outcome, err := f.Submit(cmd.Context())
	switch outcome {
	case form.SubmitSucceeded:
		return nil
	case form.SubmitInvalid:
		return invalidError(f.Content())
	}
	if err == nil {
		err = fmt.Errorf("entityform: submit %s", outcome)
	}
	if msgs := fieldMessages(f.Content()); len(msgs) > 0 {
		return fmt.Errorf("%w\n%s", err, strings.Join(msgs, "\n"))
	}
	return err
}

func parseAssignments(sets []string) (map[string]string, error) {
	out := make(map[string]string, len(sets))
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("entityform: --set %q is not field=value", set)
		}
		out[name] = value
	}
	return out, nil
}

func fieldMessages(views []form.FieldView) []string {
	var out []string
	for _, view := range views {
		if view.Error != "" {
			out = append(out, fmt.Sprintf("  %s: %s", view.Label, view.Error))
		}
	}
	return out
}

func invalidError(views []form.FieldView) error {
	return errors.New("entityform: form is invalid\n" + strings.Join(fieldMessages(views), "\n"))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, columns []string, items []model.Values) error {
	if len(columns) == 0 && len(items) > 0 {
		for k := range items[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := append([]string{"ID"}, columns...)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, item := range items {
		row := []string{cell(item["id"])}
		for _, col := range columns {
			row = append(row, cell(item[col]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}
