package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-entityform/pkg/entity"
	"github.com/goliatone/go-entityform/pkg/features"
	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/openapi"
	"github.com/goliatone/go-entityform/pkg/renderers/html"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		parent    string
		editID    string
		mode      string
		action    string
		templates string
		document  string
		operation string
	)
	cmd := &cobra.Command{
		Use:   "render [entity]",
		Short: "Render a form as HTML",
		Long: `Render an entity form as HTML.

The form comes from the entity's form spec, or from an OpenAPI operation
request body when --openapi and --operation are given. Dialog forms render
opened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := form.ShellFor(form.Mode(mode))

			var c *form.Container
			switch {
			case document != "":
				if operation == "" {
					return errors.New("entityform: --operation is required with --openapi")
				}
				doc, err := openapi.LoadFile(cmd.Context(), document)
				if err != nil {
					return err
				}
				fields, err := doc.Fields(operation, a.t)
				if err != nil {
					return err
				}
				c = form.New(fields, nil, form.WithShell(shell), form.WithTitle(operation), form.WithTranslator(a.t))
			case len(args) == 1:
				opts := features.FormOptions{Parent: parent, Mode: shell.Mode()}
				if editID != "" {
					item, err := a.fetch(cmd, args[0], parent, editID)
					if err != nil {
						return err
					}
					opts.Options = entity.Options{Defaults: item, IsEdit: true, ID: editID}
				}
				f, err := a.registry.Form(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				c = f.Container
			default:
				return errors.New("entityform: pass an entity or --openapi")
			}

			if c.Phase() == form.PhaseClosed {
				if err := c.Open(nil); err != nil {
					return err
				}
			}
			var options []html.Option
			if templates != "" {
				options = append(options, html.WithBaseDir(templates))
			}
			r, err := html.New(options...)
			if err != nil {
				return err
			}
			if _, err := r.RenderContainer(c, action, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("entityform: render: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent id of scoped entities")
	cmd.Flags().StringVar(&editID, "edit", "", "render the edit form of this id")
	cmd.Flags().StringVar(&mode, "mode", string(form.ModePage), "shell: page or dialog")
	cmd.Flags().StringVar(&action, "action", "", "form action URL")
	cmd.Flags().StringVar(&templates, "templates", "", "directory of template overrides")
	cmd.Flags().StringVar(&document, "openapi", "", "OpenAPI document to build the form from")
	cmd.Flags().StringVar(&operation, "operation", "", "OpenAPI operation id")
	return cmd
}
