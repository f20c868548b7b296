package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-entityform/internal/mockapi"
)

func newServeMockCmd(a *app) *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve an in-memory admin API",
		Long: `Serve an in-memory admin API for every registered entity.

Payloads are validated with the same form specs the CLI uses and failures
come back as 422 {"message": ..., "errors": {field: [messages]}}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.MockAddr
			}
			server := mockServer(a, seed)

			srv := &http.Server{Addr: addr, Handler: server.Handler(), ReadHeaderTimeout: 5 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("mock API listening", "addr", addr)
				writeLine(cmd.OutOrStdout(), "export ENTITYFORM_API_URL=http://%s/", addr)
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdown)
			}
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default ENTITYFORM_MOCK_ADDR)")
	cmd.Flags().BoolVar(&seed, "seed", true, "load sample data")
	return cmd
}

func mockServer(a *app, seed bool) *mockapi.Server {
	var resources []mockapi.Resource
	for _, name := range a.registry.Entities() {
		f, _ := a.registry.Feature(name)
		resources = append(resources, mockapi.Resource{
			Entity:      f.Entity,
			Path:        f.Path,
			ParentField: f.ParentField,
			Unique:      f.Unique,
		})
	}
	options := []mockapi.Option{mockapi.WithTranslator(a.t)}
	if level, _ := a.cfg.Level(); level <= slog.LevelDebug {
		options = append(options, mockapi.WithRequestLog())
	}
	if a.cfg.APIToken != "" {
		options = append(options, mockapi.WithToken(a.cfg.APIToken))
	}
	server := mockapi.New(a.specs, resources, options...)
	if seed {
		seedSample(server)
	}
	return server
}
