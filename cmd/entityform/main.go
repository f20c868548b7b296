// Command entityform manages admin entities through their forms: list, show,
// create, edit and delete against the admin API, render forms as HTML, or
// serve an in-memory mock of the API.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-entityform/internal/config"
	"github.com/goliatone/go-entityform/pkg/features"
	"github.com/goliatone/go-entityform/pkg/formspec"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/notify"
	"github.com/goliatone/go-entityform/pkg/transport/rest"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every command, built before each run.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	specs    *formspec.Set
	t        i18n.Func
	registry *features.Registry
}

type rootFlags struct {
	envFile  string
	apiURL   string
	token    string
	locale   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)
	root := &cobra.Command{
		Use:   "entityform",
		Short: "Manage admin entities through declarative forms",
		Long: `entityform drives the admin entity forms from the terminal.

Environment Variables:
  ENTITYFORM_API_URL       Admin API base URL
  ENTITYFORM_API_TOKEN     Bearer token sent with every request
  ENTITYFORM_LOCALE        Message locale (default: en-US)
  ENTITYFORM_HTTP_TIMEOUT  Request timeout (default: 10s)
  ENTITYFORM_LOG_LEVEL     debug, info, warn or error (default: info)
  ENTITYFORM_MOCK_ADDR     Listen address of serve-mock`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load")
	pf.StringVar(&flags.apiURL, "api-url", "", "admin API base URL")
	pf.StringVar(&flags.token, "token", "", "bearer token")
	pf.StringVar(&flags.locale, "locale", "", "message locale")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level")

	root.AddCommand(
		newServeMockCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newRenderCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = flags.apiURL
	}
	if cmd.Flags().Changed("token") {
		cfg.APIToken = flags.token
	}
	if cmd.Flags().Changed("locale") {
		cfg.Locale = flags.locale
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		return err
	}
	a.t = catalog.Localizer(cfg.Locale).Func()
	if a.specs, err = formspec.LoadEmbedded(); err != nil {
		return err
	}

	client, err := rest.New(cfg.APIURL,
		rest.WithTimeout(cfg.HTTPTimeout),
		rest.WithToken(cfg.APIToken),
		rest.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.registry, err = features.New(a.specs, client, notify.NewWriterNotifier(cmd.ErrOrStderr()),
		features.WithTranslator(a.t),
		features.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("entityform: %w", err)
	}
	return nil
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
