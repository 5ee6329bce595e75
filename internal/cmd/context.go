package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/config"
	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/log"
	"github.com/felixgeelhaar/botctl/internal/metrics"
	"github.com/felixgeelhaar/botctl/internal/session"
	"github.com/felixgeelhaar/botctl/internal/telemetry"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/version"
)

// globalFlags holds the persistent flags of the root command.
type globalFlags struct {
	configPath string
	apiURL     string
	output     string
	logLevel   string
}

// state is built by setup once flags are parsed.
type state struct {
	cfg      *config.Config
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	span     trace.Span
	command  string

	store   *session.Store
	client  *api.Client
	closers []func(context.Context) error
}

// setup loads configuration and wires logging, metrics and tracing. The
// session and API client are opened lazily by commands that need them.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	a.command = commandName(cmd)
	a.registry, a.metrics = metrics.NewRegistry()

	if cmd.Annotations[annotationNoConfig] == "true" {
		a.cfg = config.Default()
		a.logger = log.Discard()
		return nil
	}

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	if err := a.applyFlags(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg, err := cfg.Log.Logger()
	if err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	logCfg.Output = log.NewOutput(a.Err)
	logCfg.ServiceVersion = version.GetInfo().Version
	a.logger = log.New(logCfg)
	log.SetDefaultLogger(a.logger)

	ctx := cmd.Context()
	shutdown, err := telemetry.InitProvider(ctx, telemetry.ExportConfig(cfg.Telemetry.OTLPEndpoint))
	if err != nil {
		a.logger.Warn("tracing disabled", "error", err.Error())
	} else {
		a.closers = append(a.closers, shutdown)
	}

	ctx, a.span = telemetry.StartCommandSpan(ctx, a.command)
	cmd.SetContext(ctx)
	return nil
}

func (a *App) applyFlags(cfg *config.Config) error {
	if a.flags.apiURL != "" {
		cfg.API.URL = a.flags.apiURL
		if err := cfg.API.Validate(); err != nil {
			return errors.NewUsageError(fmt.Errorf("--api-url: %w", err))
		}
	}
	if a.flags.output != "" {
		if err := config.ValidateOutput(a.flags.output); err != nil {
			return errors.NewUsageError(fmt.Errorf("--output: %w", err))
		}
		cfg.Output = a.flags.output
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
		if err := cfg.Log.Validate(); err != nil {
			return errors.NewUsageError(fmt.Errorf("--log-level: %w", err))
		}
	}
	return nil
}

// finish records the command outcome and releases resources.
func (a *App) finish(command string, d time.Duration, err error) {
	if a.metrics == nil {
		return
	}

	a.metrics.RecordCommand(command, d, err)
	if code, ok := errors.CodeOf(err); ok {
		a.metrics.RecordError(string(code), "cli")
	}
	if a.span != nil {
		telemetry.EndSpan(a.span, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i](ctx); cerr != nil {
			a.logger.Debug("shutdown failed", "error", cerr.Error())
		}
	}
	a.closers = nil

	if a.cfg != nil {
		if werr := metrics.WriteTextfile(a.cfg.Telemetry.MetricsFile, a.registry); werr != nil {
			a.logger.Warn("failed to write metrics", "error", werr.Error())
		}
	}
}

// session opens the session store for the configured API endpoint.
func (a *App) session(ctx context.Context) (*session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	backend, closer, err := openBackend(ctx, a.cfg)
	if err != nil {
		return nil, errors.NewSessionStorageError(err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	store, err := session.Open(ctx, backend,
		session.WithLogger(a.logger),
		session.WithWriteObserver(a.metrics.RecordSessionWrite),
	)
	if err != nil {
		return nil, errors.NewSessionStorageError(err)
	}
	a.store = store
	return store, nil
}

// api returns the client for the configured endpoint.
func (a *App) api(ctx context.Context) (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	store, err := a.session(ctx)
	if err != nil {
		return nil, err
	}

	client, err := api.New(api.Config{
		BaseURL:    a.cfg.API.URL,
		HTTPClient: &http.Client{Timeout: a.cfg.API.Timeout},
		Session:    store,
		Navigator:  &signInNotice{out: a.Err, store: store, command: a.command},
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}
	a.client = client
	return client, nil
}

// authed returns the client after checking that a session exists.
func (a *App) authed(ctx context.Context) (*api.Client, error) {
	client, err := a.api(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := client.Session().Token(); !ok {
		return nil, errors.NewAuthRequiredError()
	}
	return client, nil
}

// owner returns the client after checking the cached owner flag. The flag
// is advisory; the backend enforces the rule again.
func (a *App) owner(ctx context.Context, action string) (*api.Client, error) {
	client, err := a.authed(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := client.Session().Profile()
	if ok && !p.IsOrgOwner {
		return nil, errors.NewNotOwnerError(action)
	}
	return client, nil
}

// print writes data in the configured output format.
func (a *App) print(data any) error {
	format := config.OutputTable
	if a.cfg != nil {
		format = a.cfg.Output
	}
	f, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: a.Out})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// structured reports whether output is machine readable.
func (a *App) structured() bool {
	return a.cfg != nil && a.cfg.Output != config.OutputTable
}

// success prints a confirmation to stderr so stdout stays parseable.
func (a *App) success(format string, args ...any) {
	ux.Success(a.Err, format, args...)
}

// notice prints a warning to stderr.
func (a *App) notice(format string, args ...any) {
	ux.Notice(a.Err, format, args...)
}
