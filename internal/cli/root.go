package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/config"
	"github.com/sipico/covid-counter-client/internal/metrics"
)

// Version is the client version reported by the version command.
var Version = "0.1.0"

// annotationInteractive marks commands that own the terminal. Their logs
// are discarded unless LOG_FILE is set.
const annotationInteractive = "interactive"

// Builder constructs the App for one command invocation.
type Builder func(ctx context.Context, cmd *cobra.Command) (*App, error)

// FromEnvironment is the production Builder: configuration comes from the
// environment and logs go to LOG_FILE or stderr.
func FromEnvironment(ctx context.Context, cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var fallback io.Writer = cmd.ErrOrStderr()
	if cmd.Annotations[annotationInteractive] == "true" {
		fallback = io.Discard
	}
	logger, closeLog, err := OpenLogger(cfg, fallback)
	if err != nil {
		return nil, err
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		//nolint:errcheck
		closeLog()
		return nil, err
	}
	// The log file outlives everything else.
	app.closers = append([]func() error{closeLog}, app.closers...)

	if cfg.MetricsListenAddr != "" {
		mctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := metrics.Serve(mctx, cfg.MetricsListenAddr, app.Registry, logger); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
		app.OnClose(func() error {
			cancel()
			<-done
			return nil
		})
	}
	return app, nil
}

type runtime struct {
	build Builder
}

// withApp builds the App before fn runs and closes it afterwards, whether
// or not fn fails.
func (rt *runtime) withApp(fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
			cmd.SetContext(ctx)
		}

		app, err := rt.build(ctx, cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, app)
	}
}

func (rt *runtime) prompter(cmd *cobra.Command) Prompter {
	return NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

// NewRootCommand assembles the command tree. build supplies the App for
// commands that need one.
func NewRootCommand(build Builder) *cobra.Command {
	rt := &runtime{build: build}

	root := &cobra.Command{
		Use:   "covid-counter",
		Short: "Browse and edit COVID-19 statistics from the counter API",
		Long: `covid-counter is a client for the COVID counter API.

It signs in (with an optional one-time passcode), keeps the session on disk,
and lists or edits the countries, worldometer, day-wise and covid-data tables.
Run "covid-counter dashboard" for the interactive view.

Configuration is read from the environment: COVID_API_URL, STORAGE_BACKEND,
STORAGE_PATH, STORAGE_ENCRYPTION_KEY, LOG_LEVEL, LOG_FILE, DEBOUNCE_WINDOW,
REQUEST_TIMEOUT and METRICS_LISTEN_ADDR.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCommand(rt),
		newVerifyCommand(rt),
		newResetCommand(rt),
		newRegisterCommand(rt),
		newLogoutCommand(rt),
		newStatusCommand(rt),
		newListCommand(rt),
		newEditCommand(rt),
		newDashboardCommand(rt),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree against the process environment.
func Execute(ctx context.Context) error {
	return NewRootCommand(FromEnvironment).ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			//nolint:errcheck
			fmt.Fprintf(cmd.OutOrStdout(), "covid-counter %s\n", Version)
		},
	}
}

// userError carries the message shown for err while keeping err in the
// chain.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

const reloginHint = "Your session was rejected. Run `covid-counter login` to sign in again."

// explain converts err into its user-facing message.
func explain(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &userError{msg: api.Message(err, fallback), err: err}
}

// explainRequest is explain for data requests: rejected credentials get a
// hint to log in again. The stored session is left alone.
func explainRequest(err error, fallback string) error {
	if err == nil {
		return nil
	}
	msg := api.Message(err, fallback)
	if errors.Is(err, api.ErrUnauthorized) {
		msg += "\n" + reloginHint
	}
	return &userError{msg: msg, err: err}
}
