package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/colpipe/config"
	apperrors "github.com/kbukum/colpipe/errors"
	"github.com/kbukum/colpipe/logger"
	"github.com/kbukum/colpipe/observability"
	"github.com/kbukum/colpipe/pipeline"
	"github.com/kbukum/colpipe/process"
	"github.com/kbukum/colpipe/validation"
	"github.com/kbukum/colpipe/version"
)

const shutdownTimeout = 2 * time.Second

// app holds the state of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile  string
	envFile     string
	logLevel    string
	logFormat   string
	runID       string
	gracePeriod time.Duration

	log      *logger.Logger
	provider *observability.Provider
	exitCode int
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	cfg := logger.ConfigFromEnv(config.EnvPrefix)
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    logger.NewWithWriter(&cfg, config.ServiceName, stderr),
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colpipe [flags] <column-index> <command> [args...]",
		Short: "Filter one column of a tab-separated stream through a command",
		Long: `colpipe reads tab-separated lines from stdin, sends the field at
<column-index> (zero-based) to <command>, one per line, and writes each line
back to stdout with that field replaced by the command's matching output line.

The command must print exactly one line for every line it reads.`,
		Version:       version.Get().Short(),
		Args:          argsValidator,
		RunE:          a.runPipeline,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(version.Banner("colpipe") + "\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.InvalidInput("flags", err.Error())
	})

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default is ./colpipe.yml or $XDG_CONFIG_HOME/colpipe/config.yml)")
	flags.StringVar(&a.envFile, "env-file", "", "env file to load before reading COLPIPE_* variables")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&a.runID, "run-id", "", "UUID attached to logs and traces (default is generated)")
	flags.DurationVar(&a.gracePeriod, "grace-period", 0, "time between SIGTERM and SIGKILL when interrupted (default 5s)")
	return cmd
}

func argsValidator(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(2)(cmd, args); err != nil {
		return apperrors.InvalidInput("arguments", "expected <column-index> <command> [args...]")
	}
	return nil
}

// loaderOptions binds the explicitly named files and the flags that
// override config keys.
func (a *app) loaderOptions(flags *pflag.FlagSet) []config.LoaderOption {
	return []config.LoaderOption{
		config.WithConfigFile(a.configFile),
		config.WithEnvFile(a.envFile),
		config.WithFlag("logging.level", flags.Lookup("log-level")),
		config.WithFlag("logging.format", flags.Lookup("log-format")),
		config.WithFlag("process.grace_period", flags.Lookup("grace-period")),
	}
}

func (a *app) runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	col, err := validation.ColumnIndex(args[0])
	if err != nil {
		return err
	}
	runID, err := validation.RunID(a.runID)
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.loaderOptions(cmd.Flags())...)
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Unexpected("load config", err)
	}

	a.log = logger.Setup(cfg.Logging, cfg.Base.Name, a.stderr)

	a.provider, err = observability.Setup(ctx, cfg.Observability, observability.Service{
		Name:        cfg.Base.Name,
		Version:     version.Version,
		Environment: cfg.Base.Environment,
	})
	if err != nil {
		return apperrors.Unexpected("set up observability", err)
	}

	runner := pipeline.NewRunner(
		pipeline.WithStarter(process.NewAdapter(cfg.Process, a.stderr)),
		pipeline.WithLogger(a.log),
		pipeline.WithMetrics(a.provider.Metrics),
		pipeline.WithBufferSizes(cfg.IO.ReadBufferSize(), cfg.IO.WriteBufferSize()),
	)
	res, err := runner.Run(ctx, pipeline.Job{
		Column:  col,
		Command: process.Command{Binary: args[1], Args: args[2:]},
		Input:   a.stdin,
		Output:  a.stdout,
		RunID:   runID,
	})
	if err != nil {
		return err
	}

	logger.Get(logger.ComponentProcess).Debug("filter exited", logger.Fields(
		logger.FieldExitCode, res.ExitCode,
		"signaled", res.Signaled,
	))
	a.exitCode = res.ExitCode
	return nil
}

// shutdown flushes telemetry. It is skipped after a fatal error so the exit
// stays immediate.
func (a *app) shutdown(err error) {
	if a.provider == nil || apperrors.IsFatal(err) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := a.provider.Shutdown(ctx); serr != nil {
		a.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", serr))
	}
}

// report logs a one-line diagnostic for err.
func (a *app) report(cmd *cobra.Command, err error) {
	fields := logger.Fields(
		logger.FieldCode, string(apperrors.CodeOf(err)),
		logger.FieldExitCode, apperrors.ExitCode(err),
	)
	if appErr, ok := apperrors.AsAppError(err); ok {
		for k, v := range appErr.Details {
			fields[k] = v
		}
		if appErr.Cause != nil {
			fields[logger.FieldError] = appErr.Cause.Error()
		}
	}
	a.log.Error(err.Error(), fields)
	if apperrors.CodeOf(err) == apperrors.ErrCodeInvalidInput {
		fmt.Fprint(a.stderr, cmd.UsageString())
	}
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// The logger and the filter's stderr copier share this writer.
	stderr = zerolog.SyncWriter(stderr)
	a := newApp(stdin, stdout, stderr)
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	a.shutdown(err)
	if err != nil {
		a.report(cmd, err)
		return apperrors.ExitCode(err)
	}
	return a.exitCode
}
