// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/config"
	"github.com/xkilldash9x/pageload-cli/internal/measurement"
	"github.com/xkilldash9x/pageload-cli/internal/observability"
	"github.com/xkilldash9x/pageload-cli/internal/reporting"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitMalfunction       = 1
	ExitUsage             = 2
	ExitNavigationFailure = 3
	ExitArtifactTimeout   = 4
)

// runner performs one measurement. *measurement.Harness is the production implementation.
type runner interface {
	Run(ctx context.Context, req schemas.MeasurementRequest) (*schemas.Result, error)
}

// newRunner builds the measurement runner. Tests swap it out.
var newRunner = func(cfg *config.Config, output io.Writer, logger *zap.Logger) (runner, error) {
	h, err := measurement.NewDefaultHarness(cfg, output, logger)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// usageError marks a command line mistake.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// invocation carries per execution state between the command hooks and Execute.
type invocation struct {
	cfgFile  string
	cfg      *config.Config
	exitCode int
	stdout   io.Writer
	stderr   io.Writer
}

// initLogger starts the global logger on the invocation's stderr.
func (inv *invocation) initLogger(cfg config.LoggerConfig) {
	observability.Initialize(cfg, zapcore.Lock(zapcore.AddSync(inv.stderr)))
}

func newRootCommand(inv *invocation) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageload-measure <website>",
		Short: "Loads a page in an instrumented headless browser and emits its HAR capture.",
		Long: `pageload-measure points the resolver at the requested nameserver, launches a
headless browser with the HAR capture extension, loads the website once and writes
the captured HAR to the output (standard output by default). Diagnostics go to
standard error.

Exit codes: 0 captured (or cache filled), 1 harness failure, 2 usage error,
3 navigation failure, 4 capture timeout.`,
		Version:       Version,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, inv.cfgFile); err != nil {
				inv.initLogger(config.NewDefaultConfig().Logger)
				return err
			}
			// Flags override config files and environment.
			if err := v.BindPFlag("output.path", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			if err := v.BindPFlag("resolver.preflight", cmd.Flags().Lookup("preflight")); err != nil {
				return err
			}
			if err := v.BindPFlag("output.report_path", cmd.Flags().Lookup("report")); err != nil {
				return err
			}
			if err := v.BindPFlag("output.report_format", cmd.Flags().Lookup("report_format")); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				inv.initLogger(config.NewDefaultConfig().Logger)
				return &schemas.ConfigurationError{Op: "load configuration", Err: err}
			}
			inv.cfg = cfg

			inv.initLogger(cfg.Logger)
			observability.GetLogger().Debug("Configuration loaded.", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasurement(cmd, args[0], inv)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := cmd.Flags()
	flags.String("resolver_ip", "", "nameserver to install in resolv.conf before the browser starts (alias -ri)")
	flags.String("proxy_host", "", "host of the DANE validating proxy, port 8080 (alias -ph)")
	flags.Int("timeout", int(schemas.DefaultMeasurementTimeout/time.Second), "seconds to wait for the page load and for the capture")
	flags.Bool("dane", false, "route traffic through the DANE validating proxy")
	flags.Bool("fill_cache_only", false, "load the page once to warm the resolver cache; no capture")
	flags.StringP("output", "o", "-", `artifact destination file, "-" for standard output`)
	flags.Bool("preflight", false, "query the resolver for the host (and its TLSA records with --dane) before loading")
	flags.String("report", "", `append the measurement result to this file ("stderr" for standard error)`)
	flags.String("report_format", "json", "result report format: json or csv")
	flags.StringVarP(&inv.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	return cmd
}

// usageArgs tags positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// initializeConfig reads the config file, if any, into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return &schemas.ConfigurationError{Op: "read config file", Err: err}
		}
		// No config file; defaults and environment apply.
	}
	return nil
}

func runMeasurement(cmd *cobra.Command, website string, inv *invocation) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()
	flags := cmd.Flags()

	resolverIP, _ := flags.GetString("resolver_ip")
	proxyHost, _ := flags.GetString("proxy_host")
	timeoutSecs, _ := flags.GetInt("timeout")
	dane, _ := flags.GetBool("dane")
	fillCacheOnly, _ := flags.GetBool("fill_cache_only")

	if timeoutSecs <= 0 {
		return &usageError{err: fmt.Errorf("--timeout must be a positive number of seconds, got %d", timeoutSecs)}
	}
	req, err := schemas.NewMeasurementRequest(website, resolverIP, proxyHost, dane, fillCacheOnly, time.Duration(timeoutSecs)*time.Second)
	if err != nil {
		return &usageError{err: err}
	}

	out := newOutput(inv.cfg.Output.Path, inv.stdout)
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Error("Failed to close output.", zap.String("path", inv.cfg.Output.Path), zap.Error(cerr))
		}
	}()

	r, err := newRunner(inv.cfg, out, logger)
	if err != nil {
		return err
	}

	result, err := r.Run(ctx, req)
	if result == nil {
		if err == nil {
			err = errors.New("measurement returned no result")
		}
		return err
	}
	if err != nil {
		// The measurement completed; a teardown failure does not change its outcome.
		logger.Warn("Measurement completed with a cleanup error.", zap.Error(err))
	}

	inv.exitCode = outcomeExitCode(result.Outcome)
	if result.Outcome == schemas.OutcomeNavigationFailure {
		logger.Warn("Page failed to load.", zap.String("error", result.NavigationError))
	}
	if err := writeReport(inv, result); err != nil {
		// The report is a side channel; the outcome stands.
		logger.Error("Failed to write result report.", zap.String("path", inv.cfg.Output.ReportPath), zap.Error(err))
	}
	return nil
}

func writeReport(inv *invocation, result *schemas.Result) (err error) {
	if inv.cfg.Output.ReportPath == "" {
		return nil
	}
	r, err := reporting.New(inv.cfg.Output.ReportFormat, inv.cfg.Output.ReportPath, inv.stderr)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()
	return r.Write(result)
}

func outcomeExitCode(o schemas.Outcome) int {
	switch o {
	case schemas.OutcomeCaptured, schemas.OutcomeCacheFilled:
		return ExitOK
	case schemas.OutcomeNavigationFailure:
		return ExitNavigationFailure
	case schemas.OutcomeArtifactTimeout:
		return ExitArtifactTimeout
	default:
		return ExitMalfunction
	}
}

// errorExitCode maps an execution error to a process exit code.
func errorExitCode(err error) int {
	var uerr *usageError
	if errors.As(err, &uerr) {
		return ExitUsage
	}
	return ExitMalfunction
}

// Execute runs the command line args and returns the process exit code. stdout
// receives nothing but artifact bytes; help, version and errors go to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv := &invocation{stdout: stdout, stderr: stderr}
	root := newRootCommand(inv)
	root.SetArgs(normalizeArgs(args))
	root.SetOut(stderr)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	defer observability.Sync()
	if err != nil {
		code := errorExitCode(err)
		if code == ExitUsage {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			fmt.Fprintln(stderr, root.UsageString())
		} else {
			observability.GetLogger().Error("Measurement failed.", zap.Error(err))
		}
		return code
	}
	return inv.exitCode
}
