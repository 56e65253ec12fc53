// Package measurement sequences one page load measurement: resolver setup, browser
// session, navigation, capture wait and artifact emission, with the browser torn
// down on every path.
package measurement

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/browser"
	"github.com/xkilldash9x/pageload-cli/internal/browser/session"
	"github.com/xkilldash9x/pageload-cli/internal/capture"
	"github.com/xkilldash9x/pageload-cli/internal/config"
	"github.com/xkilldash9x/pageload-cli/internal/resolver"
)

// ResolverConfigurator installs the requested nameserver.
type ResolverConfigurator interface {
	Configure(ctx context.Context, resolverIP string) error
}

// Preflighter queries the configured resolver before the page load, for diagnostics only.
type Preflighter interface {
	Probe(ctx context.Context, resolverIP, host string, dane bool) (*resolver.PreflightReport, error)
}

// ArtifactWaiter waits for the out-of-band capture.
type ArtifactWaiter interface {
	WaitForArtifact(ctx context.Context, artifactPath string, deadline time.Time) (schemas.Artifact, error)
}

// Dependencies are the collaborators of a Harness. Preflight may be nil.
type Dependencies struct {
	Resolver  ResolverConfigurator
	Preflight Preflighter
	// NewDriver returns a fresh browser driver for each run.
	NewDriver func() session.Driver
	Monitor   ArtifactWaiter
	// Output receives the artifact bytes, verbatim, when a capture succeeds.
	Output io.Writer
	// Now is the clock the capture deadline is computed from. It must agree with the Monitor's clock.
	Now func() time.Time
}

// Harness runs measurements one at a time.
type Harness struct {
	cfg    *config.Config
	deps   Dependencies
	logger *zap.Logger
}

// NewHarness wires a Harness from explicit dependencies.
func NewHarness(cfg *config.Config, deps Dependencies, logger *zap.Logger) (*Harness, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Resolver == nil || deps.NewDriver == nil || deps.Monitor == nil || deps.Output == nil {
		return nil, fmt.Errorf("resolver, driver factory, monitor and output are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Harness{cfg: cfg, deps: deps, logger: logger.Named("harness")}, nil
}

// NewDefaultHarness wires the production collaborators: the resolv.conf file, the
// miekg/dns preflight prober (when enabled), Chrome via chromedp and the
// filesystem capture monitor.
func NewDefaultHarness(cfg *config.Config, output io.Writer, logger *zap.Logger) (*Harness, error) {
	deps := Dependencies{
		Resolver: resolver.NewConfigurator(resolver.NewFileStore(cfg.Resolver.ConfPath), logger),
		NewDriver: func() session.Driver {
			return session.NewChromeDriver(cfg.Browser, logger)
		},
		Monitor: capture.NewMonitor(cfg.Capture.PollInterval, logger),
		Output:  output,
		Now:     time.Now,
	}
	if cfg.Resolver.Preflight {
		deps.Preflight = resolver.NewProber(cfg.Resolver.Port, cfg.Resolver.PreflightTimeout, logger)
	}
	return NewHarness(cfg, deps, logger)
}

// Run performs one measurement.
//
// Configuration and session start failures are returned as *schemas.ConfigurationError
// or *schemas.SessionStartError with a nil Result. Navigation failures and capture
// timeouts are outcomes in the returned Result. Cancellation of ctx is an error with a
// nil Result, never an outcome. The session is terminated exactly once on every path;
// a termination failure is only returned, as *schemas.CleanupError next to the Result,
// when nothing else went wrong.
func (h *Harness) Run(ctx context.Context, req schemas.MeasurementRequest) (result *schemas.Result, err error) {
	result = &schemas.Result{
		MeasurementID: uuid.NewString(),
		Request:       req,
		StartedAt:     h.deps.Now(),
	}
	logger := h.logger.With(
		zap.String("measurement_id", result.MeasurementID),
		zap.String("website", req.Website),
	)
	logger.Info("Starting measurement.",
		zap.String("resolver_ip", req.ResolverIP),
		zap.Bool("dane", req.DANE),
		zap.String("proxy_host", req.ProxyHost),
		zap.Bool("fill_cache_only", req.FillCacheOnly),
		zap.Duration("timeout", req.Timeout),
	)

	sess := session.New(h.deps.NewDriver(), h.cfg.Browser.QuitTimeout, logger)
	defer func() {
		cleanupErr := sess.Terminate(ctx)
		logger.Debug("Session closed.", zap.Stringer("state", sess.State()))
		if cleanupErr == nil {
			return
		}
		if err != nil {
			logger.Error("Session cleanup failed after an earlier error.", zap.Error(cleanupErr), zap.NamedError("original", err))
			return
		}
		err = cleanupErr
	}()

	result, err = h.run(ctx, req, sess, result, logger)
	if err != nil {
		logger.Error("Measurement aborted.", zap.Error(err))
		return nil, err
	}
	result.Elapsed = h.deps.Now().Sub(result.StartedAt)
	logger.Info("Measurement finished.",
		zap.Stringer("outcome", result.Outcome),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (h *Harness) run(ctx context.Context, req schemas.MeasurementRequest, sess *session.Session, result *schemas.Result, logger *zap.Logger) (*schemas.Result, error) {
	if req.ResolverIP != "" {
		if err := h.deps.Resolver.Configure(ctx, req.ResolverIP); err != nil {
			return nil, err
		}
		h.preflight(ctx, req, logger)
	}

	policy, prefs := browser.BuildPolicy(req)
	if req.DANE && !prefs.ProxyEnabled {
		logger.Warn("DANE requested without a proxy host; running without the validating proxy.")
	}

	if err := sess.Configure(policy, prefs); err != nil {
		return nil, &schemas.SessionStartError{Stage: "configure", Err: err}
	}
	if err := sess.Launch(ctx, req.Timeout); err != nil {
		return nil, err
	}
	if err := sess.InstallExtension(ctx, h.cfg.Browser.ExtensionPath); err != nil {
		return nil, err
	}

	if req.FillCacheOnly {
		// A failed load still warmed whatever the resolver managed to look up.
		if err := sess.Navigate(ctx, req.Website); err != nil {
			if ctx.Err() != nil {
				return nil, interrupted(ctx)
			}
			result.NavigationError = err.Error()
			logger.Info("Cache fill navigation failed.", zap.Error(err))
		}
		result.Outcome = schemas.OutcomeCacheFilled
		return result, nil
	}

	start := h.deps.Now()
	deadline := start.Add(req.Timeout)
	if err := sess.Navigate(ctx, req.Website); err != nil {
		// Only the page's own failures are outcomes; a stopped run is not a measurement.
		if ctx.Err() != nil {
			return nil, interrupted(ctx)
		}
		result.Outcome = schemas.OutcomeNavigationFailure
		result.NavigationError = err.Error()
		return result, nil
	}

	artifact, err := h.deps.Monitor.WaitForArtifact(ctx, h.cfg.Capture.ArtifactPath, deadline)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(ctx)
		}
		return nil, fmt.Errorf("waiting for capture: %w", err)
	}
	if !artifact.Ready {
		result.Outcome = schemas.OutcomeArtifactTimeout
		result.Artifact = &artifact
		return result, nil
	}

	if _, err := h.deps.Output.Write(artifact.Content); err != nil {
		return nil, fmt.Errorf("failed to emit artifact: %w", err)
	}
	result.Outcome = schemas.OutcomeCaptured
	result.Artifact = &artifact

	summary, err := capture.Summarize(artifact.Content)
	if err != nil {
		logger.Warn("Capture emitted but could not be summarized.", zap.Error(err))
		return result, nil
	}
	result.Summary = summary
	logger.Info("Capture summary.",
		zap.Int("pages", summary.Pages),
		zap.Int("entries", summary.Entries),
		zap.Float64("on_load_ms", summary.OnLoad),
		zap.Bool("valid_page_load_time", summary.ValidPageLoadTime),
		zap.Int("no_response", summary.Status.NoResponse),
	)
	return result, nil
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("measurement interrupted: %w", ctx.Err())
}

func (h *Harness) preflight(ctx context.Context, req schemas.MeasurementRequest, logger *zap.Logger) {
	if h.deps.Preflight == nil {
		return
	}
	timeout := h.cfg.Resolver.PreflightTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := h.deps.Preflight.Probe(pctx, req.ResolverIP, req.Host(), req.DANE); err != nil {
		logger.Warn("Resolver preflight failed; continuing.", zap.Error(err))
	}
}
