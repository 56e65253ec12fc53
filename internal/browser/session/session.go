// internal/browser/session/session.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// State is a step in a Session's lifecycle. States only move forward.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateLaunched
	StateExtensionInstalled
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateConfigured:
		return "Configured"
	case StateLaunched:
		return "Launched"
	case StateExtensionInstalled:
		return "ExtensionInstalled"
	case StateActive:
		return "Active"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultQuitTimeout bounds Terminate when the caller does not configure one.
const DefaultQuitTimeout = 10 * time.Second

// Session owns one browser instance from configuration to teardown.
// Operations must be called in lifecycle order; out of order calls fail without
// touching the browser. Terminate may be called from any state, any number of times.
type Session struct {
	driver      Driver
	logger      *zap.Logger
	quitTimeout time.Duration

	mu              sync.Mutex
	state           State
	policy          schemas.BrowserPolicy
	prefs           schemas.ProfilePreferences
	pageLoadTimeout time.Duration
	// launchAttempted records that the driver may hold resources, even if Launch failed.
	launchAttempted bool

	terminateOnce sync.Once
	terminateErr  error
}

// New creates an unconfigured Session backed by driver.
func New(driver Driver, quitTimeout time.Duration, logger *zap.Logger) *Session {
	if quitTimeout <= 0 {
		quitTimeout = DefaultQuitTimeout
	}
	return &Session{
		driver:      driver,
		logger:      logger.Named("session"),
		quitTimeout: quitTimeout,
		state:       StateUnconfigured,
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves from one of the allowed states to next. Caller holds s.mu.
func (s *Session) transition(next State, allowed ...State) error {
	for _, a := range allowed {
		if s.state == a {
			s.logger.Debug("Session state change.", zap.Stringer("from", s.state), zap.Stringer("to", next))
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("session: cannot move to %s from %s", next, s.state)
}

func (s *Session) requireState(op string, allowed ...State) error {
	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}
	return fmt.Errorf("session: %s not allowed in state %s", op, s.state)
}

// Configure records the launch policy and profile preferences.
func (s *Session) Configure(policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState("configure", StateUnconfigured); err != nil {
		return err
	}
	s.policy = policy
	s.prefs = prefs
	return s.transition(StateConfigured, StateUnconfigured)
}

// Launch starts the browser. pageLoadTimeout bounds every later Navigate.
// Failures are returned as *schemas.SessionStartError.
func (s *Session) Launch(ctx context.Context, pageLoadTimeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState("launch", StateConfigured); err != nil {
		return err
	}
	if pageLoadTimeout <= 0 {
		return &schemas.SessionStartError{Stage: "launch", Err: fmt.Errorf("page load timeout must be positive, got %v", pageLoadTimeout)}
	}

	s.launchAttempted = true
	s.pageLoadTimeout = pageLoadTimeout
	if err := s.driver.Launch(ctx, s.policy, s.prefs); err != nil {
		return &schemas.SessionStartError{Stage: "launch", Err: err}
	}
	s.logger.Info("Browser launched.",
		zap.Bool("headless", s.policy.Headless),
		zap.Bool("proxy_enabled", s.prefs.ProxyEnabled),
		zap.Duration("page_load_timeout", pageLoadTimeout),
	)
	return s.transition(StateLaunched, StateConfigured)
}

// InstallExtension installs the capture extension. A session without it cannot
// produce an artifact, so failure is a *schemas.SessionStartError.
func (s *Session) InstallExtension(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState("install extension", StateLaunched); err != nil {
		return err
	}
	if err := s.driver.InstallExtension(ctx, path); err != nil {
		return &schemas.SessionStartError{Stage: "extension install", Err: err}
	}
	s.logger.Info("Capture extension installed.", zap.String("path", path))
	return s.transition(StateExtensionInstalled, StateLaunched)
}

// Navigate loads url, bounded by the page load timeout given to Launch.
// A navigation error is returned as is; it is a measurement outcome, not a session failure.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState("navigate", StateExtensionInstalled, StateActive); err != nil {
		return err
	}
	// The session counts as active once a navigation has been attempted.
	if err := s.transition(StateActive, StateExtensionInstalled, StateActive); err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(ctx, s.pageLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := s.driver.Navigate(navCtx, url); err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = fmt.Errorf("page load timed out after %v: %w", s.pageLoadTimeout, err)
		}
		s.logger.Warn("Navigation failed.", zap.String("url", url), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	s.logger.Info("Navigation finished.", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Terminate quits the browser. Only the first call does anything; it runs on a
// context detached from ctx's cancellation and bounded by the quit timeout, so
// teardown still happens after the caller gave up. Failures are returned as
// *schemas.CleanupError.
func (s *Session) Terminate(ctx context.Context) error {
	first := false
	s.terminateOnce.Do(func() {
		first = true
		s.mu.Lock()
		defer s.mu.Unlock()

		from := s.state
		s.state = StateTerminated
		if !s.launchAttempted {
			s.logger.Debug("Session terminated before launch.", zap.Stringer("from", from))
			return
		}

		quitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.quitTimeout)
		defer cancel()
		if err := s.driver.Quit(quitCtx); err != nil {
			s.terminateErr = &schemas.CleanupError{Err: err}
			s.logger.Error("Browser did not shut down cleanly.", zap.Stringer("from", from), zap.Error(err))
			return
		}
		s.logger.Info("Session terminated.", zap.Stringer("from", from))
	})
	if !first {
		return nil
	}
	return s.terminateErr
}
