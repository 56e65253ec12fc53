package measurement

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/browser/session"
	"github.com/xkilldash9x/pageload-cli/internal/capture"
	"github.com/xkilldash9x/pageload-cli/internal/config"
	"github.com/xkilldash9x/pageload-cli/internal/mocks"
	"github.com/xkilldash9x/pageload-cli/internal/resolver"
)

// -- Test Doubles --

// manualClock only moves when the capture monitor sleeps.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

// memoryResolvConf is an in-memory resolver.Store.
type memoryResolvConf struct {
	content []byte
	writes  int
}

func (m *memoryResolvConf) Read() ([]byte, error) { return m.content, nil }

func (m *memoryResolvConf) Write(content []byte) error {
	m.writes++
	m.content = append([]byte(nil), content...)
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

const artifactPath = "/home/seluser/measure/har.json"

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	cfg      *config.Config
	clock    *manualClock
	driver   *mocks.MockDriver
	resolv   *memoryResolvConf
	output   *bytes.Buffer
	readyAt  time.Time
	harness  *Harness
	statHits int
}

// newFixture builds a harness around the real resolver configurator and capture
// monitor, with an in-memory resolver file, a manual clock and a mocked browser.
// The sentinel appears at readyAt (zero means never).
func newFixture(t *testing.T, readyAt time.Duration, content string) *fixture {
	t.Helper()
	f := &fixture{
		cfg:    config.NewDefaultConfig(),
		clock:  &manualClock{now: epoch},
		driver: new(mocks.MockDriver),
		resolv: &memoryResolvConf{content: []byte("nameserver 127.0.0.11\n")},
		output: new(bytes.Buffer),
	}
	f.cfg.Capture.ArtifactPath = artifactPath
	if readyAt > 0 {
		f.readyAt = epoch.Add(readyAt)
	}

	logger := zaptest.NewLogger(t)
	monitor := capture.NewMonitor(time.Second, logger,
		capture.WithClock(f.clock),
		capture.WithStat(func(name string) (os.FileInfo, error) {
			f.statHits++
			if name != artifactPath+".ready" {
				return nil, os.ErrNotExist
			}
			if f.readyAt.IsZero() || f.clock.now.Before(f.readyAt) {
				return nil, os.ErrNotExist
			}
			return nil, nil
		}),
		capture.WithReader(func(name string) ([]byte, error) {
			require.Equal(t, artifactPath, name)
			return []byte(content), nil
		}),
	)

	h, err := NewHarness(f.cfg, Dependencies{
		Resolver:  resolver.NewConfigurator(f.resolv, logger),
		NewDriver: func() session.Driver { return f.driver },
		Monitor:   monitor,
		Output:    f.output,
		Now:       f.clock.Now,
	}, logger)
	require.NoError(t, err)
	f.harness = h
	return f
}

func (f *fixture) browserStarts() {
	f.driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
}

func newRequest(t *testing.T, website, resolverIP, proxyHost string, dane, fillCache bool, timeout time.Duration) schemas.MeasurementRequest {
	t.Helper()
	req, err := schemas.NewMeasurementRequest(website, resolverIP, proxyHost, dane, fillCache, timeout)
	require.NoError(t, err)
	return req
}

// -- Scenarios --

func TestRun_CapturesArtifact(t *testing.T) {
	f := newFixture(t, 2*time.Second, "HARDATA")
	f.browserStarts()
	f.driver.On("Navigate", mock.Anything, "https://example.com/").Return(nil)
	f.driver.On("Quit", mock.Anything).Return(nil).Once()

	req := newRequest(t, "https://example.com", "1.1.1.1", "", false, false, 5*time.Second)
	result, err := f.harness.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "nameserver 1.1.1.1\noptions ndots:0\n", string(f.resolv.content))
	assert.Equal(t, []byte("HARDATA"), f.output.Bytes())
	assert.Equal(t, schemas.OutcomeCaptured, result.Outcome)
	require.NotNil(t, result.Artifact)
	assert.True(t, result.Artifact.Ready)
	assert.NotEmpty(t, result.MeasurementID)
	assert.Nil(t, result.Summary, "non-HAR content is still emitted, just not summarized")

	// Polling stopped when the sentinel appeared.
	assert.Equal(t, epoch.Add(2*time.Second), f.clock.now)
	assert.Equal(t, 3, f.statHits)

	f.driver.AssertNumberOfCalls(t, "Quit", 1)
	assert.Equal(t, []string{"Launch", "InstallExtension", "Navigate", "Quit"}, f.driver.CallOrder())
}

func TestRun_SummarizesHAR(t *testing.T) {
	const har = `{"log":{"version":"1.2","creator":{"name":"Firefox"},` +
		`"pages":[{"id":"page_1","pageTimings":{"onContentLoad":210,"onLoad":480}}],` +
		`"entries":[{"response":{"status":200,"content":{"size":512}}},{"response":{"status":0}}]}}`
	f := newFixture(t, time.Second, har)
	f.browserStarts()
	f.driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	f.driver.On("Quit", mock.Anything).Return(nil).Once()

	result, err := f.harness.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
	require.NoError(t, err)
	assert.Equal(t, har, f.output.String(), "the artifact is emitted verbatim")
	require.NotNil(t, result.Summary)
	assert.Equal(t, float64(480), result.Summary.OnLoad)
	assert.True(t, result.Summary.ValidPageLoadTime)
	assert.Equal(t, 2, result.Summary.Entries)
	assert.Equal(t, 1, result.Summary.Status.NoResponse)
}

func TestRun_ArtifactTimeout(t *testing.T) {
	f := newFixture(t, 0, "")
	f.browserStarts()
	f.driver.On("Navigate", mock.Anything, "https://example.com/").Return(nil)
	f.driver.On("Quit", mock.Anything).Return(nil).Once()

	req := newRequest(t, "https://example.com", "1.1.1.1", "", false, false, 5*time.Second)
	result, err := f.harness.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, schemas.OutcomeArtifactTimeout, result.Outcome)
	assert.Empty(t, f.output.Bytes(), "nothing is emitted on timeout")
	assert.False(t, f.clock.now.Before(epoch.Add(5*time.Second)), "gave up before the deadline")
	assert.Equal(t, "nameserver 1.1.1.1\noptions ndots:0\n", string(f.resolv.content),
		"the resolver stays configured regardless of outcome")
	f.driver.AssertNumberOfCalls(t, "Quit", 1)
}

func TestRun_NavigationFailure(t *testing.T) {
	driver := new(mocks.MockDriver)
	waiter := new(mocks.MockArtifactWaiter)
	resolverMock := new(mocks.MockResolverConfigurator)
	output := new(bytes.Buffer)

	driver.On("Launch", mock.Anything, mock.Anything, mock.MatchedBy(func(p schemas.ProfilePreferences) bool {
		return p.ProxyEnabled && p.ProxyHost == "proxy1" && p.ProxyPort == 8080
	})).Return(nil)
	driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
	driver.On("Navigate", mock.Anything, "https://bad-cert.example/").
		Return(errors.New("page load error net::ERR_CERT_AUTHORITY_INVALID"))
	driver.On("Quit", mock.Anything).Return(nil).Once()

	h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
		Resolver:  resolverMock,
		NewDriver: func() session.Driver { return driver },
		Monitor:   waiter,
		Output:    output,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := newRequest(t, "https://bad-cert.example", "", "proxy1", true, false, 0)
	result, err := h.Run(context.Background(), req)
	require.NoError(t, err, "a failed load is an outcome, not an error")

	assert.Equal(t, schemas.OutcomeNavigationFailure, result.Outcome)
	assert.Contains(t, result.NavigationError, "ERR_CERT_AUTHORITY_INVALID")
	assert.Nil(t, result.Artifact)
	assert.Empty(t, output.Bytes())
	waiter.AssertNotCalled(t, "WaitForArtifact", mock.Anything, mock.Anything, mock.Anything)
	resolverMock.AssertNotCalled(t, "Configure", mock.Anything, mock.Anything)
	driver.AssertNumberOfCalls(t, "Quit", 1)
	driver.AssertExpectations(t)
}

func TestRun_FillCacheOnly(t *testing.T) {
	for _, navErr := range []error{nil, errors.New("net::ERR_NAME_NOT_RESOLVED")} {
		name := "navigation ok"
		if navErr != nil {
			name = "navigation failed"
		}
		t.Run(name, func(t *testing.T) {
			driver := new(mocks.MockDriver)
			waiter := new(mocks.MockArtifactWaiter)
			output := new(bytes.Buffer)
			driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
			driver.On("Navigate", mock.Anything, "https://example.com/").Return(navErr).Once()
			driver.On("Quit", mock.Anything).Return(nil).Once()

			h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
				Resolver:  new(mocks.MockResolverConfigurator),
				NewDriver: func() session.Driver { return driver },
				Monitor:   waiter,
				Output:    output,
			}, zaptest.NewLogger(t))
			require.NoError(t, err)

			result, err := h.Run(context.Background(), newRequest(t, "example.com", "", "", false, true, 0))
			require.NoError(t, err)
			assert.Equal(t, schemas.OutcomeCacheFilled, result.Outcome)
			assert.Nil(t, result.Artifact)
			assert.Empty(t, output.Bytes())
			waiter.AssertNotCalled(t, "WaitForArtifact", mock.Anything, mock.Anything, mock.Anything)
			driver.AssertNumberOfCalls(t, "Navigate", 1)
			driver.AssertNumberOfCalls(t, "Quit", 1)
		})
	}
}

func TestRun_Interrupted(t *testing.T) {
	tests := []struct {
		name      string
		fillCache bool
	}{
		{name: "measurement", fillCache: false},
		{name: "cache fill", fillCache: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			driver := new(mocks.MockDriver)
			waiter := new(mocks.MockArtifactWaiter)
			output := new(bytes.Buffer)
			var quitCtxErr error
			driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
			// SIGINT arrives while the page is loading.
			driver.On("Navigate", mock.Anything, "https://example.com/").
				Run(func(mock.Arguments) { cancel() }).
				Return(context.Canceled).Once()
			driver.On("Quit", mock.Anything).
				Run(func(args mock.Arguments) { quitCtxErr = args.Get(0).(context.Context).Err() }).
				Return(nil).Once()

			h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
				Resolver:  new(mocks.MockResolverConfigurator),
				NewDriver: func() session.Driver { return driver },
				Monitor:   waiter,
				Output:    output,
			}, zaptest.NewLogger(t))
			require.NoError(t, err)

			result, err := h.Run(ctx, newRequest(t, "example.com", "", "", false, tt.fillCache, 0))
			assert.Nil(t, result, "an interrupted run has no outcome to report")
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorContains(t, err, "measurement interrupted")

			assert.Empty(t, output.Bytes())
			waiter.AssertNotCalled(t, "WaitForArtifact", mock.Anything, mock.Anything, mock.Anything)
			driver.AssertNumberOfCalls(t, "Quit", 1)
			assert.NoError(t, quitCtxErr, "the browser is still quit on a live context")
		})
	}
}

func TestRun_InterruptedWhileWaitingForCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := new(mocks.MockDriver)
	waiter := new(mocks.MockArtifactWaiter)
	driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
	driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	driver.On("Quit", mock.Anything).Return(nil).Once()
	waiter.On("WaitForArtifact", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(schemas.Artifact{}, context.Canceled).Once()

	h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
		Resolver:  new(mocks.MockResolverConfigurator),
		NewDriver: func() session.Driver { return driver },
		Monitor:   waiter,
		Output:    new(bytes.Buffer),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := h.Run(ctx, newRequest(t, "https://example.com", "", "", false, false, 0))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorContains(t, err, "measurement interrupted")
	driver.AssertNumberOfCalls(t, "Quit", 1)
}

// -- Fatal Paths --

func TestRun_ConfigurationError(t *testing.T) {
	driver := new(mocks.MockDriver)
	resolverMock := new(mocks.MockResolverConfigurator)
	cfgErr := &schemas.ConfigurationError{Op: "resolver file write", Err: os.ErrPermission}
	resolverMock.On("Configure", mock.Anything, "9.9.9.9").Return(cfgErr)

	h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
		Resolver:  resolverMock,
		NewDriver: func() session.Driver { return driver },
		Monitor:   new(mocks.MockArtifactWaiter),
		Output:    new(bytes.Buffer),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := h.Run(context.Background(), newRequest(t, "https://example.com", "9.9.9.9", "", false, false, 0))
	assert.Nil(t, result)
	var got *schemas.ConfigurationError
	require.ErrorAs(t, err, &got)
	assert.ErrorIs(t, err, os.ErrPermission)

	// No browser ever existed.
	driver.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything, mock.Anything)
	driver.AssertNotCalled(t, "Quit", mock.Anything)
}

func TestRun_SessionStartErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		setup     func(d *mocks.MockDriver)
		wantStage string
	}{
		{
			name: "launch",
			setup: func(d *mocks.MockDriver) {
				d.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(boom)
			},
			wantStage: "launch",
		},
		{
			name: "extension",
			setup: func(d *mocks.MockDriver) {
				d.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				d.On("InstallExtension", mock.Anything, mock.Anything).Return(boom)
			},
			wantStage: "extension install",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := new(mocks.MockDriver)
			tt.setup(driver)
			driver.On("Quit", mock.Anything).Return(nil).Once()
			waiter := new(mocks.MockArtifactWaiter)

			h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
				Resolver:  new(mocks.MockResolverConfigurator),
				NewDriver: func() session.Driver { return driver },
				Monitor:   waiter,
				Output:    new(bytes.Buffer),
			}, zaptest.NewLogger(t))
			require.NoError(t, err)

			result, err := h.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
			assert.Nil(t, result)
			var startErr *schemas.SessionStartError
			require.ErrorAs(t, err, &startErr)
			assert.Equal(t, tt.wantStage, startErr.Stage)

			driver.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything)
			driver.AssertNumberOfCalls(t, "Quit", 1)
			waiter.AssertNotCalled(t, "WaitForArtifact", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRun_CleanupErrors(t *testing.T) {
	t.Run("surfaced when nothing else failed", func(t *testing.T) {
		f := newFixture(t, time.Second, "HAR")
		f.browserStarts()
		f.driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
		f.driver.On("Quit", mock.Anything).Return(errors.New("zombie")).Once()

		result, err := f.harness.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
		require.NotNil(t, result, "the measurement itself still produced a result")
		assert.Equal(t, schemas.OutcomeCaptured, result.Outcome)
		var cleanupErr *schemas.CleanupError
		assert.ErrorAs(t, err, &cleanupErr)
		assert.Equal(t, []byte("HAR"), f.output.Bytes())
	})

	t.Run("never masks an earlier error", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		driver := new(mocks.MockDriver)
		driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no chrome"))
		driver.On("Quit", mock.Anything).Return(errors.New("zombie")).Once()

		h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
			Resolver:  new(mocks.MockResolverConfigurator),
			NewDriver: func() session.Driver { return driver },
			Monitor:   new(mocks.MockArtifactWaiter),
			Output:    new(bytes.Buffer),
		}, zap.New(core))
		require.NoError(t, err)

		_, err = h.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
		var startErr *schemas.SessionStartError
		require.ErrorAs(t, err, &startErr)
		var cleanupErr *schemas.CleanupError
		assert.False(t, errors.As(err, &cleanupErr))
		assert.Equal(t, 1, logs.FilterMessage("Session cleanup failed after an earlier error.").Len())
	})
}

// -- Properties --

func TestRun_TerminatesSessionOnFatalSetupError(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(d *mocks.MockDriver, r *mocks.MockResolverConfigurator)
		wantQuits int
	}{
		{
			name: "resolver configuration",
			setup: func(_ *mocks.MockDriver, r *mocks.MockResolverConfigurator) {
				r.On("Configure", mock.Anything, "9.9.9.9").
					Return(&schemas.ConfigurationError{Op: "resolver file write", Err: os.ErrPermission})
			},
			wantQuits: 0,
		},
		{
			name: "browser launch",
			setup: func(d *mocks.MockDriver, r *mocks.MockResolverConfigurator) {
				r.On("Configure", mock.Anything, "9.9.9.9").Return(nil)
				d.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no chrome"))
				d.On("Quit", mock.Anything).Return(nil)
			},
			wantQuits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			driver := new(mocks.MockDriver)
			resolverMock := new(mocks.MockResolverConfigurator)
			tt.setup(driver, resolverMock)

			h, err := NewHarness(config.NewDefaultConfig(), Dependencies{
				Resolver:  resolverMock,
				NewDriver: func() session.Driver { return driver },
				Monitor:   new(mocks.MockArtifactWaiter),
				Output:    new(bytes.Buffer),
			}, zap.New(core))
			require.NoError(t, err)

			result, err := h.Run(context.Background(), newRequest(t, "https://example.com", "9.9.9.9", "", false, false, 0))
			assert.Nil(t, result)
			require.Error(t, err)

			closed := logs.FilterMessage("Session closed.").All()
			require.Len(t, closed, 1, "teardown runs exactly once")
			assert.Equal(t, "Terminated", closed[0].ContextMap()["state"])
			driver.AssertNumberOfCalls(t, "Quit", tt.wantQuits)
		})
	}
}

func TestRun_ResolverUntouchedWithoutIP(t *testing.T) {
	f := newFixture(t, time.Second, "HAR")
	f.browserStarts()
	f.driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	f.driver.On("Quit", mock.Anything).Return(nil)

	_, err := f.harness.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, f.resolv.writes)
	assert.Equal(t, "nameserver 127.0.0.11\n", string(f.resolv.content))
}

func TestRun_DeadlineFromNavigationStart(t *testing.T) {
	driver := new(mocks.MockDriver)
	waiter := new(mocks.MockArtifactWaiter)
	clock := &manualClock{now: epoch}
	driver.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	driver.On("InstallExtension", mock.Anything, mock.Anything).Return(nil)
	driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	driver.On("Quit", mock.Anything).Return(nil)
	waiter.On("WaitForArtifact", mock.Anything, artifactPath, epoch.Add(7*time.Second)).
		Return(schemas.Artifact{Path: artifactPath}, nil).Once()

	cfg := config.NewDefaultConfig()
	cfg.Capture.ArtifactPath = artifactPath
	h, err := NewHarness(cfg, Dependencies{
		Resolver:  new(mocks.MockResolverConfigurator),
		NewDriver: func() session.Driver { return driver },
		Monitor:   waiter,
		Output:    new(bytes.Buffer),
		Now:       clock.Now,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := h.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 7*time.Second))
	require.NoError(t, err)
	assert.Equal(t, schemas.OutcomeArtifactTimeout, result.Outcome)
	waiter.AssertExpectations(t)
}

func TestRun_Preflight(t *testing.T) {
	for _, probeErr := range []error{nil, errors.New("i/o timeout")} {
		f := newFixture(t, time.Second, "HAR")
		f.browserStarts()
		f.driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
		f.driver.On("Quit", mock.Anything).Return(nil)

		prober := new(mocks.MockPreflighter)
		prober.On("Probe", mock.Anything, "192.0.2.53", "dane.example", true).
			Return(&resolver.PreflightReport{Rcode: "NOERROR"}, probeErr).Once()
		f.harness.deps.Preflight = prober

		result, err := f.harness.Run(context.Background(), newRequest(t, "https://dane.example", "192.0.2.53", "proxy", true, false, 0))
		require.NoError(t, err)
		assert.Equal(t, schemas.OutcomeCaptured, result.Outcome, "preflight never changes the outcome")
		prober.AssertExpectations(t)
	}
}

func TestRun_OutputFailure(t *testing.T) {
	f := newFixture(t, time.Second, "HAR")
	f.browserStarts()
	f.driver.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	f.driver.On("Quit", mock.Anything).Return(nil).Once()
	f.harness.deps.Output = failingWriter{}

	result, err := f.harness.Run(context.Background(), newRequest(t, "https://example.com", "", "", false, false, 0))
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "failed to emit artifact")
	f.driver.AssertNumberOfCalls(t, "Quit", 1)
}

func TestNewHarness_RequiresDependencies(t *testing.T) {
	_, err := NewHarness(nil, Dependencies{}, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = NewHarness(config.NewDefaultConfig(), Dependencies{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewDefaultHarness(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Resolver.Preflight = true
	h, err := NewDefaultHarness(cfg, new(bytes.Buffer), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, h.deps.Preflight)
	assert.IsType(t, &session.ChromeDriver{}, h.deps.NewDriver())
}
