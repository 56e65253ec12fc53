// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/resolver"
)

// -- Browser Driver Mock --

// MockDriver mocks session.Driver. It also records the order of calls so tests
// can assert on the lifecycle sequence.
type MockDriver struct {
	mock.Mock

	mu    sync.Mutex
	order []string
}

func (m *MockDriver) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, name)
}

// CallOrder returns the method names in the order they were called.
func (m *MockDriver) CallOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *MockDriver) Launch(ctx context.Context, policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences) error {
	m.record("Launch")
	args := m.Called(ctx, policy, prefs)
	return args.Error(0)
}

func (m *MockDriver) InstallExtension(ctx context.Context, path string) error {
	m.record("InstallExtension")
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	m.record("Navigate")
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) Quit(ctx context.Context) error {
	m.record("Quit")
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Resolver Mocks --

// MockResolverConfigurator mocks the resolver configuration step.
type MockResolverConfigurator struct {
	mock.Mock
}

func (m *MockResolverConfigurator) Configure(ctx context.Context, resolverIP string) error {
	args := m.Called(ctx, resolverIP)
	return args.Error(0)
}

// MockPreflighter mocks the resolver preflight probe.
type MockPreflighter struct {
	mock.Mock
}

func (m *MockPreflighter) Probe(ctx context.Context, resolverIP, host string, dane bool) (*resolver.PreflightReport, error) {
	args := m.Called(ctx, resolverIP, host, dane)
	var report *resolver.PreflightReport
	if r := args.Get(0); r != nil {
		report = r.(*resolver.PreflightReport)
	}
	return report, args.Error(1)
}

// -- Capture Mock --

// MockArtifactWaiter mocks the capture readiness monitor.
type MockArtifactWaiter struct {
	mock.Mock
}

func (m *MockArtifactWaiter) WaitForArtifact(ctx context.Context, artifactPath string, deadline time.Time) (schemas.Artifact, error) {
	args := m.Called(ctx, artifactPath, deadline)
	return args.Get(0).(schemas.Artifact), args.Error(1)
}
