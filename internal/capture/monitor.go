// Package capture watches for the trace that the browser's capture extension writes
// out of band. The extension signals completion by creating a sentinel file next to
// the trace once the trace itself is fully written.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// SentinelSuffix is appended to the artifact path to form the readiness marker.
const SentinelSuffix = ".ready"

// DefaultPollInterval is the gap between two sentinel checks.
const DefaultPollInterval = time.Second

// SentinelPath returns the readiness marker for artifactPath.
func SentinelPath(artifactPath string) string {
	return artifactPath + SentinelSuffix
}

// StatFunc reports whether a file exists; it has os.Stat's signature.
type StatFunc func(name string) (os.FileInfo, error)

// ReadFunc reads a whole file; it has os.ReadFile's signature.
type ReadFunc func(name string) ([]byte, error)

// Monitor polls for the sentinel at a fixed interval.
type Monitor struct {
	interval time.Duration
	clock    Clock
	stat     StatFunc
	read     ReadFunc
	logger   *zap.Logger
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithStat replaces os.Stat for sentinel checks.
func WithStat(f StatFunc) Option {
	return func(m *Monitor) { m.stat = f }
}

// WithReader replaces os.ReadFile for reading the artifact.
func WithReader(f ReadFunc) Option {
	return func(m *Monitor) { m.read = f }
}

// NewMonitor creates a Monitor polling every interval. A non-positive interval
// falls back to DefaultPollInterval.
func NewMonitor(interval time.Duration, logger *zap.Logger, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	m := &Monitor{
		interval: interval,
		clock:    RealClock{},
		stat:     os.Stat,
		read:     os.ReadFile,
		logger:   logger.Named("capture"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WaitForArtifact polls until the sentinel for artifactPath exists or deadline passes.
//
// When the sentinel is seen the artifact is read and returned with Ready set; polling
// stops right there. When the deadline passes first, a not-ready Artifact is returned
// with a nil error: a missing capture is a measurement outcome. A not-ready result is
// never returned before deadline. Errors mean the context was canceled or the
// artifact could not be read after its sentinel appeared.
func (m *Monitor) WaitForArtifact(ctx context.Context, artifactPath string, deadline time.Time) (schemas.Artifact, error) {
	sentinel := SentinelPath(artifactPath)
	logger := m.logger.With(zap.String("sentinel", sentinel))
	logger.Debug("Waiting for capture.", zap.Time("deadline", deadline), zap.Duration("interval", m.interval))

	polls := 0
	for {
		polls++
		if m.sentinelExists(sentinel, logger) {
			content, err := m.read(artifactPath)
			if err != nil {
				return schemas.Artifact{Path: artifactPath}, fmt.Errorf("capture is marked ready but could not be read: %w", err)
			}
			logger.Info("Capture ready.", zap.Int("polls", polls), zap.Int("bytes", len(content)))
			return schemas.Artifact{Path: artifactPath, Ready: true, Content: content}, nil
		}

		now := m.clock.Now()
		if !now.Before(deadline) {
			logger.Warn("Capture not ready by deadline.", zap.Int("polls", polls))
			return schemas.Artifact{Path: artifactPath}, nil
		}

		wait := m.interval
		if remaining := deadline.Sub(now); remaining < wait {
			wait = remaining
		}
		if err := m.clock.Sleep(ctx, wait); err != nil {
			return schemas.Artifact{Path: artifactPath}, err
		}
	}
}

func (m *Monitor) sentinelExists(path string, logger *zap.Logger) bool {
	_, err := m.stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		// Treated as not ready; the next poll may succeed.
		logger.Debug("Sentinel check failed.", zap.Error(err))
	}
	return false
}
