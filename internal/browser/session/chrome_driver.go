// internal/browser/session/chrome_driver.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/browser"
	"github.com/xkilldash9x/pageload-cli/internal/config"
)

const (
	extensionScheme       = "chrome-extension://"
	extensionPollInterval = 100 * time.Millisecond
	profileDirPattern     = "pageload-profile-*"
)

// extensionTargetTypes are the target types an extension's background context shows up as.
var extensionTargetTypes = map[string]bool{
	"service_worker":  true,
	"background_page": true,
}

// ChromeDriver is a Driver backed by a chromedp controlled Chrome process with a
// throwaway profile directory.
type ChromeDriver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu            sync.Mutex
	profileDir    string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

var _ Driver = (*ChromeDriver)(nil)

// NewChromeDriver creates a driver; no process is started until Launch.
func NewChromeDriver(cfg config.BrowserConfig, logger *zap.Logger) *ChromeDriver {
	return &ChromeDriver{
		cfg:    cfg,
		logger: logger.Named("chrome"),
	}
}

// Launch creates the session profile, starts Chrome and opens the first tab.
func (d *ChromeDriver) Launch(ctx context.Context, policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browserCtx != nil {
		return errors.New("browser already launched")
	}

	dir, err := os.MkdirTemp(d.cfg.ProfileRoot, profileDirPattern)
	if err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	d.profileDir = dir

	if err := browser.WriteProfile(dir, policy, prefs); err != nil {
		return err
	}

	opts, err := browser.AllocatorOptions(policy, prefs, d.cfg, dir, d.logger)
	if err != nil {
		return fmt.Errorf("invalid launch options: %w", err)
	}

	// The browser lives until Quit, independent of the caller's context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	d.allocCancel = allocCancel

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(d.logger.Sugar().Infof),
		chromedp.WithErrorf(d.logger.Sugar().Debugf),
	}
	if d.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(d.logger.Sugar().Debugf))
	}
	d.browserCtx, d.browserCancel = chromedp.NewContext(allocCtx, ctxOpts...)

	if err := ctx.Err(); err != nil {
		return err
	}
	// The first Run allocates the browser; a deadline here would kill it later,
	// so the launch is bounded by the allocator's websocket read timeout instead.
	if err := chromedp.Run(d.browserCtx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Debug("Browser process started.", zap.String("profile", dir))
	return nil
}

// InstallExtension waits for the extension, loaded via launch flags, to report
// its background context. The wait is bounded by the configured install timeout.
func (d *ChromeDriver) InstallExtension(ctx context.Context, path string) error {
	d.mu.Lock()
	browserCtx := d.browserCtx
	d.mu.Unlock()
	if browserCtx == nil {
		return errors.New("browser not launched")
	}

	manifest := filepath.Join(path, "manifest.json")
	if _, err := os.Stat(manifest); err != nil {
		return fmt.Errorf("extension at %s has no manifest: %w", path, err)
	}
	if filepath.Clean(path) != filepath.Clean(d.cfg.ExtensionPath) {
		return fmt.Errorf("extension %s was not part of the launch configuration (%s)", path, d.cfg.ExtensionPath)
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.InstallTimeout)
	defer cancel()
	opCtx, opCancel := OperationContext(browserCtx, waitCtx)
	defer opCancel()

	ticker := time.NewTicker(extensionPollInterval)
	defer ticker.Stop()
	for {
		targets, err := chromedp.Targets(opCtx)
		if err == nil {
			if info := findExtensionTarget(targets); info != nil {
				d.logger.Debug("Extension context is up.", zap.String("type", info.Type), zap.String("url", info.URL))
				return nil
			}
		}

		select {
		case <-opCtx.Done():
			if err != nil {
				return fmt.Errorf("extension did not start: %w", err)
			}
			return fmt.Errorf("extension did not start within %v: %w", d.cfg.InstallTimeout, context.Cause(opCtx))
		case <-ticker.C:
		}
	}
}

func findExtensionTarget(targets []*target.Info) *target.Info {
	for _, t := range targets {
		if t != nil && extensionTargetTypes[t.Type] && strings.HasPrefix(t.URL, extensionScheme) {
			return t
		}
	}
	return nil
}

// Navigate loads url in the session's tab, waiting for the load event. The caller's
// ctx carries the page load deadline.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	browserCtx := d.browserCtx
	d.mu.Unlock()
	if browserCtx == nil {
		return errors.New("browser not launched")
	}

	opCtx, cancel := OperationContext(browserCtx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Navigate(url))
}

// Quit closes the browser gracefully, falls back to killing it when ctx expires,
// and removes the profile directory.
func (d *ChromeDriver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs error
	if d.browserCtx != nil {
		done := make(chan error, 1)
		browserCtx := d.browserCtx
		go func() {
			done <- chromedp.Cancel(browserCtx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = multierr.Append(errs, fmt.Errorf("graceful browser close failed: %w", err))
			}
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("browser did not close in time: %w", ctx.Err()))
		}
		d.browserCancel()
		d.browserCtx = nil
	}
	if d.allocCancel != nil {
		// Kills the process if it is still around and waits for it.
		d.allocCancel()
		d.allocCancel = nil
	}

	if d.profileDir != "" {
		if err := os.RemoveAll(d.profileDir); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to remove profile directory: %w", err))
		}
		d.profileDir = ""
	}
	return errs
}
