// internal/browser/session/interfaces.go
package session

import (
	"context"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// Driver is the browser capability a Session drives. Implementations own exactly
// one browser process at a time. ChromeDriver is the production implementation;
// tests substitute a fake.
type Driver interface {
	// Launch starts the browser with the given launch policy and profile preferences.
	Launch(ctx context.Context, policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences) error

	// InstallExtension loads the unpacked extension at path and returns once the
	// browser reports it as running.
	InstallExtension(ctx context.Context, path string) error

	// Navigate loads url and returns once the page has loaded or failed to load.
	// Certificate and network failures are returned as errors.
	Navigate(ctx context.Context, url string) error

	// Quit ends the browser process and releases everything Launch acquired.
	// It must be safe to call after a failed or partial Launch.
	Quit(ctx context.Context) error
}
