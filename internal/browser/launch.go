// internal/browser/launch.go
package browser

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
	"github.com/xkilldash9x/pageload-cli/internal/config"
)

// insecureSwitches would let the browser load pages with invalid certificates.
var insecureSwitches = map[string]struct{}{
	"ignore-certificate-errors":                {},
	"ignore-certificate-errors-spki-list":      {},
	"allow-insecure-localhost":                 {},
	"ignore-urlfetcher-cert-requests":          {},
	"unsafely-treat-insecure-origin-as-secure": {},
}

// baseFlags mirror chromedp's defaults, minus "disable-extensions" (the capture
// extension has to load) and with our own disable-features list.
func baseFlags() map[string]interface{} {
	return map[string]interface{}{
		"no-first-run":                           true,
		"no-default-browser-check":               true,
		"no-sandbox":                             true,
		"disable-gpu":                            true,
		"disable-dev-shm-usage":                  true,
		"disable-background-networking":          true,
		"disable-background-timer-throttling":    true,
		"disable-backgrounding-occluded-windows": true,
		"disable-breakpad":                       true,
		"disable-client-side-phishing-detection": true,
		"disable-default-apps":                   true,
		"disable-hang-monitor":                   true,
		"disable-popup-blocking":                 true,
		"disable-prompt-on-repost":               true,
		"disable-renderer-backgrounding":         true,
		"disable-sync":                           true,
		"metrics-recording-only":                 true,
		"safebrowsing-disable-auto-update":       true,
		"password-store":                         "basic",
		"use-mock-keychain":                      true,
		"enable-automation":                      true,
	}
}

// LaunchFlags maps a policy and its profile preferences onto browser command line
// switches. Extra switches from cfg.Args are merged last; any switch that would
// relax certificate validation is rejected while the policy is strict.
func LaunchFlags(policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences, cfg config.BrowserConfig) (map[string]interface{}, error) {
	flags := baseFlags()

	if policy.Headless {
		flags["headless"] = true
		flags["hide-scrollbars"] = true
		flags["mute-audio"] = true
	}
	if !policy.StrictCertificateValidation {
		flags["ignore-certificate-errors"] = true
	}
	if policy.DevToolsEnabled {
		flags["auto-open-devtools-for-tabs"] = true
	}

	disabled := []string{"Translate"}
	if policy.DoHDisabled {
		disabled = append(disabled, "DnsOverHttps")
	}
	if cfg.ExtensionPath != "" {
		flags["load-extension"] = cfg.ExtensionPath
		flags["disable-extensions-except"] = cfg.ExtensionPath
		// Branded builds ignore --load-extension unless this feature is switched off.
		disabled = append(disabled, "DisableLoadExtensionCommandLineSwitch")
	}
	sort.Strings(disabled)
	flags["disable-features"] = strings.Join(disabled, ",")

	if prefs.ProxyEnabled {
		if prefs.ProxyHost == "" {
			return nil, fmt.Errorf("proxy enabled without a proxy host")
		}
		flags["proxy-server"] = net.JoinHostPort(prefs.ProxyHost, strconv.Itoa(prefs.ProxyPort))
	}

	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if key == "" {
			continue
		}
		if _, insecure := insecureSwitches[key]; insecure && policy.StrictCertificateValidation {
			return nil, fmt.Errorf("browser argument %q disables certificate validation", arg)
		}
		if found {
			flags[key] = value
		} else {
			flags[key] = true
		}
	}

	return flags, nil
}

// AllocatorOptions builds the chromedp exec allocator options for one session.
// profileDir is the session scoped user data directory.
func AllocatorOptions(policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences, cfg config.BrowserConfig, profileDir string, logger *zap.Logger) ([]chromedp.ExecAllocatorOption, error) {
	flags, err := LaunchFlags(policy, prefs, cfg)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]chromedp.ExecAllocatorOption, 0, len(keys)+4)
	for _, k := range keys {
		opts = append(opts, chromedp.Flag(k, flags[k]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}
	if cfg.LaunchTimeout > 0 {
		opts = append(opts, chromedp.WSURLReadTimeout(cfg.LaunchTimeout))
	}
	if cfg.Debug && logger != nil {
		// The browser's own stderr/stdout is routed into the log, never to our stdout.
		opts = append(opts, chromedp.CombinedOutput(zap.NewStdLog(logger.Named("chrome")).Writer()))
	}

	return opts, nil
}
