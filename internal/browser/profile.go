// internal/browser/profile.go
package browser

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

const (
	preferencesFile = "Preferences"
	localStateFile  = "Local State"
	defaultProfile  = "Default"
)

// profilePreferences is the subset of the browser's per profile Preferences file we seed.
type profilePreferences struct {
	DevTools *devToolsPrefs `json:"devtools,omitempty"`
	Proxy    *proxyPrefs    `json:"proxy,omitempty"`
}

type devToolsPrefs struct {
	// Values in this map are themselves JSON encoded, as DevTools stores them.
	Preferences map[string]string `json:"preferences"`
}

type proxyPrefs struct {
	Mode   string `json:"mode"`
	Server string `json:"server"`
}

// localState is the subset of the browser wide "Local State" file we seed.
type localState struct {
	DNSOverHTTPS *dohPrefs `json:"dns_over_https,omitempty"`
}

type dohPrefs struct {
	Mode string `json:"mode"`
}

// WriteProfile seeds a fresh user data directory with the session's preferences.
// dir must exist and should be empty; the files are written from scratch.
func WriteProfile(dir string, policy schemas.BrowserPolicy, prefs schemas.ProfilePreferences) error {
	profileDir := filepath.Join(dir, defaultProfile)
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	var p profilePreferences
	if prefs.NetmonitorPreselected {
		p.DevTools = &devToolsPrefs{
			Preferences: map[string]string{"panel-selectedTab": `"network"`},
		}
	}
	if prefs.ProxyEnabled {
		server := net.JoinHostPort(prefs.ProxyHost, strconv.Itoa(prefs.ProxyPort))
		p.Proxy = &proxyPrefs{Mode: "fixed_servers", Server: server}
	}
	if err := writeJSON(filepath.Join(profileDir, preferencesFile), p); err != nil {
		return err
	}

	var ls localState
	if policy.DoHDisabled {
		ls.DNSOverHTTPS = &dohPrefs{Mode: "off"}
	}
	return writeJSON(filepath.Join(dir, localStateFile), ls)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
