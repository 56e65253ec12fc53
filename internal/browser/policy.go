// internal/browser/policy.go
package browser

import (
	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// BuildPolicy derives the launch policy and profile preferences for a measurement.
// It is pure and deterministic. A DANE request without a proxy host silently gets no proxy.
func BuildPolicy(req schemas.MeasurementRequest) (schemas.BrowserPolicy, schemas.ProfilePreferences) {
	policy := schemas.BrowserPolicy{
		Headless:                    true,
		StrictCertificateValidation: true,
		DevToolsEnabled:             true,
		DoHDisabled:                 true,
	}

	prefs := schemas.ProfilePreferences{
		ProxyPort:             schemas.DANEProxyPort,
		NetmonitorPreselected: true,
	}
	if req.DANE && req.ProxyHost != "" {
		prefs.ProxyEnabled = true
		prefs.ProxyHost = req.ProxyHost
	}

	return policy, prefs
}
