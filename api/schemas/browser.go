package schemas

// -- Browser Policy Schemas --

// DANEProxyPort is the port the validating proxy listens on.
const DANEProxyPort = 8080

// BrowserPolicy holds the launch-level settings derived from a MeasurementRequest.
// Every field is fixed today; the struct exists so the derivation is explicit and testable.
type BrowserPolicy struct {
	Headless bool `json:"headless"`
	// StrictCertificateValidation must stay true: the measurement relies on load
	// failures to observe certificate validation failures.
	StrictCertificateValidation bool `json:"strict_certificate_validation"`
	// DevToolsEnabled opens devtools for logging purposes only.
	DevToolsEnabled bool `json:"devtools_enabled"`
	// DoHDisabled forces the browser onto the system resolver.
	DoHDisabled bool `json:"doh_disabled"`
}

// ProfilePreferences holds the profile-level settings of a session.
type ProfilePreferences struct {
	ProxyEnabled          bool   `json:"proxy_enabled"`
	ProxyHost             string `json:"proxy_host,omitempty"`
	ProxyPort             int    `json:"proxy_port"`
	NetmonitorPreselected bool   `json:"netmonitor_preselected"`
}
