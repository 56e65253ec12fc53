package schemas

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// DefaultMeasurementTimeout bounds both the page load and the wait for the capture artifact
// when the caller does not provide a timeout.
const DefaultMeasurementTimeout = 30 * time.Second

// -- Measurement Request --

// MeasurementRequest fully determines one page load measurement. It is treated as an
// immutable value once constructed with NewMeasurementRequest.
type MeasurementRequest struct {
	// Website is the page to load. A bare hostname is normalized to an https URL.
	Website string `json:"website"`
	// ResolverIP is the nameserver to install before the browser starts. Empty means
	// the environment default resolver is left untouched.
	ResolverIP string `json:"resolver_ip,omitempty"`
	// ProxyHost is the validating (DANE enforcing) proxy. Only effective together with DANE.
	ProxyHost string `json:"proxy_host,omitempty"`
	// DANE enables the DANE proxy policy.
	DANE bool `json:"dane"`
	// FillCacheOnly performs a single navigation to warm the upstream resolver's
	// cache and skips artifact capture.
	FillCacheOnly bool `json:"fill_cache_only"`
	// Timeout bounds navigation and artifact readiness.
	Timeout time.Duration `json:"timeout"`
}

// NewMeasurementRequest validates and normalizes the raw parameters into a request.
func NewMeasurementRequest(website, resolverIP, proxyHost string, dane, fillCacheOnly bool, timeout time.Duration) (MeasurementRequest, error) {
	normalized, err := NormalizeWebsite(website)
	if err != nil {
		return MeasurementRequest{}, err
	}

	resolverIP = strings.TrimSpace(resolverIP)
	if resolverIP != "" && net.ParseIP(resolverIP) == nil {
		return MeasurementRequest{}, fmt.Errorf("resolver ip %q is not a valid IP address", resolverIP)
	}

	if timeout == 0 {
		timeout = DefaultMeasurementTimeout
	}
	if timeout < 0 {
		return MeasurementRequest{}, fmt.Errorf("timeout must be a positive duration, got %s", timeout)
	}

	return MeasurementRequest{
		Website:       normalized,
		ResolverIP:    resolverIP,
		ProxyHost:     strings.TrimSpace(proxyHost),
		DANE:          dane,
		FillCacheOnly: fillCacheOnly,
		Timeout:       timeout,
	}, nil
}

// NormalizeWebsite turns a bare hostname into an https URL and rejects anything the
// browser could not navigate to.
func NormalizeWebsite(website string) (string, error) {
	website = strings.TrimSpace(website)
	if website == "" {
		return "", fmt.Errorf("website must not be empty")
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return "", fmt.Errorf("invalid website %q: %w", website, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q for website %q", u.Scheme, website)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("website %q has no host", website)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Host returns the hostname part of the request's website.
func (r MeasurementRequest) Host() string {
	u, err := url.Parse(r.Website)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// -- Measurement Result --

// Outcome classifies how a measurement that ran to completion ended.
// Harness malfunctions are not outcomes; they are returned as errors.
type Outcome string

const (
	// OutcomeCaptured means the capture artifact became ready and was read.
	OutcomeCaptured Outcome = "CAPTURED"
	// OutcomeNavigationFailure means the page load itself failed (timeout,
	// certificate validation rejection, network error).
	OutcomeNavigationFailure Outcome = "NAVIGATION_FAILURE"
	// OutcomeArtifactTimeout means the page loaded but the sentinel never appeared
	// before the deadline.
	OutcomeArtifactTimeout Outcome = "ARTIFACT_TIMEOUT"
	// OutcomeCacheFilled means a fill-cache-only run completed its navigation.
	OutcomeCacheFilled Outcome = "CACHE_FILLED"
)

// String implements fmt.Stringer.
func (o Outcome) String() string { return string(o) }

// Artifact is the out-of-band capture. Content is only populated when Ready is true.
type Artifact struct {
	Path    string `json:"path"`
	Ready   bool   `json:"ready"`
	Content []byte `json:"-"`
}

// Result is the structured report of one measurement.
type Result struct {
	MeasurementID   string             `json:"measurement_id"`
	Request         MeasurementRequest `json:"request"`
	Outcome         Outcome            `json:"outcome"`
	Artifact        *Artifact          `json:"artifact,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	Elapsed         time.Duration      `json:"elapsed"`
	NavigationError string             `json:"navigation_error,omitempty"`
	// Summary digests a captured HAR. Nil when nothing was captured or the capture was not a HAR.
	Summary *HARSummary `json:"summary,omitempty"`
}
