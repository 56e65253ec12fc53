package schemas

// -- HAR (HTTP Archive) Schemas --

// HAR is the root object of the HTTP Archive 1.2 format written by the capture
// extension. Only the fields the capture summary reads are modeled; the artifact
// itself is always emitted verbatim.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog holds the creator, pages and entries of a capture.
type HARLog struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Pages   []Page  `json:"pages"`
	Entries []Entry `json:"entries"`
}

// Creator names the tool that exported the HAR.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Page is one page loaded while recording.
// StartedDateTime is kept as text; exporters disagree on its precision.
type Page struct {
	StartedDateTime string      `json:"startedDateTime"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	PageTimings     PageTimings `json:"pageTimings"`
}

// PageTimings are milliseconds from the start of the page load. -1 means not available.
type PageTimings struct {
	OnContentLoad float64 `json:"onContentLoad"`
	OnLoad        float64 `json:"onLoad"`
}

// Entry is one request/response pair.
type Entry struct {
	Pageref  string   `json:"pageref"`
	Time     float64  `json:"time"`
	Request  Request  `json:"request"`
	Response Response `json:"response"`
}

// Request is the request half of an Entry.
type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Response is the response half of an Entry. Status 0 means the request never got
// a response (blocked, refused by the proxy, or failed TLS validation).
type Response struct {
	Status     int     `json:"status"`
	StatusText string  `json:"statusText"`
	Content    Content `json:"content"`
}

// Content describes a response body.
type Content struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// -- Capture Summary --

// StatusClasses counts entries by HTTP status class.
type StatusClasses struct {
	Informational int `json:"informational"`
	Success       int `json:"success"`
	Redirection   int `json:"redirection"`
	ClientError   int `json:"client_error"`
	ServerError   int `json:"server_error"`
	// NoResponse counts entries with status 0.
	NoResponse int `json:"no_response"`
}

// HARSummary is the diagnostic digest of a captured HAR attached to a Result.
type HARSummary struct {
	Creator string `json:"creator"`
	Pages   int    `json:"pages"`
	Entries int    `json:"entries"`
	// OnContentLoad and OnLoad are the first page's timings in milliseconds, -1 when absent.
	OnContentLoad float64 `json:"on_content_load_ms"`
	OnLoad        float64 `json:"on_load_ms"`
	// ValidPageLoadTime is set when the first page reached its load event.
	ValidPageLoadTime bool          `json:"valid_page_load_time"`
	Status            StatusClasses `json:"status"`
	BodyBytes         int64         `json:"body_bytes"`
}
