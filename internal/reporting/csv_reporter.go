package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// CSVHeader names the columns of a CSV report.
var CSVHeader = []string{
	"measurement_id",
	"website",
	"resolver_ip",
	"proxy_host",
	"dane",
	"fill_cache_only",
	"outcome",
	"started_at",
	"elapsed_ms",
	"on_content_load_ms",
	"on_load_ms",
	"entries",
	"no_response",
	"client_errors",
	"server_errors",
	"navigation_error",
}

// CSVReporter writes one row per result.
type CSVReporter struct {
	w          io.WriteCloser
	csv        *csv.Writer
	needHeader bool
}

// NewCSVReporter takes ownership of w. The header is written before the first row
// when writeHeader is set.
func NewCSVReporter(w io.WriteCloser, writeHeader bool) *CSVReporter {
	return &CSVReporter{w: w, csv: csv.NewWriter(w), needHeader: writeHeader}
}

func (r *CSVReporter) Write(result *schemas.Result) error {
	if r.needHeader {
		if err := r.csv.Write(CSVHeader); err != nil {
			return err
		}
		r.needHeader = false
	}
	if err := r.csv.Write(csvRecord(result)); err != nil {
		return err
	}
	r.csv.Flush()
	return r.csv.Error()
}

func (r *CSVReporter) Close() error {
	r.csv.Flush()
	return multierr.Append(r.csv.Error(), r.w.Close())
}

func csvRecord(result *schemas.Result) []string {
	req := result.Request
	onContentLoad, onLoad := "-1", "-1"
	var entries, noResponse, clientErrors, serverErrors string
	if s := result.Summary; s != nil {
		onContentLoad = formatMillis(s.OnContentLoad)
		onLoad = formatMillis(s.OnLoad)
		entries = strconv.Itoa(s.Entries)
		noResponse = strconv.Itoa(s.Status.NoResponse)
		clientErrors = strconv.Itoa(s.Status.ClientError)
		serverErrors = strconv.Itoa(s.Status.ServerError)
	}
	return []string{
		result.MeasurementID,
		req.Website,
		req.ResolverIP,
		req.ProxyHost,
		strconv.FormatBool(req.DANE),
		strconv.FormatBool(req.FillCacheOnly),
		result.Outcome.String(),
		result.StartedAt.UTC().Format(time.RFC3339),
		strconv.FormatInt(result.Elapsed.Milliseconds(), 10),
		onContentLoad,
		onLoad,
		entries,
		noResponse,
		clientErrors,
		serverErrors,
		result.NavigationError,
	}
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}
