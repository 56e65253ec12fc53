package reporting

import (
	"io"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// JSONReporter writes one JSON document per line.
type JSONReporter struct {
	w   io.WriteCloser
	enc *json.Encoder
}

// NewJSONReporter takes ownership of w.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{
		w:   w,
		enc: json.ConfigCompatibleWithStandardLibrary.NewEncoder(w),
	}
}

func (r *JSONReporter) Write(result *schemas.Result) error {
	return r.enc.Encode(result)
}

func (r *JSONReporter) Close() error {
	return r.w.Close()
}
