// Package reporting appends measurement results to a report file, one record per
// measurement, so repeated invocations build up a dataset.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// Reporter defines the interface for writing measurement results to an output.
type Reporter interface {
	// Write records a single measurement result.
	Write(result *schemas.Result) error
	// Close flushes the report and closes any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("json" or "csv") appending to outputPath.
// "stderr" reports to standard error; standard output is reserved for the artifact.
func New(format, outputPath string, stderr io.Writer) (Reporter, error) {
	if format != "json" && format != "csv" {
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}

	var (
		writer io.WriteCloser
		empty  = true
	)
	switch outputPath {
	case "":
		return nil, fmt.Errorf("report path is required")
	case "-", "stdout":
		return nil, fmt.Errorf("reports cannot go to stdout, which carries the artifact")
	case "stderr":
		writer = &nopWriteCloser{stderr}
	default:
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open report file %s: %w", outputPath, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to stat report file %s: %w", outputPath, err)
		}
		empty = info.Size() == 0
		writer = f
	}

	if format == "csv" {
		return NewCSVReporter(writer, empty), nil
	}
	return NewJSONReporter(writer), nil
}
