package cmd

import (
	"io"
	"os"
	"path/filepath"
)

// artifactOutput is where the capture goes. A file destination is only created on the
// first write, so runs without a capture leave no empty file behind.
type artifactOutput struct {
	path   string
	stdout io.Writer
	file   *os.File
}

func newOutput(path string, stdout io.Writer) *artifactOutput {
	return &artifactOutput{path: path, stdout: stdout}
}

func (o *artifactOutput) Write(p []byte) (int, error) {
	if o.path == "" || o.path == "-" {
		return o.stdout.Write(p)
	}
	if o.file == nil {
		if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return 0, err
		}
		o.file = f
	}
	return o.file.Write(p)
}

// Close closes the file destination, if one was opened. Standard output is left open.
func (o *artifactOutput) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}
