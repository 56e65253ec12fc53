// File: internal/resolver/configurator.go
// Description: Points the execution environment's name resolution at a caller
// supplied nameserver by rewriting its resolv.conf. The change is never rolled back;
// the environment (a disposable measurement container) is single use.

package resolver

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// ndotsOption disables search domain suffixing so hostnames resolve exactly as given.
const ndotsOption = "ndots:0"

// Store is the resolver file capability. It is injected so tests can use an
// in-memory fake instead of touching the real system file.
type Store interface {
	Read() ([]byte, error)
	Write(content []byte) error
}

// FileStore is a Store backed by a file on disk, normally /etc/resolv.conf.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Read returns the current file content.
func (f *FileStore) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Write truncates and rewrites the file in place. resolv.conf is usually a bind
// mount inside containers, so a write-to-temp-and-rename would fail with EBUSY.
func (f *FileStore) Write(content []byte) error {
	return os.WriteFile(f.Path, content, 0o644)
}

// Configurator installs a nameserver into a Store.
type Configurator struct {
	store  Store
	logger *zap.Logger
}

// NewConfigurator creates a Configurator writing to store.
func NewConfigurator(store Store, logger *zap.Logger) *Configurator {
	return &Configurator{
		store:  store,
		logger: logger.Named("resolver"),
	}
}

// Render produces the exact resolver file content for nameserver.
func Render(nameserver string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "nameserver %s\n", nameserver)
	fmt.Fprintf(&b, "options %s\n", ndotsOption)
	return b.Bytes()
}

// Configure overwrites the resolver file so that resolverIP is the only nameserver.
// An empty resolverIP leaves the existing configuration untouched. Every failure is
// returned as a *schemas.ConfigurationError: running against the default resolver
// would silently invalidate the measurement.
func (c *Configurator) Configure(ctx context.Context, resolverIP string) error {
	if resolverIP == "" {
		c.logger.Debug("No resolver requested, keeping the environment default.")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &schemas.ConfigurationError{Op: "resolver configuration", Err: err}
	}
	if net.ParseIP(resolverIP) == nil {
		return &schemas.ConfigurationError{
			Op:  "resolver configuration",
			Err: fmt.Errorf("%q is not an IP address", resolverIP),
		}
	}

	if err := c.store.Write(Render(resolverIP)); err != nil {
		return &schemas.ConfigurationError{Op: "resolver file write", Err: err}
	}

	if err := c.verify(resolverIP); err != nil {
		return &schemas.ConfigurationError{Op: "resolver file verification", Err: err}
	}

	c.logger.Info("Resolver configured.", zap.String("nameserver", resolverIP))
	return nil
}

// verify reads the file back and parses it the way a stub resolver would.
func (c *Configurator) verify(resolverIP string) error {
	content, err := c.store.Read()
	if err != nil {
		return fmt.Errorf("failed to read back resolver file: %w", err)
	}
	parsed, err := dns.ClientConfigFromReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse resolver file: %w", err)
	}
	if len(parsed.Servers) != 1 || parsed.Servers[0] != resolverIP {
		return fmt.Errorf("resolver file lists nameservers %v, want [%s]", parsed.Servers, resolverIP)
	}
	if parsed.Ndots != 0 {
		return fmt.Errorf("resolver file has ndots:%d, want ndots:0", parsed.Ndots)
	}
	return nil
}
