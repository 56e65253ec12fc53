// File: internal/resolver/preflight.go
package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// PreflightReport summarizes what the configured resolver answered before the page load.
// It is diagnostic only and never changes a measurement's outcome.
type PreflightReport struct {
	Resolver    string
	Host        string
	Rcode       string
	Addresses   []string
	RTT         time.Duration
	TLSAName    string
	TLSARcode   string
	TLSARecords int
}

// Prober sends preflight queries straight to a resolver over UDP.
type Prober struct {
	client *dns.Client
	port   int
	logger *zap.Logger
}

// NewProber creates a Prober that queries port on the resolver with the given per query timeout.
func NewProber(port int, timeout time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		port:   port,
		logger: logger.Named("preflight"),
	}
}

// TLSAName returns the TLSA owner name for HTTPS on host, e.g. _443._tcp.example.com.
func TLSAName(host string) string {
	return dns.Fqdn("_443._tcp." + host)
}

// Probe asks resolverIP for host's A records, and when dane is set also for the
// host's HTTPS TLSA records. Transport failures are returned; DNS level failures
// (NXDOMAIN, SERVFAIL) are reported in the PreflightReport.
func (p *Prober) Probe(ctx context.Context, resolverIP, host string, dane bool) (*PreflightReport, error) {
	server := net.JoinHostPort(resolverIP, strconv.Itoa(p.port))
	report := &PreflightReport{Resolver: server, Host: host}

	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(host), dns.TypeA)
	query.RecursionDesired = true

	resp, rtt, err := p.client.ExchangeContext(ctx, query, server)
	if err != nil {
		return report, fmt.Errorf("A query for %s via %s failed: %w", host, server, err)
	}
	report.RTT = rtt
	report.Rcode = dns.RcodeToString[resp.Rcode]
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			report.Addresses = append(report.Addresses, a.A.String())
		}
	}

	if dane {
		report.TLSAName = TLSAName(host)
		tlsaQuery := new(dns.Msg)
		tlsaQuery.SetQuestion(report.TLSAName, dns.TypeTLSA)
		tlsaQuery.RecursionDesired = true
		// DANE needs DNSSEC validated answers; ask for them.
		tlsaQuery.SetEdns0(4096, true)

		tlsaResp, _, err := p.client.ExchangeContext(ctx, tlsaQuery, server)
		if err != nil {
			return report, fmt.Errorf("TLSA query for %s via %s failed: %w", report.TLSAName, server, err)
		}
		report.TLSARcode = dns.RcodeToString[tlsaResp.Rcode]
		for _, rr := range tlsaResp.Answer {
			if _, ok := rr.(*dns.TLSA); ok {
				report.TLSARecords++
			}
		}
	}

	p.logger.Info("Resolver preflight finished.",
		zap.String("resolver", report.Resolver),
		zap.String("host", host),
		zap.String("rcode", report.Rcode),
		zap.Strings("addresses", report.Addresses),
		zap.Duration("rtt", report.RTT),
		zap.String("tlsa_rcode", report.TLSARcode),
		zap.Int("tlsa_records", report.TLSARecords),
	)
	return report, nil
}
